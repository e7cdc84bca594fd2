package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/imkarma/taskboard/internal/board"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If popup is active, handle popup keys first.
		if m.popup != popupNone {
			return m.handlePopupKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tasksFetchedMsg:
		var focusID string
		if t, ok := m.selected(); ok {
			focusID = t.ID
		}
		m.engine.FinishLoad(msg.tasks, msg.err)
		if m.holding != nil {
			if _, ok := m.engine.Locate(m.holding.taskID); !ok {
				m.holding = nil
			}
		}
		if focusID != "" {
			m.focus(focusID)
		}
		m.clampCursor()
		if msg.err != nil {
			return m, m.setError(msg.err)
		}
		if rej := m.engine.Rejected(); len(rej) > 0 {
			return m, m.setStatus(fmt.Sprintf("Skipped %d task(s) with an unknown priority", len(rej)))
		}
		return m, nil

	case usersLoadedMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).Warn("loading users")
			return m, m.setError(msg.err)
		}
		m.userList = msg.users
		return m, nil

	case mutationDoneMsg:
		reload := m.engine.Settle(msg.mutation, msg.err)
		var cmds []tea.Cmd
		if msg.err != nil {
			cmds = append(cmds, m.setError(m.engine.Err()))
		} else {
			cmds = append(cmds, m.setStatus(doneText(msg.mutation)))
		}
		if reload {
			cmds = append(cmds, m.load())
		}
		m.clampCursor()
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusClearMsg:
		if msg.at.Equal(m.statusTime) {
			m.statusMsg = ""
			m.statusErr = false
		}
		return m, nil
	}

	return m, nil
}

func doneText(mut *board.Mutation) string {
	switch mut.Kind {
	case board.MutationCreate:
		return "Task created"
	case board.MutationDelete:
		return "Deleted #" + mut.TaskID
	case board.MutationReorder:
		return "Moved #" + mut.TaskID
	}
	return "Saved #" + mut.TaskID
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	// Navigation.
	case "h", "left":
		m.cursorCol--
		m.clampCursor()
	case "l", "right":
		m.cursorCol++
		m.clampCursor()
	case "j", "down":
		m.cursorRow++
		m.clampCursor()
	case "k", "up":
		m.cursorRow--
		m.clampCursor()
	case "g":
		m.cursorRow = 0
	case "G":
		m.cursorRow = m.laneLen(m.cursorCol) - 1
		m.clampCursor()

	// Pick up / drop.
	case "m", " ":
		if m.holding != nil {
			return m.drop()
		}
		return m.pickUp()
	case "enter":
		if m.holding != nil {
			return m.drop()
		}
	case "esc":
		if m.holding != nil {
			// Nothing moves until the drop, so cancelling only lets go.
			id := m.holding.taskID
			m.holding = nil
			m.focus(id)
			return m, m.setStatus("Move cancelled")
		}
		if m.engine.Filter().Active() {
			m.engine.ClearFilter()
			m.clampCursor()
			return m, m.setStatus("Filter cleared")
		}

	// Quick moves.
	case "H":
		return m.quickMove(-1, 0)
	case "L":
		return m.quickMove(1, 0)
	case "K":
		return m.quickMove(0, -1)
	case "J":
		return m.quickMove(0, 1)

	// Filters.
	case "/":
		m.popup = popupSearch
		m.searchInput.SetValue(m.engine.Filter().Search)
		m.searchInput.CursorEnd()
		m.searchInput.Focus()
		return m, textinput.Blink
	case "u":
		if m.users == nil {
			return m, m.setStatus("No user list available")
		}
		m.popup = popupUsers
		m.userCursor = max(m.userIndexByName(m.engine.Filter().Assignee), 0)
		if len(m.userList) == 0 {
			return m, m.loadUsers()
		}

	// Task actions.
	case "c", "ctrl+n":
		return m.openCreate()
	case "e":
		return m.openEdit()
	case "x", "delete":
		if t, ok := m.selected(); ok && m.holding == nil {
			if m.engine.Pending(t.ID) {
				return m, m.setStatus("#" + t.ID + " is still saving")
			}
			m.popupTaskID = t.ID
			m.popup = popupConfirmDelete
		}

	// Refresh.
	case "R":
		if m.holding != nil {
			return m, m.setStatus("Drop the card first")
		}
		m.engine.ClearErr()
		return m, m.load()
	}

	return m, nil
}

func (m Model) pickUp() (tea.Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	if m.engine.Pending(t.ID) {
		return m, m.setStatus("#" + t.ID + " is still saving")
	}
	m.holding = &held{taskID: t.ID, source: board.Position{Lane: m.cursorCol, Index: m.cursorRow}}
	return m, m.setStatus("Moving #" + t.ID + ": choose a spot and press m or enter")
}

func (m Model) drop() (tea.Model, tea.Cmd) {
	h := m.holding
	m.holding = nil
	g := board.Gesture{
		TaskID:      h.taskID,
		Source:      h.source,
		Destination: &board.Position{Lane: m.cursorCol, Index: m.cursorRow},
	}
	return m.applyGesture(g)
}

// quickMove shifts the selected card by dl lanes or dr rows. Lane moves
// land at the end of the destination lane.
func (m Model) quickMove(dl, dr int) (tea.Model, tea.Cmd) {
	if m.holding != nil {
		return m, nil
	}
	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	src := board.Position{Lane: m.cursorCol, Index: m.cursorRow}
	dst := src
	if dl != 0 {
		dst.Lane = src.Lane + board.Lane(dl)
		if !dst.Lane.Valid() {
			return m, nil
		}
		dst.Index = len(m.engine.Lane(dst.Lane))
	} else {
		dst.Index = src.Index + dr
		if dst.Index < 0 || dst.Index >= len(m.engine.Lane(src.Lane)) {
			return m, nil
		}
	}
	return m.applyGesture(board.Gesture{TaskID: t.ID, Source: src, Destination: &dst})
}

func (m Model) applyGesture(g board.Gesture) (tea.Model, tea.Cmd) {
	mut, err := m.engine.ApplyGesture(g)
	m.focus(g.TaskID)
	if err != nil {
		if errors.Is(err, board.ErrStaleGesture) {
			return m, tea.Batch(m.setError(err), m.load())
		}
		return m, m.setError(err)
	}
	if mut == nil {
		return m, nil
	}
	return m, m.persist(mut)
}

func (m Model) userIndexByName(name string) int {
	for i, u := range m.userList {
		if u.Name == name {
			return i
		}
	}
	return -1
}

func (m Model) openCreate() (tea.Model, tea.Cmd) {
	if m.holding != nil {
		return m, nil
	}
	m.popup = popupCreate
	m.popupLane = m.cursorCol
	m.popupUser = -1
	m.msgInput.Reset()
	m.dueInput.Reset()
	m.inputFocused = 0
	m.dueInput.Blur()
	m.msgInput.Focus()
	return m, textinput.Blink
}

func (m Model) openEdit() (tea.Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok || m.holding != nil {
		return m, nil
	}
	if m.engine.Pending(t.ID) {
		return m, m.setStatus("#" + t.ID + " is still saving")
	}
	m.popup = popupEdit
	m.popupTaskID = t.ID
	m.popupLane = m.cursorCol
	m.popupUser = m.userIndex(t.AssignedTo)
	m.msgInput.SetValue(t.Message)
	m.msgInput.CursorEnd()
	m.dueInput.Reset()
	if !t.DueDate.IsZero() {
		m.dueInput.SetValue(t.DueDate.Format("2006-01-02"))
	}
	m.inputFocused = 0
	m.dueInput.Blur()
	m.msgInput.Focus()
	return m, textinput.Blink
}

// --- Popup keys ---

func (m Model) handlePopupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	switch m.popup {
	case popupCreate, popupEdit:
		return m.handleTaskPopup(msg)
	case popupConfirmDelete:
		return m.handleConfirmDeletePopup(msg)
	case popupSearch:
		return m.handleSearchPopup(msg)
	case popupUsers:
		return m.handleUsersPopup(msg)
	}
	return m, nil
}

func (m Model) handleTaskPopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.popup = popupNone
		return m, nil
	case "tab", "shift+tab":
		if m.inputFocused == 0 {
			m.msgInput.Blur()
			m.dueInput.Focus()
			m.inputFocused = 1
		} else {
			m.dueInput.Blur()
			m.msgInput.Focus()
			m.inputFocused = 0
		}
		return m, textinput.Blink
	case "ctrl+p":
		m.popupLane = (m.popupLane + 1) % board.NumLanes
		return m, nil
	case "ctrl+u":
		if len(m.userList) > 0 {
			m.popupUser++
			if m.popupUser >= len(m.userList) {
				m.popupUser = -1
			}
		}
		return m, nil
	case "enter":
		return m.submitTaskPopup()
	}

	// Forward to the active text input.
	var cmd tea.Cmd
	if m.inputFocused == 0 {
		m.msgInput, cmd = m.msgInput.Update(msg)
	} else {
		m.dueInput, cmd = m.dueInput.Update(msg)
	}
	return m, cmd
}

func (m Model) submitTaskPopup() (tea.Model, tea.Cmd) {
	message := strings.TrimSpace(m.msgInput.Value())
	if message == "" {
		return m, m.setStatus("Message cannot be empty")
	}

	var due time.Time
	if raw := strings.TrimSpace(m.dueInput.Value()); raw != "" {
		d, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return m, m.setStatus("Due date must be YYYY-MM-DD")
		}
		due = d
	}

	var assignee board.User
	if m.popupUser >= 0 && m.popupUser < len(m.userList) {
		assignee = m.userList[m.popupUser]
	}
	priority := m.popupLane.Priority()

	if m.popup == popupCreate {
		mut, err := m.engine.BeginCreate(board.Draft{
			Message:    message,
			DueDate:    due,
			Priority:   priority,
			AssignedTo: assignee.ID,
		})
		if err != nil {
			return m, m.setError(err)
		}
		m.popup = popupNone
		return m, tea.Batch(m.persist(mut), m.setStatus("Creating task..."))
	}

	t, ok := m.engine.Task(m.popupTaskID)
	if !ok {
		m.popup = popupNone
		return m, m.setError(fmt.Errorf("#%s: %w", m.popupTaskID, board.ErrTaskNotFound))
	}
	var f board.Fields
	if message != t.Message {
		f.Message = &message
	}
	if priority != t.Priority {
		f.Priority = &priority
	}
	if !due.IsZero() && !sameDay(due, t.DueDate) {
		f.DueDate = &due
	}
	if assignee.ID != t.AssignedTo {
		f.AssignedTo = &assignee.ID
		f.AssignedName = &assignee.Name
	}
	mut, err := m.engine.BeginUpdate(t.ID, f)
	if errors.Is(err, board.ErrNoChanges) {
		m.popup = popupNone
		return m, m.setStatus("Nothing changed")
	}
	if err != nil {
		return m, m.setError(err)
	}
	m.popup = popupNone
	return m, tea.Batch(m.persist(mut), m.setStatus("Saving #"+t.ID+"..."))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (m Model) handleConfirmDeletePopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.popup = popupNone
		mut, err := m.engine.BeginDelete(m.popupTaskID)
		if err != nil {
			return m, m.setError(err)
		}
		return m, tea.Batch(m.persist(mut), m.setStatus("Deleting #"+m.popupTaskID+"..."))
	case "n", "esc":
		m.popup = popupNone
		return m, nil
	}
	return m, nil
}

func (m Model) handleSearchPopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.popup = popupNone
		m.searchInput.Blur()
		return m, nil
	case "enter":
		m.popup = popupNone
		m.searchInput.Blur()
		text := strings.TrimSpace(m.searchInput.Value())
		if text == "" {
			m.engine.ClearFilter()
		} else {
			m.engine.FilterBySearch(text)
		}
		m.cursorRow = 0
		m.clampCursor()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleUsersPopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "u":
		m.popup = popupNone
	case "j", "down":
		if m.userCursor < len(m.userList)-1 {
			m.userCursor++
		}
	case "k", "up":
		if m.userCursor > 0 {
			m.userCursor--
		}
	case "enter", " ":
		if m.userCursor < len(m.userList) {
			m.engine.FilterByAssignee(m.userList[m.userCursor].Name)
			m.cursorRow = 0
			m.clampCursor()
		}
		m.popup = popupNone
	}
	return m, nil
}
