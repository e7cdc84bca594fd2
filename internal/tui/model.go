package tui

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/users"
)

// popupKind is the modal currently shown over the board.
type popupKind int

const (
	popupNone popupKind = iota
	popupCreate
	popupEdit
	popupConfirmDelete
	popupSearch
	popupUsers
)

// held is a card picked up for a drag.
type held struct {
	taskID string
	source board.Position
}

// Model is the top-level bubbletea model. The engine is only touched from
// Update; commands only call its Fetch and Persist.
type Model struct {
	ctx    context.Context
	engine *board.Engine
	users  *users.Provider
	log    *log.Logger
	width  int
	height int

	// Cursor over the lanes. While a card is held the row may be one past
	// the end of the lane, meaning "drop at the end".
	cursorCol board.Lane
	cursorRow int
	holding   *held

	spinner  spinner.Model
	userList []board.User

	// Popup state.
	popup        popupKind
	msgInput     textinput.Model
	dueInput     textinput.Model
	searchInput  textinput.Model
	inputFocused int // 0 = message, 1 = due date
	popupTaskID  string
	popupLane    board.Lane
	popupUser    int // index into userList, -1 = unassigned
	userCursor   int

	// Status message at the bottom.
	statusMsg  string
	statusErr  bool
	statusTime time.Time

	quitting bool
}

// New creates a board model over e. provider may be nil, which disables
// the user picker and assignee cycling.
func New(ctx context.Context, e *board.Engine, provider *users.Provider, logger *log.Logger) Model {
	if logger == nil {
		logger = log.New()
		logger.SetOutput(io.Discard)
	}

	mi := textinput.New()
	mi.Placeholder = "What needs doing..."
	mi.CharLimit = 200
	mi.Width = 50

	di := textinput.New()
	di.Placeholder = "YYYY-MM-DD (empty = today)"
	di.CharLimit = 10
	di.Width = 20

	si := textinput.New()
	si.Placeholder = "Search messages..."
	si.CharLimit = 100
	si.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = dimStyle

	return Model{
		ctx:         ctx,
		engine:      e,
		users:       provider,
		log:         logger,
		cursorCol:   board.LaneHigh,
		spinner:     sp,
		msgInput:    mi,
		dueInput:    di,
		searchInput: si,
		popupUser:   -1,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.loadUsers())
}

type tasksFetchedMsg struct {
	tasks []board.Task
	err   error
}

type usersLoadedMsg struct {
	users []board.User
	err   error
}

type mutationDoneMsg struct {
	mutation *board.Mutation
	err      error
}

type statusClearMsg struct {
	at time.Time
}

// load marks the board loading and fetches in the background.
func (m Model) load() tea.Cmd {
	m.engine.StartLoad()
	e, ctx := m.engine, m.ctx
	return tea.Batch(func() tea.Msg {
		tasks, err := e.Fetch(ctx)
		return tasksFetchedMsg{tasks: tasks, err: err}
	}, m.spinner.Tick)
}

func (m Model) loadUsers() tea.Cmd {
	if m.users == nil {
		return nil
	}
	p, ctx := m.users, m.ctx
	return func() tea.Msg {
		list, err := p.Users(ctx)
		return usersLoadedMsg{users: list, err: err}
	}
}

// persist sends a begun mutation to the service in the background.
func (m Model) persist(mut *board.Mutation) tea.Cmd {
	e, ctx := m.engine, m.ctx
	return tea.Batch(func() tea.Msg {
		return mutationDoneMsg{mutation: mut, err: e.Persist(ctx, mut)}
	}, m.spinner.Tick)
}

func (m *Model) setStatus(msg string) tea.Cmd {
	m.statusMsg = msg
	m.statusErr = false
	m.statusTime = time.Now()
	return clearStatusAfter(m.statusTime)
}

func (m *Model) setError(err error) tea.Cmd {
	m.statusMsg = err.Error()
	m.statusErr = true
	m.statusTime = time.Now()
	return clearStatusAfter(m.statusTime)
}

func clearStatusAfter(at time.Time) tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return statusClearMsg{at: at}
	})
}

// laneLen is how many rows the cursor may visit in lane l.
func (m *Model) laneLen(l board.Lane) int {
	n := len(m.engine.Lane(l))
	if m.holding != nil {
		// Leave room to drop after the last card. The held card still
		// counts in its own lane, so that lane needs no extra slot.
		if l != m.holding.source.Lane {
			n++
		}
	}
	return n
}

func (m *Model) clampCursor() {
	if m.cursorCol < board.LaneHigh {
		m.cursorCol = board.LaneHigh
	}
	if m.cursorCol > board.LaneDone {
		m.cursorCol = board.LaneDone
	}
	if n := m.laneLen(m.cursorCol); m.cursorRow >= n {
		m.cursorRow = n - 1
	}
	if m.cursorRow < 0 {
		m.cursorRow = 0
	}
}

// selected returns the task under the cursor, if any.
func (m *Model) selected() (board.Task, bool) {
	lane := m.engine.Lane(m.cursorCol)
	if m.cursorRow < len(lane) {
		return lane[m.cursorRow], true
	}
	return board.Task{}, false
}

// focus moves the cursor onto task id if it is visible.
func (m *Model) focus(id string) {
	if p, ok := m.engine.Locate(id); ok {
		m.cursorCol, m.cursorRow = p.Lane, p.Index
	}
	m.clampCursor()
}

// busy reports whether the spinner should keep ticking.
func (m *Model) busy() bool {
	return m.engine.Loading() || m.engine.InFlight() > 0
}

// userIndex returns the position of user id in userList, or -1.
func (m *Model) userIndex(id string) int {
	for i, u := range m.userList {
		if u.ID == id {
			return i
		}
	}
	return -1
}
