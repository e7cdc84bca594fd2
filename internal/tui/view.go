package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imkarma/taskboard/internal/board"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrYellow    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrBlue      = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	clrCyan      = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// --- Styles ---
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	dimStyle    = lipgloss.NewStyle().Foreground(clrDim)
	subtleStyle = lipgloss.NewStyle().Foreground(clrSubtle)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrSubtle).
			Padding(0, 1)

	cardSelectedStyle = cardStyle.
				BorderForeground(clrHighlight).
				Bold(true)

	cardHeldStyle = cardStyle.
			Border(lipgloss.DoubleBorder()).
			BorderForeground(clrYellow)

	dropSlotStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(clrYellow).
			Foreground(clrYellow).
			Padding(0, 1)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrHighlight).
			Padding(1, 2).
			Width(60)

	statusStyle = lipgloss.NewStyle().Foreground(clrGreen).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(clrRed).Bold(true)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

var laneColors = [board.NumLanes]lipgloss.AdaptiveColor{clrRed, clrYellow, clrBlue, clrGreen}

// cardHeight is the rendered height of one card including its border.
const cardHeight = 4

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	content := m.viewBoard()

	// Overlay popup if active.
	if m.popup != popupNone {
		content = m.overlayPopup(content)
	}

	return content
}

// ════════════════════════════════════════════════
// BOARD VIEW
// ════════════════════════════════════════════════

func (m Model) viewBoard() string {
	var b strings.Builder

	// Header.
	header := titleStyle.Render("taskboard")
	header += dimStyle.Render(fmt.Sprintf(" · %d tasks", len(m.engine.Tasks())))
	if f := m.engine.Filter(); f.Active() {
		label := "user: " + f.Assignee
		if f.Search != "" {
			label = fmt.Sprintf("search: %q", f.Search)
		}
		header += "  " + lipgloss.NewStyle().Foreground(clrCyan).Render("["+label+"]")
	}
	rightHelp := footerKeyStyle.Render("c") + footerDescStyle.Render(" new  ") +
		footerKeyStyle.Render("q") + footerDescStyle.Render(" quit")

	headerLine := header
	if m.width > 0 {
		pad := m.width - lipgloss.Width(header) - lipgloss.Width(rightHelp)
		if pad > 0 {
			headerLine = header + strings.Repeat(" ", pad) + rightHelp
		}
	}
	b.WriteString(headerLine + "\n\n")

	// Lanes side by side.
	colWidth := 30
	if m.width > 0 {
		colWidth = max((m.width-2)/board.NumLanes, 18)
	}
	cols := make([]string, 0, board.NumLanes)
	for _, l := range board.AllLanes {
		cols = append(cols, m.renderLane(l, colWidth))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	b.WriteString("\n")

	// Status message.
	if m.statusMsg != "" {
		if m.statusErr {
			b.WriteString(errorStyle.Render("  " + m.statusMsg))
		} else {
			b.WriteString(statusStyle.Render("  " + m.statusMsg))
		}
		b.WriteString("\n")
	}

	// Footer.
	b.WriteString(m.boardFooter())

	return b.String()
}

// visibleCards is how many cards fit in a lane column.
func (m Model) visibleCards() int {
	if m.height <= 0 {
		return 6
	}
	return max((m.height-8)/cardHeight, 1)
}

func (m Model) renderLane(l board.Lane, width int) string {
	var b strings.Builder
	tasks := m.engine.Lane(l)
	active := l == m.cursorCol

	// Lane header: label, count and a spinner while loading.
	head := lipgloss.NewStyle().Bold(true).Foreground(laneColors[l]).Render(l.Label())
	head += dimStyle.Render(fmt.Sprintf(" (%d)", len(tasks)))
	if m.engine.Loading() {
		head += " " + m.spinner.View()
	}
	if active {
		head = lipgloss.NewStyle().Underline(true).Render(head)
	}
	b.WriteString(" " + head + "\n")

	cardWidth := width - 4

	var fetchErr *board.FetchError
	switch {
	case len(tasks) == 0 && m.engine.Loading():
		b.WriteString(dimStyle.Render("  loading...") + "\n")
	case len(tasks) == 0 && errors.As(m.engine.Err(), &fetchErr):
		b.WriteString(errorStyle.Render("  failed to load") + "\n")
		b.WriteString(dimStyle.Render("  press R to retry") + "\n")
	}

	// Window the lane around the cursor.
	rows := len(tasks)
	dropRow := -1
	if m.holding != nil && active {
		dropRow = m.cursorRow
		if l != m.holding.source.Lane && dropRow >= rows {
			rows++
		}
	}
	visible := m.visibleCards()
	start := 0
	if active && m.cursorRow >= visible {
		start = m.cursorRow - visible + 1
	}
	end := min(start+visible, rows)
	if start > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ↑ %d more", start)) + "\n")
	}

	for i := start; i < end; i++ {
		if i == dropRow && (i >= len(tasks) || tasks[i].ID != m.holding.taskID) {
			b.WriteString(dropSlotStyle.Width(cardWidth).Render("drop here") + "\n")
			if i >= len(tasks) {
				continue
			}
		}
		b.WriteString(m.renderCard(tasks[i], active && i == m.cursorRow, cardWidth) + "\n")
	}
	if end < rows {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ↓ %d more", rows-end)) + "\n")
	}

	return lipgloss.NewStyle().Width(width).Render(b.String())
}

func (m Model) renderCard(t board.Task, selected bool, width int) string {
	style := cardStyle
	if selected {
		style = cardSelectedStyle
	}
	if m.holding != nil && m.holding.taskID == t.ID {
		style = cardHeldStyle
	}

	// First line: id + message.
	idStr := lipgloss.NewStyle().Foreground(clrCyan).Render("#" + t.ID)
	msg := truncate(t.Message, width-lipgloss.Width(idStr)-3)
	line1 := idStr + " " + msg
	if m.engine.Pending(t.ID) {
		line1 = m.spinner.View() + " " + line1
	}

	// Second line: assignee + due date.
	var parts []string
	if t.AssignedName != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(clrCyan).Render(truncate(t.AssignedName, 14)))
	}
	if !t.DueDate.IsZero() {
		due := t.DueDate.Format("Jan 2")
		if t.Priority != board.PriorityDone && t.DueDate.Before(time.Now()) {
			parts = append(parts, errorStyle.Render(due))
		} else {
			parts = append(parts, subtleStyle.Render(due))
		}
	}
	line2 := strings.Join(parts, "  ")
	if line2 == "" {
		line2 = dimStyle.Render("unassigned")
	}

	return style.Width(width).Render(line1 + "\n" + line2)
}

func (m Model) boardFooter() string {
	if m.holding != nil {
		return renderFooter([]struct{ key, desc string }{
			{"←↓↑→", "choose spot"},
			{"m/enter", "drop"},
			{"esc", "cancel"},
		})
	}
	keys := []struct{ key, desc string }{
		{"←↓↑→", "navigate"},
		{"m", "move"},
		{"H/L", "lane"},
		{"J/K", "order"},
		{"/", "search"},
		{"u", "user"},
		{"c", "new"},
		{"e", "edit"},
		{"x", "delete"},
		{"R", "refresh"},
	}
	if m.engine.Filter().Active() {
		keys = append(keys, struct{ key, desc string }{"esc", "clear filter"})
	}
	return renderFooter(keys)
}

// ════════════════════════════════════════════════
// POPUPS
// ════════════════════════════════════════════════

func (m Model) overlayPopup(bg string) string {
	var popup string

	switch m.popup {
	case popupCreate, popupEdit:
		popup = m.viewTaskPopup()
	case popupConfirmDelete:
		popup = m.viewConfirmDeletePopup()
	case popupSearch:
		popup = m.viewSearchPopup()
	case popupUsers:
		popup = m.viewUsersPopup()
	default:
		return bg
	}

	// Place popup in center of screen.
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			popup,
			lipgloss.WithWhitespaceChars(" "),
		)
	}

	return popup
}

func (m Model) viewTaskPopup() string {
	var b strings.Builder

	heading := "New Task"
	if m.popup == popupEdit {
		heading = "Edit Task #" + m.popupTaskID
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(clrHighlight).Render(heading) + "\n\n")

	b.WriteString("Message:\n")
	b.WriteString(m.msgInput.View() + "\n\n")

	b.WriteString("Due date:\n")
	b.WriteString(m.dueInput.View() + "\n\n")

	laneStyle := lipgloss.NewStyle().Bold(true).Foreground(laneColors[m.popupLane])
	b.WriteString(fmt.Sprintf("Lane:     %s\n", laneStyle.Render(m.popupLane.Label())))

	assignee := dimStyle.Render("unassigned")
	if m.popupUser >= 0 && m.popupUser < len(m.userList) {
		assignee = lipgloss.NewStyle().Foreground(clrCyan).Render(m.userList[m.popupUser].Name)
	}
	b.WriteString(fmt.Sprintf("Assignee: %s\n\n", assignee))

	submit := "enter save"
	if strings.TrimSpace(m.msgInput.Value()) == "" {
		submit = dimStyle.Render("enter save")
	}
	b.WriteString(footerDescStyle.Render(submit + " • tab switch • ctrl+p lane • ctrl+u assignee • esc cancel"))

	return m.popupBoxStyle().Render(b.String())
}

func (m Model) viewConfirmDeletePopup() string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(clrRed).Render("Delete Task") + "\n\n")
	if t, ok := m.engine.Task(m.popupTaskID); ok {
		b.WriteString(fmt.Sprintf("#%s %s\n\n", t.ID, t.Message))
	}
	b.WriteString("This cannot be undone.\n\n")

	b.WriteString(footerKeyStyle.Render("y") + footerDescStyle.Render(" delete  ") +
		footerKeyStyle.Render("n") + footerDescStyle.Render(" cancel"))

	return m.popupBoxStyle().Render(b.String())
}

func (m Model) viewSearchPopup() string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(clrHighlight).Render("Search") + "\n\n")
	b.WriteString(m.searchInput.View() + "\n\n")
	b.WriteString(footerDescStyle.Render("enter apply (empty clears) • esc cancel"))

	return m.popupBoxStyle().Render(b.String())
}

func (m Model) viewUsersPopup() string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(clrHighlight).Render("Filter by User") + "\n\n")
	if len(m.userList) == 0 {
		b.WriteString(dimStyle.Render("Loading users...") + "\n\n")
	}
	current := m.engine.Filter().Assignee
	for i, u := range m.userList {
		marker := "  "
		if i == m.userCursor {
			marker = footerKeyStyle.Render("▸ ")
		}
		name := u.Name
		if name == current {
			name = statusStyle.Render(name + " ✓")
		}
		b.WriteString(marker + name + "\n")
	}
	b.WriteString("\n" + footerDescStyle.Render("enter toggle • esc close"))

	return m.popupBoxStyle().Render(b.String())
}

func (m Model) popupBoxStyle() lipgloss.Style {
	w := 60
	if m.width > 0 {
		w = m.width - 12
		if w < 42 {
			w = 42
		}
		if w > 84 {
			w = 84
		}
	}
	return popupStyle.Width(w)
}

// ════════════════════════════════════════════════
// SHARED HELPERS
// ════════════════════════════════════════════════

func renderFooter(keys []struct{ key, desc string }) string {
	var parts []string
	for _, k := range keys {
		key := footerKeyStyle.Render(k.key)
		desc := footerDescStyle.Render(k.desc)
		parts = append(parts, key+" "+desc)
	}
	return "  " + strings.Join(parts, "  ")
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
