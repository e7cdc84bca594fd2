package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/spf13/cobra"
)

// ANSI color codes.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
)

var (
	boardUser   string
	boardSearch string
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the kanban board",
	RunE:  runBoard,
}

func init() {
	boardCmd.Flags().StringVarP(&boardUser, "user", "u", "", "Only show tasks assigned to this user name")
	boardCmd.Flags().StringVarP(&boardSearch, "search", "s", "", "Only show tasks whose message contains this text")
}

func runBoard(cmd *cobra.Command, args []string) error {
	if boardUser != "" && boardSearch != "" {
		return fmt.Errorf("--user and --search cannot be combined")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.engine.Load(cmd.Context()); err != nil {
		return err
	}
	switch {
	case boardUser != "":
		a.engine.FilterByAssignee(boardUser)
	case boardSearch != "":
		a.engine.FilterBySearch(boardSearch)
	}

	printBoard(os.Stdout, a.engine, time.Now())
	return nil
}

func laneColor(l board.Lane) string {
	switch l {
	case board.LaneHigh:
		return colorRed + colorBold
	case board.LaneMedium:
		return colorYellow
	case board.LaneDone:
		return colorGreen
	default:
		return colorWhite
	}
}

// printBoard renders the four lanes side by side.
func printBoard(w io.Writer, e *board.Engine, now time.Time) {
	lanes := e.Lanes()

	if len(e.Tasks()) == 0 {
		fmt.Fprintf(w, "%sBoard is empty.%s Create a task: %staskboard task create \"message\"%s\n",
			colorDim, colorReset, colorCyan, colorReset)
		return
	}

	// Print header.
	colWidth := 28
	headerLine := ""
	sepLine := ""
	for _, l := range board.AllLanes {
		count := len(lanes[l])
		header := fmt.Sprintf(" %s%s%s (%d)", laneColor(l), strings.ToUpper(l.Label()), colorReset, count)
		// padding needs visible length, not byte length (ANSI codes add bytes).
		visibleLen := len(fmt.Sprintf(" %s (%d)", strings.ToUpper(l.Label()), count))
		headerLine += header + strings.Repeat(" ", max(colWidth-visibleLen, 1))
		sepLine += strings.Repeat("─", colWidth)
	}
	fmt.Fprintln(w, headerLine)
	fmt.Fprintln(w, colorDim+sepLine+colorReset)

	// Find max rows.
	maxRows := 0
	for _, l := range board.AllLanes {
		maxRows = max(maxRows, len(lanes[l]))
	}

	for i := 0; i < maxRows; i++ {
		// Message line.
		line := ""
		for _, l := range board.AllLanes {
			if i >= len(lanes[l]) {
				line += strings.Repeat(" ", colWidth)
				continue
			}
			t := lanes[l][i]
			idStr := "#" + t.ID
			msg := truncate(t.Message, colWidth-len(idStr)-3)
			card := fmt.Sprintf(" %s%s%s %s", laneColor(l), idStr, colorReset, msg)
			visibleLen := len(fmt.Sprintf(" %s %s", idStr, msg))
			line += card + strings.Repeat(" ", max(colWidth-visibleLen, 0))
		}
		fmt.Fprintln(w, line)

		// Assignee / due line.
		detailLine := ""
		for _, l := range board.AllLanes {
			if i >= len(lanes[l]) {
				detailLine += strings.Repeat(" ", colWidth)
				continue
			}
			t := lanes[l][i]
			detail, visible := cardDetail(t, l, now)
			if len(visible) > colWidth-4 {
				// Drop colors rather than cut through an escape sequence.
				visible = truncate(visible, colWidth-4)
				detail = visible
			}
			detailLine += "    " + detail + strings.Repeat(" ", max(colWidth-4-len(visible), 0))
		}
		fmt.Fprintln(w, detailLine)
		fmt.Fprintln(w) // spacing between cards
	}

	if f := e.Filter(); f.Active() {
		what := "user " + f.Assignee
		if f.Search != "" {
			what = fmt.Sprintf("search %q", f.Search)
		}
		fmt.Fprintf(w, "%sFiltered by %s%s\n", colorDim, what, colorReset)
	}

	if rej := e.Rejected(); len(rej) > 0 {
		fmt.Fprintf(w, "%s%s⚠  %d task(s) with an unknown priority were skipped%s\n", colorBold, colorRed, len(rej), colorReset)
		for _, err := range rej {
			fmt.Fprintf(w, "  %s\n", err)
		}
		fmt.Fprintln(w)
	}

	// Summary line.
	fmt.Fprintf(w, "%s%d tasks%s", colorBold, lanes.Len(), colorReset)
	if n := len(lanes[board.LaneDone]); n > 0 {
		fmt.Fprintf(w, "  %s✓ %d done%s", colorGreen, n, colorReset)
	}
	if n := overdue(lanes, now); n > 0 {
		fmt.Fprintf(w, "  %s⚠ %d overdue%s", colorRed, n, colorReset)
	}
	fmt.Fprintln(w)
}

// cardDetail returns the colored and the visible text of a card's second line.
func cardDetail(t board.Task, l board.Lane, now time.Time) (string, string) {
	var parts, visible []string
	if t.AssignedName != "" {
		parts = append(parts, colorCyan+"["+t.AssignedName+"]"+colorReset)
		visible = append(visible, "["+t.AssignedName+"]")
	}
	if !t.DueDate.IsZero() {
		due := "due " + t.DueDate.Format("Jan 2")
		color := colorDim
		if l != board.LaneDone && t.DueDate.Before(now) {
			color = colorRed
		}
		parts = append(parts, color+due+colorReset)
		visible = append(visible, due)
	}
	return strings.Join(parts, " "), strings.Join(visible, " ")
}

func overdue(lanes board.Lanes, now time.Time) int {
	n := 0
	for _, l := range board.AllLanes {
		if l == board.LaneDone {
			continue
		}
		for _, t := range lanes[l] {
			if !t.DueDate.IsZero() && t.DueDate.Before(now) {
				n++
			}
		}
	}
	return n
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
