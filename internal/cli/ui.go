package cli

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/imkarma/taskboard/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive board",
	Long: "Opens the kanban board in the terminal. Cards can be moved between lanes\n" +
		"with m (pick up, then drop) or H/L, and are saved to the task service.",
	RunE: runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.log.Info("opening board")
	model := tui.New(cmd.Context(), a.engine, a.users, a.log)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
