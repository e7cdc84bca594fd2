package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:          "taskboard",
	Short:        "Kanban board for a remote task service",
	Long:         "A terminal kanban board over a remote task service.\nTasks are grouped into high, medium, normal and done lanes.",
	SilenceUsage: true,
}

// Execute runs the root command. Interrupts cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Log at debug level")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(uiCmd)
}
