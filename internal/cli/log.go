package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show changes sent to the task service",
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "Number of entries to show")
}

func runLog(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.ListMutations(logLimit)
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		fmt.Println("No changes recorded yet.")
		return nil
	}

	for _, r := range recs {
		task := ""
		if r.TaskID != "" {
			task = "#" + r.TaskID + " "
		}
		color := colorGreen
		switch r.State {
		case "failed":
			color = colorRed
		case "pending":
			color = colorYellow
		}
		fmt.Printf("  %s  %s%-9s%s %-8s %s%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"), color, r.State, colorReset, r.Kind, task, r.Summary)
		if r.Error != "" {
			fmt.Printf("       %s%s%s\n", colorRed, r.Error, colorReset)
		}
	}
	return nil
}
