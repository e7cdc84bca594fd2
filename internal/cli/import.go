package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/worker"
)

var importWorkers int

var taskImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Create tasks from a YAML file",
	Long: `Creates every task listed in a YAML file, several at a time.

  tasks:
    - message: Ship release notes
      priority: high
      due: 2024-03-05
      assign: alice`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskImport,
}

func init() {
	taskImportCmd.Flags().IntVarP(&importWorkers, "workers", "w", 4, "Requests in flight at once")
	taskCmd.AddCommand(taskImportCmd)
}

// importFile is the YAML layout read by task import.
type importFile struct {
	Tasks []importTask `yaml:"tasks"`
}

type importTask struct {
	Message  string `yaml:"message"`
	Priority string `yaml:"priority"`
	Due      string `yaml:"due"`
	Assign   string `yaml:"assign"`
}

// readImport parses an import file. Priorities default to normal.
func readImport(r io.Reader) ([]importTask, error) {
	var f importFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}
	if len(f.Tasks) == 0 {
		return nil, fmt.Errorf("import file lists no tasks")
	}
	for i := range f.Tasks {
		if f.Tasks[i].Priority == "" {
			f.Tasks[i].Priority = "normal"
		}
	}
	return f.Tasks, nil
}

func runTaskImport(cmd *cobra.Command, args []string) error {
	fh, err := os.Open(args[0])
	if err != nil {
		return err
	}
	items, err := readImport(fh)
	fh.Close()
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	drafts := make([]board.Draft, len(items))
	for i, it := range items {
		d := board.Draft{Message: it.Message}
		if d.Priority, err = parsePriority(it.Priority); err != nil {
			return fmt.Errorf("task %d: %w", i+1, err)
		}
		if it.Due != "" {
			if d.DueDate, err = parseDue(it.Due); err != nil {
				return fmt.Errorf("task %d: %w", i+1, err)
			}
		}
		if it.Assign != "" {
			u, err := a.users.Lookup(ctx, it.Assign)
			if err != nil {
				return fmt.Errorf("task %d: %w", i+1, err)
			}
			d.AssignedTo = u.ID
		}
		drafts[i] = d
	}

	results := worker.NewPool(a.client, importWorkers, a.log).Run(ctx, drafts)
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("  %s✗%s %s: %v\n", colorRed, colorReset, r.Draft.Message, r.Err)
			continue
		}
		fmt.Printf("  %s✓%s %s (%.1fs)\n", colorGreen, colorReset, r.Draft.Message, r.Duration.Seconds())
	}

	failed := worker.Failed(results)
	fmt.Printf("\nImported %d of %d tasks\n", len(results)-failed, len(results))
	if failed > 0 {
		return fmt.Errorf("%d task(s) failed to import", failed)
	}
	return nil
}
