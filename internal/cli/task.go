package cli

import (
	"fmt"
	"strings"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/spf13/cobra"
)

// Each subcommand binds its own variables: pflag writes a flag's default
// into the bound variable when the flag is registered.
var (
	createPriority string
	createDue      string
	createAssign   string

	updateMessage  string
	updatePriority string
	updateDue      string
	updateAssign   string

	taskIndex int
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create or manage tasks",
	Long:  "Create, edit, delete or move tasks on the remote board.",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create [message]",
	Short: "Create a new task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskCreate,
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Change a task's message, priority, due date or assignee",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskUpdate,
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDelete,
}

var taskMoveCmd = &cobra.Command{
	Use:   "move [id] [lane]",
	Short: "Move a task to another lane (high, medium, normal, done)",
	Long:  "Moves a task as if it were dragged on the board. Moving to another lane changes its priority.",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskMove,
}

func init() {
	taskCreateCmd.Flags().StringVarP(&createPriority, "priority", "p", "normal", "Priority: high, medium, normal, done (or 3..0)")
	taskCreateCmd.Flags().StringVarP(&createDue, "due", "d", "", "Due date YYYY-MM-DD (default today)")
	taskCreateCmd.Flags().StringVarP(&createAssign, "assign", "a", "", "Assignee name or ID")

	taskUpdateCmd.Flags().StringVarP(&updateMessage, "message", "m", "", "New message")
	taskUpdateCmd.Flags().StringVarP(&updatePriority, "priority", "p", "", "New priority")
	taskUpdateCmd.Flags().StringVarP(&updateDue, "due", "d", "", "New due date YYYY-MM-DD")
	taskUpdateCmd.Flags().StringVarP(&updateAssign, "assign", "a", "", "New assignee name or ID")

	taskMoveCmd.Flags().IntVarP(&taskIndex, "index", "i", -1, "Position in the destination lane (default end)")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskMoveCmd)
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	d := board.Draft{Message: strings.Join(args, " ")}
	if d.Priority, err = parsePriority(createPriority); err != nil {
		return err
	}
	if createDue != "" {
		if d.DueDate, err = parseDue(createDue); err != nil {
			return err
		}
	}
	if createAssign != "" {
		u, err := a.users.Lookup(ctx, createAssign)
		if err != nil {
			return err
		}
		d.AssignedTo = u.ID
	}

	// CreateTask reloads the board once the service accepts the draft.
	if err := a.engine.CreateTask(ctx, d); err != nil {
		return err
	}

	lane, _ := board.Classify(d.Priority)
	fmt.Printf("Created task: %s [%s]\n", d.Message, lane)
	return nil
}

func runTaskUpdate(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()
	id := args[0]

	var f board.Fields
	if cmd.Flags().Changed("message") {
		f.Message = &updateMessage
	}
	if cmd.Flags().Changed("priority") {
		p, err := parsePriority(updatePriority)
		if err != nil {
			return err
		}
		f.Priority = &p
	}
	if cmd.Flags().Changed("due") {
		due, err := parseDue(updateDue)
		if err != nil {
			return err
		}
		f.DueDate = &due
	}
	if cmd.Flags().Changed("assign") {
		u, err := a.users.Lookup(ctx, updateAssign)
		if err != nil {
			return err
		}
		f.AssignedTo = &u.ID
		f.AssignedName = &u.Name
	}
	if f.Empty() {
		return fmt.Errorf("nothing to update: pass --message, --priority, --due or --assign")
	}

	if err := a.engine.Load(ctx); err != nil {
		return err
	}
	if err := a.engine.UpdateTask(ctx, id, f); err != nil {
		return err
	}

	t, _ := a.engine.Task(id)
	fmt.Printf("Updated task #%s: %s\n", t.ID, t.Message)
	return nil
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	if err := a.engine.Load(ctx); err != nil {
		return err
	}
	if err := a.engine.DeleteTask(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted task #%s\n", args[0])
	return nil
}

func runTaskMove(cmd *cobra.Command, args []string) error {
	id := args[0]
	lane, ok := board.ParseLane(args[1])
	if !ok {
		return fmt.Errorf("unknown lane %q (high, medium, normal, done)", args[1])
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	if err := a.engine.Load(ctx); err != nil {
		return err
	}
	src, ok := a.engine.Locate(id)
	if !ok {
		return fmt.Errorf("move #%s: %w", id, board.ErrTaskNotFound)
	}

	at := taskIndex
	if at < 0 {
		at = len(a.engine.Lane(lane))
	}
	g := board.Gesture{TaskID: id, Source: src, Destination: &board.Position{Lane: lane, Index: at}}
	if err := a.engine.Reorder(ctx, g); err != nil {
		return err
	}

	if src.Lane == lane {
		fmt.Printf("Task #%s is already in %s; order within a lane is not saved\n", id, lane)
		return nil
	}
	fmt.Printf("Moved task #%s: %s → %s\n", id, src.Lane, lane)
	return nil
}
