package board

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPriority is returned for a priority outside "0".."3".
	ErrInvalidPriority = errors.New("invalid priority")
	ErrTaskNotFound    = errors.New("task not found")
	ErrMutationPending = errors.New("task has a pending change")
	ErrStaleGesture    = errors.New("gesture does not match the board")
	ErrEmptyMessage    = errors.New("task message is empty")
	ErrNoChanges       = errors.New("no fields to update")
)

// FetchError reports a failed read from the task service.
type FetchError struct {
	Op  string // "list tasks", "list users"
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MutationError reports a create, update, delete or reorder the task
// service did not accept.
type MutationError struct {
	Kind   MutationKind
	TaskID string
	Err    error
}

func (e *MutationError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("%s task: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s task #%s: %v", e.Kind, e.TaskID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }
