package board

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MutationKind is the kind of change sent to the task service.
type MutationKind string

const (
	MutationCreate  MutationKind = "create"
	MutationUpdate  MutationKind = "update"
	MutationDelete  MutationKind = "delete"
	MutationReorder MutationKind = "reorder"
)

// MutationState tracks a change from submission to the service's answer.
type MutationState string

const (
	StatePending   MutationState = "pending"
	StateConfirmed MutationState = "confirmed"
	StateFailed    MutationState = "failed"
)

// Policy decides what happens to local state when a mutation fails.
type Policy string

const (
	// PolicyRollback restores the state that existed before an optimistic
	// change. Non-optimistic changes have nothing to undo.
	PolicyRollback Policy = "rollback"
	// PolicyReload discards local state and reloads from the service.
	PolicyReload Policy = "reload"
	// PolicyKeep leaves the optimistic state in place.
	PolicyKeep Policy = "keep"
)

// ParsePolicy validates a policy name. An empty name yields PolicyRollback.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "":
		return PolicyRollback, nil
	case PolicyRollback, PolicyReload, PolicyKeep:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown reconcile policy %q (rollback, reload or keep)", s)
}

// Mutation is one change submitted to the task service.
type Mutation struct {
	ID        string
	Kind      MutationKind
	TaskID    string // empty for create
	Draft     Draft  // create only
	Fields    Fields // update and reorder
	State     MutationState
	Err       error
	CreatedAt time.Time
	SettledAt time.Time

	undo *undoRecord
}

// undoRecord is what a rollback needs to put an optimistic reorder back.
type undoRecord struct {
	priority Priority
	applied  Priority
	index    int // position in the canonical collection
}

func newMutation(kind MutationKind, taskID string) *Mutation {
	return &Mutation{
		ID:        uuid.NewString(),
		Kind:      kind,
		TaskID:    taskID,
		State:     StatePending,
		CreatedAt: time.Now().UTC(),
	}
}

// Journal records mutation transitions.
type Journal interface {
	RecordMutation(m Mutation) error
}
