package store

import "time"

// Task is a row of the dev server's task table. Priority and DueDate are
// kept in the service's wire form.
type Task struct {
	ID           int64     `json:"id"`
	Message      string    `json:"message"`
	Priority     string    `json:"priority"`
	AssignedTo   string    `json:"assigned_to,omitempty"`
	AssignedName string    `json:"assigned_name,omitempty"` // joined from users
	DueDate      string    `json:"due_date"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TaskUpdate lists the columns to change. Nil fields are left alone.
type TaskUpdate struct {
	Message    *string
	Priority   *string
	AssignedTo *string
	DueDate    *string
}

// User is a known user, either cached from the task service or seeded
// into the dev server.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// MutationRecord is one journal line: the latest known state of a change
// sent to the task service.
type MutationRecord struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	TaskID    string    `json:"task_id,omitempty"`
	Summary   string    `json:"summary"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	SettledAt time.Time `json:"settled_at,omitempty"`
}
