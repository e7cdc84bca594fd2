// Package board is the state engine behind the task board: the canonical
// task collection, the four priority lanes derived from it, filtering, and
// optimistic drag-and-drop reordering reconciled with the task service.
package board

import "time"

// Priority is the ordinal priority of a task as the task service encodes it.
type Priority string

const (
	PriorityDone   Priority = "0"
	PriorityNormal Priority = "1"
	PriorityMedium Priority = "2"
	PriorityHigh   Priority = "3"
)

// Lane identifies one of the four fixed priority buckets.
type Lane int

const (
	LaneHigh Lane = iota
	LaneMedium
	LaneNormal
	LaneDone
	NumLanes = 4
)

// AllLanes lists the lanes in display order.
var AllLanes = [NumLanes]Lane{LaneHigh, LaneMedium, LaneNormal, LaneDone}

var laneNames = [NumLanes]string{"high", "medium", "normal", "done"}

var laneLabels = [NumLanes]string{"High Priority", "Medium Priority", "Normal Priority", "Finished"}

var lanePriorities = [NumLanes]Priority{PriorityHigh, PriorityMedium, PriorityNormal, PriorityDone}

// String returns the short lane identifier (high, medium, normal, done).
func (l Lane) String() string {
	if !l.Valid() {
		return "unknown"
	}
	return laneNames[l]
}

// Label returns the human-readable lane heading.
func (l Lane) Label() string {
	if !l.Valid() {
		return "Unknown"
	}
	return laneLabels[l]
}

// Priority returns the priority value a task takes when it sits in l.
func (l Lane) Priority() Priority {
	if !l.Valid() {
		return ""
	}
	return lanePriorities[l]
}

// Valid reports whether l is one of the four known lanes.
func (l Lane) Valid() bool {
	return l >= 0 && l < NumLanes
}

// ParseLane resolves a lane name. "low" is accepted as an alias of normal.
func ParseLane(s string) (Lane, bool) {
	switch s {
	case "high":
		return LaneHigh, true
	case "medium":
		return LaneMedium, true
	case "normal", "low":
		return LaneNormal, true
	case "done":
		return LaneDone, true
	}
	return 0, false
}

// Task is a unit of work on the board. The ID is assigned by the task service.
type Task struct {
	ID           string    `json:"id"`
	Message      string    `json:"message"`
	Priority     Priority  `json:"priority"`
	AssignedTo   string    `json:"assigned_to,omitempty"`
	AssignedName string    `json:"assigned_name,omitempty"`
	DueDate      time.Time `json:"due_date"`
}

// User is someone a task can be assigned to.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// Draft holds the fields of a task that has not been created yet.
type Draft struct {
	Message    string
	DueDate    time.Time
	Priority   Priority
	AssignedTo string
}

// Fields is a partial update. Nil fields are left unchanged.
type Fields struct {
	Message      *string
	DueDate      *time.Time
	Priority     *Priority
	AssignedTo   *string
	AssignedName *string // local only, never sent
}

// Empty reports whether no field is set.
func (f Fields) Empty() bool {
	return f.Message == nil && f.DueDate == nil && f.Priority == nil && f.AssignedTo == nil
}

func (f Fields) apply(t *Task) {
	if f.Message != nil {
		t.Message = *f.Message
	}
	if f.DueDate != nil {
		t.DueDate = *f.DueDate
	}
	if f.Priority != nil {
		t.Priority = *f.Priority
	}
	if f.AssignedTo != nil {
		t.AssignedTo = *f.AssignedTo
	}
	if f.AssignedName != nil {
		t.AssignedName = *f.AssignedName
	}
}

// Filter is the active narrowing of the board. At most one field is set.
type Filter struct {
	Assignee string
	Search   string
}

// Active reports whether any filter is applied.
func (f Filter) Active() bool {
	return f.Assignee != "" || f.Search != ""
}
