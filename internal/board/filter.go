package board

import "strings"

// ByAssignee returns the tasks assigned to the user with the given display
// name, in input order.
func ByAssignee(tasks []Task, name string) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.AssignedName == name {
			out = append(out, t)
		}
	}
	return out
}

// BySearch returns the tasks whose message contains text, ignoring case.
// An empty text matches everything.
func BySearch(tasks []Task, text string) []Task {
	out := make([]Task, 0, len(tasks))
	needle := strings.ToLower(text)
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Message), needle) {
			out = append(out, t)
		}
	}
	return out
}

// Apply narrows tasks by f. The input slice is never modified.
func (f Filter) Apply(tasks []Task) []Task {
	switch {
	case f.Assignee != "":
		return ByAssignee(tasks, f.Assignee)
	case f.Search != "":
		return BySearch(tasks, f.Search)
	}
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}
