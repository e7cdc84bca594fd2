package board

import (
	"fmt"
	"slices"
)

// Position is a slot in a lane view.
type Position struct {
	Lane  Lane
	Index int
}

func (p Position) String() string {
	return fmt.Sprintf("%s/%d", p.Lane, p.Index)
}

// Gesture is a completed drag of one task. A nil Destination means the drop
// was cancelled.
type Gesture struct {
	TaskID      string
	Source      Position
	Destination *Position
}

// NoOp reports whether the gesture leaves the board as it is.
func (g Gesture) NoOp() bool {
	return g.Destination == nil || *g.Destination == g.Source
}

// Locate returns where task id is shown, or false if the current filter
// hides it or it does not exist.
func (e *Engine) Locate(id string) (Position, bool) {
	for _, l := range AllLanes {
		if i := slices.Index(e.lanes[l], id); i >= 0 {
			return Position{Lane: l, Index: i}, true
		}
	}
	return Position{}, false
}

// ApplyGesture moves the dragged task in the lane views right away. A move
// within a lane only changes local order and yields no mutation. A move to
// another lane also sets the task's priority to the destination lane's and
// returns the pending reorder that must be persisted.
func (e *Engine) ApplyGesture(g Gesture) (*Mutation, error) {
	if g.NoOp() {
		return nil, nil
	}
	src, dst := g.Source, *g.Destination
	if !src.Lane.Valid() || !dst.Lane.Valid() {
		return nil, fmt.Errorf("%w: unknown lane", ErrStaleGesture)
	}
	ids := e.lanes[src.Lane]
	if src.Index < 0 || src.Index >= len(ids) || ids[src.Index] != g.TaskID {
		return nil, fmt.Errorf("%w: task #%s is not at %s", ErrStaleGesture, g.TaskID, src)
	}
	if e.Pending(g.TaskID) {
		return nil, fmt.Errorf("%w: #%s", ErrMutationPending, g.TaskID)
	}

	// Splice on copies: removal happens before the insertion index is used.
	from := slices.Delete(slices.Clone(ids), src.Index, src.Index+1)
	to := from
	if dst.Lane != src.Lane {
		to = slices.Clone(e.lanes[dst.Lane])
	}
	at := min(max(dst.Index, 0), len(to))
	to = slices.Insert(to, at, g.TaskID)

	prevIndex := e.index[g.TaskID]
	e.reanchor(g.TaskID, to, at)

	entry := e.log.WithField("task", g.TaskID).WithField("from", src.String()).WithField("to", Position{dst.Lane, at}.String())
	if dst.Lane == src.Lane {
		e.recompute()
		entry.Debug("task reordered within lane")
		return nil, nil
	}

	i := e.index[g.TaskID]
	prev := e.tasks[i].Priority
	next := dst.Lane.Priority()
	e.tasks[i].Priority = next
	e.recompute()

	m := newMutation(MutationReorder, g.TaskID)
	m.Fields = Fields{Priority: &next}
	m.undo = &undoRecord{priority: prev, applied: next, index: prevIndex}
	e.track(m)
	entry.Debug("task moved across lanes")
	return m, nil
}

// reanchor moves id within the canonical collection so that partitioning it
// again reproduces lane, where id sits at lane[at]. The task is placed
// directly before its new successor, or directly after its new
// predecessor; alone in the lane it keeps its place.
func (e *Engine) reanchor(id string, lane []string, at int) {
	from := e.index[id]
	var to int
	switch {
	case at+1 < len(lane):
		to = e.index[lane[at+1]]
		if from < to {
			to--
		}
	case at > 0:
		to = e.index[lane[at-1]]
		if from > to {
			to++
		}
	default:
		return
	}
	e.move(from, to)
}
