package board

import "fmt"

// Classify maps a priority to its lane.
func Classify(p Priority) (Lane, error) {
	switch p {
	case PriorityHigh:
		return LaneHigh, nil
	case PriorityMedium:
		return LaneMedium, nil
	case PriorityNormal:
		return LaneNormal, nil
	case PriorityDone:
		return LaneDone, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, string(p))
}

// Lanes maps each lane to its ordered tasks. Every entry is non-nil.
type Lanes [NumLanes][]Task

// Get returns the tasks in lane l.
func (ls Lanes) Get(l Lane) []Task {
	if !l.Valid() {
		return nil
	}
	return ls[l]
}

// Len returns the total number of tasks across all lanes.
func (ls Lanes) Len() int {
	n := 0
	for _, tasks := range ls {
		n += len(tasks)
	}
	return n
}

// Partition buckets tasks into lanes in one pass, keeping input order
// within each lane. Tasks whose priority does not classify are left out
// and reported, one error per task.
func Partition(tasks []Task) (Lanes, []error) {
	var lanes Lanes
	for i := range lanes {
		lanes[i] = []Task{}
	}
	var errs []error
	for _, t := range tasks {
		l, err := Classify(t.Priority)
		if err != nil {
			errs = append(errs, fmt.Errorf("task #%s: %w", t.ID, err))
			continue
		}
		lanes[l] = append(lanes[l], t)
	}
	return lanes, errs
}
