package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Service is the remote task service as the engine sees it.
type Service interface {
	ListTasks(ctx context.Context) ([]Task, error)
	CreateTask(ctx context.Context, d Draft) error
	UpdateTask(ctx context.Context, id string, f Fields) error
	DeleteTask(ctx context.Context, id string) error
}

// Options configures an Engine.
type Options struct {
	Policy  Policy
	Journal Journal     // optional
	Logger  *log.Logger // optional
}

// Engine owns the canonical task collection and the lane views derived
// from it. It is not safe for concurrent use; only Fetch and Persist may be
// called from another goroutine, since they talk to the service and leave
// the board untouched.
type Engine struct {
	svc     Service
	policy  Policy
	journal Journal
	log     *log.Logger

	tasks    []Task
	index    map[string]int // task ID -> position in tasks
	filter   Filter
	lanes    [NumLanes][]string
	loading  bool
	err      error
	rejected []error
	inflight map[string]*Mutation // by mutation ID
}

// New creates an engine over svc with an empty board.
func New(svc Service, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New()
		logger.SetOutput(io.Discard)
	}
	policy := opts.Policy
	if policy == "" {
		policy = PolicyRollback
	}
	e := &Engine{
		svc:      svc,
		policy:   policy,
		journal:  opts.Journal,
		log:      logger,
		index:    map[string]int{},
		inflight: map[string]*Mutation{},
	}
	e.recompute()
	return e
}

// --- State ---

// Tasks returns a copy of the canonical collection.
func (e *Engine) Tasks() []Task {
	out := make([]Task, len(e.tasks))
	copy(out, e.tasks)
	return out
}

// Task looks a task up by ID in the canonical collection.
func (e *Engine) Task(id string) (Task, bool) {
	i, ok := e.index[id]
	if !ok {
		return Task{}, false
	}
	return e.tasks[i], true
}

// Lane returns the ordered tasks currently shown in lane l.
func (e *Engine) Lane(l Lane) []Task {
	if !l.Valid() {
		return nil
	}
	ids := e.lanes[l]
	out := make([]Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.tasks[e.index[id]])
	}
	return out
}

// Lanes returns all four lane views.
func (e *Engine) Lanes() Lanes {
	var ls Lanes
	for _, l := range AllLanes {
		ls[l] = e.Lane(l)
	}
	return ls
}

// Loading reports whether a load is outstanding. Every lane shows it.
func (e *Engine) Loading() bool { return e.loading }

// Filter returns the active filter.
func (e *Engine) Filter() Filter { return e.filter }

// Policy returns the reconciliation policy for failed mutations.
func (e *Engine) Policy() Policy { return e.policy }

// Err returns the last fetch or mutation failure, nil after a good load.
func (e *Engine) Err() error { return e.err }

// ClearErr dismisses the last error.
func (e *Engine) ClearErr() { e.err = nil }

// Rejected lists the tasks of the last load that were dropped because
// their priority did not classify.
func (e *Engine) Rejected() []error { return e.rejected }

// Pending reports whether the task has a mutation in flight.
func (e *Engine) Pending(taskID string) bool {
	for _, m := range e.inflight {
		if m.TaskID == taskID {
			return true
		}
	}
	return false
}

// InFlight returns the number of mutations awaiting the service.
func (e *Engine) InFlight() int { return len(e.inflight) }

// --- Loading ---

// StartLoad marks the board as loading.
func (e *Engine) StartLoad() {
	e.loading = true
}

// Fetch reads the task list from the service.
func (e *Engine) Fetch(ctx context.Context) ([]Task, error) {
	tasks, err := e.svc.ListTasks(ctx)
	if err != nil {
		return nil, &FetchError{Op: "list tasks", Err: err}
	}
	return tasks, nil
}

// FinishLoad replaces the canonical collection with the fetched tasks, or
// records the failure and keeps the previous collection. A later load
// always overwrites an earlier one.
func (e *Engine) FinishLoad(tasks []Task, err error) {
	e.loading = false
	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{Op: "list tasks", Err: err}
		}
		e.err = err
		e.log.WithError(err).Error("load failed")
		return
	}

	valid := make([]Task, 0, len(tasks))
	var rejected []error
	for _, t := range tasks {
		if _, cerr := Classify(t.Priority); cerr != nil {
			rejected = append(rejected, fmt.Errorf("task #%s: %w", t.ID, cerr))
			e.log.WithField("task", t.ID).WithError(cerr).Warn("dropping task")
			continue
		}
		valid = append(valid, t)
	}
	e.tasks = valid
	e.rejected = rejected
	e.err = nil
	e.recompute()
	e.log.WithField("tasks", len(valid)).Debug("board loaded")
}

// Load fetches the task list and replaces the canonical collection.
func (e *Engine) Load(ctx context.Context) error {
	e.StartLoad()
	tasks, err := e.Fetch(ctx)
	e.FinishLoad(tasks, err)
	return err
}

// --- Filtering ---

// FilterByAssignee shows only tasks assigned to name. Selecting the active
// assignee again clears the filter. Any search is cleared.
func (e *Engine) FilterByAssignee(name string) {
	if e.filter.Assignee == name {
		e.filter = Filter{}
	} else {
		e.filter = Filter{Assignee: name}
	}
	e.recompute()
}

// FilterBySearch shows only tasks whose message contains text, ignoring
// case. Any assignee filter is cleared.
func (e *Engine) FilterBySearch(text string) {
	e.filter = Filter{Search: text}
	e.recompute()
}

// ClearFilter shows every task.
func (e *Engine) ClearFilter() {
	e.filter = Filter{}
	e.recompute()
}

// --- Mutations ---

// BeginCreate validates a draft and registers the create. The task only
// appears on the board after the reload that follows confirmation.
func (e *Engine) BeginCreate(d Draft) (*Mutation, error) {
	if err := ValidateDraft(d); err != nil {
		return nil, err
	}
	m := newMutation(MutationCreate, "")
	m.Draft = d
	e.track(m)
	return m, nil
}

// ValidateDraft checks that d has a message and a known priority.
func ValidateDraft(d Draft) error {
	if strings.TrimSpace(d.Message) == "" {
		return ErrEmptyMessage
	}
	if _, err := Classify(d.Priority); err != nil {
		return err
	}
	return nil
}

// BeginUpdate validates a partial update of an existing task. The fields
// are applied locally once the service confirms.
func (e *Engine) BeginUpdate(id string, f Fields) (*Mutation, error) {
	if err := e.checkTask(id); err != nil {
		return nil, err
	}
	if f.Empty() {
		return nil, ErrNoChanges
	}
	if f.Message != nil && strings.TrimSpace(*f.Message) == "" {
		return nil, ErrEmptyMessage
	}
	if f.Priority != nil {
		if _, err := Classify(*f.Priority); err != nil {
			return nil, err
		}
	}
	m := newMutation(MutationUpdate, id)
	m.Fields = f
	e.track(m)
	return m, nil
}

// BeginDelete registers the removal of a task.
func (e *Engine) BeginDelete(id string) (*Mutation, error) {
	if err := e.checkTask(id); err != nil {
		return nil, err
	}
	m := newMutation(MutationDelete, id)
	e.track(m)
	return m, nil
}

// Persist sends m to the service. It does not touch board state.
func (e *Engine) Persist(ctx context.Context, m *Mutation) error {
	switch m.Kind {
	case MutationCreate:
		return e.svc.CreateTask(ctx, m.Draft)
	case MutationUpdate, MutationReorder:
		return e.svc.UpdateTask(ctx, m.TaskID, m.Fields)
	case MutationDelete:
		return e.svc.DeleteTask(ctx, m.TaskID)
	}
	return fmt.Errorf("unknown mutation kind %q", m.Kind)
}

// Settle records the service's answer for m and reconciles local state.
// It reports whether the board should be reloaded.
func (e *Engine) Settle(m *Mutation, err error) bool {
	delete(e.inflight, m.ID)
	m.SettledAt = time.Now().UTC()
	entry := e.log.WithField("mutation", m.ID).WithField("kind", m.Kind).WithField("task", m.TaskID)

	if err == nil {
		m.State = StateConfirmed
		e.record(m)
		entry.Debug("mutation confirmed")
		switch m.Kind {
		case MutationUpdate:
			if i, ok := e.index[m.TaskID]; ok {
				m.Fields.apply(&e.tasks[i])
				e.recompute()
			}
		case MutationCreate, MutationDelete:
			return true
		}
		return false
	}

	m.State = StateFailed
	m.Err = &MutationError{Kind: m.Kind, TaskID: m.TaskID, Err: err}
	e.err = m.Err
	e.record(m)
	entry.WithError(err).WithField("policy", e.policy).Error("mutation failed")

	switch e.policy {
	case PolicyRollback:
		if m.undo != nil {
			e.rollback(m)
		}
	case PolicyReload:
		return true
	}
	return false
}

// CreateTask submits a draft and reloads the board to pick up the new task.
func (e *Engine) CreateTask(ctx context.Context, d Draft) error {
	m, err := e.BeginCreate(d)
	if err != nil {
		return err
	}
	return e.run(ctx, m)
}

// UpdateTask sends a partial update and applies it locally on success.
func (e *Engine) UpdateTask(ctx context.Context, id string, f Fields) error {
	m, err := e.BeginUpdate(id, f)
	if err != nil {
		return err
	}
	return e.run(ctx, m)
}

// DeleteTask removes a task and reloads the board.
func (e *Engine) DeleteTask(ctx context.Context, id string) error {
	m, err := e.BeginDelete(id)
	if err != nil {
		return err
	}
	return e.run(ctx, m)
}

// Reorder applies a drag gesture and persists any priority change.
func (e *Engine) Reorder(ctx context.Context, g Gesture) error {
	m, err := e.ApplyGesture(g)
	if err != nil || m == nil {
		return err
	}
	return e.run(ctx, m)
}

func (e *Engine) run(ctx context.Context, m *Mutation) error {
	err := e.Persist(ctx, m)
	if e.Settle(m, err) {
		if lerr := e.Load(ctx); lerr != nil && err == nil {
			return lerr
		}
	}
	if err != nil {
		return m.Err
	}
	return nil
}

// --- Internals ---

func (e *Engine) checkTask(id string) error {
	if _, ok := e.index[id]; !ok {
		return fmt.Errorf("%w: #%s", ErrTaskNotFound, id)
	}
	if e.Pending(id) {
		return fmt.Errorf("%w: #%s", ErrMutationPending, id)
	}
	return nil
}

func (e *Engine) track(m *Mutation) {
	e.inflight[m.ID] = m
	e.record(m)
}

func (e *Engine) record(m *Mutation) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordMutation(*m); err != nil {
		e.log.WithError(err).WithField("mutation", m.ID).Warn("journal write failed")
	}
}

// rollback undoes an optimistic reorder unless the task changed since.
func (e *Engine) rollback(m *Mutation) {
	i, ok := e.index[m.TaskID]
	if !ok || e.tasks[i].Priority != m.undo.applied {
		return
	}
	e.tasks[i].Priority = m.undo.priority
	e.move(i, m.undo.index)
	e.recompute()
	e.log.WithField("task", m.TaskID).Info("reorder rolled back")
}

// recompute rebuilds the index and the lane views from canonical state.
func (e *Engine) recompute() {
	e.reindex()
	lanes, _ := Partition(e.filter.Apply(e.tasks))
	for _, l := range AllLanes {
		ids := make([]string, len(lanes[l]))
		for i, t := range lanes[l] {
			ids[i] = t.ID
		}
		e.lanes[l] = ids
	}
}

func (e *Engine) reindex() {
	clear(e.index)
	for i, t := range e.tasks {
		e.index[t.ID] = i
	}
}

// move relocates the task at from so that it ends up at index to.
func (e *Engine) move(from, to int) {
	t := e.tasks[from]
	e.tasks = append(e.tasks[:from], e.tasks[from+1:]...)
	to = min(max(to, 0), len(e.tasks))
	e.tasks = append(e.tasks[:to], append([]Task{t}, e.tasks[to:]...)...)
	e.reindex()
}
