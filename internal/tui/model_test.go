package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imkarma/taskboard/internal/board"
)

type fakeService struct {
	tasks     []board.Task
	updateErr error
	creates   []board.Draft
	updates   []string
}

func (f *fakeService) ListTasks(ctx context.Context) ([]board.Task, error) {
	out := make([]board.Task, len(f.tasks))
	copy(out, f.tasks)
	return out, nil
}

func (f *fakeService) CreateTask(ctx context.Context, d board.Draft) error {
	f.creates = append(f.creates, d)
	return nil
}

func (f *fakeService) UpdateTask(ctx context.Context, id string, fields board.Fields) error {
	f.updates = append(f.updates, id)
	return f.updateErr
}

func (f *fakeService) DeleteTask(ctx context.Context, id string) error {
	return nil
}

func setup(t *testing.T) (Model, *fakeService) {
	t.Helper()
	svc := &fakeService{tasks: []board.Task{
		{ID: "1", Message: "ship release", Priority: board.PriorityHigh},
		{ID: "2", Message: "write notes", Priority: board.PriorityNormal},
		{ID: "3", Message: "clean cache", Priority: board.PriorityNormal},
	}}
	ctx := context.Background()
	e := board.New(svc, board.Options{})
	if err := e.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return New(ctx, e, nil, nil), svc
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, keys ...string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(Model)
	}
	return m, cmd
}

// settleMsg runs the commands returned by a drop and picks out the
// service's answer.
func settleMsg(t *testing.T, cmd tea.Cmd) mutationDoneMsg {
	t.Helper()
	if cmd == nil {
		t.Fatal("no command returned")
	}
	msg := cmd()
	if done, ok := msg.(mutationDoneMsg); ok {
		return done
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c == nil {
				continue
			}
			if done, ok := c().(mutationDoneMsg); ok {
				return done
			}
		}
	}
	t.Fatalf("no mutation result in %T", msg)
	return mutationDoneMsg{}
}

func TestDragAcrossLanes(t *testing.T) {
	m, svc := setup(t)

	m, _ = press(m, "m")
	if m.holding == nil || m.holding.taskID != "1" {
		t.Fatalf("holding = %+v, want task 1", m.holding)
	}

	m, cmd := press(m, "l", "l", "m")
	if m.holding != nil {
		t.Fatal("card still held after drop")
	}
	task, _ := m.engine.Task("1")
	if task.Priority != board.PriorityNormal {
		t.Errorf("priority = %q, want %q", task.Priority, board.PriorityNormal)
	}
	if lane := m.engine.Lane(board.LaneNormal); lane[0].ID != "1" {
		t.Errorf("normal lane head = %s, want 1", lane[0].ID)
	}
	if !m.engine.Pending("1") {
		t.Error("task 1 should be pending until the service answers")
	}

	done := settleMsg(t, cmd)
	next, _ := m.Update(done)
	m = next.(Model)
	if m.engine.Pending("1") {
		t.Error("task 1 still pending after settle")
	}
	if len(svc.updates) != 1 || svc.updates[0] != "1" {
		t.Errorf("updates = %v", svc.updates)
	}
}

func TestDropAtEndOfOtherLane(t *testing.T) {
	m, _ := setup(t)

	m, _ = press(m, "m", "l", "l", "j", "j", "j")
	if m.cursorRow != 2 {
		t.Fatalf("cursor row = %d, want 2 (one past the last card)", m.cursorRow)
	}
	m, _ = press(m, "m")

	lane := m.engine.Lane(board.LaneNormal)
	if len(lane) != 3 || lane[2].ID != "1" {
		t.Errorf("normal lane = %v, want task 1 last", lane)
	}
}

func TestFailedMoveRollsBack(t *testing.T) {
	m, svc := setup(t)
	svc.updateErr = errors.New("service down")

	m, cmd := press(m, "m", "l", "l", "m")
	next, _ := m.Update(settleMsg(t, cmd))
	m = next.(Model)

	task, _ := m.engine.Task("1")
	if task.Priority != board.PriorityHigh {
		t.Errorf("priority = %q, want rollback to %q", task.Priority, board.PriorityHigh)
	}
	if lane := m.engine.Lane(board.LaneHigh); len(lane) != 1 || lane[0].ID != "1" {
		t.Errorf("high lane = %v", lane)
	}
	if !m.statusErr || !strings.Contains(m.statusMsg, "service down") {
		t.Errorf("status = %q (err %v)", m.statusMsg, m.statusErr)
	}
}

func TestCancelDrag(t *testing.T) {
	m, svc := setup(t)

	m, _ = press(m, "m", "l", "l", "esc")
	if m.holding != nil {
		t.Fatal("card still held after esc")
	}
	if lane := m.engine.Lane(board.LaneHigh); len(lane) != 1 || lane[0].ID != "1" {
		t.Errorf("high lane = %v", lane)
	}
	if m.cursorCol != board.LaneHigh {
		t.Errorf("cursor lane = %v, want high", m.cursorCol)
	}
	if len(svc.updates) != 0 {
		t.Errorf("updates = %v, want none", svc.updates)
	}
}

func TestReorderWithinLaneNeedsNoService(t *testing.T) {
	m, svc := setup(t)

	m, cmd := press(m, "l", "l", "J")
	if cmd != nil {
		t.Error("in-lane move should not persist anything")
	}
	lane := m.engine.Lane(board.LaneNormal)
	if lane[0].ID != "3" || lane[1].ID != "2" {
		t.Errorf("normal lane = %s,%s, want 3,2", lane[0].ID, lane[1].ID)
	}
	if m.cursorRow != 1 {
		t.Errorf("cursor row = %d, want to follow the card to 1", m.cursorRow)
	}
	if len(svc.updates) != 0 {
		t.Errorf("updates = %v", svc.updates)
	}
}

func TestSearchPopupFilters(t *testing.T) {
	m, _ := setup(t)

	m, _ = press(m, "/")
	if m.popup != popupSearch {
		t.Fatalf("popup = %v, want search", m.popup)
	}
	m, _ = press(m, "c", "a", "c", "h", "e", "enter")
	if m.popup != popupNone {
		t.Error("popup still open")
	}
	if got := m.engine.Filter().Search; got != "cache" {
		t.Errorf("search = %q", got)
	}
	if lane := m.engine.Lane(board.LaneNormal); len(lane) != 1 || lane[0].ID != "3" {
		t.Errorf("normal lane = %v", lane)
	}

	m, _ = press(m, "esc")
	if m.engine.Filter().Active() {
		t.Error("esc should clear the filter")
	}
}

func TestCreateRequiresMessage(t *testing.T) {
	m, svc := setup(t)

	m, _ = press(m, "c", "enter")
	if m.popup != popupCreate {
		t.Error("popup closed on empty message")
	}
	if m.statusMsg != "Message cannot be empty" {
		t.Errorf("status = %q", m.statusMsg)
	}
	if m.engine.InFlight() != 0 || len(svc.creates) != 0 {
		t.Error("empty task was submitted")
	}

	m, _ = press(m, "n", "e", "w", "enter")
	if m.popup != popupNone {
		t.Error("popup still open after submit")
	}
	if m.engine.InFlight() != 1 {
		t.Errorf("in flight = %d, want 1", m.engine.InFlight())
	}
}

func TestDeleteConfirm(t *testing.T) {
	m, _ := setup(t)

	m, _ = press(m, "x")
	if m.popup != popupConfirmDelete || m.popupTaskID != "1" {
		t.Fatalf("popup = %v task %q", m.popup, m.popupTaskID)
	}
	m, _ = press(m, "n")
	if m.engine.InFlight() != 0 {
		t.Error("cancelled delete was sent")
	}

	m, _ = press(m, "x", "y")
	if !m.engine.Pending("1") {
		t.Error("delete not pending")
	}
}

func TestViewShowsLanes(t *testing.T) {
	m, _ := setup(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	m = next.(Model)

	out := m.View()
	for _, want := range []string{"High Priority", "Medium Priority", "Normal Priority", "Finished", "#1", "ship release"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
