package board

import (
	"context"
	"testing"
)

func filterTasks() []Task {
	return []Task{
		{ID: "1", Message: "buy milk", Priority: "3", AssignedName: "Alice"},
		{ID: "2", Message: "fix bug", Priority: "1", AssignedName: "Bob"},
		{ID: "3", Message: "Fix the BUG tracker", Priority: "0", AssignedName: "Alice"},
	}
}

func TestBySearch_CaseInsensitive(t *testing.T) {
	got := ids(BySearch(filterTasks(), "bug"))
	if !equal(got, []string{"2", "3"}) {
		t.Errorf("expected [2 3], got %v", got)
	}
}

func TestBySearch_EmptyMatchesAll(t *testing.T) {
	tasks := filterTasks()
	got := ids(BySearch(tasks, ""))
	if !equal(got, ids(tasks)) {
		t.Errorf("expected full collection in order, got %v", got)
	}
}

func TestByAssignee_Exact(t *testing.T) {
	got := ids(ByAssignee(filterTasks(), "Alice"))
	if !equal(got, []string{"1", "3"}) {
		t.Errorf("expected [1 3], got %v", got)
	}
	if len(ByAssignee(filterTasks(), "alice")) != 0 {
		t.Error("assignee match must be exact")
	}
}

func TestFilterApply_DoesNotMutateInput(t *testing.T) {
	tasks := filterTasks()
	out := Filter{}.Apply(tasks)
	out[0].Message = "changed"
	if tasks[0].Message != "buy milk" {
		t.Error("Apply must not share the input backing array")
	}
}

func TestEngine_FilterByAssigneeToggles(t *testing.T) {
	e := loadedEngine(t, &fakeService{tasks: filterTasks()})

	e.FilterBySearch("milk")
	e.FilterByAssignee("Bob")
	if e.Filter().Search != "" {
		t.Error("assignee filter must clear search")
	}
	if got := ids(e.Lane(LaneNormal)); !equal(got, []string{"2"}) {
		t.Errorf("expected Bob's task only, got %v", got)
	}
	if e.Lanes().Len() != 1 {
		t.Errorf("expected 1 visible task, got %d", e.Lanes().Len())
	}

	e.FilterByAssignee("Bob")
	if e.Filter().Active() {
		t.Errorf("expected filter cleared, got %+v", e.Filter())
	}
	if e.Lanes().Len() != 3 {
		t.Errorf("expected full collection after toggle, got %d", e.Lanes().Len())
	}
	if len(e.Tasks()) != 3 {
		t.Error("filtering must not change the canonical collection")
	}
}

func TestEngine_SearchScenario(t *testing.T) {
	e := loadedEngine(t, &fakeService{tasks: []Task{
		{ID: "1", Message: "buy milk", Priority: "3"},
		{ID: "2", Message: "fix bug", Priority: "2"},
	}})

	e.FilterByAssignee("Alice")
	e.FilterBySearch("bug")
	if e.Filter().Assignee != "" {
		t.Error("search must clear assignee filter")
	}
	lanes := e.Lanes()
	if lanes.Len() != 1 || ids(lanes.Get(LaneMedium))[0] != "2" {
		t.Errorf("expected only task 2, got %+v", lanes)
	}

	e.FilterBySearch("")
	if e.Lanes().Len() != 2 {
		t.Errorf("empty search should show everything, got %d", e.Lanes().Len())
	}
}

func loadedEngine(t *testing.T, svc *fakeService) *Engine {
	t.Helper()
	e := New(svc, Options{})
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return e
}
