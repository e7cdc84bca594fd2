package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/devserver"
	"github.com/imkarma/taskboard/internal/store"
)

// devClient starts the dev task service and returns a client for it.
func devClient(t *testing.T, token string) (*Client, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "dev.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	srv := httptest.NewServer(devserver.New(s, "tok", nil))
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", AuthToken: token}, nil), s
}

func TestFormatDueDate(t *testing.T) {
	got := FormatDueDate(time.Date(2024, 3, 5, 18, 30, 0, 0, time.UTC))
	if got != "2024-3-5 12:12:12" {
		t.Errorf("expected 2024-3-5 12:12:12, got %q", got)
	}
	got = FormatDueDate(time.Date(2024, 11, 25, 0, 0, 0, 0, time.UTC))
	if got != "2024-11-25 12:12:12" {
		t.Errorf("expected 2024-11-25 12:12:12, got %q", got)
	}
}

func TestParseDueDate(t *testing.T) {
	for _, in := range []string{"2024-3-5 12:12:12", "2024-03-05 12:12:12", "2024-3-5"} {
		d, err := ParseDueDate(in)
		if err != nil {
			t.Errorf("ParseDueDate(%q): %v", in, err)
			continue
		}
		if d.Year() != 2024 || d.Month() != time.March || d.Day() != 5 {
			t.Errorf("ParseDueDate(%q) = %v", in, d)
		}
	}
	if _, err := ParseDueDate("next tuesday"); err == nil {
		t.Error("expected error for unparsable date")
	}
}

func TestClient_RoundTripAgainstDevServer(t *testing.T) {
	c, s := devClient(t, "tok")
	ctx := context.Background()
	s.UpsertUser(store.User{ID: "5", Name: "Ada"})

	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local)
	if err := c.CreateTask(ctx, board.Draft{Message: "write docs", Priority: board.PriorityHigh, AssignedTo: "5", DueDate: due}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	tasks, err := c.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	got := tasks[0]
	if got.ID != "1" || got.Message != "write docs" || got.Priority != board.PriorityHigh {
		t.Errorf("unexpected task: %+v", got)
	}
	if got.AssignedName != "Ada" {
		t.Errorf("expected assignee name Ada, got %q", got.AssignedName)
	}
	if got.DueDate.Year() != 2024 || got.DueDate.Month() != time.March || got.DueDate.Day() != 5 {
		t.Errorf("unexpected due date %v", got.DueDate)
	}

	p := board.PriorityDone
	if err := c.UpdateTask(ctx, "1", board.Fields{Priority: &p}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	row, _ := s.GetTask(1)
	if row.Priority != "0" || row.Message != "write docs" {
		t.Errorf("expected only priority changed, got %+v", row)
	}

	if err := c.DeleteTask(ctx, "1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if tasks, _ := c.ListTasks(ctx); len(tasks) != 0 {
		t.Errorf("expected empty list after delete, got %+v", tasks)
	}
}

func TestClient_ListUsers(t *testing.T) {
	c, s := devClient(t, "tok")
	s.UpsertUser(store.User{ID: "1", Name: "Ada", Picture: "ada.png"})

	users, err := c.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 || users[0].Name != "Ada" || users[0].Picture != "ada.png" {
		t.Errorf("unexpected users: %+v", users)
	}
}

func TestClient_BadTokenIsStatusError(t *testing.T) {
	c, _ := devClient(t, "wrong")
	_, err := c.ListTasks(context.Background())

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusUnauthorized || se.Path != "/tasks/list" {
		t.Errorf("unexpected status error: %+v", se)
	}
}

func TestClient_SendsHeaderAndMultipartForm(t *testing.T) {
	var gotToken, gotTaskID, gotPriority string
	var hasMessage bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(AuthHeader)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected multipart body: %v", err)
		}
		gotTaskID = r.FormValue("taskid")
		gotPriority = r.FormValue("priority")
		_, hasMessage = r.MultipartForm.Value["message"]
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, AuthToken: "abc"}, nil)
	p := board.PriorityNormal
	if err := c.UpdateTask(context.Background(), "7", board.Fields{Priority: &p}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if gotToken != "abc" {
		t.Errorf("expected AuthToken header abc, got %q", gotToken)
	}
	if gotTaskID != "7" || gotPriority != "1" {
		t.Errorf("expected taskid=7 priority=1, got taskid=%q priority=%q", gotTaskID, gotPriority)
	}
	if hasMessage {
		t.Error("unset fields must not be sent")
	}
}

func TestClient_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tasks": [`))
	}))
	defer srv.Close()

	if _, err := New(Config{BaseURL: srv.URL}, nil).ListTasks(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestClient_ErrorStatusInBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","error":"task not found"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil)
	err := c.DeleteTask(context.Background(), "9")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Path != "/tasks/delete" || !strings.Contains(se.Body, "task not found") {
		t.Errorf("unexpected status error: %+v", se)
	}
}

func TestClient_PlainSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	if err := New(Config{BaseURL: srv.URL}, nil).DeleteTask(context.Background(), "9"); err != nil {
		t.Errorf("DeleteTask: %v", err)
	}
}
