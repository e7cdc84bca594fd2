// Package service is the HTTP client for the remote task service.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/imkarma/taskboard/internal/board"
)

// DefaultBaseURL is the public task service.
const DefaultBaseURL = "https://devza.com/tests"

// AuthHeader carries the static service token on every request.
const AuthHeader = "AuthToken"

// dueDateTime is the fixed time of day the service stores with due dates.
const dueDateTime = "12:12:12"

// Config holds what the client needs to reach the service.
type Config struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
}

// Client talks to the task service.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *log.Logger
}

// New creates a client. A nil logger discards output.
func New(cfg Config, logger *log.Logger) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = log.New()
		logger.SetOutput(io.Discard)
	}
	return &Client{
		baseURL: base,
		token:   cfg.AuthToken,
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}
}

// StatusError is a non-2xx answer from the service, or a 2xx answer whose
// body reports a failed status.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Path, e.Code, e.Body)
}

// wireTask is a task as the service encodes it.
type wireTask struct {
	ID           string `json:"id"`
	Message      string `json:"message"`
	Priority     string `json:"priority"`
	AssignedTo   string `json:"assigned_to"`
	AssignedName string `json:"assigned_name"`
	DueDate      string `json:"due_date"`
}

type wireUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// ListTasks fetches every task.
func (c *Client) ListTasks(ctx context.Context) ([]board.Task, error) {
	var resp struct {
		Tasks []wireTask `json:"tasks"`
	}
	if err := c.get(ctx, "/tasks/list", &resp); err != nil {
		return nil, err
	}
	tasks := make([]board.Task, 0, len(resp.Tasks))
	for _, wt := range resp.Tasks {
		tasks = append(tasks, c.fromWire(wt))
	}
	return tasks, nil
}

// ListUsers fetches every user a task can be assigned to.
func (c *Client) ListUsers(ctx context.Context) ([]board.User, error) {
	var resp struct {
		Users []wireUser `json:"users"`
	}
	if err := c.get(ctx, "/tasks/listusers", &resp); err != nil {
		return nil, err
	}
	users := make([]board.User, 0, len(resp.Users))
	for _, u := range resp.Users {
		users = append(users, board.User{ID: u.ID, Name: u.Name, Picture: u.Picture})
	}
	return users, nil
}

// CreateTask submits a new task. The service assigns its ID.
func (c *Client) CreateTask(ctx context.Context, d board.Draft) error {
	form := [][2]string{
		{"message", d.Message},
		{"due_date", FormatDueDate(d.DueDate)},
		{"priority", string(d.Priority)},
		{"assigned_to", d.AssignedTo},
	}
	return c.post(ctx, "/tasks/create", form)
}

// UpdateTask sends the set fields of f for the task id.
func (c *Client) UpdateTask(ctx context.Context, id string, f board.Fields) error {
	form := [][2]string{{"taskid", id}}
	if f.Message != nil {
		form = append(form, [2]string{"message", *f.Message})
	}
	if f.DueDate != nil {
		form = append(form, [2]string{"due_date", FormatDueDate(*f.DueDate)})
	}
	if f.Priority != nil {
		form = append(form, [2]string{"priority", string(*f.Priority)})
	}
	if f.AssignedTo != nil {
		form = append(form, [2]string{"assigned_to", *f.AssignedTo})
	}
	return c.post(ctx, "/tasks/update", form)
}

// DeleteTask removes the task id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.post(ctx, "/tasks/delete", [][2]string{{"taskid", id}})
}

// FormatDueDate renders t the way the service expects it: YYYY-M-D with
// no zero padding, followed by the fixed time of day.
func FormatDueDate(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("2006-1-2") + " " + dueDateTime
}

// ParseDueDate reads a due date as the service returns it. Both the
// service layout and a bare date are accepted.
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-1-2 15:04:05", "2006-1-2"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized due date %q", s)
}

func (c *Client) fromWire(wt wireTask) board.Task {
	t := board.Task{
		ID:           wt.ID,
		Message:      wt.Message,
		Priority:     board.Priority(wt.Priority),
		AssignedTo:   wt.AssignedTo,
		AssignedName: wt.AssignedName,
	}
	if wt.DueDate != "" {
		due, err := ParseDueDate(wt.DueDate)
		if err != nil {
			c.log.WithField("task", wt.ID).WithError(err).Warn("ignoring due date")
		}
		t.DueDate = due
	}
	return t
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	body, err := c.do(req, path)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, form [][2]string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, kv := range form {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return fmt.Errorf("encode form: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encode form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	body, err := c.do(req, path)
	if err != nil {
		return err
	}
	return checkStatus(path, body)
}

// checkStatus rejects a 2xx answer whose body reports a failure, such as
// {"status":"error","error":"..."}. Bodies without a status field pass.
func checkStatus(path string, body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := sonic.Unmarshal(body, &resp); err != nil || resp.Status == "" {
		return nil
	}
	if !strings.EqualFold(resp.Status, "success") {
		return &StatusError{Path: path, Code: http.StatusOK, Body: strings.TrimSpace(string(body))}
	}
	return nil
}

func (c *Client) do(req *http.Request, path string) ([]byte, error) {
	req.Header.Set(AuthHeader, c.token)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	entry := c.log.WithField("path", path).WithField("status", resp.StatusCode).WithField("took", time.Since(start))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		entry.Warn("task service request failed")
		return nil, &StatusError{Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	entry.Debug("task service request")
	return body, nil
}
