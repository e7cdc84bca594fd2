// Package devserver is a local implementation of the remote task service,
// backed by the sqlite store. It serves the same five endpoints with the
// same request and response shapes, so the board can be developed and
// tested without the public service.
package devserver

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/store"
)

// AuthHeader is the request header carrying the static token.
const AuthHeader = "AuthToken"

type taskJSON struct {
	ID           string `json:"id"`
	Message      string `json:"message"`
	Priority     string `json:"priority"`
	AssignedTo   string `json:"assigned_to"`
	AssignedName string `json:"assigned_name"`
	DueDate      string `json:"due_date"`
	CreatedOn    string `json:"created_on"`
}

type userJSON struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type statusJSON struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	TaskID  string `json:"taskid,omitempty"`
}

// New returns an echo instance serving the task service on s. An empty
// token disables the header check.
func New(s *store.Store, token string, logger *log.Logger) *echo.Echo {
	if logger == nil {
		logger = log.New()
		logger.SetOutput(io.Discard)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))

	g := e.Group("/tasks", requireToken(token))
	g.GET("/list", listTasks(s))
	g.GET("/listusers", listUsers(s))
	g.POST("/create", createTask(s, logger))
	g.POST("/update", updateTask(s, logger))
	g.POST("/delete", deleteTask(s, logger))
	return e
}

func requireToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token != "" && c.Request().Header.Get(AuthHeader) != token {
				return c.JSON(http.StatusUnauthorized, statusJSON{Status: "error", Error: "invalid auth token"})
			}
			return next(c)
		}
	}
}

func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			entry := logger.WithFields(log.Fields{
				"method": c.Request().Method,
				"path":   c.Request().URL.Path,
				"status": c.Response().Status,
				"took":   time.Since(start),
			})
			if c.Response().Status >= http.StatusInternalServerError {
				entry.Warn("request failed")
			} else {
				entry.Info("request")
			}
			return nil
		}
	}
}

func listTasks(s *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := s.ListTasks()
		if err != nil {
			return internalError(c, err)
		}
		tasks := make([]taskJSON, 0, len(rows))
		for _, t := range rows {
			tasks = append(tasks, taskJSON{
				ID:           strconv.FormatInt(t.ID, 10),
				Message:      t.Message,
				Priority:     t.Priority,
				AssignedTo:   t.AssignedTo,
				AssignedName: t.AssignedName,
				DueDate:      t.DueDate,
				CreatedOn:    t.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return c.JSON(http.StatusOK, map[string]any{"status": "success", "tasks": tasks})
	}
}

func listUsers(s *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := s.ListUsers()
		if err != nil {
			return internalError(c, err)
		}
		users := make([]userJSON, 0, len(rows))
		for _, u := range rows {
			users = append(users, userJSON{ID: u.ID, Name: u.Name, Picture: u.Picture})
		}
		return c.JSON(http.StatusOK, map[string]any{"status": "success", "users": users})
	}
}

func createTask(s *store.Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		message := strings.TrimSpace(c.FormValue("message"))
		if message == "" {
			return badRequest(c, "message is required")
		}
		priority := c.FormValue("priority")
		if priority != "" {
			if _, err := board.Classify(board.Priority(priority)); err != nil {
				return badRequest(c, err.Error())
			}
		}

		t, err := s.CreateTask(message, priority, c.FormValue("assigned_to"), c.FormValue("due_date"))
		if err != nil {
			return internalError(c, err)
		}
		id := strconv.FormatInt(t.ID, 10)
		logger.WithField("task", id).Info("task created")
		return c.JSON(http.StatusOK, statusJSON{Status: "success", TaskID: id})
	}
}

func updateTask(s *store.Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}

		var u store.TaskUpdate
		if v, ok := formValue(c, "message"); ok {
			v = strings.TrimSpace(v)
			if v == "" {
				return badRequest(c, "message cannot be empty")
			}
			u.Message = &v
		}
		if v, ok := formValue(c, "priority"); ok {
			if _, err := board.Classify(board.Priority(v)); err != nil {
				return badRequest(c, err.Error())
			}
			u.Priority = &v
		}
		if v, ok := formValue(c, "assigned_to"); ok {
			u.AssignedTo = &v
		}
		if v, ok := formValue(c, "due_date"); ok {
			u.DueDate = &v
		}

		if err := s.UpdateTask(id, u); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, statusJSON{Status: "error", Error: err.Error()})
			}
			return internalError(c, err)
		}
		logger.WithField("task", id).Info("task updated")
		return c.JSON(http.StatusOK, statusJSON{Status: "success", Message: "Task updated successfully"})
	}
}

func deleteTask(s *store.Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		if err := s.DeleteTask(id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, statusJSON{Status: "error", Error: err.Error()})
			}
			return internalError(c, err)
		}
		logger.WithField("task", id).Info("task deleted")
		return c.JSON(http.StatusOK, statusJSON{Status: "success", Message: "Task deleted successfully"})
	}
}

func taskID(c echo.Context) (int64, error) {
	raw := strings.TrimSpace(c.FormValue("taskid"))
	if raw == "" {
		return 0, errors.New("taskid is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid taskid")
	}
	return id, nil
}

// formValue reports whether the field was sent at all, so an update can
// tell "clear the assignee" from "leave it alone".
func formValue(c echo.Context, name string) (string, bool) {
	form, err := c.MultipartForm()
	if err == nil && form != nil {
		if vs, ok := form.Value[name]; ok && len(vs) > 0 {
			return vs[0], true
		}
		return "", false
	}
	params, err := c.FormParams()
	if err != nil {
		return "", false
	}
	if vs, ok := params[name]; ok && len(vs) > 0 {
		return vs[0], true
	}
	return "", false
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, statusJSON{Status: "error", Error: msg})
}

func internalError(c echo.Context, err error) error {
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, statusJSON{Status: "error", Error: err.Error()})
}
