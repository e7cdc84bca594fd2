package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/imkarma/taskboard/internal/board"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Store provides access to the taskboard database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		message      TEXT NOT NULL,
		priority     TEXT NOT NULL DEFAULT '1',
		assigned_to  TEXT DEFAULT '',
		due_date     TEXT DEFAULT '',
		created_at   DATETIME NOT NULL,
		updated_at   DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		picture     TEXT DEFAULT '',
		fetched_at  DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS mutations (
		id          TEXT PRIMARY KEY,
		kind        TEXT NOT NULL,
		task_id     TEXT DEFAULT '',
		summary     TEXT DEFAULT '',
		state       TEXT NOT NULL,
		error       TEXT DEFAULT '',
		created_at  DATETIME NOT NULL,
		settled_at  DATETIME
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Migrate existing databases: add new columns if missing.
	s.addColumnIfMissing("mutations", "summary", "TEXT DEFAULT ''")

	return nil
}

// addColumnIfMissing adds a column to a table if it doesn't exist yet.
func (s *Store) addColumnIfMissing(table, column, colDef string) {
	rows, err := s.db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue *string
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return
		}
		if name == column {
			return
		}
	}

	s.db.Exec("ALTER TABLE " + table + " ADD COLUMN " + column + " " + colDef)
}

// --- Tasks ---

// CreateTask inserts a task and returns it with the generated ID.
func (s *Store) CreateTask(message, priority, assignedTo, dueDate string) (*Task, error) {
	now := time.Now().UTC()
	if priority == "" {
		priority = string(board.PriorityNormal)
	}

	res, err := s.db.Exec(
		`INSERT INTO tasks (message, priority, assigned_to, due_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		message, priority, assignedTo, dueDate, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetTask(id)
}

// taskColumns is the standard column list for task queries.
const taskColumns = `t.id, t.message, t.priority, t.assigned_to, COALESCE(u.name, ''), t.due_date, t.created_at, t.updated_at`

const taskFrom = ` FROM tasks t LEFT JOIN users u ON u.id = t.assigned_to`

// GetTask returns a single task by ID.
func (s *Store) GetTask(id int64) (*Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+taskFrom+` WHERE t.id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task #%d: %w", id, ErrNotFound)
	}
	return t, err
}

// ListTasks returns every task in creation order.
func (s *Store) ListTasks() ([]Task, error) {
	rows, err := s.db.Query(`SELECT ` + taskColumns + taskFrom + ` ORDER BY t.id`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTask changes the given columns of a task.
func (s *Store) UpdateTask(id int64, u TaskUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if u.Message != nil {
		sets = append(sets, "message = ?")
		args = append(args, *u.Message)
	}
	if u.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *u.Priority)
	}
	if u.AssignedTo != nil {
		sets = append(sets, "assigned_to = ?")
		args = append(args, *u.AssignedTo)
	}
	if u.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, *u.DueDate)
	}
	args = append(args, id)

	res, err := s.db.Exec(`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task #%d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(id int64) error {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task #%d: %w", id, ErrNotFound)
	}
	return nil
}

// --- Users ---

// ReplaceUsers swaps the whole user list in one transaction.
func (s *Store) ReplaceUsers(users []User) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM users`); err != nil {
		return fmt.Errorf("clear users: %w", err)
	}
	now := time.Now().UTC()
	for _, u := range users {
		fetched := u.FetchedAt
		if fetched.IsZero() {
			fetched = now
		}
		if _, err := tx.Exec(
			`INSERT INTO users (id, name, picture, fetched_at) VALUES (?, ?, ?, ?)`,
			u.ID, u.Name, u.Picture, fetched,
		); err != nil {
			return fmt.Errorf("insert user %s: %w", u.ID, err)
		}
	}
	return tx.Commit()
}

// UpsertUser inserts or renames a single user.
func (s *Store) UpsertUser(u User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (id, name, picture, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, picture = excluded.picture, fetched_at = excluded.fetched_at`,
		u.ID, u.Name, u.Picture, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// ListUsers returns every user ordered by name.
func (s *Store) ListUsers() ([]User, error) {
	rows, err := s.db.Query(`SELECT id, name, picture, fetched_at FROM users ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Picture, &u.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// --- Mutation journal ---

// RecordMutation writes the latest state of a mutation.
func (s *Store) RecordMutation(m board.Mutation) error {
	var errText string
	if m.Err != nil {
		errText = m.Err.Error()
	}
	var settled sql.NullTime
	if !m.SettledAt.IsZero() {
		settled = sql.NullTime{Time: m.SettledAt, Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO mutations (id, kind, task_id, summary, state, error, created_at, settled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state = excluded.state, error = excluded.error, settled_at = excluded.settled_at`,
		m.ID, string(m.Kind), m.TaskID, summarize(m), string(m.State), errText, m.CreatedAt, settled,
	)
	if err != nil {
		return fmt.Errorf("record mutation: %w", err)
	}
	return nil
}

// ListMutations returns the most recent journal entries, newest first.
func (s *Store) ListMutations(limit int) ([]MutationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, kind, task_id, summary, state, error, created_at, settled_at
		 FROM mutations ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list mutations: %w", err)
	}
	defer rows.Close()

	var out []MutationRecord
	for rows.Next() {
		var r MutationRecord
		var settled sql.NullTime
		if err := rows.Scan(&r.ID, &r.Kind, &r.TaskID, &r.Summary, &r.State, &r.Error, &r.CreatedAt, &settled); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		if settled.Valid {
			r.SettledAt = settled.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// summarize renders what a mutation changes, for the journal.
func summarize(m board.Mutation) string {
	switch m.Kind {
	case board.MutationCreate:
		return fmt.Sprintf("%q priority=%s", m.Draft.Message, m.Draft.Priority)
	case board.MutationDelete:
		return ""
	}
	var parts []string
	f := m.Fields
	if f.Message != nil {
		parts = append(parts, fmt.Sprintf("message=%q", *f.Message))
	}
	if f.Priority != nil {
		parts = append(parts, "priority="+string(*f.Priority))
	}
	if f.AssignedTo != nil {
		parts = append(parts, "assigned_to="+*f.AssignedTo)
	}
	if f.DueDate != nil {
		parts = append(parts, "due_date="+f.DueDate.Format("2006-01-02"))
	}
	return strings.Join(parts, " ")
}

type scanner interface {
	Scan(dest ...any) error
}

// scanTask scans a single task from a *sql.Row or *sql.Rows.
func scanTask(row scanner) (*Task, error) {
	var t Task
	err := row.Scan(
		&t.ID, &t.Message, &t.Priority, &t.AssignedTo, &t.AssignedName,
		&t.DueDate, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &t, nil
}
