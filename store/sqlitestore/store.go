// Package sqlitestore keeps reminders in a local SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cromulus/reminders-cli-sub001/store"
	"github.com/cromulus/reminders-cli-sub001/task"
)

// Store provides SQLite-backed persistence for lists and reminders.
type Store struct {
	db        *sql.DB
	path      string
	listeners store.ListenerSet

	mu  sync.Mutex // serializes read-modify-write cycles
	now func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("open store: path is empty")
	}
	dsn := "file:" + path + "?" + url.Values{
		"_pragma": []string{"busy_timeout(5000)", "journal_mode(WAL)", "foreign_keys(1)"},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1)

	s, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.path = path
	slog.Debug("reminder store opened", "path", path)
	return s, nil
}

// New returns a Store bound to an existing database handle and applies
// migrations.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// Path returns the database file path, empty when built with New.
func (s *Store) Path() string {
	return s.path
}

// SetClock replaces the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AddListener registers a callback for change notifications.
func (s *Store) AddListener(listener store.ChangeListener) int {
	return s.listeners.Add(listener)
}

// RemoveListener removes a previously registered listener by ID
func (s *Store) RemoveListener(id int) {
	s.listeners.Remove(id)
}

const selectTasks = `SELECT r.id, r.title, r.notes, r.priority, r.completed, r.due_at,
	r.created_at, r.modified_at, r.completed_at, r.list_id, l.title
	FROM reminders r JOIN lists l ON l.id = r.list_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t                              task.Task
		completed                      int
		due, created, modified, doneAt sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Notes, &t.Priority, &completed, &due,
		&created, &modified, &doneAt, &t.ListID, &t.ListName); err != nil {
		return nil, err
	}
	t.Completed = completed != 0

	var err error
	for _, f := range []struct {
		dst **time.Time
		src sql.NullString
	}{{&t.DueDate, due}, {&t.CreatedAt, created}, {&t.LastModified, modified}, {&t.CompletedAt, doneAt}} {
		if *f.dst, err = parseTime(f.src); err != nil {
			return nil, fmt.Errorf("reminder %s: %w", t.ID, err)
		}
	}
	return &t, nil
}

// timeLayout stores every timestamp in UTC with a fixed-width fraction, so
// the text columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// parseTime also accepts the RFC3339Nano values of schema version 1.
func parseTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, fmt.Errorf("parse time %q: %w", v.String, err)
	}
	t = t.Local()
	return &t, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

// FetchAll returns every reminder ordered by creation time
func (s *Store) FetchAll(ctx context.Context) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx, selectTasks+` ORDER BY r.created_at, r.id`)
	if err != nil {
		return nil, fmt.Errorf("fetch reminders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("fetch reminders: scan: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch reminders: %w", err)
	}
	return tasks, nil
}

// Lists returns all lists ordered by title
func (s *Store) Lists(ctx context.Context) ([]task.List, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title FROM lists ORDER BY title COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var lists []task.List
	for rows.Next() {
		var l task.List
		if err := rows.Scan(&l.ID, &l.Title); err != nil {
			return nil, fmt.Errorf("list lists: scan: %w", err)
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// CreateList adds a list with a fresh id
func (s *Store) CreateList(ctx context.Context, title string) (task.List, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return task.List{}, fmt.Errorf("list title is required")
	}

	s.mu.Lock()
	if _, err := s.findList(ctx, s.db, title); err == nil {
		s.mu.Unlock()
		return task.List{}, fmt.Errorf("list %q: %w", title, store.ErrConflict)
	}
	l := task.List{ID: uuid.NewString(), Title: title}
	_, err := s.db.ExecContext(ctx, `INSERT INTO lists (id, title) VALUES (?, ?)`, l.ID, l.Title)
	s.mu.Unlock()
	if err != nil {
		return task.List{}, fmt.Errorf("create list: insert: %w", err)
	}

	slog.Info("list created", "list_id", l.ID, "title", l.Title)
	s.listeners.Notify()
	return l, nil
}

// FindList resolves a list by id or case-insensitive title
func (s *Store) FindList(ctx context.Context, nameOrID string) (task.List, error) {
	return s.findList(ctx, s.db, nameOrID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) findList(ctx context.Context, q querier, nameOrID string) (task.List, error) {
	key := strings.TrimSpace(nameOrID)
	var l task.List
	err := q.QueryRowContext(ctx,
		`SELECT id, title FROM lists WHERE id = ? OR title = ? COLLATE NOCASE ORDER BY id = ? DESC LIMIT 1`,
		key, key, key).Scan(&l.ID, &l.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return task.List{}, fmt.Errorf("%q: %w", nameOrID, store.ErrListNotFound)
	}
	if err != nil {
		return task.List{}, fmt.Errorf("find list: %w", err)
	}
	return l, nil
}

// GetTask retrieves a reminder by ID
func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	return s.getTask(ctx, s.db, id)
}

func (s *Store) getTask(ctx context.Context, q querier, id string) (*task.Task, error) {
	id = task.NormalizeID(id)
	t, err := scanTask(q.QueryRowContext(ctx, selectTasks+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return t, nil
}

// CreateTask inserts a reminder into an existing list
func (s *Store) CreateTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	if err := task.Validate(t); err != nil {
		return nil, err
	}

	s.mu.Lock()
	created, err := s.createTask(ctx, t)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	slog.Info("reminder created", "task_id", created.ID, "list", created.ListName)
	s.listeners.Notify()
	return created, nil
}

func (s *Store) createTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	listKey := t.ListID
	if listKey == "" {
		listKey = t.ListName
	}
	list, err := s.findList(ctx, s.db, listKey)
	if err != nil {
		return nil, err
	}

	created := t.Clone()
	created.ID = task.NormalizeID(created.ID)
	if created.ID == "" {
		created.ID = task.NewID()
	} else if _, err := s.getTask(ctx, s.db, created.ID); err == nil {
		return nil, fmt.Errorf("reminder %s: %w", created.ID, store.ErrConflict)
	}

	now := s.now()
	created.ListID, created.ListName = list.ID, list.Title
	if created.CreatedAt == nil {
		created.CreatedAt = &now
	}
	created.Touch(now)
	if created.Completed && created.CompletedAt == nil {
		created.CompletedAt = &now
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO reminders
		(id, list_id, title, notes, priority, completed, due_at, created_at, modified_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.ListID, created.Title, created.Notes, created.Priority, boolInt(created.Completed),
		formatTime(created.DueDate), formatTime(created.CreatedAt), formatTime(created.LastModified), formatTime(created.CompletedAt))
	if err != nil {
		return nil, fmt.Errorf("create reminder: insert: %w", err)
	}
	return created, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// UpdateTask applies a partial update
func (s *Store) UpdateTask(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	return s.mutate(ctx, id, func(t *task.Task, _ time.Time) bool {
		if patch.Empty() {
			return false
		}
		patch.Apply(t)
		return true
	})
}

// SetCompleted marks a reminder complete or incomplete
func (s *Store) SetCompleted(ctx context.Context, id string, completed bool) (*task.Task, error) {
	return s.mutate(ctx, id, func(t *task.Task, now time.Time) bool {
		if t.Completed == completed {
			return false
		}
		t.SetCompleted(completed, now)
		return true
	})
}

// mutate loads a reminder, lets fn change it and writes it back when fn
// reports a change.
func (s *Store) mutate(ctx context.Context, id string, fn func(t *task.Task, now time.Time) bool) (*task.Task, error) {
	s.mu.Lock()
	t, err := s.getTask(ctx, s.db, id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	now := s.now()
	if !fn(t, now) {
		s.mu.Unlock()
		return t, nil
	}
	if err := task.Validate(t); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	t.Touch(now)

	_, err = s.db.ExecContext(ctx, `UPDATE reminders SET title = ?, notes = ?, priority = ?, completed = ?,
		due_at = ?, modified_at = ?, completed_at = ? WHERE id = ?`,
		t.Title, t.Notes, t.Priority, boolInt(t.Completed),
		formatTime(t.DueDate), formatTime(t.LastModified), formatTime(t.CompletedAt), t.ID)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("update reminder %s: %w", t.ID, err)
	}

	slog.Debug("reminder updated", "task_id", t.ID)
	s.listeners.Notify()
	return t, nil
}

// DeleteTask removes a reminder
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	id = task.NormalizeID(id)
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reminder %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", id, store.ErrNotFound)
	}

	slog.Info("reminder deleted", "task_id", id)
	s.listeners.Notify()
	return nil
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.Store = (*Store)(nil)
