// Package testutil seeds stores with reminder fixtures for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/cromulus/reminders-cli-sub001/store"
	"github.com/cromulus/reminders-cli-sub001/task"
)

// Seeder is the part of a store fixtures need.
type Seeder interface {
	CreateList(ctx context.Context, title string) (task.List, error)
	CreateTask(ctx context.Context, t *task.Task) (*task.Task, error)
}

// NewStore returns an in-memory store holding the named lists.
func NewStore(t testing.TB, lists ...string) *store.InMemoryStore {
	t.Helper()
	s := store.NewInMemoryStore()
	for _, title := range lists {
		if _, err := s.CreateList(context.Background(), title); err != nil {
			t.Fatalf("create list %q: %v", title, err)
		}
	}
	return s
}

// AddTasks creates each reminder in s and returns the stored copies.
// Reminders name their list with ListName.
func AddTasks(t testing.TB, s Seeder, tasks ...*task.Task) []*task.Task {
	t.Helper()
	out := make([]*task.Task, 0, len(tasks))
	for _, tk := range tasks {
		created, err := s.CreateTask(context.Background(), tk)
		if err != nil {
			t.Fatalf("create reminder %q: %v", tk.Title, err)
		}
		out = append(out, created)
	}
	return out
}

// Date returns local midnight of the given day.
func Date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
	return &d
}
