package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cromulus/reminders-cli-sub001/task"
)

// InMemoryStore is an in-memory implementation of Store.
// Useful for testing and for an ephemeral server without a database.
type InMemoryStore struct {
	mu        sync.RWMutex
	lists     map[string]task.List
	tasks     map[string]*task.Task
	listeners ListenerSet
	now       func() time.Time
}

// NewInMemoryStore creates a new in-memory reminder store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		lists: make(map[string]task.List),
		tasks: make(map[string]*task.Task),
		now:   time.Now,
	}
}

// SetClock replaces the time source used for timestamps.
func (s *InMemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AddListener registers a callback for change notifications.
// returns a listener ID that can be used to remove the listener.
func (s *InMemoryStore) AddListener(listener ChangeListener) int {
	return s.listeners.Add(listener)
}

// RemoveListener removes a previously registered listener by ID
func (s *InMemoryStore) RemoveListener(id int) {
	s.listeners.Remove(id)
}

// FetchAll returns copies of all reminders
func (s *InMemoryStore) FetchAll(_ context.Context) ([]*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t.Clone())
	}
	sortByCreation(tasks)
	return tasks, nil
}

// Lists returns all lists ordered by title
func (s *InMemoryStore) Lists(_ context.Context) ([]task.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lists := make([]task.List, 0, len(s.lists))
	for _, l := range s.lists {
		lists = append(lists, l)
	}
	sort.Slice(lists, func(i, j int) bool {
		return strings.ToLower(lists[i].Title) < strings.ToLower(lists[j].Title)
	})
	return lists, nil
}

// CreateList adds a list with a fresh id
func (s *InMemoryStore) CreateList(_ context.Context, title string) (task.List, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return task.List{}, fmt.Errorf("list title is required")
	}

	s.mu.Lock()
	for _, l := range s.lists {
		if strings.EqualFold(l.Title, title) {
			s.mu.Unlock()
			return task.List{}, fmt.Errorf("list %q: %w", title, ErrConflict)
		}
	}
	l := task.List{ID: uuid.NewString(), Title: title}
	s.lists[l.ID] = l
	s.mu.Unlock()

	s.listeners.Notify()
	return l, nil
}

// FindList resolves a list by id or title
func (s *InMemoryStore) FindList(_ context.Context, nameOrID string) (task.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findListLocked(nameOrID)
}

func (s *InMemoryStore) findListLocked(nameOrID string) (task.List, error) {
	if l, ok := s.lists[strings.TrimSpace(nameOrID)]; ok {
		return l, nil
	}
	for _, l := range s.lists {
		if listMatches(l, nameOrID) {
			return l, nil
		}
	}
	return task.List{}, fmt.Errorf("%q: %w", nameOrID, ErrListNotFound)
}

// GetTask retrieves a copy of a reminder by ID
func (s *InMemoryStore) GetTask(_ context.Context, id string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[task.NormalizeID(id)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return t.Clone(), nil
}

// CreateTask adds a reminder to an existing list
func (s *InMemoryStore) CreateTask(_ context.Context, t *task.Task) (*task.Task, error) {
	if err := task.Validate(t); err != nil {
		return nil, err
	}

	s.mu.Lock()
	listKey := t.ListID
	if listKey == "" {
		listKey = t.ListName
	}
	list, err := s.findListLocked(listKey)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	created := t.Clone()
	created.ID = task.NormalizeID(created.ID)
	if created.ID == "" {
		created.ID = task.NewID()
	}
	if _, exists := s.tasks[created.ID]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("reminder %s: %w", created.ID, ErrConflict)
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
	s.tasks[created.ID] = created
	out := created.Clone()
	s.mu.Unlock()

	s.listeners.Notify()
	return out, nil
}

// UpdateTask applies a partial update
func (s *InMemoryStore) UpdateTask(_ context.Context, id string, patch task.Patch) (*task.Task, error) {
	return s.mutate(id, func(t *task.Task, _ time.Time) bool {
		if patch.Empty() {
			return false
		}
		patch.Apply(t)
		return true
	})
}

// SetCompleted marks a reminder complete or incomplete
func (s *InMemoryStore) SetCompleted(_ context.Context, id string, completed bool) (*task.Task, error) {
	return s.mutate(id, func(t *task.Task, now time.Time) bool {
		if t.Completed == completed {
			return false
		}
		t.SetCompleted(completed, now)
		return true
	})
}

// mutate runs fn on the stored reminder under the write lock. When fn
// reports a change the reminder is stamped and listeners are notified.
func (s *InMemoryStore) mutate(id string, fn func(t *task.Task, now time.Time) bool) (*task.Task, error) {
	s.mu.Lock()
	t, ok := s.tasks[task.NormalizeID(id)]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	now := s.now()
	next := t.Clone()
	changed := fn(next, now)
	if changed {
		if err := task.Validate(next); err != nil {
			s.mu.Unlock()
			return nil, err
		}
		next.Touch(now)
		s.tasks[next.ID] = next
	}
	out := next.Clone()
	s.mu.Unlock()

	if changed {
		s.listeners.Notify()
	}
	return out, nil
}

// DeleteTask removes a reminder from the store
func (s *InMemoryStore) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	id = task.NormalizeID(id)
	if _, ok := s.tasks[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	delete(s.tasks, id)
	s.mu.Unlock()

	s.listeners.Notify()
	return nil
}

// Close is a no-op for the in-memory store
func (s *InMemoryStore) Close() error {
	return nil
}

// ensure InMemoryStore implements Store
var _ Store = (*InMemoryStore)(nil)
