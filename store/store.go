package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/cromulus/reminders-cli-sub001/task"
)

var (
	// ErrNotFound is returned when no reminder has the requested id.
	ErrNotFound = errors.New("reminder not found")
	// ErrListNotFound is returned when no list matches a name or id.
	ErrListNotFound = errors.New("list not found")
	// ErrConflict is returned when creating a reminder or list that already exists.
	ErrConflict = errors.New("already exists")
)

// Store is the interface for reminder storage engines.
// Implementations must be thread-safe, hand out copies, and notify
// listeners after every successful mutation.
type Store interface {
	// AddListener registers a callback for change notifications.
	// returns a listener ID that can be used to remove the listener.
	AddListener(listener ChangeListener) int

	// RemoveListener removes a previously registered listener by ID
	RemoveListener(id int)

	// FetchAll returns every reminder across all lists.
	FetchAll(ctx context.Context) ([]*task.Task, error)

	// Lists returns all lists ordered by title.
	Lists(ctx context.Context) ([]task.List, error)

	// CreateList adds a list. Titles are unique, ignoring case.
	CreateList(ctx context.Context, title string) (task.List, error)

	// FindList resolves a list by id or by case-insensitive title.
	FindList(ctx context.Context, nameOrID string) (task.List, error)

	// GetTask retrieves a reminder by ID
	GetTask(ctx context.Context, id string) (*task.Task, error)

	// CreateTask adds a reminder to the list named by ListID or ListName.
	// An empty ID is generated.
	CreateTask(ctx context.Context, t *task.Task) (*task.Task, error)

	// UpdateTask applies a partial update.
	UpdateTask(ctx context.Context, id string, patch task.Patch) (*task.Task, error)

	// SetCompleted marks a reminder complete or incomplete.
	SetCompleted(ctx context.Context, id string, completed bool) (*task.Task, error)

	// DeleteTask removes a reminder
	DeleteTask(ctx context.Context, id string) error

	// Close releases the backing resources.
	Close() error
}

// ChangeListener is called when the store's data changes
type ChangeListener func()

// TasksInList returns the reminders of one list, incomplete ones only
// unless includeCompleted is set, ordered by creation.
func TasksInList(ctx context.Context, s Store, listID string, includeCompleted bool) ([]*task.Task, error) {
	all, err := s.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	var tasks []*task.Task
	for _, t := range all {
		if t.ListID != listID || (t.Completed && !includeCompleted) {
			continue
		}
		tasks = append(tasks, t)
	}
	sortByCreation(tasks)
	return tasks, nil
}

func sortByCreation(tasks []*task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].CreatedAt, tasks[j].CreatedAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		case a == nil && b != nil:
			return false
		case a != nil && b == nil:
			return true
		default:
			return tasks[i].ID < tasks[j].ID
		}
	})
}

// listMatches reports whether l is addressed by nameOrID.
func listMatches(l task.List, nameOrID string) bool {
	nameOrID = strings.TrimSpace(nameOrID)
	return l.ID == nameOrID || strings.EqualFold(l.Title, nameOrID)
}

// ListenerSet is the listener registry shared by store implementations.
// The zero value is ready to use.
type ListenerSet struct {
	mu     sync.Mutex
	byID   map[int]ChangeListener
	nextID int
}

// Add registers listener and returns its id. Ids start at 1 so the zero
// value can serve as a "not registered" sentinel.
func (l *ListenerSet) Add(listener ChangeListener) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.byID == nil {
		l.byID = make(map[int]ChangeListener)
	}
	l.nextID++
	l.byID[l.nextID] = listener
	return l.nextID
}

// Remove unregisters a listener by id
func (l *ListenerSet) Remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.byID, id)
}

// Notify calls every listener. It must be called without holding the
// store's data lock so listeners may read the store.
func (l *ListenerSet) Notify() {
	l.mu.Lock()
	fns := make([]ChangeListener, 0, len(l.byID))
	for _, fn := range l.byID {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
