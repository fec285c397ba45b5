// Package change turns successive snapshots of the reminder store into
// lifecycle events.
package change

import (
	"sort"
	"time"

	"github.com/cromulus/reminders-cli-sub001/task"
)

// Kind names a lifecycle transition.
type Kind string

const (
	KindCreated     Kind = "created"
	KindUpdated     Kind = "updated"
	KindDeleted     Kind = "deleted"
	KindCompleted   Kind = "completed"
	KindUncompleted Kind = "uncompleted"
)

// Event is one lifecycle transition of a reminder. Task is the snapshot
// the event was computed from: the new state, or the last known state for
// deletions. Receivers must treat it as read-only.
type Event struct {
	Kind      Kind
	Task      *task.Task
	Timestamp time.Time
}

// Snapshot maps reminder id to reminder.
type Snapshot map[string]*task.Task

// NewSnapshot indexes tasks by id, copying each one.
func NewSnapshot(tasks []*task.Task) Snapshot {
	snap := make(Snapshot, len(tasks))
	for _, t := range tasks {
		if t == nil {
			continue
		}
		snap[t.ID] = t.Clone()
	}
	return snap
}

// Diff computes the events that lead from prev to next. Updated fires when
// LastModified differs; a completion flip inside such an update adds a
// Completed or Uncompleted event for the same reminder. Events are grouped
// as created, updated (with completion events), deleted, and sorted by id
// within each group.
func Diff(prev, next Snapshot, at time.Time) []Event {
	var created, updated, deleted []Event

	for _, id := range sortedIDs(next) {
		cur := next[id]
		old, existed := prev[id]
		if !existed {
			created = append(created, Event{Kind: KindCreated, Task: cur, Timestamp: at})
			continue
		}
		if task.SameInstant(old.LastModified, cur.LastModified) {
			continue
		}
		updated = append(updated, Event{Kind: KindUpdated, Task: cur, Timestamp: at})
		switch {
		case !old.Completed && cur.Completed:
			updated = append(updated, Event{Kind: KindCompleted, Task: cur, Timestamp: at})
		case old.Completed && !cur.Completed:
			updated = append(updated, Event{Kind: KindUncompleted, Task: cur, Timestamp: at})
		}
	}

	for _, id := range sortedIDs(prev) {
		if _, ok := next[id]; !ok {
			deleted = append(deleted, Event{Kind: KindDeleted, Task: prev[id], Timestamp: at})
		}
	}

	events := make([]Event, 0, len(created)+len(updated)+len(deleted))
	events = append(events, created...)
	events = append(events, updated...)
	return append(events, deleted...)
}

func sortedIDs(s Snapshot) []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
