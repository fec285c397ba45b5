// Package search runs filter expressions over a task list and orders the
// result.
package search

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cromulus/reminders-cli-sub001/filter"
	"github.com/cromulus/reminders-cli-sub001/task"
)

// Sort keys accepted in Options.SortBy.
const (
	SortTitle    = "title"
	SortDueDate  = "duedate"
	SortPriority = "priority"
	SortList     = "list"
	SortCreated  = "created"
	SortModified = "modified"
)

// Options control ordering and capping of search results.
type Options struct {
	SortBy    string // empty keeps the input order
	SortOrder string // "asc" (default) or "desc"
	Limit     int    // <= 0 means no limit
}

// compareFunc orders two tasks that both carry the sort key.
type compareFunc func(a, b *task.Task) int

type sortKey struct {
	has     func(*task.Task) bool
	compare compareFunc
}

func always(*task.Task) bool { return true }

func hasTime(get func(*task.Task) *time.Time) func(*task.Task) bool {
	return func(t *task.Task) bool { return get(t) != nil }
}

func byTime(get func(*task.Task) *time.Time) compareFunc {
	return func(a, b *task.Task) int { return get(a).Compare(*get(b)) }
}

var sortKeys = map[string]sortKey{
	SortTitle: {always, func(a, b *task.Task) int {
		return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	}},
	SortList: {always, func(a, b *task.Task) int {
		return cmp.Compare(strings.ToLower(a.ListName), strings.ToLower(b.ListName))
	}},
	// raw priority: 1 is the most urgent, 0 means unset
	SortPriority: {
		func(t *task.Task) bool { return t.Priority > 0 },
		func(a, b *task.Task) int { return cmp.Compare(a.Priority, b.Priority) },
	},
	SortDueDate: {
		hasTime(func(t *task.Task) *time.Time { return t.DueDate }),
		byTime(func(t *task.Task) *time.Time { return t.DueDate }),
	},
	SortCreated: {
		hasTime(func(t *task.Task) *time.Time { return t.CreatedAt }),
		byTime(func(t *task.Task) *time.Time { return t.CreatedAt }),
	},
	SortModified: {
		hasTime(func(t *task.Task) *time.Time { return t.LastModified }),
		byTime(func(t *task.Task) *time.Time { return t.LastModified }),
	},
}

// Validate checks the sort key and order.
func (o Options) Validate() error {
	if o.SortBy != "" {
		if _, ok := sortKeys[normalizeKey(o.SortBy)]; !ok {
			return fmt.Errorf("invalid sortBy %q: want title, dueDate, priority, list, created or modified", o.SortBy)
		}
	}
	switch strings.ToLower(strings.TrimSpace(o.SortOrder)) {
	case "", "asc", "desc":
	default:
		return fmt.Errorf("invalid sortOrder %q: want asc or desc", o.SortOrder)
	}
	return nil
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "").Replace(s)
}

// Run returns the tasks matching f, sorted and capped per opts. The input
// slice is not modified. Tasks lacking the sort key come last in either
// order; ties keep their input order.
func Run(tasks []*task.Task, f *filter.Filter, opts Options, env filter.Env) ([]*task.Task, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	matched := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Matches(t, env) {
			matched = append(matched, t)
		}
	}

	if opts.SortBy != "" {
		key := sortKeys[normalizeKey(opts.SortBy)]
		desc := strings.EqualFold(strings.TrimSpace(opts.SortOrder), "desc")
		slices.SortStableFunc(matched, func(a, b *task.Task) int {
			hasA, hasB := key.has(a), key.has(b)
			switch {
			case !hasA && !hasB:
				return 0
			case !hasA:
				return 1
			case !hasB:
				return -1
			}
			c := key.compare(a, b)
			if desc {
				return -c
			}
			return c
		})
	}

	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}
