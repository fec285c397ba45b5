package task

import (
	"strconv"
	"strings"
)

// Priority is the display bucket of a raw 0-9 priority value.
type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	MinRawPriority = 0
	MaxRawPriority = 9
)

// raw value written when a bucket name is used on input
var priorityRaw = map[Priority]int{
	PriorityNone:   0,
	PriorityHigh:   1,
	PriorityMedium: 5,
	PriorityLow:    9,
}

// PriorityBucket maps the raw scale onto display buckets:
// 0 -> none, 1-4 -> high, 5 -> medium, 6-9 -> low.
//
// Smaller non-zero raw values are more urgent. Filters and webhook
// subscriptions match on the bucket name, so this mapping must stay stable.
func PriorityBucket(raw int) Priority {
	switch {
	case raw >= 1 && raw <= 4:
		return PriorityHigh
	case raw == 5:
		return PriorityMedium
	case raw >= 6 && raw <= MaxRawPriority:
		return PriorityLow
	default:
		return PriorityNone
	}
}

// Bucket returns the display bucket of the task's priority.
func (t *Task) Bucket() Priority {
	return PriorityBucket(t.Priority)
}

// ParsePriority accepts a bucket name or a raw integer in 0-9.
func ParsePriority(s string) (int, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return 0, true
	}
	if raw, ok := priorityRaw[Priority(key)]; ok {
		return raw, true
	}
	n, err := strconv.Atoi(key)
	if err != nil || n < MinRawPriority || n > MaxRawPriority {
		return 0, false
	}
	return n, true
}
