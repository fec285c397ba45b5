package task

import (
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Task is a single reminder as seen by the filter and webhook layers.
// The JSON form doubles as the "reminder" object of webhook payloads.
type Task struct {
	ID           string     `json:"uuid"`
	Title        string     `json:"title"`
	Notes        string     `json:"notes"`
	DueDate      *time.Time `json:"dueDate"`
	Completed    bool       `json:"isCompleted"`
	Priority     int        `json:"priority"` // raw 0-9 scale, see PriorityBucket
	ListName     string     `json:"listName"`
	ListID       string     `json:"listUUID"`
	CreatedAt    *time.Time `json:"creationDate"`
	LastModified *time.Time `json:"lastModifiedDate"`
	CompletedAt  *time.Time `json:"completionDate"`
}

// List is a named reminder list.
type List struct {
	ID    string `json:"uuid"`
	Title string `json:"title"`
}

// Patch describes a partial update. Nil fields are left unchanged.
type Patch struct {
	Title        *string
	Notes        *string
	DueDate      *time.Time
	ClearDueDate bool
	Priority     *int
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Notes == nil && p.DueDate == nil && !p.ClearDueDate && p.Priority == nil
}

// Apply writes the patch into t.
func (p Patch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.ClearDueDate {
		t.DueDate = nil
	}
	if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.DueDate = cloneTime(t.DueDate)
	c.CreatedAt = cloneTime(t.CreatedAt)
	c.LastModified = cloneTime(t.LastModified)
	c.CompletedAt = cloneTime(t.CompletedAt)
	return &c
}

// SetCompleted flips the completion flag and maintains CompletedAt.
func (t *Task) SetCompleted(completed bool, at time.Time) {
	t.Completed = completed
	if completed {
		t.CompletedAt = &at
	} else {
		t.CompletedAt = nil
	}
}

// Touch stamps LastModified.
func (t *Task) Touch(at time.Time) {
	t.LastModified = &at
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// SameInstant reports whether two optional instants are both absent or equal.
func SameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

const appleReminderPrefix = "x-apple-reminder://"

// NormalizeID strips the x-apple-reminder:// scheme some clients send.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	return strings.TrimPrefix(id, appleReminderPrefix)
}

// NewID generates a random reminder identifier.
func NewID() string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 16
	id, err := gonanoid.Generate(alphabet, length)
	if err != nil {
		// only fails if the system random source is broken
		return strings.ToUpper(strings.ReplaceAll(time.Now().UTC().Format("20060102150405.000000000"), ".", ""))
	}
	return id
}
