package task

import (
	"fmt"
	"strings"
)

// ErrorCode classifies a validation failure.
type ErrorCode string

const (
	ErrCodeRequired   ErrorCode = "required"
	ErrCodeTooLong    ErrorCode = "too_long"
	ErrCodeOutOfRange ErrorCode = "out_of_range"
	ErrCodeInvalid    ErrorCode = "invalid"
)

// MaxTitleLength caps reminder titles, in bytes after trimming.
const MaxTitleLength = 1000

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Value   any
	Code    ErrorCode
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every failure of one reminder.
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// ByField returns the errors reported for field.
func (errs ValidationErrors) ByField(field string) []*ValidationError {
	var out []*ValidationError
	for _, e := range errs {
		if e.Field == field {
			out = append(out, e)
		}
	}
	return out
}

// FieldValidator checks one aspect of a reminder.
type FieldValidator interface {
	ValidateField(t *Task) *ValidationError
}

// TitleValidator requires a non-blank title of bounded length.
type TitleValidator struct{}

func (v *TitleValidator) ValidateField(t *Task) *ValidationError {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return &ValidationError{
			Field:   "title",
			Value:   t.Title,
			Code:    ErrCodeRequired,
			Message: "title is required",
		}
	}
	if len(title) > MaxTitleLength {
		return &ValidationError{
			Field:   "title",
			Value:   t.Title,
			Code:    ErrCodeTooLong,
			Message: fmt.Sprintf("title exceeds maximum length of %d characters", MaxTitleLength),
		}
	}
	return nil
}

// PriorityValidator keeps the raw priority on the 0-9 scale.
type PriorityValidator struct{}

func (v *PriorityValidator) ValidateField(t *Task) *ValidationError {
	if t.Priority < MinRawPriority || t.Priority > MaxRawPriority {
		return &ValidationError{
			Field:   "priority",
			Value:   t.Priority,
			Code:    ErrCodeOutOfRange,
			Message: fmt.Sprintf("priority must be between %d and %d", MinRawPriority, MaxRawPriority),
		}
	}
	return nil
}

// CompletionValidator rejects a completion date on an open reminder.
type CompletionValidator struct{}

func (v *CompletionValidator) ValidateField(t *Task) *ValidationError {
	if !t.Completed && t.CompletedAt != nil {
		return &ValidationError{
			Field:   "completionDate",
			Value:   *t.CompletedAt,
			Code:    ErrCodeInvalid,
			Message: "completion date set on a reminder that is not completed",
		}
	}
	return nil
}

var defaultValidators = []FieldValidator{
	&TitleValidator{},
	&PriorityValidator{},
	&CompletionValidator{},
}

// Validate runs the reminder validators. It returns nil or a
// ValidationErrors listing every failure.
func Validate(t *Task) error {
	var errs ValidationErrors
	for _, v := range defaultValidators {
		if err := v.ValidateField(t); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
