package task

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTitleValidator(t *testing.T) {
	tests := []struct {
		name    string
		task    *Task
		wantErr bool
		errCode ErrorCode
	}{
		{
			name:    "valid title",
			task:    &Task{Title: "Buy milk"},
			wantErr: false,
		},
		{
			name:    "empty title",
			task:    &Task{Title: ""},
			wantErr: true,
			errCode: ErrCodeRequired,
		},
		{
			name:    "whitespace title",
			task:    &Task{Title: "   "},
			wantErr: true,
			errCode: ErrCodeRequired,
		},
		{
			name:    "very long title",
			task:    &Task{Title: strings.Repeat("a", MaxTitleLength+1)},
			wantErr: true,
			errCode: ErrCodeTooLong,
		},
		{
			name:    "max length title with padding",
			task:    &Task{Title: "  " + strings.Repeat("a", MaxTitleLength) + "  "},
			wantErr: false,
		},
	}

	validator := &TitleValidator{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateField(tt.task)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error: %v, got: %v", tt.wantErr, err)
			}
			if err != nil && err.Code != tt.errCode {
				t.Errorf("expected error code %s, got %s", tt.errCode, err.Code)
			}
		})
	}
}

func TestPriorityValidator(t *testing.T) {
	validator := &PriorityValidator{}
	for priority := MinRawPriority; priority <= MaxRawPriority; priority++ {
		if err := validator.ValidateField(&Task{Priority: priority}); err != nil {
			t.Errorf("priority %d: unexpected error %v", priority, err)
		}
	}
	for _, priority := range []int{-1, 10, 42} {
		err := validator.ValidateField(&Task{Priority: priority})
		if err == nil {
			t.Errorf("priority %d: expected error", priority)
			continue
		}
		if err.Code != ErrCodeOutOfRange {
			t.Errorf("priority %d: code = %s", priority, err.Code)
		}
	}
}

func TestCompletionValidator(t *testing.T) {
	at := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	validator := &CompletionValidator{}
	if err := validator.ValidateField(&Task{Completed: true, CompletedAt: &at}); err != nil {
		t.Errorf("completed with date: %v", err)
	}
	if err := validator.ValidateField(&Task{Completed: true}); err != nil {
		t.Errorf("completed without date: %v", err)
	}
	if err := validator.ValidateField(&Task{CompletedAt: &at}); err == nil {
		t.Error("open reminder with completion date should fail")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	if err := Validate(&Task{Title: "ok", Priority: 5}); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	err := Validate(&Task{Title: " ", Priority: 12})
	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("Validate() = %T, want ValidationErrors", err)
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	if len(errs.ByField("title")) != 1 || len(errs.ByField("priority")) != 1 {
		t.Errorf("unexpected grouping: %v", errs)
	}
	if len(errs.ByField("nonexistent")) != 0 {
		t.Error("expected no errors for unknown field")
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Field:   "title",
		Value:   "",
		Code:    ErrCodeRequired,
		Message: "title is required",
	}

	expected := "title: title is required"
	if err.Error() != expected {
		t.Errorf("expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "title", Message: "title is required"},
		{Field: "priority", Message: "priority must be between 0 and 9"},
	}

	errStr := errs.Error()
	if !strings.Contains(errStr, "title is required") {
		t.Error("error string should contain title message")
	}
	if !strings.Contains(errStr, "priority must be between 0 and 9") {
		t.Error("error string should contain priority message")
	}
}
