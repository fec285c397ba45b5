package filter

import (
	"strings"
	"testing"
)

func TestExpandShortcuts(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{
			name: "single shortcut",
			expr: "overdue",
			want: "(dueDate < now AND completed = false)",
		},
		{
			name: "case insensitive",
			expr: "HIGH_PRIORITY",
			want: "(priority = high)",
		},
		{
			name: "combined with explicit condition",
			expr: "incomplete AND list = 'Work'",
			want: "(completed = false) AND list = 'Work'",
		},
		{
			name: "whole words only",
			expr: "completed = true",
			want: "completed = true",
		},
		{
			name: "quoted literal untouched",
			expr: "title = 'overdue' OR overdue",
			want: "title = 'overdue' OR (dueDate < now AND completed = false)",
		},
		{
			name: "escaped quote inside literal",
			expr: `notes CONTAINS 'it\'s overdue' AND complete`,
			want: `notes CONTAINS 'it\'s overdue' AND (completed = true)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandShortcuts(tt.expr); got != tt.want {
				t.Errorf("ExpandShortcuts(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestShortcutsMerge(t *testing.T) {
	merged, err := DefaultShortcuts.Merge(map[string]string{
		"Errands": "list = 'Errands'",
		"overdue": "(dueDate < today)",
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := merged.Expand("errands AND overdue"); got != "list = 'Errands' AND (dueDate < today)" {
		t.Errorf("unexpected expansion %q", got)
	}
	if overdue, _ := DefaultShortcuts.Lookup("overdue"); strings.Contains(overdue, "today)") {
		t.Error("Merge mutated the default table")
	}

	if _, err := DefaultShortcuts.Merge(map[string]string{"bad name": "x = 1"}); err == nil {
		t.Error("expected error for invalid name")
	}
	if _, err := DefaultShortcuts.Merge(map[string]string{"empty": "  "}); err == nil {
		t.Error("expected error for empty expansion")
	}
}

func TestDefaultShortcutsParse(t *testing.T) {
	for _, name := range DefaultShortcuts.Names() {
		if _, err := ParseFilter(name); err != nil {
			t.Errorf("shortcut %q does not parse: %v", name, err)
		}
	}
}

func TestShortcutsPatternBuiltOnce(t *testing.T) {
	if DefaultShortcuts.pattern == nil {
		t.Fatal("default table has no compiled pattern")
	}
	before := DefaultShortcuts.pattern
	_ = DefaultShortcuts.Expand("overdue OR incomplete")
	if DefaultShortcuts.pattern != before {
		t.Error("Expand recompiled the default pattern")
	}

	merged, err := DefaultShortcuts.Merge(map[string]string{"Chores": "list = Chores"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.pattern == nil || merged.pattern == before {
		t.Error("Merge should compile its own pattern")
	}
	if got := merged.Expand("CHORES"); got != "list = Chores" {
		t.Errorf("merged Expand = %q", got)
	}
	if got := DefaultShortcuts.Expand("chores"); got != "chores" {
		t.Errorf("default table picked up merged name: %q", got)
	}
}

func TestNilShortcuts(t *testing.T) {
	var s *Shortcuts
	if got := s.Expand("overdue"); got != "overdue" {
		t.Errorf("nil Expand = %q", got)
	}
	if s.Len() != 0 || s.Names() != nil {
		t.Error("nil table should be empty")
	}
	if _, ok := s.Lookup("overdue"); ok {
		t.Error("nil Lookup found a shortcut")
	}
	merged, err := s.Merge(map[string]string{"mine": "title = x"})
	if err != nil || merged.Len() != 1 {
		t.Fatalf("Merge on nil = %v, %v", merged, err)
	}
}
