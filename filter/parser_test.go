package filter

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var ignoreCompiled = cmpopts.IgnoreUnexported(Condition{})

func cond(field string, op Operator, value string) *Condition {
	c, err := NewCondition(field, op, value)
	if err != nil {
		panic(err)
	}
	return c
}

func and(l, r Expr) Expr { return &BinaryExpr{Op: OpAnd, Left: l, Right: r} }
func or(l, r Expr) Expr  { return &BinaryExpr{Op: OpOr, Left: l, Right: r} }
func not(e Expr) Expr    { return &NotExpr{Expr: e} }

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want Expr
	}{
		{
			name: "single quoted literal",
			expr: "title = 'x'",
			want: cond("title", OpEq, "x"),
		},
		{
			name: "double quoted literal",
			expr: `title = "x"`,
			want: cond("title", OpEq, "x"),
		},
		{
			name: "bare literal",
			expr: "title = x",
			want: cond("title", OpEq, "x"),
		},
		{
			name: "number literal",
			expr: "priority != 5",
			want: cond("priority", OpNe, "5"),
		},
		{
			name: "keywords are case insensitive",
			expr: "title contains 'milk' and not list in ('Home')",
			want: and(cond("title", OpContains, "milk"), not(cond("list", OpIn, "Home"))),
		},
		{
			name: "IN with parentheses",
			expr: "list IN ('Work','Home')",
			want: cond("list", OpIn, "Work,Home"),
		},
		{
			name: "IN with brackets",
			expr: "list IN [Work, Home]",
			want: cond("list", OpIn, "Work,Home"),
		},
		{
			name: "IN bare list",
			expr: "list IN Work, Home",
			want: cond("list", OpIn, "Work,Home"),
		},
		{
			name: "NOT IN",
			expr: "list NOT IN ['Work']",
			want: cond("list", OpNotIn, "Work"),
		},
		{
			name: "NOT CONTAINS, NOT LIKE, NOT MATCHES",
			expr: "title NOT CONTAINS a AND title NOT LIKE 'b*' AND title NOT MATCHES '^c'",
			want: and(and(
				cond("title", OpNotContains, "a"),
				cond("title", OpNotLike, "b*")),
				cond("title", OpNotMatches, "^c")),
		},
		{
			name: "AND binds tighter than OR",
			expr: "a = 1 OR b = 2 AND c = 3",
			want: or(cond("a", OpEq, "1"), and(cond("b", OpEq, "2"), cond("c", OpEq, "3"))),
		},
		{
			name: "parentheses override precedence",
			expr: "(a = 1 OR b = 2) AND c = 3",
			want: and(or(cond("a", OpEq, "1"), cond("b", OpEq, "2")), cond("c", OpEq, "3")),
		},
		{
			name: "left associative",
			expr: "a = 1 OR b = 2 OR c = 3",
			want: or(or(cond("a", OpEq, "1"), cond("b", OpEq, "2")), cond("c", OpEq, "3")),
		},
		{
			name: "double NOT",
			expr: "NOT NOT completed = true",
			want: not(not(cond("completed", OpEq, "true"))),
		},
		{
			name: "BETWEEN desugars",
			expr: "dueDate BETWEEN today AND end_of_week",
			want: and(cond("dueDate", OpGe, "today"), cond("dueDate", OpLe, "end_of_week")),
		},
		{
			name: "BETWEEN inside a larger expression",
			expr: "dueDate BETWEEN '2026-01-01' AND '2026-01-31' AND completed = false",
			want: and(
				and(cond("dueDate", OpGe, "2026-01-01"), cond("dueDate", OpLe, "2026-01-31")),
				cond("completed", OpEq, "false")),
		},
		{
			name: "shortcut expanded",
			expr: "overdue AND high_priority",
			want: and(
				and(cond("dueDate", OpLt, "now"), cond("completed", OpEq, "false")),
				cond("priority", OpEq, "high")),
		},
		{
			name: "double equals",
			expr: "title == milk",
			want: cond("title", OpEq, "milk"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.expr)
			if err != nil {
				t.Fatalf("ParseFilter(%q) error: %v", tt.expr, err)
			}
			if diff := cmp.Diff(tt.want, f.Root(), ignoreCompiled); diff != "" {
				t.Errorf("ParseFilter(%q) mismatch (-want +got):\n%s", tt.expr, diff)
			}
		})
	}
}

func TestParseFilterEmpty(t *testing.T) {
	for _, expr := range []string{"", "   "} {
		f, err := ParseFilter(expr)
		if err != nil {
			t.Fatalf("ParseFilter(%q) error: %v", expr, err)
		}
		if !f.IsEmpty() {
			t.Errorf("ParseFilter(%q) should be empty", expr)
		}
	}
}

func TestParseFilterErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"condition without operator", "priority"},
		{"invalid operator", "priority @ high"},
		{"invalid keyword operator", "priority IS high"},
		{"missing value", "title ="},
		{"missing field", "= 'x'"},
		{"empty IN list parens", "list IN ()"},
		{"empty IN list brackets", "list IN []"},
		{"empty bare IN list", "list IN"},
		{"unclosed IN list", "list IN ('a', 'b'"},
		{"BETWEEN without AND", "dueDate BETWEEN today tomorrow"},
		{"BETWEEN missing upper bound", "dueDate BETWEEN today AND"},
		{"dangling NOT", "NOT"},
		{"NOT before AND", "NOT AND title = x"},
		{"NOT before closing paren", "(title = x OR NOT)"},
		{"trailing token", "title = x y"},
		{"trailing operator", "title = x AND"},
		{"unbalanced open paren", "(title = x"},
		{"unbalanced close paren", "title = x)"},
		{"empty parentheses", "()"},
		{"NOT followed by unknown operator", "title NOT = x"},
		{"invalid regex", "title MATCHES '('"},
		{"keyword as value", "title = AND"},
		{"unterminated string", "title = 'x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilter(tt.expr)
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("ParseFilter(%q) = %v, want *ParseError", tt.expr, err)
			}
		})
	}
}

func TestParseErrorWrapsLexError(t *testing.T) {
	_, err := ParseFilter("priority @ high")
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected wrapped *LexError, got %v", err)
	}
	if lexErr.Pos != 9 {
		t.Errorf("lex error position = %d, want 9", lexErr.Pos)
	}
}

func TestFilterStringRoundTrip(t *testing.T) {
	exprs := []string{
		"a = 1 OR b = 2 AND c = 3",
		"(a = 1 OR b = 2) AND NOT c = 3",
		"list IN [Work, Home] AND title NOT LIKE 'Call ???'",
		`notes CONTAINS 'it\'s a \\ path'`,
		"title MATCHES '^\\d+ items$'",
		"dueDate BETWEEN today AND 'end of week'",
		"overdue OR due_today",
	}

	for _, expr := range exprs {
		t.Run(expr, func(t *testing.T) {
			first, err := ParseFilter(expr)
			if err != nil {
				t.Fatalf("ParseFilter(%q): %v", expr, err)
			}
			canonical := first.String()
			second, err := ParseFilter(canonical)
			if err != nil {
				t.Fatalf("ParseFilter(canonical %q): %v", canonical, err)
			}
			if diff := cmp.Diff(first.Root(), second.Root(), ignoreCompiled); diff != "" {
				t.Errorf("round trip of %q through %q changed the tree:\n%s", expr, canonical, diff)
			}
			if second.String() != canonical {
				t.Errorf("canonical form not stable: %q vs %q", canonical, second.String())
			}
		})
	}
}

func TestFilterStringShape(t *testing.T) {
	f, err := ParseFilter("a = 1 OR b = 2 AND c = 3")
	if err != nil {
		t.Fatal(err)
	}
	want := "(a = '1' OR (b = '2' AND c = '3'))"
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
