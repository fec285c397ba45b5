package filter

import (
	"strconv"
	"strings"
	"time"

	"github.com/cromulus/reminders-cli-sub001/task"
)

// dueDateLayout is the string form of dueDate for non-ordering operators.
const dueDateLayout = "2006-01-02"

// fieldAccessor returns the string form of a task attribute and whether the
// attribute is present at all.
type fieldAccessor func(t *task.Task) (string, bool)

// fieldAccessors is keyed by lower-cased field name.
var fieldAccessors = map[string]fieldAccessor{
	"title":       func(t *task.Task) (string, bool) { return t.Title, true },
	"notes":       func(t *task.Task) (string, bool) { return t.Notes, true },
	"list":        func(t *task.Task) (string, bool) { return t.ListName, true },
	"listname":    func(t *task.Task) (string, bool) { return t.ListName, true },
	"priority":    func(t *task.Task) (string, bool) { return string(t.Bucket()), true },
	"completed":   func(t *task.Task) (string, bool) { return strconv.FormatBool(t.Completed), true },
	"iscompleted": func(t *task.Task) (string, bool) { return strconv.FormatBool(t.Completed), true },
	"hasnotes": func(t *task.Task) (string, bool) {
		return strconv.FormatBool(strings.TrimSpace(t.Notes) != ""), true
	},
	"hasduedate": func(t *task.Task) (string, bool) { return strconv.FormatBool(t.DueDate != nil), true },
	"duedate": func(t *task.Task) (string, bool) {
		if t.DueDate == nil {
			return "", false
		}
		return t.DueDate.In(time.Local).Format(dueDateLayout), true
	},
}

// IsKnownField reports whether name has a field accessor.
func IsKnownField(name string) bool {
	_, ok := fieldAccessors[strings.ToLower(name)]
	return ok
}

// UnknownFields returns the fields of f that have no accessor, in order of
// first use. Conditions on them never match.
func (f *Filter) UnknownFields() []string {
	var unknown []string
	seen := make(map[string]bool)
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case *Condition:
			key := strings.ToLower(n.Field)
			if !IsKnownField(key) && !seen[key] {
				seen[key] = true
				unknown = append(unknown, n.Field)
			}
		case *NotExpr:
			walk(n.Expr)
		case *BinaryExpr:
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(f.Root())
	return unknown
}

// Evaluate implements Expr. Unknown fields, absent values and unresolvable
// dates make the condition false rather than failing.
func (c *Condition) Evaluate(t *task.Task, env Env) bool {
	if t == nil {
		return false
	}
	field := strings.ToLower(c.Field)

	if c.Op.IsOrdering() {
		if field != "duedate" || t.DueDate == nil {
			return false
		}
		target, ok := env.dates().Resolve(c.Value, env.now())
		if !ok {
			return false
		}
		return compareInstants(*t.DueDate, c.Op, target)
	}

	accessor, ok := fieldAccessors[field]
	if !ok {
		return false
	}
	actual, ok := accessor(t)
	if !ok {
		return false
	}

	switch c.Op {
	case OpEq:
		return strings.EqualFold(actual, c.equalityValue(field, env))
	case OpNe:
		return !strings.EqualFold(actual, c.equalityValue(field, env))
	case OpContains:
		return containsFold(actual, c.Value)
	case OpNotContains:
		return !containsFold(actual, c.Value)
	case OpLike, OpMatches:
		return c.re.MatchString(actual)
	case OpNotLike, OpNotMatches:
		return !c.re.MatchString(actual)
	case OpIn:
		return inFold(actual, c.Values())
	case OpNotIn:
		return !inFold(actual, c.Values())
	default:
		return false
	}
}

// equalityValue lets "dueDate = tomorrow" compare by calendar day. Any other
// field, or a value that is already a plain date, compares as written.
func (c *Condition) equalityValue(field string, env Env) string {
	if field != "duedate" {
		return c.Value
	}
	if _, err := time.ParseInLocation(dueDateLayout, c.Value, time.Local); err == nil {
		return c.Value
	}
	if resolved, ok := env.dates().Resolve(c.Value, env.now()); ok {
		return resolved.In(time.Local).Format(dueDateLayout)
	}
	return c.Value
}

func compareInstants(left time.Time, op Operator, right time.Time) bool {
	switch op {
	case OpLt:
		return left.Before(right)
	case OpGt:
		return left.After(right)
	case OpLe:
		return !left.After(right)
	case OpGe:
		return !left.Before(right)
	default:
		return false
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func inFold(s string, values []string) bool {
	for _, v := range values {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
