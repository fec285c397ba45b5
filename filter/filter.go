package filter

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cromulus/reminders-cli-sub001/task"
)

// Operator is a comparison operator of a condition.
type Operator string

const (
	OpEq          Operator = "="
	OpNe          Operator = "!="
	OpLt          Operator = "<"
	OpGt          Operator = ">"
	OpLe          Operator = "<="
	OpGe          Operator = ">="
	OpContains    Operator = "CONTAINS"
	OpNotContains Operator = "NOT CONTAINS"
	OpLike        Operator = "LIKE"
	OpNotLike     Operator = "NOT LIKE"
	OpMatches     Operator = "MATCHES"
	OpNotMatches  Operator = "NOT MATCHES"
	OpIn          Operator = "IN"
	OpNotIn       Operator = "NOT IN"
)

var negatedOps = map[Operator]Operator{
	OpEq:          OpNe,
	OpNe:          OpEq,
	OpLt:          OpGe,
	OpGe:          OpLt,
	OpGt:          OpLe,
	OpLe:          OpGt,
	OpContains:    OpNotContains,
	OpNotContains: OpContains,
	OpLike:        OpNotLike,
	OpNotLike:     OpLike,
	OpMatches:     OpNotMatches,
	OpNotMatches:  OpMatches,
	OpIn:          OpNotIn,
	OpNotIn:       OpIn,
}

// ParseOperator normalizes an operator spelling ("==", "not in", ...).
func ParseOperator(s string) (Operator, bool) {
	op := Operator(strings.Join(strings.Fields(strings.ToUpper(s)), " "))
	if op == "==" {
		op = OpEq
	}
	_, ok := negatedOps[op]
	return op, ok
}

// Negated returns the operator with the opposite meaning.
func (o Operator) Negated() Operator {
	return negatedOps[o]
}

// IsOrdering reports whether o is one of < > <= >=.
func (o Operator) IsOrdering() bool {
	switch o {
	case OpLt, OpGt, OpLe, OpGe:
		return true
	default:
		return false
	}
}

func (o Operator) isSetOp() bool {
	return o == OpIn || o == OpNotIn
}

// BoolOp joins two expressions.
type BoolOp string

const (
	OpAnd BoolOp = "AND"
	OpOr  BoolOp = "OR"
)

// Env carries evaluation inputs that are not part of the task.
type Env struct {
	Now   time.Time
	Dates *DateResolver
}

// NewEnv returns an Env anchored at the current time with the default resolver.
func NewEnv() Env {
	return Env{Now: time.Now(), Dates: DefaultDateResolver()}
}

func (e Env) now() time.Time {
	if e.Now.IsZero() {
		return time.Now()
	}
	return e.Now
}

func (e Env) dates() *DateResolver {
	if e.Dates == nil {
		return DefaultDateResolver()
	}
	return e.Dates
}

// ResolveDate resolves a date keyword, ISO date or natural-language phrase
// relative to the environment's clock.
func (e Env) ResolveDate(value string) (time.Time, bool) {
	return e.dates().Resolve(value, e.now())
}

// Expr is a node of a parsed filter. Nodes are immutable once built and
// may be evaluated from many goroutines.
type Expr interface {
	Evaluate(t *task.Task, env Env) bool
	String() string
	isExpr()
}

// Condition compares one task field against a literal.
type Condition struct {
	Field string
	Op    Operator
	Value string // comma-joined for IN / NOT IN

	re *regexp.Regexp // LIKE and MATCHES only
}

// NewCondition validates the operator and precompiles LIKE/MATCHES patterns.
func NewCondition(field string, op Operator, value string) (*Condition, error) {
	if strings.TrimSpace(field) == "" {
		return nil, fmt.Errorf("condition has no field")
	}
	if _, ok := negatedOps[op]; !ok {
		return nil, fmt.Errorf("invalid operator %q", op)
	}

	c := &Condition{Field: field, Op: op, Value: value}
	switch op {
	case OpLike, OpNotLike:
		c.re = regexp.MustCompile(likePattern(value))
	case OpMatches, OpNotMatches:
		re, err := regexp.Compile("(?i)" + value)
		if err != nil {
			return nil, fmt.Errorf("invalid regular expression %q: %w", value, err)
		}
		c.re = re
	case OpIn, OpNotIn:
		if len(c.Values()) == 0 {
			return nil, fmt.Errorf("empty IN list")
		}
	}
	return c, nil
}

// likePattern turns a wildcard pattern into an anchored, case-insensitive
// regex: * matches any run, ? matches one character.
func likePattern(value string) string {
	var sb strings.Builder
	sb.WriteString("(?is)^")
	for _, r := range value {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return sb.String()
}

// Values splits an IN list value on commas.
func (c *Condition) Values() []string {
	parts := strings.Split(c.Value, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}

func (c *Condition) String() string {
	if c.Op.isSetOp() {
		quoted := make([]string, 0, len(c.Values()))
		for _, v := range c.Values() {
			quoted = append(quoted, quote(v))
		}
		return fmt.Sprintf("%s %s (%s)", c.Field, c.Op, strings.Join(quoted, ", "))
	}
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, quote(c.Value))
}

func (*Condition) isExpr() {}

func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// NotExpr inverts its child.
type NotExpr struct {
	Expr Expr
}

// Evaluate implements Expr
func (n *NotExpr) Evaluate(t *task.Task, env Env) bool {
	return !n.Expr.Evaluate(t, env)
}

func (n *NotExpr) String() string {
	return "NOT " + n.Expr.String()
}

func (*NotExpr) isExpr() {}

// BinaryExpr represents AND, OR operations
type BinaryExpr struct {
	Op    BoolOp
	Left  Expr
	Right Expr
}

// Evaluate implements Expr. Both operators short-circuit left to right.
func (b *BinaryExpr) Evaluate(t *task.Task, env Env) bool {
	switch b.Op {
	case OpAnd:
		return b.Left.Evaluate(t, env) && b.Right.Evaluate(t, env)
	case OpOr:
		return b.Left.Evaluate(t, env) || b.Right.Evaluate(t, env)
	default:
		return false
	}
}

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

func (*BinaryExpr) isExpr() {}

// Filter is a parsed filter expression together with its source text.
// The zero value and a Filter with no expression match every task.
type Filter struct {
	source string
	root   Expr
}

// NewFilter wraps an already built expression. A nil root matches everything.
func NewFilter(source string, root Expr) *Filter {
	return &Filter{source: source, root: root}
}

// Source returns the text the filter was parsed from.
func (f *Filter) Source() string {
	if f == nil {
		return ""
	}
	return f.source
}

// Root returns the expression tree, or nil for an empty filter.
func (f *Filter) Root() Expr {
	if f == nil {
		return nil
	}
	return f.root
}

// IsEmpty reports whether the filter matches everything.
func (f *Filter) IsEmpty() bool {
	return f == nil || f.root == nil
}

// Matches evaluates the filter against t.
func (f *Filter) Matches(t *task.Task, env Env) bool {
	if f.IsEmpty() {
		return true
	}
	return f.root.Evaluate(t, env)
}

// String renders the canonical form of the expression. Parsing the result
// yields an equivalent tree.
func (f *Filter) String() string {
	if f.IsEmpty() {
		return ""
	}
	return f.root.String()
}
