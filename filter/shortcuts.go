package filter

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// Shortcuts is an immutable table of shortcut names and the expression
// fragments they expand to. Its matching pattern is compiled once, when the
// table is built. A nil *Shortcuts expands nothing.
type Shortcuts struct {
	table   map[string]string
	pattern *regexp.Regexp
}

var defaultTable = map[string]string{
	"overdue":       "(dueDate < now AND completed = false)",
	"due_today":     "(dueDate >= today AND dueDate < tomorrow)",
	"due_tomorrow":  "(dueDate >= tomorrow AND dueDate < tomorrow+1)",
	"this_week":     "(dueDate >= start_of_week AND dueDate <= end_of_week)",
	"high_priority": "(priority = high)",
	"incomplete":    "(completed = false)",
	"complete":      "(completed = true)",
	"no_due_date":   "(hasDueDate = false)",
}

// DefaultShortcuts are always available in filter expressions.
var DefaultShortcuts = mustShortcuts(defaultTable)

var shortcutName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func mustShortcuts(table map[string]string) *Shortcuts {
	s, err := NewShortcuts(table)
	if err != nil {
		panic(err)
	}
	return s
}

// NewShortcuts builds a table from name/expansion pairs. Names must be plain
// identifiers and are matched case-insensitively; an empty expansion is
// rejected.
func NewShortcuts(table map[string]string) (*Shortcuts, error) {
	s := &Shortcuts{table: make(map[string]string, len(table))}
	if err := s.add(table); err != nil {
		return nil, err
	}
	s.compile()
	return s, nil
}

func (s *Shortcuts) add(table map[string]string) error {
	for name, expansion := range table {
		if !shortcutName.MatchString(name) {
			return fmt.Errorf("invalid shortcut name %q", name)
		}
		if strings.TrimSpace(expansion) == "" {
			return fmt.Errorf("shortcut %q has an empty expansion", name)
		}
		s.table[strings.ToLower(name)] = expansion
	}
	return nil
}

// Merge returns a new table with extra layered over s.
func (s *Shortcuts) Merge(extra map[string]string) (*Shortcuts, error) {
	merged := &Shortcuts{table: make(map[string]string, s.Len()+len(extra))}
	if s != nil {
		maps.Copy(merged.table, s.table)
	}
	if err := merged.add(extra); err != nil {
		return nil, err
	}
	merged.compile()
	return merged, nil
}

// Lookup returns the expansion of name, ignoring case.
func (s *Shortcuts) Lookup(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	expansion, ok := s.table[strings.ToLower(name)]
	return expansion, ok
}

// Names returns the lower-cased shortcut names in sorted order.
func (s *Shortcuts) Names() []string {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.table))
}

// Len returns the number of shortcuts.
func (s *Shortcuts) Len() int {
	if s == nil {
		return 0
	}
	return len(s.table)
}

// Expand replaces whole-word, case-insensitive shortcut names outside of
// quoted literals with their expansions. It is a single text pass, so
// expansions are never expanded again.
func (s *Shortcuts) Expand(expr string) string {
	if s == nil || s.pattern == nil || expr == "" {
		return expr
	}

	var out strings.Builder
	for _, seg := range splitQuoted(expr) {
		if seg.quoted {
			out.WriteString(seg.text)
			continue
		}
		out.WriteString(s.pattern.ReplaceAllStringFunc(seg.text, func(word string) string {
			return s.table[strings.ToLower(word)]
		}))
	}
	return out.String()
}

func (s *Shortcuts) compile() {
	if len(s.table) == 0 {
		return
	}
	names := make([]string, 0, len(s.table))
	for name := range s.table {
		names = append(names, regexp.QuoteMeta(name))
	}
	// longest first so alternation never prefers a shorter overlapping name
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	s.pattern = regexp.MustCompile(`(?i)\b(?:` + strings.Join(names, "|") + `)\b`)
}

// ExpandShortcuts applies DefaultShortcuts.
func ExpandShortcuts(expr string) string {
	return DefaultShortcuts.Expand(expr)
}

type segment struct {
	text   string
	quoted bool
}

// splitQuoted cuts expr into alternating unquoted and quoted runs. An
// unterminated quote runs to the end; the lexer reports it later.
func splitQuoted(expr string) []segment {
	var segs []segment
	var cur strings.Builder
	var quote rune
	escaped := false

	flush := func(quoted bool) {
		if cur.Len() > 0 {
			segs = append(segs, segment{text: cur.String(), quoted: quoted})
			cur.Reset()
		}
	}

	for _, r := range expr {
		switch {
		case quote == 0 && (r == '\'' || r == '"'):
			flush(false)
			quote = r
			cur.WriteRune(r)
		case quote != 0:
			cur.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				flush(true)
				quote = 0
			}
		default:
			cur.WriteRune(r)
		}
	}
	flush(quote != 0)
	return segs
}
