// Package webhook stores filtered webhook subscriptions and delivers
// lifecycle events to them.
package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cromulus/reminders-cli-sub001/filter"
	"github.com/cromulus/reminders-cli-sub001/task"
)

// ErrInvalidURL is returned for webhook targets that are not absolute
// http or https URLs.
var ErrInvalidURL = errors.New("invalid webhook url")

// Subscription pairs a target URL with the filter events must match.
type Subscription struct {
	ID     string         `json:"id"`
	URL    string         `json:"url"`
	Name   string         `json:"name"`
	Active bool           `json:"isActive"`
	Filter *filter.Filter `json:"filter"`
}

// Matches reports whether t passes the subscription's filter. A missing
// filter matches everything.
func (s Subscription) Matches(t *task.Task, env filter.Env) bool {
	return s.Filter.Matches(t, env)
}

// UnmarshalJSON accepts every filter form DecodeFilter does, including the
// legacy list/completion object.
func (s *Subscription) UnmarshalJSON(data []byte) error {
	type plain Subscription
	var raw struct {
		plain
		Filter json.RawMessage `json:"filter"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f, err := DecodeFilter(raw.Filter, filter.DefaultShortcuts)
	if err != nil {
		return fmt.Errorf("subscription %s: %w", raw.ID, err)
	}
	*s = Subscription(raw.plain)
	s.Filter = f
	return nil
}

// ValidateURL checks that raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q must be an absolute http or https URL", ErrInvalidURL, raw)
	}
	return nil
}

// DecodeFilter builds a filter from any of the accepted JSON forms:
// null or absent (match all), an expression string, the
// {"expression", "ast"} object, or the legacy
// {"listNames": [...], "completed": "all"|"true"|"false"} object.
// Expression strings are expanded with shortcuts.
func DecodeFilter(raw json.RawMessage, shortcuts *filter.Shortcuts) (*filter.Filter, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return &filter.Filter{}, nil
	}

	switch raw[0] {
	case '"':
		var expr string
		if err := json.Unmarshal(raw, &expr); err != nil {
			return nil, err
		}
		return filter.ParseFilterWith(expr, shortcuts)
	case '{':
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(raw, &keys); err != nil {
			return nil, err
		}
		_, hasExpr := keys["expression"]
		_, hasAST := keys["ast"]
		_, hasLists := keys["listNames"]
		_, hasCompleted := keys["completed"]

		switch {
		case !hasExpr && !hasAST && (hasLists || hasCompleted):
			var legacy LegacyFilter
			if err := json.Unmarshal(raw, &legacy); err != nil {
				return nil, fmt.Errorf("decode legacy filter: %w", err)
			}
			return legacy.Filter()
		case hasExpr && !hasAST:
			var expr string
			if err := json.Unmarshal(keys["expression"], &expr); err != nil {
				return nil, fmt.Errorf("decode filter expression: %w", err)
			}
			return filter.ParseFilterWith(expr, shortcuts)
		default:
			var f filter.Filter
			if err := json.Unmarshal(raw, &f); err != nil {
				return nil, err
			}
			return &f, nil
		}
	default:
		return nil, fmt.Errorf("filter must be a string or an object")
	}
}
