package webhook

import (
	"fmt"
	"strings"

	"github.com/cromulus/reminders-cli-sub001/filter"
)

// LegacyFilter is the list/completion filter older clients send when
// registering a webhook.
type LegacyFilter struct {
	ListNames []string `json:"listNames"`
	Completed string   `json:"completed"` // "all", "true" or "false"
}

// Filter translates the legacy object into an expression tree:
// list names become an OR of list equalities, completion a completed
// condition, and both are joined with AND.
func (l LegacyFilter) Filter() (*filter.Filter, error) {
	var lists filter.Expr
	for _, name := range l.ListNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c, err := filter.NewCondition("list", filter.OpEq, name)
		if err != nil {
			return nil, err
		}
		if lists == nil {
			lists = c
		} else {
			lists = &filter.BinaryExpr{Op: filter.OpOr, Left: lists, Right: c}
		}
	}

	var completed filter.Expr
	switch strings.ToLower(strings.TrimSpace(l.Completed)) {
	case "", "all":
	case "true", "false":
		c, err := filter.NewCondition("completed", filter.OpEq, strings.ToLower(strings.TrimSpace(l.Completed)))
		if err != nil {
			return nil, err
		}
		completed = c
	default:
		return nil, fmt.Errorf("legacy filter: completed must be all, true or false, got %q", l.Completed)
	}

	var root filter.Expr
	switch {
	case lists != nil && completed != nil:
		root = &filter.BinaryExpr{Op: filter.OpAnd, Left: lists, Right: completed}
	case lists != nil:
		root = lists
	case completed != nil:
		root = completed
	default:
		return &filter.Filter{}, nil
	}
	return filter.NewFilter(root.String(), root), nil
}
