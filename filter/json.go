package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	nodeCondition = "condition"
	nodeNot       = "not"
	nodeAnd       = "and"
	nodeOr        = "or"
)

type jsonNode struct {
	Type     string    `json:"type"`
	Field    string    `json:"field,omitempty"`
	Operator string    `json:"operator,omitempty"`
	Value    *string   `json:"value,omitempty"`
	Expr     *jsonNode `json:"expr,omitempty"`
	Left     *jsonNode `json:"left,omitempty"`
	Right    *jsonNode `json:"right,omitempty"`
}

type jsonFilter struct {
	Expression string    `json:"expression"`
	AST        *jsonNode `json:"ast"`
}

// MarshalJSON encodes the filter as its source expression plus the tree.
func (f *Filter) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonFilter{Expression: f.Source(), AST: encodeNode(f.Root())})
}

// UnmarshalJSON accepts the object form written by MarshalJSON or a bare
// expression string. When both an expression and a tree are present the
// tree wins, so filters built with custom shortcuts survive a reload.
func (f *Filter) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = Filter{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var expr string
		if err := json.Unmarshal(data, &expr); err != nil {
			return err
		}
		parsed, err := ParseFilter(expr)
		if err != nil {
			return err
		}
		*f = *parsed
		return nil
	}

	var raw jsonFilter
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.AST == nil {
		parsed, err := ParseFilter(raw.Expression)
		if err != nil {
			return err
		}
		*f = *parsed
		return nil
	}

	root, err := decodeNode(raw.AST)
	if err != nil {
		return fmt.Errorf("decode filter tree: %w", err)
	}
	source := strings.TrimSpace(raw.Expression)
	if source == "" {
		source = root.String()
	}
	*f = Filter{source: source, root: root}
	return nil
}

func encodeNode(e Expr) *jsonNode {
	switch n := e.(type) {
	case *Condition:
		value := n.Value
		return &jsonNode{Type: nodeCondition, Field: n.Field, Operator: string(n.Op), Value: &value}
	case *NotExpr:
		return &jsonNode{Type: nodeNot, Expr: encodeNode(n.Expr)}
	case *BinaryExpr:
		return &jsonNode{Type: strings.ToLower(string(n.Op)), Left: encodeNode(n.Left), Right: encodeNode(n.Right)}
	default:
		return nil
	}
}

func decodeNode(n *jsonNode) (Expr, error) {
	if n == nil {
		return nil, fmt.Errorf("missing node")
	}
	switch strings.ToLower(n.Type) {
	case nodeCondition:
		op, ok := ParseOperator(n.Operator)
		if !ok {
			return nil, fmt.Errorf("invalid operator %q", n.Operator)
		}
		value := ""
		if n.Value != nil {
			value = *n.Value
		}
		return NewCondition(n.Field, op, value)
	case nodeNot:
		inner, err := decodeNode(n.Expr)
		if err != nil {
			return nil, err
		}
		return &NotExpr{Expr: inner}, nil
	case nodeAnd, nodeOr:
		left, err := decodeNode(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeNode(n.Right)
		if err != nil {
			return nil, err
		}
		op := OpAnd
		if strings.EqualFold(n.Type, nodeOr) {
			op = OpOr
		}
		return &BinaryExpr{Op: op, Left: left, Right: right}, nil
	default:
		return nil, fmt.Errorf("unknown node type %q", n.Type)
	}
}
