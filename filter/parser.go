package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ParseError reports a malformed filter expression. Lexical failures are
// wrapped too, so callers only need to check for *ParseError.
type ParseError struct {
	Pos int
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseFilter parses a filter expression using the default shortcuts.
//
// Example expressions:
//   - title CONTAINS 'milk'
//   - list IN ('Work', 'Home') AND NOT completed = true
//   - dueDate BETWEEN today AND end_of_week
//   - overdue OR high_priority
//
// An empty expression yields a filter that matches every task.
func ParseFilter(expr string) (*Filter, error) {
	return ParseFilterWith(expr, DefaultShortcuts)
}

// ParseFilterWith parses expr after expanding the given shortcuts.
func ParseFilterWith(expr string, shortcuts *Shortcuts) (*Filter, error) {
	source := strings.TrimSpace(expr)
	if source == "" {
		return &Filter{}, nil
	}

	tokens, err := Tokenize(shortcuts.Expand(source))
	if err != nil {
		var lexErr *LexError
		if errors.As(err, &lexErr) {
			return nil, &ParseError{Pos: lexErr.Pos, Msg: lexErr.Msg, Err: err}
		}
		return nil, &ParseError{Msg: err.Error(), Err: err}
	}

	p := &filterParser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, p.errorf(tok, "unexpected %s after complete expression", tok.describe())
	}
	return &Filter{source: source, root: root}, nil
}

type filterParser struct {
	tokens []Token
	pos    int
}

func (p *filterParser) peek() Token {
	return p.tokens[p.pos]
}

func (p *filterParser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *filterParser) errorf(tok Token, format string, args ...any) *ParseError {
	return &ParseError{Pos: tok.Pos, Msg: fmt.Sprintf(format, args...)}
}

// isKeyword reports whether tok is the identifier kw, ignoring case.
func isKeyword(tok Token, kw string) bool {
	return tok.Type == TokenIdent && strings.EqualFold(tok.Value, kw)
}

var reservedWords = []string{"AND", "OR", "NOT", "IN", "CONTAINS", "LIKE", "MATCHES", "BETWEEN"}

func isReserved(tok Token) bool {
	for _, kw := range reservedWords {
		if isKeyword(tok, kw) {
			return true
		}
	}
	return false
}

// parseOr handles OR (lowest precedence)
func (p *filterParser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for isKeyword(p.peek(), "OR") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

// parseAnd handles AND (binds tighter than OR)
func (p *filterParser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for isKeyword(p.peek(), "AND") {
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *filterParser) parseUnary() (Expr, error) {
	if isKeyword(p.peek(), "NOT") {
		notTok := p.advance()
		next := p.peek()
		if next.Type == TokenEOF || next.Type == TokenRParen || isKeyword(next, "AND") || isKeyword(next, "OR") {
			return nil, p.errorf(notTok, "NOT must be followed by a condition")
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Expr: inner}, nil
	}
	return p.parsePrimary()
}

func (p *filterParser) parsePrimary() (Expr, error) {
	tok := p.peek()
	if tok.Type == TokenLParen {
		p.advance()
		if p.peek().Type == TokenRParen {
			return nil, p.errorf(p.peek(), "empty parentheses")
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.peek(); closing.Type != TokenRParen {
			return nil, p.errorf(closing, "expected ')' but found %s", closing.describe())
		}
		p.advance()
		return inner, nil
	}
	return p.parseCondition()
}

func (p *filterParser) parseCondition() (Expr, error) {
	fieldTok := p.peek()
	if fieldTok.Type != TokenIdent || isReserved(fieldTok) {
		if fieldTok.Type == TokenEOF {
			return nil, p.errorf(fieldTok, "expected a condition but reached end of expression")
		}
		return nil, p.errorf(fieldTok, "expected field name but found %s", fieldTok.describe())
	}
	p.advance()
	field := fieldTok.Value

	opTok := p.peek()
	switch {
	case opTok.Type == TokenOperator:
		p.advance()
		op, _ := ParseOperator(opTok.Value)
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return p.newCondition(fieldTok, field, op, value)

	case isKeyword(opTok, "NOT"):
		p.advance()
		next := p.peek()
		switch {
		case isKeyword(next, "IN"):
			p.advance()
			return p.parseInList(fieldTok, field, OpIn.Negated())
		case isKeyword(next, "CONTAINS"), isKeyword(next, "LIKE"), isKeyword(next, "MATCHES"):
			p.advance()
			op, _ := ParseOperator(next.Value)
			op = op.Negated()
			value, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			return p.newCondition(fieldTok, field, op, value)
		default:
			return nil, p.errorf(next, "expected IN, CONTAINS, LIKE or MATCHES after NOT but found %s", next.describe())
		}

	case isKeyword(opTok, "IN"):
		p.advance()
		return p.parseInList(fieldTok, field, OpIn)

	case isKeyword(opTok, "CONTAINS"), isKeyword(opTok, "LIKE"), isKeyword(opTok, "MATCHES"):
		p.advance()
		op, _ := ParseOperator(opTok.Value)
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return p.newCondition(fieldTok, field, op, value)

	case isKeyword(opTok, "BETWEEN"):
		p.advance()
		return p.parseBetween(fieldTok, field)

	case opTok.Type == TokenEOF:
		return nil, p.errorf(opTok, "missing operator after field %q", field)

	default:
		return nil, p.errorf(opTok, "invalid operator %s after field %q", opTok.describe(), field)
	}
}

func (p *filterParser) newCondition(at Token, field string, op Operator, value string) (Expr, error) {
	c, err := NewCondition(field, op, value)
	if err != nil {
		return nil, &ParseError{Pos: at.Pos, Msg: err.Error(), Err: err}
	}
	return c, nil
}

// parseBetween desugars "field BETWEEN a AND b" into two ordering conditions.
func (p *filterParser) parseBetween(fieldTok Token, field string) (Expr, error) {
	low, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if andTok := p.peek(); !isKeyword(andTok, "AND") {
		return nil, p.errorf(andTok, "BETWEEN requires AND but found %s", andTok.describe())
	}
	p.advance()
	high, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	left, err := p.newCondition(fieldTok, field, OpGe, low)
	if err != nil {
		return nil, err
	}
	right, err := p.newCondition(fieldTok, field, OpLe, high)
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{Op: OpAnd, Left: left, Right: right}, nil
}

// parseValue reads a single literal: a quoted string, a number or a bare word.
func (p *filterParser) parseValue() (string, error) {
	tok := p.peek()
	switch tok.Type {
	case TokenString, TokenNumber:
		p.advance()
		return tok.Value, nil
	case TokenIdent:
		if isKeyword(tok, "AND") || isKeyword(tok, "OR") || isKeyword(tok, "NOT") {
			return "", p.errorf(tok, "expected value but found keyword %s", strings.ToUpper(tok.Value))
		}
		p.advance()
		return tok.Value, nil
	case TokenEOF:
		return "", p.errorf(tok, "expected value but reached end of expression")
	default:
		return "", p.errorf(tok, "expected value but found %s", tok.describe())
	}
}

// parseInList reads "(a, b)", "[a, b]" or a bare "a, b" list.
func (p *filterParser) parseInList(fieldTok Token, field string, op Operator) (Expr, error) {
	open := p.peek()
	var closing TokenType
	switch open.Type {
	case TokenLParen:
		closing = TokenRParen
	case TokenLBracket:
		closing = TokenRBracket
	}

	var values []string
	if closing != TokenEOF {
		p.advance()
		if p.peek().Type == closing {
			return nil, p.errorf(open, "empty IN list")
		}
	}

	for {
		value, err := p.parseValue()
		if err != nil {
			if closing == TokenEOF && len(values) == 0 {
				return nil, p.errorf(open, "empty IN list")
			}
			return nil, err
		}
		values = append(values, value)

		if p.peek().Type != TokenComma {
			break
		}
		p.advance()
	}

	if closing != TokenEOF {
		if tok := p.peek(); tok.Type != closing {
			return nil, p.errorf(tok, "expected %s to close IN list but found %s", closing, tok.describe())
		}
		p.advance()
	}

	for _, v := range values {
		if strings.Contains(v, ",") {
			return nil, p.errorf(fieldTok, "IN list value %q must not contain a comma", v)
		}
	}
	return p.newCondition(fieldTok, field, op, strings.Join(values, ","))
}
