package filter

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenString
	TokenNumber
	TokenOperator // = != < > <= >=
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenComma
)

var tokenNames = map[TokenType]string{
	TokenEOF:      "end of expression",
	TokenIdent:    "identifier",
	TokenString:   "string",
	TokenNumber:   "number",
	TokenOperator: "operator",
	TokenLParen:   "'('",
	TokenRParen:   "')'",
	TokenLBracket: "'['",
	TokenRBracket: "']'",
	TokenComma:    "','",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is a lexical unit of a filter expression.
// Pos is the rune offset of the token's first character.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

func (t Token) describe() string {
	switch t.Type {
	case TokenEOF:
		return "end of expression"
	case TokenString:
		return fmt.Sprintf("string %q", t.Value)
	default:
		return fmt.Sprintf("%q", t.Value)
	}
}

// LexError reports a character the lexer cannot accept.
type LexError struct {
	Pos int
	Msg string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at position %d: %s", e.Pos, e.Msg)
}

type lexer struct {
	src []rune
	pos int
}

// Tokenize splits a filter expression into tokens. The returned slice
// always ends with a TokenEOF.
func Tokenize(expr string) ([]Token, error) {
	l := &lexer{src: []rune(expr)}
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) peekAt(offset int) (rune, bool) {
	i := l.pos + offset
	if i >= len(l.src) {
		return 0, false
	}
	return l.src[i], true
}

func (l *lexer) next() (Token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	start := l.pos
	r := l.src[l.pos]
	single := func(tt TokenType) (Token, error) {
		l.pos++
		return Token{Type: tt, Value: string(r), Pos: start}, nil
	}

	switch {
	case r == '(':
		return single(TokenLParen)
	case r == ')':
		return single(TokenRParen)
	case r == '[':
		return single(TokenLBracket)
	case r == ']':
		return single(TokenRBracket)
	case r == ',':
		return single(TokenComma)
	case r == '=' || r == '!' || r == '<' || r == '>':
		return l.scanOperator()
	case r == '\'' || r == '"':
		return l.scanString(r)
	case r >= '0' && r <= '9':
		return l.scanNumber(), nil
	case unicode.IsLetter(r) || r == '_':
		return l.scanIdent(), nil
	default:
		return Token{}, &LexError{Pos: start, Msg: fmt.Sprintf("unexpected character %q", r)}
	}
}

func (l *lexer) scanOperator() (Token, error) {
	start := l.pos
	r := l.src[l.pos]
	nextRune, _ := l.peekAt(1)
	l.pos++

	switch r {
	case '=':
		if nextRune == '=' {
			l.pos++
		}
		return Token{Type: TokenOperator, Value: "=", Pos: start}, nil
	case '!':
		if nextRune != '=' {
			return Token{}, &LexError{Pos: start, Msg: "unexpected character '!' (did you mean '!=')"}
		}
		l.pos++
		return Token{Type: TokenOperator, Value: "!=", Pos: start}, nil
	default: // '<' or '>'
		if nextRune == '=' {
			l.pos++
			return Token{Type: TokenOperator, Value: string(r) + "=", Pos: start}, nil
		}
		return Token{Type: TokenOperator, Value: string(r), Pos: start}, nil
	}
}

// scanString reads a quoted literal. \n, \t, \\ and an escaped quote are
// decoded; any other escape keeps its backslash so regex classes such as
// \d survive into MATCHES values.
func (l *lexer) scanString(quote rune) (Token, error) {
	start := l.pos
	l.pos++

	var sb strings.Builder
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		switch {
		case r == '\\':
			escaped, ok := l.peekAt(1)
			if !ok {
				return Token{}, &LexError{Pos: start, Msg: "unterminated string literal"}
			}
			switch escaped {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '\\', '\'', '"':
				sb.WriteRune(escaped)
			default:
				sb.WriteRune('\\')
				sb.WriteRune(escaped)
			}
			l.pos += 2
		case r == quote:
			l.pos++
			return Token{Type: TokenString, Value: sb.String(), Pos: start}, nil
		default:
			sb.WriteRune(r)
			l.pos++
		}
	}
	return Token{}, &LexError{Pos: start, Msg: "unterminated string literal"}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// scanNumber reads a digit run with an optional single fraction. A digit
// run directly followed by "-<digit>" is an unquoted ISO date such as
// 2026-01-15 or 2026-01-15T09:30:00Z and is returned as a string token.
func (l *lexer) scanNumber() Token {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}

	if r, ok := l.peekAt(0); ok && r == '-' {
		if d, ok := l.peekAt(1); ok && isDigit(d) {
			for l.pos < len(l.src) && isDateRune(l.src[l.pos]) {
				l.pos++
			}
			return Token{Type: TokenString, Value: string(l.src[start:l.pos]), Pos: start}
		}
	}

	if r, ok := l.peekAt(0); ok && r == '.' {
		if d, ok := l.peekAt(1); ok && isDigit(d) {
			l.pos++
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		}
	}
	return Token{Type: TokenNumber, Value: string(l.src[start:l.pos]), Pos: start}
}

func isDateRune(r rune) bool {
	return isDigit(r) || r == '-' || r == ':' || r == '+' || r == '.' || r == 'T' || r == 'Z'
}

// scanIdent reads an identifier. A trailing +N or -N day offset is kept
// as part of the identifier so date keywords like today+3 stay whole.
func (l *lexer) scanIdent() Token {
	start := l.pos
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			l.pos++
			continue
		}
		if r == '+' || r == '-' {
			if d, ok := l.peekAt(1); ok && isDigit(d) {
				l.pos++
				for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
					l.pos++
				}
			}
		}
		break
	}
	return Token{Type: TokenIdent, Value: string(l.src[start:l.pos]), Pos: start}
}
