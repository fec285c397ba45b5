package filter

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []Token
	}{
		{
			name: "simple comparison",
			expr: "title = 'milk'",
			want: []Token{
				{Type: TokenIdent, Value: "title", Pos: 0},
				{Type: TokenOperator, Value: "=", Pos: 6},
				{Type: TokenString, Value: "milk", Pos: 8},
				{Type: TokenEOF, Pos: 14},
			},
		},
		{
			name: "double equals normalized",
			expr: "a==b",
			want: []Token{
				{Type: TokenIdent, Value: "a", Pos: 0},
				{Type: TokenOperator, Value: "=", Pos: 1},
				{Type: TokenIdent, Value: "b", Pos: 3},
				{Type: TokenEOF, Pos: 4},
			},
		},
		{
			name: "ordering operators",
			expr: "<= >= != < >",
			want: []Token{
				{Type: TokenOperator, Value: "<=", Pos: 0},
				{Type: TokenOperator, Value: ">=", Pos: 3},
				{Type: TokenOperator, Value: "!=", Pos: 6},
				{Type: TokenOperator, Value: "<", Pos: 9},
				{Type: TokenOperator, Value: ">", Pos: 11},
				{Type: TokenEOF, Pos: 12},
			},
		},
		{
			name: "brackets and commas",
			expr: "([a,b])",
			want: []Token{
				{Type: TokenLParen, Value: "(", Pos: 0},
				{Type: TokenLBracket, Value: "[", Pos: 1},
				{Type: TokenIdent, Value: "a", Pos: 2},
				{Type: TokenComma, Value: ",", Pos: 3},
				{Type: TokenIdent, Value: "b", Pos: 4},
				{Type: TokenRBracket, Value: "]", Pos: 5},
				{Type: TokenRParen, Value: ")", Pos: 6},
				{Type: TokenEOF, Pos: 7},
			},
		},
		{
			name: "numbers",
			expr: "5 3.25",
			want: []Token{
				{Type: TokenNumber, Value: "5", Pos: 0},
				{Type: TokenNumber, Value: "3.25", Pos: 2},
				{Type: TokenEOF, Pos: 6},
			},
		},
		{
			name: "unquoted iso date is a string",
			expr: "2026-01-15T09:30:00Z",
			want: []Token{
				{Type: TokenString, Value: "2026-01-15T09:30:00Z", Pos: 0},
				{Type: TokenEOF, Pos: 20},
			},
		},
		{
			name: "keyword with day offset",
			expr: "today+3 end_of_week-2",
			want: []Token{
				{Type: TokenIdent, Value: "today+3", Pos: 0},
				{Type: TokenIdent, Value: "end_of_week-2", Pos: 8},
				{Type: TokenEOF, Pos: 21},
			},
		},
		{
			name: "escapes decoded",
			expr: `"it's \"quoted\"\n" 'a\'b' '\d+'`,
			want: []Token{
				{Type: TokenString, Value: "it's \"quoted\"\n", Pos: 0},
				{Type: TokenString, Value: "a'b", Pos: 20},
				{Type: TokenString, Value: `\d+`, Pos: 27},
				{Type: TokenEOF, Pos: 32},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.expr)
			if err != nil {
				t.Fatalf("Tokenize(%q) error: %v", tt.expr, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Tokenize(%q) mismatch (-want +got):\n%s", tt.expr, diff)
			}
		})
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantPos int
	}{
		{"unterminated single quote", "title = 'milk", 8},
		{"unterminated double quote", `title = "milk`, 8},
		{"trailing backslash", `title = 'milk\`, 8},
		{"unknown character", "priority @ high", 9},
		{"lone bang", "title ! 'x'", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.expr)
			var lexErr *LexError
			if !errors.As(err, &lexErr) {
				t.Fatalf("expected *LexError, got %v", err)
			}
			if lexErr.Pos != tt.wantPos {
				t.Errorf("error position = %d, want %d", lexErr.Pos, tt.wantPos)
			}
		})
	}
}
