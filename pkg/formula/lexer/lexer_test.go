package lexer

import (
	"strings"
	"testing"

	"mercator-hq/formula/pkg/formula/ast"
	ferrors "mercator-hq/formula/pkg/formula/errors"
)

func TestTokenize_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kinds []Kind
		texts []string
	}{
		{
			name:  "arithmetic",
			input: "2 + 3.5 * x",
			kinds: []Kind{NUMBER, OPERATOR, NUMBER, OPERATOR, IDENTIFIER, END},
			texts: []string{"2", "+", "3.5", "*", "x", ""},
		},
		{
			name:  "comparison operators",
			input: "a<=b>=c==d!=e<f>g",
			kinds: []Kind{IDENTIFIER, OPERATOR, IDENTIFIER, OPERATOR, IDENTIFIER, OPERATOR, IDENTIFIER, OPERATOR, IDENTIFIER, OPERATOR, IDENTIFIER, OPERATOR, IDENTIFIER, END},
			texts: []string{"a", "<=", "b", ">=", "c", "==", "d", "!=", "e", "<", "f", ">", "g", ""},
		},
		{
			name:  "keywords",
			input: "not true and false or x_1",
			kinds: []Kind{KEYWORD, KEYWORD, KEYWORD, KEYWORD, KEYWORD, IDENTIFIER, END},
			texts: []string{"not", "true", "and", "false", "or", "x_1", ""},
		},
		{
			name:  "call",
			input: "min(a, 10)",
			kinds: []Kind{IDENTIFIER, LPAREN, IDENTIFIER, COMMA, NUMBER, RPAREN, END},
			texts: []string{"min", "(", "a", ",", "10", ")", ""},
		},
		{
			name:  "keyword prefix is identifier",
			input: "android order notable",
			kinds: []Kind{IDENTIFIER, IDENTIFIER, IDENTIFIER, END},
			texts: []string{"android", "order", "notable", ""},
		},
		{
			name:  "empty",
			input: "   ",
			kinds: []Kind{END},
			texts: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize(%q) failed: %v", tt.input, err)
			}
			if len(tokens) != len(tt.kinds) {
				t.Fatalf("len(tokens) = %d, want %d (%v)", len(tokens), len(tt.kinds), tokens)
			}
			for i, tok := range tokens {
				if tok.Kind != tt.kinds[i] {
					t.Errorf("tokens[%d].Kind = %v, want %v", i, tok.Kind, tt.kinds[i])
				}
				if tok.Text != tt.texts[i] {
					t.Errorf("tokens[%d].Text = %q, want %q", i, tok.Text, tt.texts[i])
				}
			}
		})
	}
}

func TestTokenize_Positions(t *testing.T) {
	tokens, err := Tokenize("  ab + 12")
	if err != nil {
		t.Fatalf("Tokenize() failed: %v", err)
	}

	want := []ast.Pos{2, 5, 7, 9}
	for i, tok := range tokens {
		if tok.Pos != want[i] {
			t.Errorf("tokens[%d].Pos = %d, want %d", i, tok.Pos, want[i])
		}
	}
}

func TestTokenize_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  ferrors.Code
		pos   ast.Pos
	}{
		{"string literal", `x == "a"`, ferrors.CodeInvalidCharacter, 5},
		{"semicolon", "1; 2", ferrors.CodeInvalidCharacter, 1},
		{"lone equals", "x = 1", ferrors.CodeInvalidCharacter, 2},
		{"lone bang", "!x", ferrors.CodeInvalidCharacter, 0},
		{"ampersand", "a && b", ferrors.CodeInvalidCharacter, 2},
		{"trailing point", "1. + 2", ferrors.CodeInvalidNumber, 0},
		{"double point", "1.2.3", ferrors.CodeInvalidNumber, 0},
		{"digit prefixed identifier", "2abc", ferrors.CodeInvalidNumber, 0},
		{"non ascii", "x × 2", ferrors.CodeInvalidCharacter, 2},
		{"out of range", strings.Repeat("9", 400), ferrors.CodeInvalidNumber, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			if err == nil {
				t.Fatalf("Tokenize(%q) succeeded, want error", tt.input)
			}

			var ferr *ferrors.Error
			if !ferrors.As(err, &ferr) {
				t.Fatalf("error type = %T, want *errors.Error", err)
			}
			if !ferrors.Is(err, ferrors.ErrLex) {
				t.Errorf("Type = %q, want %q", ferr.Type, ferrors.ErrorTypeLex)
			}
			if ferr.Code != tt.code {
				t.Errorf("Code = %q, want %q", ferr.Code, tt.code)
			}
			if ferr.Pos != tt.pos {
				t.Errorf("Pos = %d, want %d", ferr.Pos, tt.pos)
			}
		})
	}
}

func TestTokenize_Suggestions(t *testing.T) {
	_, err := Tokenize("a || b")
	var ferr *ferrors.Error
	if !ferrors.As(err, &ferr) {
		t.Fatalf("error type = %T, want *errors.Error", err)
	}
	if ferr.Suggestion == "" {
		t.Error("expected a suggestion for '||'")
	}
}
