package lexer

import (
	"fmt"

	"mercator-hq/formula/pkg/formula/ast"
)

// Kind identifies the lexical class of a token.
type Kind int

const (
	END Kind = iota
	NUMBER
	IDENTIFIER
	OPERATOR
	KEYWORD
	LPAREN
	RPAREN
	COMMA
)

var kindNames = [...]string{
	END:        "end of input",
	NUMBER:     "number",
	IDENTIFIER: "identifier",
	OPERATOR:   "operator",
	KEYWORD:    "keyword",
	LPAREN:     "'('",
	RPAREN:     "')'",
	COMMA:      "','",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Keywords recognized by the lexer. "true" and "false" are boolean literals.
var keywords = map[string]struct{}{
	"and":   {},
	"or":    {},
	"not":   {},
	"true":  {},
	"false": {},
}

// IsKeyword reports whether word is a reserved keyword.
func IsKeyword(word string) bool {
	_, ok := keywords[word]
	return ok
}

// Token is a single lexical unit. Tokens are immutable once produced.
type Token struct {
	Kind Kind
	Text string
	Pos  ast.Pos
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(kind Kind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// String describes the token for error messages.
func (t Token) String() string {
	switch t.Kind {
	case END:
		return "end of input"
	case NUMBER, IDENTIFIER:
		return fmt.Sprintf("%s %q", t.Kind, t.Text)
	default:
		return fmt.Sprintf("%q", t.Text)
	}
}
