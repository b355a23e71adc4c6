// Package lexer turns formula source text into tokens.
//
// The accepted vocabulary is deliberately small: decimal numbers, identifiers,
// the arithmetic and comparison operators, parentheses, commas and the
// keywords and/or/not/true/false. There are no string literals, no
// interpolation and no statement separators; any such character is a lex
// error rather than being skipped.
package lexer

import (
	"math"
	"strconv"
	"unicode/utf8"

	"mercator-hq/formula/pkg/formula/ast"
	ferrors "mercator-hq/formula/pkg/formula/errors"
)

// Lexer produces tokens from a source string on demand.
type Lexer struct {
	src string
	off int
}

// New returns a lexer positioned at the start of src.
func New(src string) *Lexer {
	return &Lexer{src: src}
}

// Tokenize lexes the whole source. The returned slice always ends with an
// END token when err is nil.
func Tokenize(src string) ([]Token, error) {
	l := New(src)
	tokens := make([]Token, 0, len(src)/2+1)

	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == END {
			return tokens, nil
		}
	}
}

// Next returns the next token, or END once the input is exhausted.
func (l *Lexer) Next() (Token, error) {
	l.skipSpace()

	if l.off >= len(l.src) {
		return Token{Kind: END, Pos: ast.Pos(l.off)}, nil
	}

	start := l.off
	c := l.src[l.off]

	switch {
	case isDigit(c):
		return l.number()
	case isIdentStart(c):
		return l.identifier(), nil
	}

	switch c {
	case '(':
		l.off++
		return Token{Kind: LPAREN, Text: "(", Pos: ast.Pos(start)}, nil
	case ')':
		l.off++
		return Token{Kind: RPAREN, Text: ")", Pos: ast.Pos(start)}, nil
	case ',':
		l.off++
		return Token{Kind: COMMA, Text: ",", Pos: ast.Pos(start)}, nil
	case '+', '-', '*', '/', '%':
		l.off++
		return Token{Kind: OPERATOR, Text: string(c), Pos: ast.Pos(start)}, nil
	case '<', '>':
		if l.peekAt(1) == '=' {
			l.off += 2
			return Token{Kind: OPERATOR, Text: l.src[start:l.off], Pos: ast.Pos(start)}, nil
		}
		l.off++
		return Token{Kind: OPERATOR, Text: string(c), Pos: ast.Pos(start)}, nil
	case '=', '!':
		if l.peekAt(1) == '=' {
			l.off += 2
			return Token{Kind: OPERATOR, Text: l.src[start:l.off], Pos: ast.Pos(start)}, nil
		}
	}

	return Token{}, l.invalidCharacter(start)
}

func (l *Lexer) number() (Token, error) {
	start := l.off
	for l.off < len(l.src) && isDigit(l.src[l.off]) {
		l.off++
	}

	if l.off < len(l.src) && l.src[l.off] == '.' {
		if !isDigit(l.peekAt(1)) {
			return Token{}, ferrors.LexError(ferrors.CodeInvalidNumber, ast.Pos(start),
				"invalid number %q: digits required after decimal point", l.src[start:l.off+1])
		}
		l.off++
		for l.off < len(l.src) && isDigit(l.src[l.off]) {
			l.off++
		}
	}

	// "12abc" is neither a number nor an identifier.
	if l.off < len(l.src) && (isIdentStart(l.src[l.off]) || l.src[l.off] == '.') {
		end := l.off
		for end < len(l.src) && (isIdentPart(l.src[end]) || l.src[end] == '.') {
			end++
		}
		return Token{}, ferrors.LexError(ferrors.CodeInvalidNumber, ast.Pos(start),
			"invalid number %q", l.src[start:end])
	}

	text := l.src[start:l.off]
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) {
		return Token{}, ferrors.LexError(ferrors.CodeInvalidNumber, ast.Pos(start),
			"number %q is out of range", text)
	}

	return Token{Kind: NUMBER, Text: text, Pos: ast.Pos(start)}, nil
}

func (l *Lexer) identifier() Token {
	start := l.off
	for l.off < len(l.src) && isIdentPart(l.src[l.off]) {
		l.off++
	}

	text := l.src[start:l.off]
	kind := IDENTIFIER
	if IsKeyword(text) {
		kind = KEYWORD
	}
	return Token{Kind: kind, Text: text, Pos: ast.Pos(start)}
}

func (l *Lexer) invalidCharacter(start int) error {
	r, _ := utf8.DecodeRuneInString(l.src[start:])
	err := ferrors.LexError(ferrors.CodeInvalidCharacter, ast.Pos(start),
		"unexpected character %q", r)

	switch r {
	case '&':
		err.Suggestion = "use 'and' for logical conjunction"
	case '|':
		err.Suggestion = "use 'or' for logical disjunction"
	case '!':
		err.Suggestion = "use 'not' for negation"
	case '=':
		err.Suggestion = "use '==' for comparison; assignment is not supported"
	}
	return err
}

func (l *Lexer) skipSpace() {
	for l.off < len(l.src) {
		switch l.src[l.off] {
		case ' ', '\t', '\n', '\r':
			l.off++
		default:
			return
		}
	}
}

func (l *Lexer) peekAt(n int) byte {
	if l.off+n < len(l.src) {
		return l.src[l.off+n]
	}
	return 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
