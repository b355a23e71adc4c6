package parser

import (
	"fmt"
	"strconv"

	"mercator-hq/formula/pkg/formula/ast"
	ferrors "mercator-hq/formula/pkg/formula/errors"
	"mercator-hq/formula/pkg/formula/functions"
	"mercator-hq/formula/pkg/formula/lexer"
)

// Parser turns source text into an AST. A Parser holds only configuration and
// is safe for concurrent use.
type Parser struct {
	maxDepth  int                 // Maximum nesting depth (default: 32)
	functions *functions.Registry // Callable functions (default: builtins)
}

// NewParser creates a parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxDepth:  32,
		functions: functions.Builtins(),
	}
}

// WithMaxDepth sets the maximum nesting depth of parentheses, calls and
// prefix operators.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	p.maxDepth = depth
	return p
}

// WithFunctions sets the function library calls are resolved against.
func (p *Parser) WithFunctions(r *functions.Registry) *Parser {
	p.functions = r
	return p
}

// MaxDepth returns the configured nesting limit.
func (p *Parser) MaxDepth() int {
	return p.maxDepth
}

// Parse lexes and parses src into a single expression.
// It returns a lex error or a parse error on failure.
func (p *Parser) Parse(src string) (ast.Node, error) {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return p.ParseTokens(tokens)
}

// ParseTokens parses an END-terminated token sequence.
func (p *Parser) ParseTokens(tokens []lexer.Token) (ast.Node, error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != lexer.END {
		return nil, ferrors.ParseError(ferrors.CodeUnexpectedToken, ast.NoPos,
			"terminated token sequence", "unterminated input")
	}

	s := &state{parser: p, tokens: tokens}

	if s.peek().Kind == lexer.END {
		err := ferrors.ParseError(ferrors.CodeEmptyExpression, s.peek().Pos, "expression", "end of input")
		err.Message = "empty expression"
		return nil, err
	}

	root, err := s.parseExpression()
	if err != nil {
		return nil, err
	}

	// Exactly one expression: anything left over is an error.
	if tok := s.peek(); tok.Kind != lexer.END {
		code := ferrors.CodeTrailingTokens
		if tok.Kind == lexer.RPAREN {
			code = ferrors.CodeUnbalancedParens
		}
		return nil, ferrors.ParseError(code, tok.Pos, "end of input", tok.String())
	}

	return root, nil
}

// state is the cursor for a single parse.
type state struct {
	parser *Parser
	tokens []lexer.Token
	pos    int
	depth  int
}

func (s *state) peek() lexer.Token {
	return s.tokens[s.pos]
}

func (s *state) next() lexer.Token {
	tok := s.tokens[s.pos]
	if tok.Kind != lexer.END {
		s.pos++
	}
	return tok
}

func (s *state) enter(at ast.Pos) error {
	s.depth++
	if s.depth > s.parser.maxDepth {
		err := ferrors.ParseError(ferrors.CodeNestingTooDeep, at,
			fmt.Sprintf("nesting depth at most %d", s.parser.maxDepth), "deeper nesting")
		err.Message = fmt.Sprintf("expression nesting exceeds maximum depth %d", s.parser.maxDepth)
		return err
	}
	return nil
}

func (s *state) leave() {
	s.depth--
}

// parseExpression: or_expr
func (s *state) parseExpression() (ast.Node, error) {
	if err := s.enter(s.peek().Pos); err != nil {
		return nil, err
	}
	defer s.leave()

	return s.parseOr()
}

// or_expr: and_expr ("or" and_expr)*
func (s *state) parseOr() (ast.Node, error) {
	left, err := s.parseAnd()
	if err != nil {
		return nil, err
	}

	for s.peek().Is(lexer.KEYWORD, "or") {
		op := s.next()
		right, err := s.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{Op: ast.OpOr, Left: left, Right: right, OpPos: op.Pos}
	}
	return left, nil
}

// and_expr: not_expr ("and" not_expr)*
func (s *state) parseAnd() (ast.Node, error) {
	left, err := s.parseNot()
	if err != nil {
		return nil, err
	}

	for s.peek().Is(lexer.KEYWORD, "and") {
		op := s.next()
		right, err := s.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{Op: ast.OpAnd, Left: left, Right: right, OpPos: op.Pos}
	}
	return left, nil
}

// not_expr: "not" not_expr | equality
func (s *state) parseNot() (ast.Node, error) {
	if !s.peek().Is(lexer.KEYWORD, "not") {
		return s.parseEquality()
	}

	op := s.next()
	if err := s.enter(op.Pos); err != nil {
		return nil, err
	}
	defer s.leave()

	operand, err := s.parseNot()
	if err != nil {
		return nil, err
	}
	return &ast.Unary{Op: ast.OpNot, Operand: operand, OpPos: op.Pos}, nil
}

// equality: relational (("==" | "!=") relational)*
func (s *state) parseEquality() (ast.Node, error) {
	return s.parseBinary(s.parseRelational, ast.OpEqual, ast.OpNotEqual)
}

// relational: additive (("<" | "<=" | ">" | ">=") additive)*
func (s *state) parseRelational() (ast.Node, error) {
	return s.parseBinary(s.parseAdditive, ast.OpLessThan, ast.OpLessEqual, ast.OpGreaterThan, ast.OpGreaterEqual)
}

// additive: multiplicative (("+" | "-") multiplicative)*
func (s *state) parseAdditive() (ast.Node, error) {
	return s.parseBinary(s.parseMultiplicative, ast.OpAdd, ast.OpSub)
}

// multiplicative: unary (("*" | "/" | "%") unary)*
func (s *state) parseMultiplicative() (ast.Node, error) {
	return s.parseBinary(s.parseUnary, ast.OpMul, ast.OpDiv, ast.OpMod)
}

// parseBinary parses a left-associative chain of the given operators.
func (s *state) parseBinary(operand func() (ast.Node, error), ops ...ast.Operator) (ast.Node, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}

	for {
		tok := s.peek()
		op, ok := matchOperator(tok, ops)
		if !ok {
			return left, nil
		}
		s.next()

		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right, OpPos: tok.Pos}
	}
}

func matchOperator(tok lexer.Token, ops []ast.Operator) (ast.Operator, bool) {
	if tok.Kind != lexer.OPERATOR {
		return "", false
	}
	for _, op := range ops {
		if tok.Text == string(op) {
			return op, true
		}
	}
	return "", false
}

// unary: ("-" | "+") unary | primary
func (s *state) parseUnary() (ast.Node, error) {
	tok := s.peek()
	if !tok.Is(lexer.OPERATOR, "-") && !tok.Is(lexer.OPERATOR, "+") {
		return s.parsePrimary()
	}

	s.next()
	if err := s.enter(tok.Pos); err != nil {
		return nil, err
	}
	defer s.leave()

	operand, err := s.parseUnary()
	if err != nil {
		return nil, err
	}
	return &ast.Unary{Op: ast.Operator(tok.Text), Operand: operand, OpPos: tok.Pos}, nil
}

// primary: NUMBER | "true" | "false" | IDENT | IDENT "(" args ")" | "(" expr ")"
func (s *state) parsePrimary() (ast.Node, error) {
	tok := s.peek()

	switch tok.Kind {
	case lexer.NUMBER:
		s.next()
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, ferrors.ParseError(ferrors.CodeUnexpectedToken, tok.Pos, "number", tok.String())
		}
		return &ast.Literal{Value: ast.Number(f), ValuePos: tok.Pos}, nil

	case lexer.KEYWORD:
		switch tok.Text {
		case "true", "false":
			s.next()
			return &ast.Literal{Value: ast.Bool(tok.Text == "true"), ValuePos: tok.Pos}, nil
		}

	case lexer.IDENTIFIER:
		s.next()
		if s.peek().Kind == lexer.LPAREN {
			return s.parseCall(tok)
		}
		return &ast.Variable{Name: tok.Text, NamePos: tok.Pos}, nil

	case lexer.LPAREN:
		s.next()
		inner, err := s.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := s.expectClose(tok); err != nil {
			return nil, err
		}
		return inner, nil
	}

	code := ferrors.CodeUnexpectedToken
	if tok.Kind == lexer.RPAREN {
		code = ferrors.CodeUnbalancedParens
	}
	return nil, ferrors.ParseError(code, tok.Pos, "operand", tok.String())
}

// parseCall parses the argument list after a function name and checks it
// against the function library.
func (s *state) parseCall(name lexer.Token) (ast.Node, error) {
	fn, ok := s.parser.functions.Lookup(name.Text)
	if !ok {
		err := ferrors.ParseError(ferrors.CodeUnknownFunction, name.Pos, "known function", fmt.Sprintf("%q", name.Text))
		err.Message = fmt.Sprintf("unknown function %q", name.Text)
		err.Suggestion = ferrors.Suggest(name.Text, s.parser.functions.Names())
		return nil, err
	}

	open := s.next() // "("
	if err := s.enter(open.Pos); err != nil {
		return nil, err
	}
	defer s.leave()

	args := make([]ast.Node, 0, fn.Arity)
	if s.peek().Kind != lexer.RPAREN {
		for {
			arg, err := s.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if s.peek().Kind != lexer.COMMA {
				break
			}
			s.next()
		}
	}

	if err := s.expectClose(open); err != nil {
		return nil, err
	}

	if len(args) != fn.Arity {
		err := ferrors.ParseError(ferrors.CodeArityMismatch, name.Pos,
			pluralArgs(fn.Arity), pluralArgs(len(args)))
		err.Message = fmt.Sprintf("function %q takes %s, got %d", fn.Name, pluralArgs(fn.Arity), len(args))
		return nil, err
	}

	return &ast.Call{Name: fn.Name, Args: args, NamePos: name.Pos}, nil
}

// expectClose consumes the ")" matching open.
func (s *state) expectClose(open lexer.Token) error {
	tok := s.peek()
	if tok.Kind == lexer.RPAREN {
		s.next()
		return nil
	}

	if tok.Kind == lexer.END {
		err := ferrors.ParseError(ferrors.CodeUnbalancedParens, open.Pos, "')'", tok.String())
		err.Message = "unclosed '('"
		return err
	}
	return ferrors.ParseError(ferrors.CodeUnexpectedToken, tok.Pos, "')'", tok.String())
}

func pluralArgs(n int) string {
	if n == 1 {
		return "1 argument"
	}
	return fmt.Sprintf("%d arguments", n)
}
