package formula

import (
	"mercator-hq/formula/pkg/formula/ast"
	"mercator-hq/formula/pkg/formula/evaluator"
)

// Program is a validated, parsed expression. It is immutable and safe for
// concurrent use.
type Program struct {
	source string
	root   ast.Node
	engine *Engine
	offset ast.Pos // leading whitespace trimmed before parsing
}

// Source returns the text the program was compiled from.
func (p *Program) Source() string {
	return p.source
}

// Root returns the syntax tree. It must not be modified.
func (p *Program) Root() ast.Node {
	return p.root
}

// Evaluate computes the program's value against vars.
func (p *Program) Evaluate(vars map[string]any) (ast.Value, error) {
	ctx, err := evaluator.NewContext(vars)
	if err != nil {
		return ast.Value{}, err
	}
	return p.EvaluateContext(ctx)
}

// EvaluateContext computes the program's value against an already converted
// context.
func (p *Program) EvaluateContext(ctx evaluator.Context) (ast.Value, error) {
	v, err := p.engine.evaluator.Eval(p.root, ctx)
	return v, shift(err, p.offset)
}

// Condition computes the program against vars and requires a boolean result.
func (p *Program) Condition(vars map[string]any) (bool, error) {
	ctx, err := evaluator.NewContext(vars)
	if err != nil {
		return false, err
	}
	ok, err := p.engine.evaluator.Condition(p.root, ctx)
	return ok, shift(err, p.offset)
}

// Variables returns the sorted names the program reads from its context.
func (p *Program) Variables() []string {
	return ast.Variables(p.root)
}

// Functions returns the sorted names of the functions the program calls.
func (p *Program) Functions() []string {
	return ast.Functions(p.root)
}

// IsCondition reports whether the top-level operator always yields a
// boolean.
func (p *Program) IsCondition() bool {
	return ast.IsBooleanShaped(p.root)
}

// String returns the canonical, fully parenthesized form of the program.
func (p *Program) String() string {
	return p.root.String()
}
