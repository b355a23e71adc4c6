package evaluator

import (
	"math"
	"sort"

	"mercator-hq/formula/pkg/formula/ast"
	ferrors "mercator-hq/formula/pkg/formula/errors"
)

// Context holds the variables visible to an expression. It is never
// modified by evaluation.
type Context map[string]ast.Value

// NewContext converts Go values into a Context. Integer and floating point
// kinds become numbers and bool becomes a boolean. Other types, NaN and
// infinities are rejected.
func NewContext(vars map[string]any) (Context, error) {
	ctx := make(Context, len(vars))
	for name, raw := range vars {
		v, err := ast.ValueOf(raw)
		if err != nil {
			fe := ferrors.TypeMismatchError(ast.NoPos, "variable %q: %v", name, err)
			fe.Cause = err
			return nil, fe
		}
		if v.IsNumber() && (math.IsNaN(v.Float()) || math.IsInf(v.Float(), 0)) {
			return nil, ferrors.EvalError(ferrors.CodeInvalidContext, ast.NoPos,
				"variable %q is not a finite number", name)
		}
		ctx[name] = v
	}
	return ctx, nil
}

// Lookup returns the value bound to name.
func (c Context) Lookup(name string) (ast.Value, bool) {
	v, ok := c[name]
	return v, ok
}

// Names returns the bound variable names, sorted.
func (c Context) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
