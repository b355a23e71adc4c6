package evaluator

import (
	"fmt"
	"math"

	"mercator-hq/formula/pkg/formula/ast"
	ferrors "mercator-hq/formula/pkg/formula/errors"
	"mercator-hq/formula/pkg/formula/functions"
)

// Evaluator walks an AST. It holds only configuration and is safe for
// concurrent use.
type Evaluator struct {
	functions *functions.Registry
}

// New creates an evaluator bound to the builtin function library.
func New() *Evaluator {
	return &Evaluator{functions: functions.Builtins()}
}

// WithFunctions sets the function library. It must be the registry the
// parser checked the tree against.
func (e *Evaluator) WithFunctions(r *functions.Registry) *Evaluator {
	e.functions = r
	return e
}

// Eval computes the value of root.
func (e *Evaluator) Eval(root ast.Node, ctx Context) (ast.Value, error) {
	if root == nil {
		return ast.Value{}, ferrors.EvalError(ferrors.CodeTypeMismatch, ast.NoPos, "nothing to evaluate")
	}
	return e.eval(root, ctx)
}

// Condition computes root and requires the result to be a boolean.
func (e *Evaluator) Condition(root ast.Node, ctx Context) (bool, error) {
	v, err := e.Eval(root, ctx)
	if err != nil {
		return false, err
	}
	if !v.IsBool() {
		return false, ferrors.TypeMismatchError(root.Pos(),
			"condition must evaluate to a boolean, got %s", v.Kind())
	}
	return v.Truth(), nil
}

func (e *Evaluator) eval(n ast.Node, ctx Context) (ast.Value, error) {
	switch n := n.(type) {
	case *ast.Literal:
		return n.Value, nil

	case *ast.Variable:
		v, ok := ctx.Lookup(n.Name)
		if !ok {
			return ast.Value{}, ferrors.UnknownVariableError(n.Name, n.NamePos, ctx.Names())
		}
		return v, nil

	case *ast.Unary:
		return e.evalUnary(n, ctx)

	case *ast.Binary:
		return e.evalBinary(n, ctx)

	case *ast.Logical:
		return e.evalLogical(n, ctx)

	case *ast.Call:
		return e.evalCall(n, ctx)

	default:
		return ast.Value{}, ferrors.EvalError(ferrors.CodeTypeMismatch, n.Pos(), "unsupported node %T", n)
	}
}

func (e *Evaluator) evalUnary(n *ast.Unary, ctx Context) (ast.Value, error) {
	v, err := e.eval(n.Operand, ctx)
	if err != nil {
		return ast.Value{}, err
	}

	switch n.Op {
	case ast.OpNot:
		if !v.IsBool() {
			return ast.Value{}, ferrors.TypeMismatchError(n.OpPos, "'not' needs a boolean, got %s", v.Kind())
		}
		return ast.Bool(!v.Truth()), nil

	case ast.OpSub, ast.OpAdd:
		if !v.IsNumber() {
			return ast.Value{}, ferrors.TypeMismatchError(n.OpPos, "unary '%s' needs a number, got %s", n.Op, v.Kind())
		}
		if n.Op == ast.OpSub {
			return ast.Number(-v.Float()), nil
		}
		return v, nil
	}
	return ast.Value{}, ferrors.EvalError(ferrors.CodeTypeMismatch, n.OpPos, "unknown unary operator %q", n.Op)
}

func (e *Evaluator) evalBinary(n *ast.Binary, ctx Context) (ast.Value, error) {
	left, err := e.eval(n.Left, ctx)
	if err != nil {
		return ast.Value{}, err
	}
	right, err := e.eval(n.Right, ctx)
	if err != nil {
		return ast.Value{}, err
	}

	if n.Op.IsArithmetic() {
		return arithmetic(n, left, right)
	}
	if n.Op.IsComparison() {
		return compare(n, left, right)
	}
	return ast.Value{}, ferrors.EvalError(ferrors.CodeTypeMismatch, n.OpPos, "unknown operator %q", n.Op)
}

func arithmetic(n *ast.Binary, left, right ast.Value) (ast.Value, error) {
	if !left.IsNumber() || !right.IsNumber() {
		return ast.Value{}, ferrors.TypeMismatchError(n.OpPos,
			"'%s' needs numbers, got %s and %s", n.Op, left.Kind(), right.Kind())
	}

	a, b := left.Float(), right.Float()
	var r float64
	switch n.Op {
	case ast.OpAdd:
		r = a + b
	case ast.OpSub:
		r = a - b
	case ast.OpMul:
		r = a * b
	case ast.OpDiv:
		if b == 0 {
			return ast.Value{}, ferrors.DivisionByZeroError(n.OpPos, string(n.Op))
		}
		r = a / b
	case ast.OpMod:
		if b == 0 {
			return ast.Value{}, ferrors.DivisionByZeroError(n.OpPos, string(n.Op))
		}
		r = math.Mod(a, b)
	}
	return finite(r, n.OpPos, string(n.Op))
}

func compare(n *ast.Binary, left, right ast.Value) (ast.Value, error) {
	if left.Kind() != right.Kind() {
		return ast.Value{}, ferrors.TypeMismatchError(n.OpPos,
			"cannot compare %s with %s", left.Kind(), right.Kind())
	}

	switch n.Op {
	case ast.OpEqual:
		return ast.Bool(left.Equal(right)), nil
	case ast.OpNotEqual:
		return ast.Bool(!left.Equal(right)), nil
	}

	if !left.IsNumber() {
		return ast.Value{}, ferrors.TypeMismatchError(n.OpPos, "'%s' needs numbers, got %s", n.Op, left.Kind())
	}

	a, b := left.Float(), right.Float()
	switch n.Op {
	case ast.OpLessThan:
		return ast.Bool(a < b), nil
	case ast.OpLessEqual:
		return ast.Bool(a <= b), nil
	case ast.OpGreaterThan:
		return ast.Bool(a > b), nil
	default:
		return ast.Bool(a >= b), nil
	}
}

func (e *Evaluator) evalLogical(n *ast.Logical, ctx Context) (ast.Value, error) {
	left, err := e.eval(n.Left, ctx)
	if err != nil {
		return ast.Value{}, err
	}
	if !left.IsBool() {
		return ast.Value{}, ferrors.TypeMismatchError(n.OpPos, "'%s' needs booleans, got %s", n.Op, left.Kind())
	}

	// Short-circuit.
	if n.Op == ast.OpAnd && !left.Truth() {
		return ast.Bool(false), nil
	}
	if n.Op == ast.OpOr && left.Truth() {
		return ast.Bool(true), nil
	}

	right, err := e.eval(n.Right, ctx)
	if err != nil {
		return ast.Value{}, err
	}
	if !right.IsBool() {
		return ast.Value{}, ferrors.TypeMismatchError(n.OpPos, "'%s' needs booleans, got %s", n.Op, right.Kind())
	}
	return right, nil
}

func (e *Evaluator) evalCall(n *ast.Call, ctx Context) (ast.Value, error) {
	fn, ok := e.functions.Lookup(n.Name)
	if !ok {
		return ast.Value{}, ferrors.EvalError(ferrors.CodeUnknownFunction, n.NamePos, "unknown function %q", n.Name)
	}
	if len(n.Args) != fn.Arity {
		return ast.Value{}, ferrors.EvalError(ferrors.CodeArityMismatch, n.NamePos,
			"function %q takes %d arguments, got %d", n.Name, fn.Arity, len(n.Args))
	}

	args := make([]float64, len(n.Args))
	for i, arg := range n.Args {
		v, err := e.eval(arg, ctx)
		if err != nil {
			return ast.Value{}, err
		}
		if !v.IsNumber() {
			return ast.Value{}, ferrors.TypeMismatchError(arg.Pos(),
				"argument %d of %s() must be a number, got %s", i+1, n.Name, v.Kind())
		}
		args[i] = v.Float()
	}

	return finite(fn.Call(args), n.NamePos, fmt.Sprintf("%s()", n.Name))
}

func finite(r float64, pos ast.Pos, what string) (ast.Value, error) {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return ast.Value{}, ferrors.EvalError(ferrors.CodeNonFiniteResult, pos,
			"%s produced a non-finite result", what)
	}
	return ast.Number(r), nil
}

var defaultEvaluator = New()

// Eval evaluates root with the builtin function library.
func Eval(root ast.Node, ctx Context) (ast.Value, error) {
	return defaultEvaluator.Eval(root, ctx)
}

// Condition evaluates root with the builtin function library and requires a
// boolean result.
func Condition(root ast.Node, ctx Context) (bool, error) {
	return defaultEvaluator.Condition(root, ctx)
}
