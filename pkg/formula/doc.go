// Package formula evaluates short arithmetic formulas and boolean conditions
// written by content designers, without letting the text reach anything but
// a flat variable context and a fixed function library.
//
// # Pipeline
//
// Every call runs the same stages:
//
//	source ─▶ security gate ─▶ cache ─▶ lexer ─▶ parser ─▶ evaluator
//
// The gate (package validator) scans the raw source for denied identifiers
// and forbidden shapes such as assignment, string literals or member access.
// A rejection is a validation error and produces exactly one audit.Event on
// the engine's sink before the error is returned. Lex, parse and evaluation
// errors are ordinary authoring mistakes and are not audited, except in
// ValidateExpression, which reports them as malformed_expression.
//
// Parsed trees are immutable and cached by trimmed source text in a bounded
// LRU, so repeated evaluation of the same formula skips lexing and parsing.
//
// # Usage
//
//	engine, err := formula.New(nil, formula.WithSink(recorder))
//	if err != nil {
//		return err
//	}
//
//	dmg, err := engine.EvaluateExpression("max(attack - defense, 1) * 2", map[string]any{
//		"attack":  12,
//		"defense": 5,
//	})
//
//	flee, err := engine.EvaluateCondition("hp < maxHp / 4 and not boss", vars)
//
// Formulas evaluated in a loop can be compiled once:
//
//	prog, err := engine.Compile("base * (1 + level / 10)")
//	v, err := prog.Evaluate(vars)
//
// The package-level ValidateExpression, EvaluateExpression and
// EvaluateCondition use a default engine that logs rejections through
// slog.Default().
//
// # Errors
//
// All failures are *errors.Error values from package
// mercator-hq/formula/pkg/formula/errors carrying a stage, a stable reason
// code and a source position. Use errors.Is with the sentinels
// (ErrValidation, ErrUnknownVariable, ErrDivisionByZero, ...) to classify
// them.
package formula
