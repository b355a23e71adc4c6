// Package evaluator computes the value of a parsed expression against a flat,
// read-only variable context.
//
// The evaluator is a tree walk over the closed ast.Node set. It has no
// notion of an enclosing scope: a variable is either in the Context passed to
// the call or it does not exist. Functions are resolved against the same
// fixed library the parser checked the tree against.
//
// Kinds never coerce. Arithmetic needs numbers, logical operators need
// booleans, comparisons need operands of the same kind, and booleans support
// only == and !=. "and" and "or" short-circuit, so the right operand is not
// evaluated (and may reference an unknown variable) when the left operand
// decides the result.
package evaluator
