// Package parser builds formula ASTs with a recursive-descent parser.
//
// Precedence, lowest to highest:
//
//	or
//	and
//	not            (prefix, right-binding)
//	== !=
//	< <= > >=
//	+ -
//	* / %
//	- +            (unary prefix)
//	primary        number, true, false, name, name(args...), ( expr )
//
// Binary and logical operators are left-associative. Function calls are
// resolved against the function library while parsing, so an unknown name or
// a wrong argument count is a parse error and never reaches evaluation.
//
// # Basic Usage
//
//	p := parser.NewParser().WithMaxDepth(16)
//	root, err := p.Parse("hp / maxHp < 0.25 and not shielded")
//	if err != nil {
//	    var perr *errors.Error
//	    // perr.Code is one of unexpected_token, unbalanced_parens,
//	    // trailing_tokens, unknown_function, arity_mismatch, ...
//	}
package parser
