// Package errors provides the error taxonomy for formula lexing, validation,
// parsing and evaluation.
//
// Every failure is an *Error carrying the stage that produced it (Type), a
// stable reason code (Code), the source position where one applies, and an
// optional suggestion. Callers classify errors with the standard library:
//
//	var ferr *errors.Error
//	if stderrors.As(err, &ferr) {
//	    fmt.Println(ferr.Type, ferr.Code, ferr.Pos)
//	}
//
//	if stderrors.Is(err, errors.ErrUnknownVariable) {
//	    // content bug: the context is missing a binding
//	}
//
// # Error Types
//
// ErrorTypeLex: malformed token (stray character, bad number)
//
// ErrorTypeValidation: denylist or structural rejection. These are the only
// errors reported to the security audit sink.
//
// ErrorTypeParse: grammar violation (unknown function, wrong arity,
// unbalanced parentheses, trailing tokens)
//
// ErrorTypeEval: runtime failure (unknown variable, type mismatch, division
// by zero, non-finite result)
//
// # Suggestions
//
// Suggest uses Levenshtein distance to propose a close match for misspelled
// function or variable names:
//
//	errors.Suggest("mx", []string{"max", "min"})
//	// Returns: "Did you mean 'max'?"
package errors
