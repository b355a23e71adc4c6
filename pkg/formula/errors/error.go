package errors

import (
	"fmt"
	"strings"

	"mercator-hq/formula/pkg/formula/ast"
)

// ErrorType categorizes the stage that produced an error.
type ErrorType string

const (
	ErrorTypeLex        ErrorType = "lex"        // Malformed token
	ErrorTypeValidation ErrorType = "validation" // Denylist or structural rejection
	ErrorTypeParse      ErrorType = "parse"      // Grammar violation
	ErrorTypeEval       ErrorType = "eval"       // Runtime failure
)

// Code is a stable, machine-readable reason for an error.
type Code string

// Lex codes.
const (
	CodeInvalidCharacter Code = "invalid_character"
	CodeInvalidNumber    Code = "invalid_number"
)

// Validation codes.
const (
	CodeInputTooLong       Code = "input_too_long"
	CodeDeniedIdentifier   Code = "denied_identifier"
	CodeAssignment         Code = "assignment"
	CodeStatementSeparator Code = "statement_separator"
	CodeStringLiteral      Code = "string_literal"
	CodeTemplateSyntax     Code = "template_syntax"
	CodeBlock              Code = "block"
	CodeIndexAccess        Code = "index_access"
	CodeMemberAccess       Code = "member_access"
	CodeFunctionDefinition Code = "function_definition"
	CodeMalformed          Code = "malformed_expression"
)

// Parse codes.
const (
	CodeEmptyExpression  Code = "empty_expression"
	CodeUnexpectedToken  Code = "unexpected_token"
	CodeUnbalancedParens Code = "unbalanced_parens"
	CodeTrailingTokens   Code = "trailing_tokens"
	CodeUnknownFunction  Code = "unknown_function"
	CodeArityMismatch    Code = "arity_mismatch"
	CodeNestingTooDeep   Code = "nesting_too_deep"
)

// Eval codes.
const (
	CodeUnknownVariable Code = "unknown_variable"
	CodeTypeMismatch    Code = "type_mismatch"
	CodeDivisionByZero  Code = "division_by_zero"
	CodeNonFiniteResult Code = "non_finite_result"
	CodeInvalidContext  Code = "invalid_context_value"
)

// Error is a structured formula error.
type Error struct {
	Type       ErrorType // Stage that failed
	Code       Code      // Stable reason code
	Message    string    // Human-readable message
	Pos        ast.Pos   // Offset in the source, NoPos if not applicable
	Snippet    string    // Truncated source preview (validation errors)
	Expected   string    // What the parser wanted (parse errors)
	Found      string    // What the parser got (parse errors)
	Suggestion string    // Suggested fix (optional)
	Cause      error     // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", e.Type, e.Message))

	if e.Pos.IsValid() {
		sb.WriteString(fmt.Sprintf(" at %s", e.Pos))
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", e.Suggestion))
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by Type and, if the target has one, by Code.
// This lets the sentinels below be used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Type != e.Type {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinels for errors.Is. They carry no position or message.
var (
	ErrLex        = &Error{Type: ErrorTypeLex}
	ErrValidation = &Error{Type: ErrorTypeValidation}
	ErrParse      = &Error{Type: ErrorTypeParse}
	ErrEval       = &Error{Type: ErrorTypeEval}

	ErrUnknownVariable = &Error{Type: ErrorTypeEval, Code: CodeUnknownVariable}
	ErrTypeMismatch    = &Error{Type: ErrorTypeEval, Code: CodeTypeMismatch}
	ErrDivisionByZero  = &Error{Type: ErrorTypeEval, Code: CodeDivisionByZero}
)

// LexError reports a malformed token.
func LexError(code Code, pos ast.Pos, format string, args ...any) *Error {
	return &Error{
		Type:    ErrorTypeLex,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
}

// ValidationError reports a rejected expression. snippet should already be a
// safe preview of the source.
func ValidationError(code Code, pos ast.Pos, snippet string, format string, args ...any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
		Snippet: snippet,
	}
}

// ParseError reports a grammar violation.
func ParseError(code Code, pos ast.Pos, expected, found string) *Error {
	msg := fmt.Sprintf("expected %s, found %s", expected, found)
	return &Error{
		Type:     ErrorTypeParse,
		Code:     code,
		Message:  msg,
		Pos:      pos,
		Expected: expected,
		Found:    found,
	}
}

// EvalError reports a runtime failure.
func EvalError(code Code, pos ast.Pos, format string, args ...any) *Error {
	return &Error{
		Type:    ErrorTypeEval,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
}

// UnknownVariableError reports a name missing from the evaluation context.
func UnknownVariableError(name string, pos ast.Pos, known []string) *Error {
	err := EvalError(CodeUnknownVariable, pos, "unknown variable %q", name)
	if len(known) > 0 {
		err.Suggestion = Suggest(name, known)
	}
	return err
}

// TypeMismatchError reports an operand or result of the wrong kind.
func TypeMismatchError(pos ast.Pos, format string, args ...any) *Error {
	return EvalError(CodeTypeMismatch, pos, format, args...)
}

// DivisionByZeroError reports a zero divisor computed at runtime.
func DivisionByZeroError(pos ast.Pos, op string) *Error {
	return EvalError(CodeDivisionByZero, pos, "division by zero in %q", op)
}

// TypeOf returns the stage of err, or "" if err is not an *Error.
func TypeOf(err error) ErrorType {
	var fe *Error
	if As(err, &fe) {
		return fe.Type
	}
	return ""
}

// CodeOf returns the reason code of err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var fe *Error
	if As(err, &fe) {
		return fe.Code
	}
	return ""
}
