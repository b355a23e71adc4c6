// Package validator is the security gate that every expression passes before
// it is lexed or parsed.
//
// The gate works on raw source text, so it can reject dangerous input even
// where the lexer would fail with a less specific error. It enforces three
// rules:
//
//   - Input length is bounded (MaxLength, default 500 bytes).
//   - Identifiers on the denylist (eval, constructor, __proto__, window, ...)
//     are rejected as whole words, case-sensitively.
//   - Syntax that has no place in the grammar is rejected by shape:
//     assignment, statement separators, string and template literals,
//     blocks, index access, member access and arrow functions.
//
// Every rejection is reported to an audit.Sink exactly once before the error
// is returned. Lex and parse failures found later in ValidateExpression are
// reported through Reject so they produce a single audit record too.
package validator
