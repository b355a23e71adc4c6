package validator

import (
	"mercator-hq/formula/pkg/formula/ast"
	ferrors "mercator-hq/formula/pkg/formula/errors"
)

// scan walks the raw source once. A denied identifier is returned as soon as
// it is seen; any other finding is remembered and returned at the end, so a
// denied identifier anywhere in the input takes precedence.
func (v *Validator) scan(src string) *ferrors.Error {
	var first *ferrors.Error
	found := func(code ferrors.Code, at int, format string, args ...any) {
		if first == nil {
			first = ferrors.ValidationError(code, ast.Pos(at), v.preview(src), format, args...)
		}
	}

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			if word := src[i:j]; v.IsDenied(word) {
				return ferrors.ValidationError(ferrors.CodeDeniedIdentifier, ast.Pos(i), v.preview(src),
					"identifier %q is not allowed", word)
			}
			i = j

		case isDigit(c):
			// Numbers, including malformed ones like "12abc", are one run so
			// their tail is never read as an identifier.
			j := i + 1
			for j < len(src) && (isIdentPart(src[j]) || (src[j] == '.' && j+1 < len(src) && isDigit(src[j+1]))) {
				j++
			}
			i = j

		case c == '=':
			switch next(src, i) {
			case '=':
				i += 2
			case '>':
				found(ferrors.CodeFunctionDefinition, i, "arrow functions are not allowed")
				i += 2
			default:
				found(ferrors.CodeAssignment, i, "assignment is not allowed")
				i++
			}

		case c == '!' || c == '<' || c == '>':
			if next(src, i) == '=' {
				i += 2
			} else {
				i++
			}

		case c == ';':
			found(ferrors.CodeStatementSeparator, i, "statement separators are not allowed")
			i++

		case c == '"' || c == '\'' || c == '`':
			found(ferrors.CodeStringLiteral, i, "string literals are not allowed")
			i++

		case c == '$':
			found(ferrors.CodeTemplateSyntax, i, "template syntax is not allowed")
			i++

		case c == '{' || c == '}':
			found(ferrors.CodeBlock, i, "blocks are not allowed")
			i++

		case c == '[' || c == ']':
			found(ferrors.CodeIndexAccess, i, "index access is not allowed")
			i++

		case c == '.':
			if isIdentStart(next(src, i)) {
				found(ferrors.CodeMemberAccess, i, "member access is not allowed")
			}
			i++

		default:
			i++
		}
	}
	return first
}

func next(src string, i int) byte {
	if i+1 < len(src) {
		return src[i+1]
	}
	return 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
