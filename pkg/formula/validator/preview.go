package validator

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultPreviewLength is the number of runes kept in an audit preview.
const DefaultPreviewLength = 64

// Preview returns a log-safe rendering of src: control characters and
// invalid UTF-8 become '?', runs of whitespace collapse to one space, and the
// result is cut to maxRunes runes with "..." appended when truncated.
func Preview(src string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultPreviewLength
	}

	var sb strings.Builder
	sb.Grow(min(len(src), maxRunes*utf8.UTFMax) + 3)

	n := 0
	lastSpace := false
	for i, w := 0, 0; i < len(src); i += w {
		r, size := utf8.DecodeRuneInString(src[i:])
		w = size

		switch {
		case r == utf8.RuneError && size == 1:
			r = '?'
		case unicode.IsSpace(r):
			if lastSpace {
				continue
			}
			r = ' '
		case !unicode.IsPrint(r):
			r = '?'
		}
		lastSpace = r == ' '

		if n == maxRunes {
			sb.WriteString("...")
			return sb.String()
		}
		sb.WriteRune(r)
		n++
	}
	return sb.String()
}
