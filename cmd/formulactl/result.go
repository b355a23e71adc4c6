package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"mercator-hq/formula/pkg/catalog"
	ferrors "mercator-hq/formula/pkg/formula/errors"
)

// ErrorInfo is the machine-readable form of an evaluation failure.
type ErrorInfo struct {
	Stage      string `json:"stage,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	Position   int    `json:"position"`
	Suggestion string `json:"suggestion,omitempty"`
}

func errorInfo(err error) *ErrorInfo {
	var fe *ferrors.Error
	if ferrors.As(err, &fe) {
		return &ErrorInfo{
			Stage:      string(fe.Type),
			Code:       string(fe.Code),
			Message:    fe.Message,
			Position:   int(fe.Pos),
			Suggestion: fe.Suggestion,
		}
	}
	info := &ErrorInfo{Message: err.Error(), Position: -1}
	if errors.Is(err, catalog.ErrUnknownFormula) {
		info.Code = "unknown_formula"
	}
	return info
}

// renderError writes the error with a caret under the failing position.
func renderError(w io.Writer, source string, e *ErrorInfo) {
	if e.Code != "" {
		fmt.Fprintf(w, "✗ %s [%s]\n", e.Message, e.Code)
	} else {
		fmt.Fprintf(w, "✗ %s\n", e.Message)
	}
	if source != "" && e.Position >= 0 && e.Position <= len(source) && !strings.ContainsAny(source, "\n\t") {
		fmt.Fprintf(w, "  %s\n  %s^\n", source, strings.Repeat(" ", e.Position))
	}
	if e.Suggestion != "" {
		fmt.Fprintf(w, "  hint: %s\n", e.Suggestion)
	}
}
