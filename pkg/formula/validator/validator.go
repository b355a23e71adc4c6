package validator

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/formula/pkg/audit"
	"mercator-hq/formula/pkg/formula/ast"
	ferrors "mercator-hq/formula/pkg/formula/errors"
)

// DefaultMaxLength is the default input limit in bytes.
const DefaultMaxLength = 500

// Stage names where in the pipeline a rejection happened.
const (
	StageGate      = "gate"      // Raw-source scan
	StageStructure = "structure" // Lex or parse failure during validation
)

// Validator is the security gate. It holds only configuration and is safe for
// concurrent use once built.
type Validator struct {
	maxLength     int
	previewLength int
	denied        map[string]struct{}
	sink          audit.Sink
	logger        *slog.Logger
	now           func() time.Time
}

// New creates a validator with the default denylist and limits and no sink.
func New() *Validator {
	v := &Validator{
		maxLength:     DefaultMaxLength,
		previewLength: DefaultPreviewLength,
		denied:        make(map[string]struct{}),
		sink:          audit.NopSink{},
		logger:        slog.Default().With("component", "formula.validator"),
		now:           time.Now,
	}
	for _, name := range DefaultDenylist() {
		v.denied[name] = struct{}{}
	}
	return v
}

// WithMaxLength sets the input limit in bytes. Values <= 0 keep the default.
func (v *Validator) WithMaxLength(n int) *Validator {
	if n > 0 {
		v.maxLength = n
	}
	return v
}

// WithPreviewLength sets how many runes of source an audit preview keeps.
func (v *Validator) WithPreviewLength(n int) *Validator {
	if n > 0 {
		v.previewLength = n
	}
	return v
}

// WithDenylist adds identifiers to the denylist.
func (v *Validator) WithDenylist(names ...string) *Validator {
	for _, name := range names {
		if name != "" {
			v.denied[name] = struct{}{}
		}
	}
	return v
}

// WithSink sets the audit sink. A nil sink discards events. The sink is
// called synchronously and must not block.
func (v *Validator) WithSink(sink audit.Sink) *Validator {
	if sink == nil {
		sink = audit.NopSink{}
	}
	v.sink = sink
	return v
}

// WithLogger sets the logger used for sink failures.
func (v *Validator) WithLogger(logger *slog.Logger) *Validator {
	if logger != nil {
		v.logger = logger.With("component", "formula.validator")
	}
	return v
}

// MaxLength returns the configured input limit.
func (v *Validator) MaxLength() int {
	return v.maxLength
}

// IsDenied reports whether name is on the denylist.
func (v *Validator) IsDenied(name string) bool {
	_, ok := v.denied[name]
	return ok
}

// Check runs the gate without reporting. It returns nil or a validation
// *ferrors.Error.
func (v *Validator) Check(src string) *ferrors.Error {
	if len(src) > v.maxLength {
		return ferrors.ValidationError(ferrors.CodeInputTooLong, ast.Pos(v.maxLength), v.preview(src),
			"expression is %d bytes, limit is %d", len(src), v.maxLength)
	}
	return v.scan(src)
}

// Validate runs the gate and reports a rejection to the sink.
func (v *Validator) Validate(src string) error {
	if err := v.Check(src); err != nil {
		v.report(err, StageGate)
		return err
	}
	return nil
}

// Reject converts a lex or parse failure into a malformed_expression
// validation error and reports it. A validation error is reported as is.
// A nil cause returns nil.
func (v *Validator) Reject(src string, cause error) error {
	if cause == nil {
		return nil
	}

	var fe *ferrors.Error
	if ferrors.As(cause, &fe) && fe.Type == ferrors.ErrorTypeValidation {
		v.report(fe, StageStructure)
		return fe
	}

	pos := ast.NoPos
	msg := cause.Error()
	suggestion := ""
	if fe != nil {
		pos = fe.Pos
		msg = fe.Message
		suggestion = fe.Suggestion
	}

	err := ferrors.ValidationError(ferrors.CodeMalformed, pos, v.preview(src), "malformed expression: %s", msg)
	err.Suggestion = suggestion
	err.Cause = cause
	v.report(err, StageStructure)
	return err
}

func (v *Validator) preview(src string) string {
	return Preview(src, v.previewLength)
}

// report emits exactly one audit event for err. A panicking sink is
// recovered and logged.
func (v *Validator) report(err *ferrors.Error, stage string) {
	event := audit.Event{
		ID:            uuid.NewString(),
		Timestamp:     v.now().UTC(),
		ReasonCode:    string(err.Code),
		Severity:      SeverityOf(err.Code),
		Stage:         stage,
		Position:      int(err.Pos),
		SourcePreview: err.Snippet,
		Message:       err.Message,
	}

	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("audit sink panicked",
				"event_id", event.ID,
				"reason_code", event.ReasonCode,
				"panic", r,
			)
		}
	}()
	v.sink.Record(event)
}

// SeverityOf maps a validation code to an audit severity.
func SeverityOf(code ferrors.Code) audit.Severity {
	switch code {
	case ferrors.CodeDeniedIdentifier:
		return audit.SeverityCritical
	case ferrors.CodeInputTooLong:
		return audit.SeverityMedium
	case ferrors.CodeMalformed:
		return audit.SeverityLow
	default:
		return audit.SeverityHigh
	}
}
