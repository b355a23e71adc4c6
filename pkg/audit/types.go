package audit

import (
	"context"
	"time"
)

// Severity ranks how suspicious a rejected expression is.
type Severity string

const (
	SeverityLow      Severity = "low"      // Malformed input, most likely an authoring mistake
	SeverityMedium   Severity = "medium"   // Resource abuse (oversized input)
	SeverityHigh     Severity = "high"     // Forbidden syntax (assignment, member access, ...)
	SeverityCritical Severity = "critical" // Denylisted host identifier
)

// Rank orders severities from low (1) to critical (4). Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Event is a single audit record for a rejected expression.
type Event struct {
	ID            string    `json:"id"`             // UUID v4
	Timestamp     time.Time `json:"timestamp"`      // When the rejection happened
	ReasonCode    string    `json:"reason_code"`    // Validation error code
	Severity      Severity  `json:"severity"`       // How suspicious the input is
	Stage         string    `json:"stage"`          // "gate" or "structure"
	Position      int       `json:"position"`       // Byte offset, -1 if unknown
	SourcePreview string    `json:"source_preview"` // Sanitized, truncated source
	Message       string    `json:"message"`        // Human-readable reason
}

// Sink receives audit events. Implementations must be safe for concurrent
// use and must not block the caller.
type Sink interface {
	Record(event Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Record calls f(event).
func (f SinkFunc) Record(event Event) {
	f(event)
}

// NopSink discards every event.
type NopSink struct{}

// Record does nothing.
func (NopSink) Record(Event) {}

// MultiSink forwards each event to every sink in order.
type MultiSink []Sink

// Record forwards the event.
func (m MultiSink) Record(event Event) {
	for _, s := range m {
		if s != nil {
			s.Record(event)
		}
	}
}

// Query defines filter parameters for reading events back.
type Query struct {
	Since       *time.Time `json:"since,omitempty"`        // Inclusive start time
	Until       *time.Time `json:"until,omitempty"`        // Inclusive end time
	ReasonCode  string     `json:"reason_code,omitempty"`  // Exact reason code
	MinSeverity Severity   `json:"min_severity,omitempty"` // Severity at or above

	Limit  int `json:"limit,omitempty"`  // Max events to return (0 = no limit)
	Offset int `json:"offset,omitempty"` // Skip N events
}

// Matches reports whether the event passes the query filters.
// Pagination fields are ignored.
func (q *Query) Matches(e *Event) bool {
	if q == nil {
		return true
	}
	if q.Since != nil && e.Timestamp.Before(*q.Since) {
		return false
	}
	if q.Until != nil && e.Timestamp.After(*q.Until) {
		return false
	}
	if q.ReasonCode != "" && e.ReasonCode != q.ReasonCode {
		return false
	}
	if q.MinSeverity != "" && e.Severity.Rank() < q.MinSeverity.Rank() {
		return false
	}
	return true
}

// Storage defines the interface for audit storage backends.
// Implementations must be thread-safe.
type Storage interface {
	// Store persists an event.
	Store(ctx context.Context, event *Event) error

	// Query returns events matching the filters, newest first.
	Query(ctx context.Context, query *Query) ([]*Event, error)

	// Count returns the number of events matching the filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// DeleteBefore removes events older than cutoff and returns how many
	// were deleted.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Trim keeps only the newest keep events and returns how many were
	// deleted.
	Trim(ctx context.Context, keep int64) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}
