package audit

import (
	"context"
	"log/slog"
)

// LogSink writes each event as a structured log record.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs to logger, or slog.Default() if nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "audit")}
}

// Record logs the event at Warn level, or Error for critical events.
func (s *LogSink) Record(event Event) {
	level := slog.LevelWarn
	if event.Severity == SeverityCritical {
		level = slog.LevelError
	}

	s.logger.LogAttrs(context.Background(), level, "expression rejected",
		slog.String("event_id", event.ID),
		slog.String("reason_code", event.ReasonCode),
		slog.String("severity", string(event.Severity)),
		slog.String("stage", event.Stage),
		slog.Int("position", event.Position),
		slog.String("source_preview", event.SourcePreview),
	)
}
