// Package audit records security events for rejected formula input.
//
// The formula engine reports every validation rejection to a Sink exactly
// once, before the error reaches the caller. Sinks are best effort: Record
// has no return value and must not block.
//
// # Sinks
//
// Recorder: buffers events on a channel and writes them to a Storage backend
// from a background goroutine. When the buffer is full the event is dropped
// and counted rather than blocking the caller.
//
// LogSink: writes each event as a structured slog warning.
//
// MultiSink: fans an event out to several sinks.
//
// # Storage
//
// MemoryStorage keeps events in memory (tests, CLI one-shots).
// SQLiteStorage persists events with either the cgo driver
// (github.com/mattn/go-sqlite3, driver name "sqlite3") or the pure-Go driver
// (modernc.org/sqlite, driver name "sqlite").
//
// # Retention
//
// Pruner deletes events older than a retention period and trims the store to
// a maximum record count. Scheduler runs the pruner on a cron schedule:
//
//	pruner := audit.NewPruner(store, &audit.RetentionConfig{
//	    RetentionDays: 30,
//	    MaxRecords:    100000,
//	    PruneSchedule: "0 3 * * *",
//	})
//	if err := pruner.Scheduler().Start(ctx); err != nil {
//	    return err
//	}
package audit
