package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)
)

const (
	// DriverCGO selects github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPureGo selects modernc.org/sqlite.
	DriverPureGo = "sqlite"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path. ":memory:" keeps the database in memory.
	Path string

	// Driver is the database/sql driver name: "sqlite3" or "sqlite".
	// Default: "sqlite3"
	Driver string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		Driver:       DriverCGO,
		MaxOpenConns: 4,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db         *sql.DB
	config     *SQLiteConfig
	insertStmt *sql.Stmt
	mu         sync.RWMutex
	closed     bool
	logger     *slog.Logger
}

// NewSQLiteStorage opens the database, creates the schema and prepares
// statements.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, NewStorageError("sqlite", "open", fmt.Errorf("database path cannot be empty"))
	}
	if config.Driver == "" {
		config.Driver = DriverCGO
	}
	if config.Driver != DriverCGO && config.Driver != DriverPureGo {
		return nil, NewStorageError("sqlite", "open",
			fmt.Errorf("unknown driver %q (want %q or %q)", config.Driver, DriverCGO, DriverPureGo))
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "audit.sqlite")

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	// Every connection to ":memory:" is a separate database.
	if config.Path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets pragmas, creates the schema and verifies its version.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode && s.config.Path != ":memory:" {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version sql.NullInt64
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if !version.Valid || version.Int64 != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version.Int64))
	}

	stmt, err := s.db.Prepare(insertEventSQL)
	if err != nil {
		return NewStorageError("sqlite", "prepare_insert", err)
	}
	s.insertStmt = stmt

	return nil
}

// Store persists an event.
func (s *SQLiteStorage) Store(ctx context.Context, event *Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return NewStorageError("sqlite", "store", ErrStorageClosed)
	}

	_, err := s.insertStmt.ExecContext(ctx,
		event.ID,
		event.Timestamp.UnixNano(),
		event.ReasonCode,
		string(event.Severity),
		event.Severity.Rank(),
		event.Stage,
		event.Position,
		event.SourcePreview,
		event.Message,
	)
	if err != nil {
		return NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query returns matching events, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, query *Query) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageError("sqlite", "query", ErrStorageClosed)
	}

	where, args := buildWhereClause(query)

	sqlQuery := "SELECT " + selectEventColumns + " FROM security_events"
	if where != "" {
		sqlQuery += " WHERE " + where
	}
	sqlQuery += " ORDER BY timestamp DESC, id DESC"

	if query != nil && (query.Limit > 0 || query.Offset > 0) {
		limit := -1
		if query.Limit > 0 {
			limit = query.Limit
		}
		sqlQuery += " LIMIT ? OFFSET ?"
		args = append(args, limit, query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		var (
			e        Event
			ts       int64
			severity string
		)
		if err := rows.Scan(&e.ID, &ts, &e.ReasonCode, &severity, &e.Stage, &e.Position, &e.SourcePreview, &e.Message); err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		e.Severity = Severity(severity)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	return events, nil
}

// Count returns the number of matching events.
func (s *SQLiteStorage) Count(ctx context.Context, query *Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, NewStorageError("sqlite", "count", ErrStorageClosed)
	}

	where, args := buildWhereClause(query)
	sqlQuery := "SELECT COUNT(*) FROM security_events"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&n); err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return n, nil
}

// DeleteBefore removes events older than cutoff.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, NewStorageError("sqlite", "delete_before", ErrStorageClosed)
	}

	result, err := s.db.ExecContext(ctx, deleteBeforeSQL, cutoff.UnixNano())
	if err != nil {
		return 0, NewStorageError("sqlite", "delete_before", err)
	}
	return result.RowsAffected()
}

// Trim keeps the newest keep events.
func (s *SQLiteStorage) Trim(ctx context.Context, keep int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, NewStorageError("sqlite", "trim", ErrStorageClosed)
	}
	if keep < 0 {
		return 0, nil
	}

	result, err := s.db.ExecContext(ctx, trimSQL, keep)
	if err != nil {
		return 0, NewStorageError("sqlite", "trim", err)
	}
	return result.RowsAffected()
}

// Close closes prepared statements and the database.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	if err := s.db.Close(); err != nil {
		return NewStorageError("sqlite", "close", err)
	}

	s.logger.Info("SQLite audit storage closed")
	return nil
}

// buildWhereClause translates query filters into SQL.
func buildWhereClause(query *Query) (string, []any) {
	if query == nil {
		return "", nil
	}

	var conditions []string
	var args []any

	if query.Since != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, query.Since.UnixNano())
	}
	if query.Until != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, query.Until.UnixNano())
	}
	if query.ReasonCode != "" {
		conditions = append(conditions, "reason_code = ?")
		args = append(args, query.ReasonCode)
	}
	if query.MinSeverity != "" {
		conditions = append(conditions, "severity_rank >= ?")
		args = append(args, query.MinSeverity.Rank())
	}

	return strings.Join(conditions, " AND "), args
}
