package audit

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements that create the audit database schema.
// Timestamps are stored as Unix nanoseconds so both SQLite drivers read them
// back identically.
const Schema = `
CREATE TABLE IF NOT EXISTS security_events (
    id TEXT PRIMARY KEY,
    timestamp INTEGER NOT NULL,
    reason_code TEXT NOT NULL,
    severity TEXT NOT NULL,
    severity_rank INTEGER NOT NULL,
    stage TEXT NOT NULL,
    position INTEGER NOT NULL,
    source_preview TEXT NOT NULL,
    message TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_security_events_timestamp ON security_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_security_events_reason ON security_events(reason_code);
CREATE INDEX IF NOT EXISTS idx_security_events_severity ON security_events(severity_rank);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`

// GetSchemaVersion returns the highest recorded schema version.
const GetSchemaVersion = `SELECT MAX(version) FROM schema_version`

const insertEventSQL = `
INSERT INTO security_events (
    id, timestamp, reason_code, severity, severity_rank, stage, position, source_preview, message
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectEventColumns = `id, timestamp, reason_code, severity, stage, position, source_preview, message`

const deleteBeforeSQL = `DELETE FROM security_events WHERE timestamp < ?`

const trimSQL = `
DELETE FROM security_events WHERE id IN (
    SELECT id FROM security_events ORDER BY timestamp DESC, id DESC LIMIT -1 OFFSET ?
)`
