package config

import "time"

// Config is the root configuration for the formula engine and its tools.
type Config struct {
	// Engine controls expression limits and caching.
	Engine EngineConfig `yaml:"engine"`

	// Audit controls where rejected expressions are recorded.
	Audit AuditConfig `yaml:"audit"`

	// Catalog points at formula catalog files.
	Catalog CatalogConfig `yaml:"catalog"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig contains expression engine limits.
type EngineConfig struct {
	// MaxLength is the maximum expression length in bytes.
	// Default: 500
	MaxLength int `yaml:"max_length" validate:"gte=1,lte=65536"`

	// MaxDepth is the maximum nesting depth of parentheses, calls and
	// prefix operators.
	// Default: 32
	MaxDepth int `yaml:"max_depth" validate:"gte=1,lte=1024"`

	// CacheCapacity is the number of parsed expressions kept in memory.
	// -1 disables the cache.
	// Default: 1024
	CacheCapacity int `yaml:"cache_capacity" validate:"gte=-1"`

	// PreviewLength is the number of characters of a rejected expression
	// kept in audit records.
	// Default: 64
	PreviewLength int `yaml:"preview_length" validate:"gte=1,lte=1024"`

	// Denylist adds identifiers to the built-in denylist.
	Denylist []string `yaml:"denylist" validate:"dive,required"`
}

// AuditConfig contains security audit configuration.
type AuditConfig struct {
	// Backend selects the audit store.
	// Options: "none", "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend" validate:"oneof=none memory sqlite"`

	// LogEvents also writes every audit event to the structured log.
	// Default: false
	LogEvents bool `yaml:"log_events"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains async recorder configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite audit store configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// Driver is the database/sql driver.
	// Options: "sqlite3" (cgo), "sqlite" (pure Go)
	// Default: "sqlite3"
	Driver string `yaml:"driver" validate:"oneof=sqlite3 sqlite"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns" validate:"gte=1"`

	// WALMode enables Write-Ahead Logging.
	// Default: false
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout" validate:"gte=0"`
}

// RecorderConfig contains async audit recorder configuration.
type RecorderConfig struct {
	// BufferSize is the event channel capacity.
	// Default: 1000
	BufferSize int `yaml:"buffer_size" validate:"gte=1"`

	// WriteTimeout bounds each storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gt=0"`
}

// RetentionConfig contains audit retention configuration.
type RetentionConfig struct {
	// Days is how long to keep events. -1 keeps them forever.
	// Default: 30
	Days int `yaml:"days" validate:"gte=-1,lte=3650"`

	// MaxRecords caps the number of stored events. 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records" validate:"gte=0"`

	// Schedule is a cron expression for automatic pruning.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// CatalogConfig contains formula catalog configuration.
type CatalogConfig struct {
	// Path is a catalog file or a directory of *.yaml catalog files.
	// Empty means no catalog is loaded.
	Path string `yaml:"path"`

	// Watch reloads the catalog when files change.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period before a reload.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// TelemetryConfig contains logging, metrics and tracing configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format" validate:"oneof=json text"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path" validate:"startswith=/"`

	// ListenAddress is where "formulactl serve" exposes metrics.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address" validate:"hostname_port"`

	// Namespace is the metric name prefix.
	// Default: "formula"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "engine"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets for evaluation latency (seconds).
	// Default: exponential from 1µs to ~16ms
	DurationBuckets []float64 `yaml:"duration_buckets" validate:"dive,gt=0"`
}

// TracingConfig contains OpenTelemetry tracing configuration. Spans cover
// catalog reloads, audit pruning and the HTTP endpoints of
// "formulactl serve"; single evaluations are too short to trace.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Exporter selects the span exporter. Only "otlp" (gRPC) is supported.
	// Default: "otlp"
	Exporter string `yaml:"exporter" validate:"oneof=otlp"`

	// Endpoint is the collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint" validate:"hostname_port"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "formulactl"
	ServiceName string `yaml:"service_name" validate:"required"`

	// Sampler is the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler" validate:"oneof=always never ratio"`

	// SampleRatio is the fraction of traces kept by the "ratio" sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`

	// Insecure disables TLS towards the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}
