package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention FORMULA_SECTION_FIELD (e.g., FORMULA_ENGINE_MAX_LENGTH).
// Environment variables always take precedence over file-based configuration.
//
// An empty path skips the file and starts from defaults.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Unparseable numeric, boolean and duration values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Engine overrides
	envInt("FORMULA_ENGINE_MAX_LENGTH", &cfg.Engine.MaxLength)
	envInt("FORMULA_ENGINE_MAX_DEPTH", &cfg.Engine.MaxDepth)
	envInt("FORMULA_ENGINE_CACHE_CAPACITY", &cfg.Engine.CacheCapacity)
	envInt("FORMULA_ENGINE_PREVIEW_LENGTH", &cfg.Engine.PreviewLength)

	// Audit overrides
	envString("FORMULA_AUDIT_BACKEND", &cfg.Audit.Backend)
	envBool("FORMULA_AUDIT_LOG_EVENTS", &cfg.Audit.LogEvents)
	envString("FORMULA_AUDIT_SQLITE_PATH", &cfg.Audit.SQLite.Path)
	envString("FORMULA_AUDIT_SQLITE_DRIVER", &cfg.Audit.SQLite.Driver)
	envBool("FORMULA_AUDIT_SQLITE_WAL_MODE", &cfg.Audit.SQLite.WALMode)
	envDuration("FORMULA_AUDIT_SQLITE_BUSY_TIMEOUT", &cfg.Audit.SQLite.BusyTimeout)
	envInt("FORMULA_AUDIT_RECORDER_BUFFER_SIZE", &cfg.Audit.Recorder.BufferSize)
	envDuration("FORMULA_AUDIT_RECORDER_WRITE_TIMEOUT", &cfg.Audit.Recorder.WriteTimeout)
	envInt("FORMULA_AUDIT_RETENTION_DAYS", &cfg.Audit.Retention.Days)
	if val := os.Getenv("FORMULA_AUDIT_RETENTION_MAX_RECORDS"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Audit.Retention.MaxRecords = n
		}
	}
	envString("FORMULA_AUDIT_RETENTION_SCHEDULE", &cfg.Audit.Retention.Schedule)

	// Catalog overrides
	envString("FORMULA_CATALOG_PATH", &cfg.Catalog.Path)
	envBool("FORMULA_CATALOG_WATCH", &cfg.Catalog.Watch)
	envDuration("FORMULA_CATALOG_DEBOUNCE", &cfg.Catalog.Debounce)

	// Telemetry overrides
	envString("FORMULA_LOG_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("FORMULA_LOG_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("FORMULA_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("FORMULA_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	envBool("FORMULA_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("FORMULA_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envString("FORMULA_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	envBool("FORMULA_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	if val := os.Getenv("FORMULA_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
