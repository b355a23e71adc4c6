package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mercator-hq/formula/pkg/audit"
	"mercator-hq/formula/pkg/catalog"
	"mercator-hq/formula/pkg/cli"
	"mercator-hq/formula/pkg/config"
	"mercator-hq/formula/pkg/formula"
	"mercator-hq/formula/pkg/telemetry"
	"mercator-hq/formula/pkg/telemetry/metrics"
)

// errNoAuditStore is returned by audit commands when the backend is "none".
var errNoAuditStore = errors.New(`audit backend is "none"; set audit.backend to "memory" or "sqlite"`)

// app holds the components shared by the subcommands.
type app struct {
	cfg       *config.Config
	telemetry *telemetry.Telemetry
	engine    *formula.Engine

	// storage and recorder are nil when the audit backend is "none".
	storage  audit.Storage
	recorder *audit.Recorder

	// logSink is nil unless audit.log_events is set.
	logSink *audit.Recorder
}

// newApp loads the configuration and wires telemetry, the audit pipeline
// and the engine. Close must be called to flush pending audit events.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newAppFromConfig(cfg)
}

func newAppFromConfig(cfg *config.Config) (*app, error) {
	tel, err := telemetry.New(&cfg.Telemetry, buildInfo(), os.Stderr)
	if err != nil {
		return nil, cli.NewConfigError("telemetry", err.Error())
	}
	m := tel.Metrics()

	a := &app{cfg: cfg, telemetry: tel}

	a.storage, err = openStorage(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit store: %w", err)
	}

	var sinks audit.MultiSink
	if a.storage != nil {
		a.recorder = audit.NewRecorder(a.storage, &audit.RecorderConfig{
			BufferSize:   cfg.Audit.Recorder.BufferSize,
			WriteTimeout: cfg.Audit.Recorder.WriteTimeout,
			OnDrop:       m.RecordAuditDropped,
			OnStoreError: func(error) { m.RecordAuditStoreError() },
		})
		sinks = append(sinks, a.recorder)
	}
	if cfg.Audit.LogEvents {
		a.logSink = audit.NewAsyncSink(audit.NewLogSink(tel.Logger()), &audit.RecorderConfig{
			BufferSize: cfg.Audit.Recorder.BufferSize,
			OnDrop:     m.RecordAuditDropped,
		})
		sinks = append(sinks, a.logSink)
	}

	a.engine, err = formula.New(formula.EngineConfigFrom(cfg.Engine),
		formula.WithSink(sinks),
		formula.WithMetrics(m),
		formula.WithLogger(tel.Logger()),
	)
	if err != nil {
		a.Close()
		return nil, cli.NewConfigError("engine", err.Error())
	}
	return a, nil
}

// Close drains the audit recorder and log sink and closes the store.
func (a *app) Close() error {
	var errs []error
	if a.logSink != nil {
		errs = append(errs, a.logSink.Close())
	}
	if a.recorder != nil {
		errs = append(errs, a.recorder.Close())
	}
	if a.storage != nil {
		errs = append(errs, a.storage.Close())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	errs = append(errs, a.telemetry.Shutdown(ctx))

	return errors.Join(errs...)
}

// pruner returns a retention pruner over the audit store.
func (a *app) pruner(retention *audit.RetentionConfig) *audit.Pruner {
	return audit.NewPruner(a.storage, retention).WithTracer(a.telemetry.Tracer().Tracer())
}

// metrics returns the collector, nil when metrics are disabled.
func (a *app) metrics() *metrics.Collector {
	return a.telemetry.Metrics()
}

// loader returns a catalog loader bound to the app's engine.
func (a *app) loader() *catalog.Loader {
	return catalog.NewLoader(a.engine, nil).WithMetrics(a.metrics())
}

// catalogPath picks the explicit path or falls back to catalog.path.
func (a *app) catalogPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if a.cfg.Catalog.Path != "" {
		return a.cfg.Catalog.Path, nil
	}
	return "", cli.NewConfigError("catalog.path", "no catalog path given and none configured")
}

// requireStorage returns the audit store or errNoAuditStore.
func (a *app) requireStorage() (audit.Storage, error) {
	if a.storage == nil {
		return nil, errNoAuditStore
	}
	return a.storage, nil
}

// retentionConfig converts the retention section. Days of -1 keeps events
// forever.
func (a *app) retentionConfig() *audit.RetentionConfig {
	r := a.cfg.Audit.Retention
	days := r.Days
	if days < 0 {
		days = 0
	}
	return &audit.RetentionConfig{
		RetentionDays: days,
		MaxRecords:    r.MaxRecords,
		PruneSchedule: r.Schedule,
		OnPrune:       a.metrics().RecordAuditPruned,
	}
}

func openStorage(cfg config.AuditConfig) (audit.Storage, error) {
	switch cfg.Backend {
	case "none":
		return nil, nil
	case "memory":
		return audit.NewMemoryStorage(), nil
	case "sqlite":
		if cfg.SQLite.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
				return nil, err
			}
		}
		return audit.NewSQLiteStorage(&audit.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported audit backend: %s", cfg.Backend)
	}
}
