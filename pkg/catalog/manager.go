package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/formula/pkg/formula/ast"
	"mercator-hq/formula/pkg/telemetry/metrics"
	"mercator-hq/formula/pkg/telemetry/tracing"
)

// ErrNoCatalog is returned by Manager lookups before a catalog is loaded.
var ErrNoCatalog = errors.New("no catalog loaded")

// ManagerConfig contains configuration for the catalog manager.
type ManagerConfig struct {
	// Path is the catalog file or directory.
	Path string

	// Debounce is the quiet period before a reload (default: 100ms).
	Debounce time.Duration
}

// Manager holds the active catalog and replaces it on reload. A reload that
// fails keeps the previous catalog active.
type Manager struct {
	loader  *Loader
	config  ManagerConfig
	metrics *metrics.Collector
	tracer  trace.Tracer
	logger  *slog.Logger

	mu            sync.RWMutex
	current       *Catalog
	lastLoadTime  time.Time
	lastLoadError error

	watchMu     sync.Mutex
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// NewManager creates a manager. Nothing is loaded until Load is called.
func NewManager(loader *Loader, config ManagerConfig) *Manager {
	return &Manager{
		loader:  loader,
		config:  config,
		metrics: loader.metrics,
		tracer:  noop.NewTracerProvider().Tracer(tracing.InstrumentationName),
		logger:  slog.Default().With("component", "catalog.manager"),
	}
}

// WithTracer sets the tracer for reload spans.
func (m *Manager) WithTracer(t trace.Tracer) *Manager {
	if t != nil {
		m.tracer = t
	}
	return m
}

// Load loads the catalog for the first time.
func (m *Manager) Load() error {
	return m.reload("Loading catalog")
}

// Reload loads the catalog again. On failure the previous catalog stays
// active and the error is remembered for LastError.
func (m *Manager) Reload() error {
	return m.reload("Reloading catalog")
}

func (m *Manager) reload(what string) (err error) {
	start := time.Now()
	m.logger.Info(what, "path", m.config.Path)

	_, span := m.tracer.Start(context.Background(), "catalog.reload",
		trace.WithAttributes(attribute.String("catalog.path", m.config.Path)))
	defer func() {
		tracing.SetStatus(span, err)
		span.End()
	}()

	cat, err := m.loader.Load(m.config.Path)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.lastLoadError = err
		m.metrics.RecordCatalogReload(false, 0)
		attrs := []any{"error", err, "duration_ms", time.Since(start).Milliseconds()}
		if m.current != nil {
			m.logger.Error("Catalog reload failed, keeping previous catalog", attrs...)
		} else {
			m.logger.Error("Catalog load failed", attrs...)
		}
		return err
	}

	m.current = cat
	m.lastLoadTime = time.Now()
	m.lastLoadError = nil
	m.metrics.RecordCatalogReload(true, cat.Len())
	span.SetAttributes(attribute.Int("catalog.formulas", cat.Len()))

	m.logger.Info("Catalog loaded",
		"formulas", cat.Len(),
		"files", len(cat.Files()),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Catalog returns the active catalog, or nil before the first successful
// load.
func (m *Manager) Catalog() *Catalog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Len returns the number of formulas in the active catalog.
func (m *Manager) Len() int {
	if c := m.Catalog(); c != nil {
		return c.Len()
	}
	return 0
}

// LastError returns the error of the most recent load, or nil if it
// succeeded.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLoadError
}

// LastLoadTime returns when the active catalog was loaded.
func (m *Manager) LastLoadTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLoadTime
}

// Evaluate evaluates a formula of the active catalog.
func (m *Manager) Evaluate(name string, vars map[string]any) (ast.Value, error) {
	c := m.Catalog()
	if c == nil {
		return ast.Value{}, ErrNoCatalog
	}
	return c.Evaluate(name, vars)
}

// Condition evaluates a condition of the active catalog.
func (m *Manager) Condition(name string, vars map[string]any) (bool, error) {
	c := m.Catalog()
	if c == nil {
		return false, ErrNoCatalog
	}
	return c.Condition(name, vars)
}

// Watch reloads the catalog whenever its files change, until ctx is
// cancelled or Close is called. It blocks.
func (m *Manager) Watch(ctx context.Context) error {
	m.watchMu.Lock()
	if m.watchCancel != nil {
		m.watchMu.Unlock()
		return fmt.Errorf("watch already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	m.watchCancel = cancel
	m.watchDone = make(chan struct{})
	done := m.watchDone
	m.watchMu.Unlock()
	defer close(done)

	cfg := DefaultWatcherConfig()
	cfg.Path = m.config.Path
	if m.config.Debounce > 0 {
		cfg.Debounce = m.config.Debounce
	}
	cfg.Extensions = m.loader.config.AllowedExtensions
	cfg.SkipHidden = m.loader.config.SkipHidden

	watcher, err := NewFileWatcher(cfg, m.logger)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	// Reload errors are kept in LastError and logged by reload.
	return watcher.Watch(ctx, func() { _ = m.Reload() })
}

// Close stops watching and waits for Watch to return.
func (m *Manager) Close() error {
	m.watchMu.Lock()
	cancel, done := m.watchCancel, m.watchDone
	m.watchCancel = nil
	m.watchMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	m.logger.Debug("Catalog manager closed")
	return nil
}
