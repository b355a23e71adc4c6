package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mercator-hq/formula/pkg/config"
	"mercator-hq/formula/pkg/telemetry/health"
	"mercator-hq/formula/pkg/telemetry/logging"
	"mercator-hq/formula/pkg/telemetry/metrics"
	"mercator-hq/formula/pkg/telemetry/tracing"
)

// BuildInfo identifies the running binary on the /version endpoint.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Telemetry bundles the logger, the metrics collector, the tracer and the
// health checker of one process.
type Telemetry struct {
	config  config.TelemetryConfig
	build   BuildInfo
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	health  *health.Checker
}

// New builds the telemetry stack from configuration and installs the logger
// as the slog default. Logs are written to w, or stderr when w is nil.
//
// Metrics are collected only when cfg.Metrics.Enabled is set; the
// collector's registry also carries the Go runtime and process collectors.
func New(cfg *config.TelemetryConfig, build BuildInfo, w io.Writer) (*Telemetry, error) {
	if cfg == nil {
		cfg = &config.Default().Telemetry
	}

	logger, err := logging.Setup(logging.FromConfig(cfg.Logging, w))
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	t := &Telemetry{
		config: *cfg,
		build:  build,
		logger: logger,
		health: health.New(2 * time.Second),
	}

	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		t.metrics = metrics.NewCollector(&cfg.Metrics, registry)
	}

	t.tracer, err = tracing.New(&cfg.Tracing, build.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	return t, nil
}

// Logger returns the process logger.
func (t *Telemetry) Logger() *slog.Logger {
	return t.logger
}

// Metrics returns the collector, or nil when metrics are disabled. A nil
// collector is safe to use.
func (t *Telemetry) Metrics() *metrics.Collector {
	return t.metrics
}

// Tracer returns the tracer. It is a no-op when tracing is disabled.
func (t *Telemetry) Tracer() *tracing.Tracer {
	return t.tracer
}

// Health returns the health checker.
func (t *Telemetry) Health() *health.Checker {
	return t.health
}

// Handler returns a mux serving the health endpoints and, when metrics are
// enabled, the Prometheus endpoint at the configured path. Requests are
// traced when tracing is enabled.
func (t *Telemetry) Handler() http.Handler {
	mux := http.NewServeMux()
	health.Register(mux, t.health, t.build.Version, t.build.Commit, t.build.BuildTime)
	if t.metrics.Enabled() {
		mux.Handle(t.config.Metrics.Path, t.metrics.Handler())
	}
	return t.tracer.Middleware(mux)
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.tracer.Shutdown(ctx)
}
