// Package telemetry wires observability for formula processes.
//
// # Components
//
//   - logging: log/slog setup from configuration
//   - metrics: Prometheus metrics for evaluation, validation, cache, audit
//     and catalog activity
//   - health: liveness, readiness and version endpoints with checks for the
//     engine, the audit store and the catalog
//
// # Usage
//
//	tel, err := telemetry.New(&cfg.Telemetry, telemetry.BuildInfo{Version: version}, os.Stderr)
//	if err != nil {
//		return err
//	}
//	engine, err := formula.New(formula.EngineConfigFrom(cfg.Engine),
//		formula.WithMetrics(tel.Metrics()),
//		formula.WithLogger(tel.Logger()),
//	)
//	tel.Health().RegisterCheck("engine", health.EngineCheck(engine))
//	go http.ListenAndServe(cfg.Telemetry.Metrics.ListenAddress, tel.Handler())
//
// Metrics are off unless telemetry.metrics.enabled is set. The collector
// returned by Metrics is then nil, which every component accepts.
package telemetry
