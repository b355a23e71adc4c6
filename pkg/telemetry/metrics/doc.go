// Package metrics provides Prometheus metrics collection for the formula
// engine.
//
// # Metrics Categories
//
//   - Evaluation Metrics: evaluation count, latency and error codes
//   - Validation Metrics: rejected expressions by reason and severity
//   - Cache Metrics: parse cache hits, misses, evictions and size
//   - Audit Metrics: dropped events, failed writes and pruned events
//   - Catalog Metrics: reloads, loaded formulas and per-formula evaluations
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	collector.RecordEvaluation("condition", "", 2*time.Microsecond)
//	collector.RecordRejection("denied_identifier", "critical")
//	collector.RecordCacheHit()
//
// Every Record method is a no-op on a nil or disabled collector.
//
// # Prometheus Endpoint
//
// Metrics are exposed in the standard Prometheus format:
//
//	# HELP formula_engine_rejections_total Total number of rejected expressions
//	# TYPE formula_engine_rejections_total counter
//	formula_engine_rejections_total{reason="denied_identifier",severity="critical"} 3
//
// # Cardinality Management
//
// Formula names come from user-supplied catalogs, so the per-formula
// counter tracks at most DefaultMaxFormulaLabels names and aggregates the
// rest into "other". All other labels have a fixed, small value set.
package metrics
