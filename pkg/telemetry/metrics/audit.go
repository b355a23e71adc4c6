package metrics

import (
	"mercator-hq/formula/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditMetrics tracks the security audit trail.
//
// Metrics:
//   - formula_engine_audit_dropped_total: Events dropped by the async recorder
//   - formula_engine_audit_store_errors_total: Failed storage writes
//   - formula_engine_audit_pruned_total: Events deleted by retention
type AuditMetrics struct {
	droppedTotal     prometheus.Counter
	storeErrorsTotal prometheus.Counter
	prunedTotal      prometheus.Counter
}

// NewAuditMetrics creates and registers audit metrics with the provided registry.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		droppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_dropped_total",
				Help:      "Total number of audit events dropped before storage",
			},
		),

		storeErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_store_errors_total",
				Help:      "Total number of failed audit storage writes",
			},
		),

		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_pruned_total",
				Help:      "Total number of audit events deleted by retention",
			},
		),
	}

	registry.MustRegister(
		am.droppedTotal,
		am.storeErrorsTotal,
		am.prunedTotal,
	)

	return am
}

// RecordDropped records a dropped event.
func (am *AuditMetrics) RecordDropped() {
	am.droppedTotal.Inc()
}

// RecordStoreError records a failed write.
func (am *AuditMetrics) RecordStoreError() {
	am.storeErrorsTotal.Inc()
}

// RecordPruned records events deleted by a retention run.
func (am *AuditMetrics) RecordPruned(deleted int64) {
	if deleted > 0 {
		am.prunedTotal.Add(float64(deleted))
	}
}
