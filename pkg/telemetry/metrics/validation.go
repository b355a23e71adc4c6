package metrics

import (
	"mercator-hq/formula/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ValidationMetrics tracks expressions rejected before evaluation.
//
// Metrics:
//   - formula_engine_rejections_total: Rejections by reason code and severity
type ValidationMetrics struct {
	rejectionsTotal *prometheus.CounterVec
}

// NewValidationMetrics creates and registers validation metrics with the provided registry.
func NewValidationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ValidationMetrics {
	vm := &ValidationMetrics{
		rejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rejections_total",
				Help:      "Total number of rejected expressions",
			},
			[]string{"reason", "severity"},
		),
	}

	registry.MustRegister(vm.rejectionsTotal)

	return vm
}

// RecordRejection records a rejected expression.
func (vm *ValidationMetrics) RecordRejection(reason, severity string) {
	vm.rejectionsTotal.WithLabelValues(reason, severity).Inc()
}
