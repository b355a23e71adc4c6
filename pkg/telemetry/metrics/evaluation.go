package metrics

import (
	"time"

	"mercator-hq/formula/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// EvaluationMetrics tracks expression evaluation.
//
// Metrics:
//   - formula_engine_evaluations_total: Evaluations by kind and result
//   - formula_engine_evaluation_duration_seconds: Evaluation latency by kind
//   - formula_engine_evaluation_errors_total: Failed evaluations by error code
type EvaluationMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	errorsTotal        *prometheus.CounterVec
}

// NewEvaluationMetrics creates and registers evaluation metrics with the provided registry.
func NewEvaluationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of expression evaluations",
			},
			[]string{"kind", "result"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of expression evaluation in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"kind"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_errors_total",
				Help:      "Total number of failed evaluations by error code",
			},
			[]string{"code"},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.errorsTotal,
	)

	return em
}

// RecordEvaluation records one evaluation. An empty code means success.
func (em *EvaluationMetrics) RecordEvaluation(kind, code string, duration time.Duration) {
	result := "success"
	if code != "" {
		result = "error"
		em.errorsTotal.WithLabelValues(code).Inc()
	}
	em.evaluationsTotal.WithLabelValues(kind, result).Inc()
	em.evaluationDuration.WithLabelValues(kind).Observe(duration.Seconds())
}
