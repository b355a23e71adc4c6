package metrics

import (
	"mercator-hq/formula/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CatalogMetrics tracks the formula catalog.
//
// Metrics:
//   - formula_engine_catalog_reloads_total: Reload attempts by status
//   - formula_engine_catalog_formulas: Formulas currently loaded
//   - formula_engine_formula_evaluations_total: Evaluations by formula name and result
type CatalogMetrics struct {
	reloadsTotal       *prometheus.CounterVec
	formulas           prometheus.Gauge
	formulaEvaluations *prometheus.CounterVec
}

// NewCatalogMetrics creates and registers catalog metrics with the provided registry.
func NewCatalogMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CatalogMetrics {
	cm := &CatalogMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "catalog_reloads_total",
				Help:      "Total number of catalog reload attempts",
			},
			[]string{"status"},
		),

		formulas: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "catalog_formulas",
				Help:      "Number of formulas in the loaded catalog",
			},
		),

		formulaEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "formula_evaluations_total",
				Help:      "Total number of catalog formula evaluations",
			},
			[]string{"formula", "result"},
		),
	}

	registry.MustRegister(
		cm.reloadsTotal,
		cm.formulas,
		cm.formulaEvaluations,
	)

	return cm
}

// RecordReload records a reload attempt. The formula gauge only moves on
// success.
func (cm *CatalogMetrics) RecordReload(success bool, formulas int) {
	if !success {
		cm.reloadsTotal.WithLabelValues("error").Inc()
		return
	}
	cm.reloadsTotal.WithLabelValues("success").Inc()
	cm.formulas.Set(float64(formulas))
}

// RecordFormulaEvaluation records an evaluation of a named formula.
func (cm *CatalogMetrics) RecordFormulaEvaluation(formula string, success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	cm.formulaEvaluations.WithLabelValues(formula, result).Inc()
}
