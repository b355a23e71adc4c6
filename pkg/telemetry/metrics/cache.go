package metrics

import (
	"mercator-hq/formula/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics tracks parse cache performance.
//
// Metrics:
//   - formula_engine_cache_hits_total: Total cache hits
//   - formula_engine_cache_misses_total: Total cache misses
//   - formula_engine_cache_entries: Current number of cached trees
//   - formula_engine_cache_evictions_total: Total cache evictions
type CacheMetrics struct {
	hitsTotal      prometheus.Counter
	missesTotal    prometheus.Counter
	entries        prometheus.Gauge
	evictionsTotal prometheus.Counter
}

// NewCacheMetrics creates and registers cache metrics with the provided registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		hitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_hits_total",
				Help:      "Total number of parse cache hits",
			},
		),

		missesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_misses_total",
				Help:      "Total number of parse cache misses",
			},
		),

		entries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_entries",
				Help:      "Current number of entries in the parse cache",
			},
		),

		evictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_evictions_total",
				Help:      "Total number of parse cache evictions",
			},
		),
	}

	registry.MustRegister(
		cm.hitsTotal,
		cm.missesTotal,
		cm.entries,
		cm.evictionsTotal,
	)

	return cm
}

// RecordHit records a cache hit.
func (cm *CacheMetrics) RecordHit() {
	cm.hitsTotal.Inc()
}

// RecordMiss records a cache miss.
func (cm *CacheMetrics) RecordMiss() {
	cm.missesTotal.Inc()
}

// UpdateSize updates the current size of the cache.
func (cm *CacheMetrics) UpdateSize(size int) {
	cm.entries.Set(float64(size))
}

// RecordEviction records an entry removed to make room for a new one.
//
// Hit rate is not exported directly; use PromQL:
//
//	rate(formula_engine_cache_hits_total[5m]) /
//	(rate(formula_engine_cache_hits_total[5m]) +
//	 rate(formula_engine_cache_misses_total[5m]))
func (cm *CacheMetrics) RecordEviction() {
	cm.evictionsTotal.Inc()
}
