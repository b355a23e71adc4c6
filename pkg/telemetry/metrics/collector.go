package metrics

import (
	"sync"
	"time"

	"mercator-hq/formula/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the main orchestrator for all Prometheus metrics in the
// formula engine. It manages metric registration and provides a unified
// interface for recording metrics across the validator, evaluator, cache,
// audit trail and catalog.
//
// A nil *Collector is valid and records nothing, so components can hold one
// unconditionally.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	evaluationMetrics *EvaluationMetrics
	validationMetrics *ValidationMetrics
	cacheMetrics      *CacheMetrics
	auditMetrics      *AuditMetrics
	catalogMetrics    *CatalogMetrics

	// Bounds the per-formula label set.
	cardinalityLimiter *CardinalityLimiter
}

// DefaultMaxFormulaLabels is the number of distinct formula names tracked
// before further names are aggregated into "other".
const DefaultMaxFormulaLabels = 1000

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "formula",
//		Subsystem: "engine",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Work on a copy so defaults do not leak back into the caller's config.
	c := &Collector{registry: registry}
	if cfg != nil {
		c.config = *cfg
	}
	if c.config.Namespace == "" {
		c.config.Namespace = config.DefaultMetricsNamespace
	}
	if c.config.Subsystem == "" {
		c.config.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(c.config.DurationBuckets) == 0 {
		// Evaluations are sub-millisecond; 1µs to ~16ms.
		c.config.DurationBuckets = prometheus.ExponentialBuckets(0.000001, 2, 15)
	}

	c.cardinalityLimiter = NewCardinalityLimiter(DefaultMaxFormulaLabels)

	c.evaluationMetrics = NewEvaluationMetrics(&c.config, registry)
	c.validationMetrics = NewValidationMetrics(&c.config, registry)
	c.cacheMetrics = NewCacheMetrics(&c.config, registry)
	c.auditMetrics = NewAuditMetrics(&c.config, registry)
	c.catalogMetrics = NewCatalogMetrics(&c.config, registry)

	return c
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordEvaluation records a finished evaluation.
//
// Parameters:
//   - kind: "value" or "condition"
//   - code: the error code of a failed evaluation, or "" on success
//   - duration: time spent evaluating, including parsing on a cache miss
//
// Example:
//
//	collector.RecordEvaluation("condition", "", 3*time.Microsecond)
//	collector.RecordEvaluation("value", "division_by_zero", time.Microsecond)
func (c *Collector) RecordEvaluation(kind, code string, duration time.Duration) {
	if !c.Enabled() {
		return
	}

	c.evaluationMetrics.RecordEvaluation(kind, code, duration)
}

// RecordRejection records an expression rejected by validation.
//
// Parameters:
//   - reason: the reason code, e.g. "denied_identifier"
//   - severity: "critical", "high", "medium" or "low"
func (c *Collector) RecordRejection(reason, severity string) {
	if !c.Enabled() {
		return
	}

	c.validationMetrics.RecordRejection(reason, severity)
}

// RecordCacheHit records a parse cache hit.
func (c *Collector) RecordCacheHit() {
	if !c.Enabled() {
		return
	}

	c.cacheMetrics.RecordHit()
}

// RecordCacheMiss records a parse cache miss.
func (c *Collector) RecordCacheMiss() {
	if !c.Enabled() {
		return
	}

	c.cacheMetrics.RecordMiss()
}

// RecordCacheEviction records an entry evicted from the parse cache.
func (c *Collector) RecordCacheEviction() {
	if !c.Enabled() {
		return
	}

	c.cacheMetrics.RecordEviction()
}

// UpdateCacheSize updates the number of entries in the parse cache.
func (c *Collector) UpdateCacheSize(size int) {
	if !c.Enabled() {
		return
	}

	c.cacheMetrics.UpdateSize(size)
}

// RecordAuditDropped records an audit event the recorder could not buffer.
func (c *Collector) RecordAuditDropped() {
	if !c.Enabled() {
		return
	}

	c.auditMetrics.RecordDropped()
}

// RecordAuditStoreError records a failed audit storage write.
func (c *Collector) RecordAuditStoreError() {
	if !c.Enabled() {
		return
	}

	c.auditMetrics.RecordStoreError()
}

// RecordAuditPruned records events removed by a retention run.
func (c *Collector) RecordAuditPruned(deleted int64) {
	if !c.Enabled() {
		return
	}

	c.auditMetrics.RecordPruned(deleted)
}

// RecordCatalogReload records a catalog reload attempt and, on success, the
// number of formulas now loaded.
func (c *Collector) RecordCatalogReload(success bool, formulas int) {
	if !c.Enabled() {
		return
	}

	c.catalogMetrics.RecordReload(success, formulas)
}

// RecordFormulaEvaluation records an evaluation of a named catalog formula.
// Once the label limit is reached, new names are aggregated into "other".
func (c *Collector) RecordFormulaEvaluation(formula string, success bool) {
	if !c.Enabled() {
		return
	}

	if !c.cardinalityLimiter.Allow(formula) {
		formula = "other"
	}
	c.catalogMetrics.RecordFormulaEvaluation(formula, success)
}

// Registry returns the Prometheus registry used by this collector.
// This can be used to create an HTTP handler for the /metrics endpoint:
//
//	http.Handle("/metrics", promhttp.HandlerFor(
//		collector.Registry(),
//		promhttp.HandlerOpts{},
//	))
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
// Returns false if adding this label set would exceed the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
