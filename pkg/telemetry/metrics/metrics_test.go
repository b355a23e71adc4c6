package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/formula/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:         true,
		Namespace:       "test",
		Subsystem:       "formula",
		DurationBuckets: []float64{0.00001, 0.0001, 0.001},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
	if collector.config.Namespace != config.DefaultMetricsNamespace {
		t.Errorf("Namespace = %q, want %q", collector.config.Namespace, config.DefaultMetricsNamespace)
	}
	if len(collector.config.DurationBuckets) == 0 {
		t.Error("default duration buckets not applied")
	}
	if cfg.Namespace != "" {
		t.Error("NewCollector modified the caller's config")
	}
}

func TestCollector_NilRegistry(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	if collector.Registry() == nil {
		t.Fatal("expected a registry to be created")
	}
}

func TestCollector_RecordEvaluation(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordEvaluation("value", "", 3*time.Microsecond)
	collector.RecordEvaluation("value", "", 5*time.Microsecond)
	collector.RecordEvaluation("condition", "division_by_zero", time.Microsecond)

	em := collector.evaluationMetrics
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"value success", testutil.ToFloat64(em.evaluationsTotal.WithLabelValues("value", "success")), 2},
		{"condition error", testutil.ToFloat64(em.evaluationsTotal.WithLabelValues("condition", "error")), 1},
		{"error code", testutil.ToFloat64(em.errorsTotal.WithLabelValues("division_by_zero")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(em.evaluationDuration); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
}

func TestCollector_RecordRejection(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordRejection("denied_identifier", "critical")
	collector.RecordRejection("denied_identifier", "critical")
	collector.RecordRejection("assignment", "high")

	vm := collector.validationMetrics
	if got := testutil.ToFloat64(vm.rejectionsTotal.WithLabelValues("denied_identifier", "critical")); got != 2 {
		t.Errorf("denied_identifier rejections = %v, want 2", got)
	}
	if got := testutil.ToFloat64(vm.rejectionsTotal.WithLabelValues("assignment", "high")); got != 1 {
		t.Errorf("assignment rejections = %v, want 1", got)
	}
}

func TestCollector_CacheMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordCacheHit()
	collector.RecordCacheHit()
	collector.RecordCacheMiss()
	collector.RecordCacheEviction()
	collector.UpdateCacheSize(42)

	cm := collector.cacheMetrics
	if got := testutil.ToFloat64(cm.hitsTotal); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(cm.missesTotal); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(cm.evictionsTotal); got != 1 {
		t.Errorf("evictions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(cm.entries); got != 42 {
		t.Errorf("entries = %v, want 42", got)
	}
}

func TestCollector_AuditMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordAuditDropped()
	collector.RecordAuditStoreError()
	collector.RecordAuditPruned(7)
	collector.RecordAuditPruned(0)

	am := collector.auditMetrics
	if got := testutil.ToFloat64(am.droppedTotal); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(am.storeErrorsTotal); got != 1 {
		t.Errorf("store errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(am.prunedTotal); got != 7 {
		t.Errorf("pruned = %v, want 7", got)
	}
}

func TestCollector_CatalogMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordCatalogReload(true, 12)
	collector.RecordCatalogReload(false, 0)
	collector.RecordFormulaEvaluation("damage", true)
	collector.RecordFormulaEvaluation("damage", false)

	cm := collector.catalogMetrics
	if got := testutil.ToFloat64(cm.formulas); got != 12 {
		t.Errorf("formulas = %v, want 12 (failed reload must not reset it)", got)
	}
	if got := testutil.ToFloat64(cm.reloadsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("failed reloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(cm.formulaEvaluations.WithLabelValues("damage", "error")); got != 1 {
		t.Errorf("damage errors = %v, want 1", got)
	}
}

func TestCollector_FormulaCardinality(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.cardinalityLimiter = NewCardinalityLimiter(2)

	for _, name := range []string{"a", "b", "c", "d", "a"} {
		collector.RecordFormulaEvaluation(name, true)
	}

	cm := collector.catalogMetrics
	if got := testutil.ToFloat64(cm.formulaEvaluations.WithLabelValues("a", "success")); got != 2 {
		t.Errorf("a = %v, want 2", got)
	}
	if got := testutil.ToFloat64(cm.formulaEvaluations.WithLabelValues("other", "success")); got != 2 {
		t.Errorf("other = %v, want 2", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.RecordEvaluation("value", "", time.Microsecond)
	collector.RecordRejection("assignment", "high")
	collector.RecordCacheHit()

	if collector.Enabled() {
		t.Error("Enabled() = true, want false")
	}
	if got := testutil.ToFloat64(collector.cacheMetrics.hitsTotal); got != 0 {
		t.Errorf("disabled collector recorded %v hits", got)
	}
}

func TestCollector_Nil(t *testing.T) {
	var collector *Collector

	// None of these should panic.
	collector.RecordEvaluation("value", "", time.Microsecond)
	collector.RecordRejection("assignment", "high")
	collector.RecordCacheHit()
	collector.RecordCacheMiss()
	collector.RecordCacheEviction()
	collector.UpdateCacheSize(1)
	collector.RecordAuditDropped()
	collector.RecordAuditStoreError()
	collector.RecordAuditPruned(1)
	collector.RecordCatalogReload(true, 1)
	collector.RecordFormulaEvaluation("x", true)

	if collector.Enabled() {
		t.Error("nil collector reports enabled")
	}
}

func TestCardinalityLimiter(t *testing.T) {
	limiter := NewCardinalityLimiter(3)

	for _, label := range []string{"label1", "label2", "label3"} {
		if !limiter.Allow(label) {
			t.Errorf("expected %s to be allowed", label)
		}
	}

	if limiter.Allow("label4") {
		t.Error("Expected fourth label to be rejected")
	}
	if !limiter.Allow("label1") {
		t.Error("Expected existing label to be allowed")
	}
	if limiter.Count() != 3 {
		t.Errorf("Expected count=3, got %d", limiter.Count())
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.RecordRejection("string_literal", "high")

	server := httptest.NewServer(collector.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	want := `test_formula_rejections_total{reason="string_literal",severity="high"} 1`
	if !strings.Contains(string(body), want) {
		t.Errorf("metrics output missing %q:\n%s", want, body)
	}
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				collector.RecordEvaluation("value", "", time.Microsecond)
				collector.RecordCacheHit()
				collector.RecordFormulaEvaluation(fmt.Sprintf("f%d", i), true)
			}
		}(i)
	}
	wg.Wait()

	got := testutil.ToFloat64(collector.evaluationMetrics.evaluationsTotal.WithLabelValues("value", "success"))
	if got != 1000 {
		t.Errorf("Expected 1000 evaluations, got %v", got)
	}
	if got := testutil.ToFloat64(collector.cacheMetrics.hitsTotal); got != 1000 {
		t.Errorf("Expected 1000 cache hits, got %v", got)
	}
}
