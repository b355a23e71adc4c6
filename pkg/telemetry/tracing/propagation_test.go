package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/formula/pkg/config"
)

func TestMiddleware(t *testing.T) {
	tr, exp := newRecordingTracer(t)

	var inner string
	handler := tr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = TraceID(r.Context())
		if r.URL.Path == "/ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))

	const traceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("traceparent", traceparent)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ready", nil))

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("exported %d spans, want 2", len(spans))
	}

	health := spans[0]
	if health.Name != "GET /health" {
		t.Errorf("Name = %q, want GET /health", health.Name)
	}
	if health.SpanKind != trace.SpanKindServer {
		t.Errorf("SpanKind = %v, want server", health.SpanKind)
	}
	if got := health.SpanContext.TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("TraceID = %s, want the caller's trace", got)
	}
	if health.Parent.SpanID().String() != "00f067aa0ba902b7" {
		t.Errorf("Parent = %s, want the caller's span", health.Parent.SpanID())
	}
	if !hasAttr(health.Attributes, attribute.Int("http.response.status_code", 200)) {
		t.Errorf("attributes = %v, want status 200", health.Attributes)
	}

	ready := spans[1]
	if ready.Status.Code != codes.Error {
		t.Errorf("503 span status = %v, want Error", ready.Status.Code)
	}
	if inner != ready.SpanContext.TraceID().String() {
		t.Error("handler did not see the server span in its context")
	}
}

func TestMiddleware_Disabled(t *testing.T) {
	tr, err := New(&config.TracingConfig{}, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
	tr.Middleware(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !called {
		t.Error("disabled middleware did not call the handler")
	}
}
