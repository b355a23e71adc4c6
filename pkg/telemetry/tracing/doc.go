// Package tracing exports OpenTelemetry spans for the slow paths of a
// formula deployment: catalog reloads, audit pruning and the HTTP endpoints
// served by "formulactl serve".
//
// Expression evaluation itself is not traced. A cached evaluation takes a
// few hundred nanoseconds, less than creating a span.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	manager.WithTracer(tracer.Tracer())
//	handler := tracer.Middleware(mux)
//
// A disabled or nil *Tracer hands out no-op spans, so callers never need to
// check whether tracing is configured.
package tracing
