// Package health provides liveness, readiness and version endpoints for
// long-running formula processes such as "formulactl serve".
//
// # Endpoints
//
//   - /health: Liveness probe, always 200 while the process runs
//   - /ready: Readiness probe, 503 when any component check fails
//   - /version: Build information
//
// # Component Checks
//
// The package ships checks for the formula stack:
//
//   - EngineCheck evaluates ProbeExpression through the engine
//   - StorageCheck counts events in the audit store
//   - RecorderCheck fails when audit writes failed since the last probe
//   - CatalogCheck fails when the catalog is empty or its last reload failed
//
// # Usage
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("engine", health.EngineCheck(engine))
//	checker.RegisterCheck("audit", health.StorageCheck(store))
//
//	mux := http.NewServeMux()
//	health.Register(mux, checker, version, commit, buildTime)
//
// Checks run concurrently, each bounded by the checker's timeout.
package health
