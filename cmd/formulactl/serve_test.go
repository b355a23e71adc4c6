package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"mercator-hq/formula/pkg/config"
)

func newServeApp(t *testing.T, catalogPath string) *app {
	t.Helper()
	cfg := config.Default()
	cfg.Audit.Backend = "memory"
	cfg.Catalog.Path = catalogPath
	cfg.Catalog.Watch = true
	cfg.Catalog.Debounce = 20 * time.Millisecond
	cfg.Telemetry.Logging.Level = "error"
	cfg.Telemetry.Metrics.Enabled = true

	a, err := newAppFromConfig(cfg)
	if err != nil {
		t.Fatalf("newAppFromConfig() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestServe(t *testing.T) {
	dir := t.TempDir()
	a := newServeApp(t, writeFile(t, dir, "rules.yaml", rulesYAML))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	addrs := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, a, serveOptions{
			listenAddress: "127.0.0.1:0",
			out:           &out,
			onListen:      func(addr net.Addr) { addrs <- addr },
		})
	}()

	var base string
	select {
	case addr := <-addrs:
		base = "http://" + addr.String()
	case err := <-done:
		t.Fatalf("serve() returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	if code, body := get(t, base+"/health"); code != http.StatusOK {
		t.Errorf("/health = %d %s", code, body)
	}

	code, body := get(t, base+"/ready")
	if code != http.StatusOK {
		t.Errorf("/ready = %d, want 200: %s", code, body)
	}
	for _, check := range []string{"engine", "audit_storage", "audit_recorder", "catalog"} {
		if !strings.Contains(body, `"`+check+`"`) {
			t.Errorf("/ready body missing %s check: %s", check, body)
		}
	}

	if _, body := get(t, base+"/version"); !strings.Contains(body, Version) {
		t.Errorf("/version = %s, want %s", body, Version)
	}

	code, body = get(t, base+"/metrics")
	if code != http.StatusOK {
		t.Fatalf("/metrics = %d", code)
	}
	if !strings.Contains(body, "formula_engine_catalog_formulas 3") {
		t.Errorf("/metrics missing catalog gauge")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("serve() did not stop")
	}

	for _, want := range []string{"✓ Catalog loaded (3 formulas)", "✓ Watching", "✓ Metrics endpoint", "✓ Server stopped"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("banner missing %q:\n%s", want, out.String())
		}
	}
}

func TestServe_DryRun(t *testing.T) {
	dir := t.TempDir()
	a := newServeApp(t, writeFile(t, dir, "rules.yaml", rulesYAML))

	var out bytes.Buffer
	if err := serve(context.Background(), a, serveOptions{dryRun: true, out: &out}); err != nil {
		t.Fatalf("serve(dry run) error = %v", err)
	}
	if !strings.HasSuffix(out.String(), "✓ Configuration valid\n") {
		t.Errorf("output = %q", out.String())
	}
}

func TestServe_BadCatalog(t *testing.T) {
	dir := t.TempDir()
	a := newServeApp(t, writeFile(t, dir, "broken.yaml", brokenYAML))

	var out bytes.Buffer
	if err := serve(context.Background(), a, serveOptions{dryRun: true, out: &out}); err == nil {
		t.Error("serve() with a broken catalog should fail")
	}
}
