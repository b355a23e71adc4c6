package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/formula/pkg/catalog"
	"mercator-hq/formula/pkg/cli"
	"mercator-hq/formula/pkg/telemetry/health"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	listenAddress string
	catalog       string
	watch         bool
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run catalog hot reload, audit retention and the telemetry endpoints",
	Long: `Run formulactl as a long-lived process.

serve loads the configured formula catalog and reloads it when its files
change, prunes the audit store on the retention schedule, and exposes:
  /health   liveness
  /ready    readiness (engine, audit store, recorder, catalog)
  /version  build information
  /metrics  Prometheus metrics (when telemetry.metrics.enabled is set)

Examples:
  # Start with a config file
  formulactl serve --config formula.yaml

  # Override the listen address and catalog
  formulactl serve --listen 0.0.0.0:9464 --catalog rules/ --watch

  # Validate config and catalog without starting
  formulactl serve --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override telemetry.metrics.listen_address")
	serveCmd.Flags().StringVar(&serveFlags.catalog, "catalog", "", "override catalog.path")
	serveCmd.Flags().BoolVar(&serveFlags.watch, "watch", false, "override catalog.watch")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config and catalog without starting")
}

// serveOptions configures serve beyond the file configuration.
type serveOptions struct {
	listenAddress string
	dryRun        bool

	// out receives the startup banner.
	out io.Writer

	// onListen is called with the bound address once the server accepts
	// connections.
	onListen func(net.Addr)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.catalog != "" {
		cfg.Catalog.Path = serveFlags.catalog
	}
	if cmd != nil && cmd.Flags().Changed("watch") {
		cfg.Catalog.Watch = serveFlags.watch
	}

	a, err := newAppFromConfig(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := cli.SetupSignalHandler(commandContext(cmd))
	defer stop()

	return serve(ctx, a, serveOptions{
		listenAddress: serveFlags.listenAddress,
		dryRun:        serveFlags.dryRun,
		out:           stdout(cmd),
	})
}

// serve runs until ctx is cancelled or the HTTP server fails.
func serve(ctx context.Context, a *app, opts serveOptions) error {
	logger := a.telemetry.Logger().With("component", "serve")
	checker := a.telemetry.Health()
	checker.RegisterCheck("engine", health.EngineCheck(a.engine))

	if a.storage != nil {
		checker.RegisterCheck("audit_storage", health.StorageCheck(a.storage))
		checker.RegisterCheck("audit_recorder", health.RecorderCheck(a.recorder))
	}

	var manager *catalog.Manager
	if path := a.cfg.Catalog.Path; path != "" {
		manager = catalog.NewManager(a.loader(), catalog.ManagerConfig{
			Path:     path,
			Debounce: a.cfg.Catalog.Debounce,
		}).WithTracer(a.telemetry.Tracer().Tracer())
		if err := manager.Load(); err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer manager.Close()
		checker.RegisterCheck("catalog", health.CatalogCheck(manager))
		fmt.Fprintf(opts.out, "✓ Catalog loaded (%d formulas)\n", manager.Len())
	}

	if opts.dryRun {
		fmt.Fprintln(opts.out, "✓ Configuration valid")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if manager != nil && a.cfg.Catalog.Watch {
		go func() {
			if err := manager.Watch(ctx); err != nil {
				logger.Error("catalog watch stopped", "error", err)
			}
		}()
		fmt.Fprintf(opts.out, "✓ Watching %s for changes\n", a.cfg.Catalog.Path)
	}

	if a.storage != nil {
		scheduler := a.pruner(a.retentionConfig()).Scheduler()
		if err := scheduler.Start(ctx); err != nil {
			logger.Warn("failed to start audit retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
			if next := scheduler.NextRun(); next != nil {
				logger.Debug("audit retention scheduler started", "next_run", next)
			}
		}
	}

	addr := a.cfg.Telemetry.Metrics.ListenAddress
	if opts.listenAddress != "" {
		addr = opts.listenAddress
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	srv := &http.Server{
		Handler:           a.telemetry.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	fmt.Fprintf(opts.out, "✓ Listening on %s\n", ln.Addr())
	fmt.Fprintf(opts.out, "✓ Health endpoint: http://%s/health\n", ln.Addr())
	if a.metrics().Enabled() {
		fmt.Fprintf(opts.out, "✓ Metrics endpoint: http://%s%s\n", ln.Addr(), a.cfg.Telemetry.Metrics.Path)
	}
	if opts.onListen != nil {
		opts.onListen(ln.Addr())
	}

	select {
	case err := <-errChan:
		return cli.NewCommandError("serve", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
		return cli.NewCommandError("serve", err)
	}
	fmt.Fprintln(opts.out, "✓ Server stopped")
	return nil
}
