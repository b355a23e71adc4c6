// Package logging configures the process-wide structured logger.
//
// Components log through log/slog and derive their loggers from
// slog.Default() with a "component" attribute:
//
//	logger := slog.Default().With("component", "catalog.manager")
//
// The CLI calls Setup once at startup, from the telemetry.logging section of
// the configuration:
//
//	logger, err := logging.Setup(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//
// JSON output is the default. Text output is easier to read on a terminal.
package logging
