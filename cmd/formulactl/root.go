package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/formula/pkg/cli"
	"mercator-hq/formula/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "formulactl",
	Short: "Validate, evaluate and test sandboxed formulas",
	Long: `formulactl works with sandboxed formulas: small arithmetic and boolean
expressions evaluated against a set of named variables.

It provides:
  - Expression evaluation and condition checks
  - Security validation of untrusted expressions
  - Linting and testing of formula catalogs
  - Queries over the audit log of rejected expressions
  - A long-running mode with catalog hot reload, audit retention and metrics

Configuration is read from --config (YAML) and FORMULA_* environment
variables. Without a config file the defaults apply.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit status.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil && !cli.Silent(err) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output and debug logging")
}

// loadConfig reads the configuration named by --config with environment
// overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("config", err.Error())
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}
