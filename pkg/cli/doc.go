/*
Package cli provides command-line interface utilities for formulactl.

The cli package includes output formatters, progress reporters, exit code
handling, and signal helpers shared by the formulactl subcommands.

Output Formatting:

Results are written as text, JSON, CSV, or JUnit XML. Text output uses the
result's RenderText method when present, or a Table as aligned columns:

	format, err := cli.ParseFormat(flags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, result); err != nil {
		return err
	}

Test results are converted to a TestReport for JUnit output.

Exit Codes:

Commands return an ExitError to choose the process status without printing
anything more, and main maps errors with ExitCode:

	if !result.Valid {
		return cli.Exit(cli.ExitFailure)
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
