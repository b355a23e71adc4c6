package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mercator-hq/formula/pkg/catalog"
	"mercator-hq/formula/pkg/cli"
)

var testFlags struct {
	formulas []string
	format   string
	progress bool
}

var testCmd = &cobra.Command{
	Use:   "test [PATH]",
	Short: "Run the test cases embedded in a formula catalog",
	Long: `Load a formula catalog and run the test cases declared under each
formula's "tests" key. Without a path, catalog.path from the configuration
is used.

Examples:
  # Run every test
  formulactl test rules/

  # Run the tests of selected formulas
  formulactl test rules/ --formula damage --formula canFlee

  # JUnit XML for CI
  formulactl test rules/ --format junit > formula-tests.xml`,
	Args: cobra.MaximumNArgs(1),
	RunE: testCatalog,
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().StringArrayVar(&testFlags.formulas, "formula", nil, "only test this formula (repeatable)")
	testCmd.Flags().StringVar(&testFlags.format, "format", "text", "output format: text, json, junit")
	testCmd.Flags().BoolVar(&testFlags.progress, "progress", false, "show a progress bar on stderr")
}

// TestRun is the outcome of the test command.
type TestRun struct {
	Path    string               `json:"path"`
	Summary catalog.Summary      `json:"summary"`
	Results []catalog.TestResult `json:"results"`
}

// RenderText prints failures, and passing cases in verbose mode, followed by
// the summary.
func (r *TestRun) RenderText(w io.Writer) error {
	for _, res := range r.Results {
		if res.Passed {
			if verbose {
				fmt.Fprintf(w, "✓ %s/%s\n", res.Formula, res.Case)
			}
			continue
		}
		fmt.Fprintf(w, "✗ %s/%s: want %s, got %s\n", res.Formula, res.Case, res.Want, res.Got)
		if res.Message != "" {
			fmt.Fprintf(w, "    %s\n", res.Message)
		}
	}
	if r.Summary.Total == 0 {
		_, err := fmt.Fprintln(w, "no test cases found")
		return err
	}
	_, err := fmt.Fprintf(w, "%d tests: %d passed, %d failed\n", r.Summary.Total, r.Summary.Passed, r.Summary.Failed)
	return err
}

// Report converts the run for JUnit output. Each formula is a test suite.
func (r *TestRun) Report() *cli.TestReport {
	report := &cli.TestReport{Name: r.Path, Cases: make([]cli.TestCase, 0, len(r.Results))}
	for _, res := range r.Results {
		tc := cli.TestCase{Suite: res.Formula, Name: res.Case, Elapsed: res.Elapsed}
		if !res.Passed {
			tc.Failure = fmt.Sprintf("want %s, got %s", res.Want, res.Got)
			if res.Message != "" {
				tc.Failure += ": " + res.Message
			}
		}
		report.Cases = append(report.Cases, tc)
	}
	return report
}

func testCatalog(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(testFlags.format, cli.FormatText, cli.FormatJSON, cli.FormatJUnit)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	explicit := ""
	if len(args) > 0 {
		explicit = args[0]
	}
	path, err := a.catalogPath(explicit)
	if err != nil {
		return err
	}

	cat, err := a.loader().Load(path)
	if err != nil {
		return cli.NewCommandError("test", err)
	}

	names := testFlags.formulas
	if len(names) == 0 {
		names = cat.Names()
	}
	for _, name := range names {
		if _, ok := cat.Get(name); !ok {
			return cli.NewConfigError("formula", fmt.Sprintf("%q is not in the catalog", name))
		}
	}

	var progress cli.ProgressReporter
	if testFlags.progress {
		progress = cli.NewLabeledProgress(stderr(cmd), "Testing", "formulas")
		progress.Start(int64(len(names)))
	}

	run := &TestRun{Path: path, Results: []catalog.TestResult{}}
	for i, name := range names {
		run.Results = append(run.Results, cat.RunFormulaTests(name)...)
		if progress != nil {
			progress.Update(int64(i + 1))
		}
	}
	if progress != nil {
		progress.Finish()
	}
	run.Summary = catalog.Summarize(run.Results)

	var out any = run
	if format == cli.FormatJUnit {
		out = run.Report()
	}
	if err := cli.NewFormatter(format).FormatTo(stdout(cmd), out); err != nil {
		return err
	}
	if run.Summary.Failed > 0 {
		return cli.Exit(cli.ExitFailure)
	}
	return nil
}
