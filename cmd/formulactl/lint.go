package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/formula/pkg/catalog"
	"mercator-hq/formula/pkg/cli"
	ferrors "mercator-hq/formula/pkg/formula/errors"
)

// Lint issue severities.
const (
	severityError   = "error"
	severityWarning = "warning"
)

var lintFlags struct {
	strict bool
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint [PATH...]",
	Short: "Validate formula catalog files",
	Long: `Validate formula catalogs for syntax and semantic errors.

Each path is a catalog file or a directory of *.yaml / *.yml files. Without
a path, catalog.path from the configuration is used. The lint command checks:
  - YAML syntax and known fields
  - Formula names, kinds and duplicates
  - Every expression against the security gate and the parser
  - Formulas without test cases (warning)

Examples:
  # Lint a directory
  formulactl lint rules/

  # Strict mode (warnings as errors)
  formulactl lint rules/ --strict

  # JSON output for CI/CD
  formulactl lint rules/combat.yaml --format json`,
	RunE: lintCatalogs,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat warnings as errors")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json, csv")
}

// LintResult is the validation result for a single catalog path.
type LintResult struct {
	Path     string      `json:"path"`
	Valid    bool        `json:"valid"`
	Formulas int         `json:"formulas"`
	Issues   []LintIssue `json:"issues,omitempty"`
}

// LintIssue is a single lint error or warning.
type LintIssue struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Formula  string `json:"formula,omitempty"`
	Field    string `json:"field,omitempty"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// LintReport is the outcome of the lint command.
type LintReport struct {
	Results  []LintResult `json:"results"`
	Errors   int          `json:"errors"`
	Warnings int          `json:"warnings"`
}

// RenderText prints a line per path followed by its issues.
func (r *LintReport) RenderText(w io.Writer) error {
	for _, res := range r.Results {
		if res.Valid {
			fmt.Fprintf(w, "✓ %s (%d formulas)\n", res.Path, res.Formulas)
		} else {
			fmt.Fprintf(w, "✗ %s\n", res.Path)
		}
		for _, issue := range res.Issues {
			fmt.Fprintf(w, "  %s: %s\n", issue.Severity, issue.location())
			fmt.Fprintf(w, "    %s\n", issue.Message)
		}
	}
	_, err := fmt.Fprintf(w, "\n%d errors, %d warnings\n", r.Errors, r.Warnings)
	return err
}

// Header implements cli.Table.
func (r *LintReport) Header() []string {
	return []string{"path", "file", "line", "formula", "field", "code", "severity", "message"}
}

// Rows implements cli.Table.
func (r *LintReport) Rows() [][]string {
	var rows [][]string
	for _, res := range r.Results {
		for _, i := range res.Issues {
			line := ""
			if i.Line > 0 {
				line = strconv.Itoa(i.Line)
			}
			rows = append(rows, []string{res.Path, i.File, line, i.Formula, i.Field, i.Code, i.Severity, i.Message})
		}
	}
	return rows
}

func (i LintIssue) location() string {
	loc := i.File
	if i.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, i.Line)
	}
	if i.Formula != "" {
		loc = fmt.Sprintf("%s: formula %q", loc, i.Formula)
	}
	if i.Field != "" {
		loc += ": " + i.Field
	}
	return loc
}

func lintCatalogs(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(lintFlags.format, cli.FormatText, cli.FormatJSON, cli.FormatCSV)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	paths := args
	if len(paths) == 0 {
		path, err := a.catalogPath("")
		if err != nil {
			return err
		}
		paths = []string{path}
	}

	report := &LintReport{Results: make([]LintResult, 0, len(paths))}
	loader := a.loader()
	for _, path := range paths {
		res := lintPath(loader, path)
		for _, issue := range res.Issues {
			if issue.Severity == severityError {
				report.Errors++
			} else {
				report.Warnings++
			}
		}
		report.Results = append(report.Results, res)
	}

	if err := cli.NewFormatter(format).FormatTo(stdout(cmd), report); err != nil {
		return err
	}
	if report.Errors > 0 || (lintFlags.strict && report.Warnings > 0) {
		return cli.Exit(cli.ExitFailure)
	}
	return nil
}

func lintPath(loader *catalog.Loader, path string) LintResult {
	res := LintResult{Path: path}

	cat, err := loader.Load(path)
	if err != nil {
		var list *catalog.ErrorList
		if errors.As(err, &list) {
			for _, e := range list.Errors {
				res.Issues = append(res.Issues, issueFor(e))
			}
		} else {
			res.Issues = append(res.Issues, issueFor(err))
		}
		return res
	}

	res.Valid = true
	res.Formulas = cat.Len()
	for _, name := range cat.Names() {
		entry, _ := cat.Get(name)
		if len(entry.Tests) == 0 {
			res.Issues = append(res.Issues, LintIssue{
				File:     entry.File,
				Formula:  name,
				Field:    "tests",
				Message:  "formula has no test cases",
				Severity: severityWarning,
			})
		}
	}
	if lintFlags.strict && len(res.Issues) > 0 {
		res.Valid = false
	}
	return res
}

func issueFor(err error) LintIssue {
	issue := LintIssue{Message: err.Error(), Severity: severityError}

	var formulaErr *catalog.FormulaError
	var parseErr *catalog.ParseError
	var loadErr *catalog.LoadError
	switch {
	case errors.As(err, &formulaErr):
		issue.File = formulaErr.FilePath
		issue.Formula = formulaErr.Name
		issue.Field = formulaErr.Field
		issue.Message = withCause(formulaErr.Message, formulaErr.Cause)
		issue.Code = string(ferrors.CodeOf(formulaErr.Cause))
	case errors.As(err, &parseErr):
		issue.File = parseErr.FilePath
		issue.Line = parseErr.Line
		issue.Message = withCause(parseErr.Message, parseErr.Cause)
	case errors.As(err, &loadErr):
		issue.File = loadErr.FilePath
		issue.Message = withCause(loadErr.Message, loadErr.Cause)
	}
	issue.Message = oneLine(issue.Message)
	return issue
}

// oneLine joins the lines of a multi-line message, such as a yaml.v3 type
// error, so each issue stays on one line of text output.
func oneLine(message string) string {
	var parts []string
	for _, line := range strings.Split(message, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

func withCause(message string, cause error) string {
	if cause == nil {
		return message
	}
	return message + ": " + cause.Error()
}
