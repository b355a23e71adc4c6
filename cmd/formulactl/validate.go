package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/formula/pkg/cli"
)

var validateFlags struct {
	file   string
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate [EXPRESSION...]",
	Short: "Check expressions without evaluating them",
	Long: `Run expressions through the security gate and the parser without
evaluating them. Rejections are recorded in the audit store.

With --file, expressions are read one per line; blank lines and lines
starting with # are skipped. "-" reads standard input.

Examples:
  # Validate one expression
  formulactl validate "max(a, b) * 2"

  # Validate a list of user-submitted expressions
  formulactl validate --file submitted.txt --format csv`,
	RunE: validateExpressions,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.file, "file", "f", "", `file of expressions, one per line ("-" for stdin)`)
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json, csv")
}

// ValidateResult is the outcome for one expression.
type ValidateResult struct {
	Line       int        `json:"line,omitempty"`
	Expression string     `json:"expression"`
	Valid      bool       `json:"valid"`
	Error      *ErrorInfo `json:"error,omitempty"`
}

// ValidateReport is the outcome of the validate command.
type ValidateReport struct {
	Results []ValidateResult `json:"results"`
	Valid   int              `json:"valid"`
	Invalid int              `json:"invalid"`
}

// RenderText prints one line per valid expression and the error for each
// rejected one.
func (r *ValidateReport) RenderText(w io.Writer) error {
	for _, res := range r.Results {
		if res.Valid {
			fmt.Fprintf(w, "✓ %s\n", res.Expression)
			continue
		}
		renderError(w, res.Expression, res.Error)
	}
	_, err := fmt.Fprintf(w, "\n%d valid, %d invalid\n", r.Valid, r.Invalid)
	return err
}

// Header implements cli.Table.
func (r *ValidateReport) Header() []string {
	return []string{"line", "expression", "valid", "code", "message"}
}

// Rows implements cli.Table.
func (r *ValidateReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Results))
	for _, res := range r.Results {
		code, message := "", ""
		if res.Error != nil {
			code, message = res.Error.Code, res.Error.Message
		}
		rows = append(rows, []string{
			strconv.Itoa(res.Line), res.Expression, strconv.FormatBool(res.Valid), code, message,
		})
	}
	return rows
}

type sourceLine struct {
	line int
	text string
}

func validateExpressions(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(validateFlags.format, cli.FormatText, cli.FormatJSON, cli.FormatCSV)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	var inputs []sourceLine
	for _, arg := range args {
		inputs = append(inputs, sourceLine{text: arg})
	}
	if validateFlags.file != "" {
		lines, err := readExpressions(cmd, validateFlags.file)
		if err != nil {
			return cli.NewCommandError("validate", err)
		}
		inputs = append(inputs, lines...)
	}
	if len(inputs) == 0 {
		return cli.NewConfigError("validate", "no expressions given; pass arguments or --file")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	report := &ValidateReport{Results: make([]ValidateResult, 0, len(inputs))}
	for _, in := range inputs {
		res := ValidateResult{Line: in.line, Expression: in.text, Valid: true}
		if err := a.engine.ValidateExpression(in.text); err != nil {
			res.Valid = false
			res.Error = errorInfo(err)
			report.Invalid++
		} else {
			report.Valid++
		}
		report.Results = append(report.Results, res)
	}

	if err := cli.NewFormatter(format).FormatTo(stdout(cmd), report); err != nil {
		return err
	}
	if report.Invalid > 0 {
		return cli.Exit(cli.ExitFailure)
	}
	return nil
}

func readExpressions(cmd *cobra.Command, path string) ([]sourceLine, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
		if cmd != nil {
			r = cmd.InOrStdin()
		}
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var lines []sourceLine
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		lines = append(lines, sourceLine{line: n, text: text})
	}
	return lines, scanner.Err()
}
