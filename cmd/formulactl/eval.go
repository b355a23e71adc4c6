package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mercator-hq/formula/pkg/cli"
	"mercator-hq/formula/pkg/formula/ast"
)

var evalFlags struct {
	vars     []string
	varsFile string
	catalog  string
	format   string
}

var evalCmd = &cobra.Command{
	Use:   "eval EXPRESSION",
	Short: "Evaluate an expression",
	Long: `Evaluate an arithmetic or boolean expression against a set of variables.

The expression passes the security gate first; rejected expressions are
recorded in the audit store. With --catalog, the argument names a formula
in that catalog instead.

Examples:
  # Literal arithmetic
  formulactl eval "2 + 3 * 4"

  # Variables
  formulactl eval "max(attack - armor, 1) * 2" --var attack=12 --var armor=4

  # Variables from a file
  formulactl eval "hp / maxHp" --vars state.yaml

  # Named formula from a catalog
  formulactl eval damage --catalog rules/ --var attack=12 --var armor=4

  # JSON output
  formulactl eval "1 / 0" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: evalExpression,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringArrayVar(&evalFlags.vars, "var", nil, "variable as name=value (repeatable)")
	evalCmd.Flags().StringVar(&evalFlags.varsFile, "vars", "", "YAML or JSON file of variables")
	evalCmd.Flags().StringVar(&evalFlags.catalog, "catalog", "", "catalog file or directory; the argument is a formula name")
	evalCmd.Flags().StringVar(&evalFlags.format, "format", "text", "output format: text, json")
}

// EvalResult is the outcome of eval and check.
type EvalResult struct {
	Expression string     `json:"expression,omitempty"`
	Formula    string     `json:"formula,omitempty"`
	Valid      bool       `json:"valid"`
	Result     *ast.Value `json:"result,omitempty"`
	Type       string     `json:"type,omitempty"`
	Error      *ErrorInfo `json:"error,omitempty"`
}

// RenderText prints the result value or the error.
func (r *EvalResult) RenderText(w io.Writer) error {
	if r.Error != nil {
		renderError(w, r.Expression, r.Error)
		return nil
	}
	_, err := fmt.Fprintln(w, r.Result.String())
	return err
}

func newEvalResult(source, formulaName string, v ast.Value, err error) *EvalResult {
	r := &EvalResult{Expression: source, Formula: formulaName}
	if err != nil {
		r.Error = errorInfo(err)
		return r
	}
	r.Valid = true
	r.Result = &v
	r.Type = v.Kind().String()
	return r
}

func evalExpression(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(evalFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	vars, err := parseVars(evalFlags.varsFile, evalFlags.vars)
	if err != nil {
		return cli.NewConfigError("var", err.Error())
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var result *EvalResult
	if evalFlags.catalog != "" {
		cat, err := a.loader().Load(evalFlags.catalog)
		if err != nil {
			return cli.NewCommandError("eval", err)
		}
		entry, _ := cat.Get(args[0])
		v, err := cat.Evaluate(args[0], vars)
		source := ""
		if entry != nil {
			source = entry.Expression
		}
		result = newEvalResult(source, args[0], v, err)
	} else {
		v, err := a.engine.EvaluateExpression(args[0], vars)
		result = newEvalResult(args[0], "", v, err)
	}

	return writeEvalResult(cmd, format, result, func(r *EvalResult) error {
		if r.Valid {
			return nil
		}
		return cli.Exit(cli.ExitFailure)
	})
}

// writeEvalResult prints r and maps it to an exit status. Failed text results
// go to stderr.
func writeEvalResult(cmd *cobra.Command, format cli.OutputFormat, r *EvalResult, status func(*EvalResult) error) error {
	out := stdout(cmd)
	if format == cli.FormatText && !r.Valid {
		out = stderr(cmd)
	}
	if err := cli.NewFormatter(format).FormatTo(out, r); err != nil {
		return err
	}
	return status(r)
}
