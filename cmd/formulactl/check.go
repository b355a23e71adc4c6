package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/formula/pkg/cli"
	"mercator-hq/formula/pkg/formula/ast"
)

// Exit statuses of the check command besides 0.
const (
	checkFalse = cli.ExitFailure
	checkError = cli.ExitUsage
)

var checkFlags struct {
	vars     []string
	varsFile string
	catalog  string
	format   string
	quiet    bool
}

var checkCmd = &cobra.Command{
	Use:   "check CONDITION",
	Short: "Evaluate a condition",
	Long: `Evaluate a boolean condition against a set of variables.

The exit status is 0 when the condition holds, 1 when it does not, and 2
when it cannot be evaluated (rejected, malformed, or not a boolean).

Examples:
  # Print true or false
  formulactl check "playerLevel > enemyLevel and not fleeing" \
    --var playerLevel=5 --var enemyLevel=3 --var fleeing=false

  # Use only the exit status in scripts
  if formulactl check "hp < 10" --var hp=3 --quiet; then echo low; fi

  # Named condition from a catalog
  formulactl check canFlee --catalog rules/ --vars state.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: checkCondition,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringArrayVar(&checkFlags.vars, "var", nil, "variable as name=value (repeatable)")
	checkCmd.Flags().StringVar(&checkFlags.varsFile, "vars", "", "YAML or JSON file of variables")
	checkCmd.Flags().StringVar(&checkFlags.catalog, "catalog", "", "catalog file or directory; the argument is a condition name")
	checkCmd.Flags().StringVar(&checkFlags.format, "format", "text", "output format: text, json")
	checkCmd.Flags().BoolVarP(&checkFlags.quiet, "quiet", "q", false, "print nothing; report through the exit status")
}

func checkCondition(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(checkFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	vars, err := parseVars(checkFlags.varsFile, checkFlags.vars)
	if err != nil {
		return cli.NewConfigError("var", err.Error())
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var result *EvalResult
	if checkFlags.catalog != "" {
		cat, err := a.loader().Load(checkFlags.catalog)
		if err != nil {
			return cli.NewCommandError("check", err)
		}
		source := ""
		if entry, ok := cat.Get(args[0]); ok {
			source = entry.Expression
		}
		ok, err := cat.Condition(args[0], vars)
		result = newEvalResult(source, args[0], ast.Bool(ok), err)
	} else {
		ok, err := a.engine.EvaluateCondition(args[0], vars)
		result = newEvalResult(args[0], "", ast.Bool(ok), err)
	}

	status := func(r *EvalResult) error {
		switch {
		case !r.Valid:
			return cli.Exit(checkError)
		case r.Result.Truth():
			return nil
		default:
			return cli.Exit(checkFalse)
		}
	}

	if checkFlags.quiet {
		return status(result)
	}
	return writeEvalResult(cmd, format, result, status)
}
