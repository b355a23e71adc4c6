package main

import (
	"encoding/json"
	"strings"
	"testing"

	"mercator-hq/formula/pkg/cli"
)

func setEvalFlags(format string, vars ...string) {
	evalFlags.vars = vars
	evalFlags.varsFile = ""
	evalFlags.catalog = ""
	evalFlags.format = format
}

func TestEvalExpression(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		expr string
		vars []string
		want string
	}{
		{"2 + 3 * 4", nil, "14\n"},
		{"max(attack - armor, 1) * 2", []string{"attack=12", "armor=4"}, "16\n"},
		{"hp < 10 and not boss", []string{"hp=3", "boss=false"}, "true\n"},
		{"7 / 2", nil, "3.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			setEvalFlags("text", tt.vars...)
			cmd, out, _ := newTestCommand()

			if err := evalExpression(cmd, []string{tt.expr}); err != nil {
				t.Fatalf("evalExpression() error = %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestEvalExpression_Errors(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		expr string
		code string
		pos  int
	}{
		{"1 / 0", "division_by_zero", 2},
		{"eval(1)", "denied_identifier", 0},
		{"missing + 1", "unknown_variable", 0},
		{"(1 + 2", "unbalanced_parens", 0},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			setEvalFlags("json")
			cmd, out, _ := newTestCommand()

			err := evalExpression(cmd, []string{tt.expr})
			if cli.ExitCode(err) != cli.ExitFailure || !cli.Silent(err) {
				t.Fatalf("evalExpression() error = %v, want silent exit 1", err)
			}

			var got EvalResult
			if err := json.Unmarshal(out.Bytes(), &got); err != nil {
				t.Fatalf("output is not JSON: %v\n%s", err, out.String())
			}
			if got.Valid || got.Error == nil {
				t.Fatalf("result = %+v, want an error", got)
			}
			if got.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", got.Error.Code, tt.code)
			}
			if got.Error.Position != tt.pos {
				t.Errorf("position = %d, want %d", got.Error.Position, tt.pos)
			}
		})
	}
}

func TestEvalExpression_TextErrorGoesToStderr(t *testing.T) {
	setupEnv(t)
	setEvalFlags("text")
	cmd, out, errOut := newTestCommand()

	err := evalExpression(cmd, []string{"10 / (5 - 5)"})
	if cli.ExitCode(err) != cli.ExitFailure {
		t.Fatalf("ExitCode = %d, want 1", cli.ExitCode(err))
	}
	if out.Len() != 0 {
		t.Errorf("stdout = %q, want empty", out.String())
	}
	want := "✗ division by zero in \"/\" [division_by_zero]\n  10 / (5 - 5)\n     ^\n"
	if errOut.String() != want {
		t.Errorf("stderr = %q, want %q", errOut.String(), want)
	}
}

func TestEvalExpression_Catalog(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "rules.yaml", rulesYAML)

	setEvalFlags("json", "attack=10", "armor=4", "multiplier=3")
	evalFlags.catalog = path
	cmd, out, _ := newTestCommand()

	if err := evalExpression(cmd, []string{"damage"}); err != nil {
		t.Fatalf("evalExpression() error = %v", err)
	}
	var got EvalResult
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.Formula != "damage" || got.Type != "number" || got.Result == nil || got.Result.Float() != 18 {
		t.Errorf("result = %+v, want damage = 18", got)
	}

	cmd, out, _ = newTestCommand()
	err := evalExpression(cmd, []string{"damag"})
	if cli.ExitCode(err) != cli.ExitFailure {
		t.Fatalf("unknown formula ExitCode = %d, want 1", cli.ExitCode(err))
	}
	if !strings.Contains(out.String(), "unknown_formula") {
		t.Errorf("output = %s, want unknown_formula", out.String())
	}
}

func TestEvalExpression_BadFlags(t *testing.T) {
	setupEnv(t)

	setEvalFlags("xml")
	if err := evalExpression(nil, []string{"1"}); cli.ExitCode(err) != cli.ExitUsage {
		t.Errorf("bad format: ExitCode = %d, want %d", cli.ExitCode(err), cli.ExitUsage)
	}

	setEvalFlags("text", "a=hello")
	if err := evalExpression(nil, []string{"a"}); cli.ExitCode(err) != cli.ExitUsage {
		t.Errorf("bad var: ExitCode = %d, want %d", cli.ExitCode(err), cli.ExitUsage)
	}
}
