package main

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"mercator-hq/formula/pkg/cli"
)

const untestedYAML = `formulas:
  - name: heal
    expression: min(hp + 10, maxHp)
`

const brokenYAML = `formulas:
  - name: exploit
    expression: eval(1)
  - name: "bad name!"
    expression: 1 + 1
  - name: half
    expression: (x / 2
`

func setLintFlags(strict bool, format string) {
	lintFlags.strict = strict
	lintFlags.format = format
}

func TestLintCatalogs_Valid(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "rules.yaml", rulesYAML)
	setLintFlags(false, "text")
	cmd, out, _ := newTestCommand()

	if err := lintCatalogs(cmd, []string{path}); err != nil {
		t.Fatalf("lintCatalogs() error = %v", err)
	}
	if !strings.Contains(out.String(), "✓ "+path+" (3 formulas)") {
		t.Errorf("output = %q", out.String())
	}
}

func TestLintCatalogs_Warnings(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "untested.yaml", untestedYAML)

	setLintFlags(false, "text")
	if err := lintCatalogs(nil, []string{path}); err != nil {
		t.Errorf("warnings should not fail without --strict: %v", err)
	}

	setLintFlags(true, "json")
	cmd, out, _ := newTestCommand()
	err := lintCatalogs(cmd, []string{path})
	if cli.ExitCode(err) != cli.ExitFailure {
		t.Fatalf("strict ExitCode = %d, want 1", cli.ExitCode(err))
	}

	var report LintReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if report.Errors != 0 || report.Warnings != 1 {
		t.Errorf("errors/warnings = %d/%d, want 0/1", report.Errors, report.Warnings)
	}
	if res := report.Results[0]; res.Valid || res.Issues[0].Formula != "heal" || res.Issues[0].Field != "tests" {
		t.Errorf("result = %+v", res)
	}
}

func TestLintCatalogs_Errors(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "broken.yaml", brokenYAML)
	setLintFlags(false, "json")
	cmd, out, _ := newTestCommand()

	err := lintCatalogs(cmd, []string{path})
	if cli.ExitCode(err) != cli.ExitFailure {
		t.Fatalf("ExitCode = %d, want 1", cli.ExitCode(err))
	}

	var report LintReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if report.Errors != 3 {
		t.Fatalf("errors = %d, want 3: %+v", report.Errors, report.Results)
	}

	issues := report.Results[0].Issues
	if issues[0].Formula != "exploit" || issues[0].Code != "denied_identifier" || issues[0].Field != "expression" {
		t.Errorf("issue 0 = %+v", issues[0])
	}
	if issues[1].Formula != "bad name!" || issues[1].Field != "name" {
		t.Errorf("issue 1 = %+v", issues[1])
	}
	if issues[2].Formula != "half" || issues[2].Code != "unbalanced_parens" {
		t.Errorf("issue 2 = %+v", issues[2])
	}
	for _, issue := range issues {
		if issue.File != path {
			t.Errorf("File = %q, want %q", issue.File, path)
		}
	}
}

func TestLintCatalogs_ParseError(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "bad.yaml", "formulas:\n  - name: x\n    unknown_key: 1\n")
	setLintFlags(false, "csv")
	cmd, out, _ := newTestCommand()

	err := lintCatalogs(cmd, []string{path})
	if cli.ExitCode(err) != cli.ExitFailure {
		t.Fatalf("ExitCode = %d, want 1", cli.ExitCode(err))
	}
	records, err := csv.NewReader(strings.NewReader(out.String())).ReadAll()
	if err != nil {
		t.Fatalf("output is not CSV: %v\n%s", err, out.String())
	}
	if len(records) != 2 {
		t.Fatalf("csv = %q, want a header and one issue", out.String())
	}
	issue := records[1]
	if issue[0] != path || issue[1] != path || issue[2] != "3" {
		t.Errorf("issue = %q, want %s at line 3", issue, path)
	}
	if msg := issue[len(issue)-1]; strings.Contains(msg, "\n") || !strings.Contains(msg, "unknown_key") {
		t.Errorf("message = %q, want one line naming unknown_key", msg)
	}
}

func TestOneLine(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"yaml: unmarshal errors:\n  line 3: field x not found", "yaml: unmarshal errors: line 3: field x not found"},
		{"trailing\n", "trailing"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := oneLine(tt.in); got != tt.want {
			t.Errorf("oneLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLintCatalogs_ConfiguredPath(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("FORMULA_CATALOG_PATH", writeFile(t, dir, "rules.yaml", rulesYAML))
	setLintFlags(false, "text")

	if err := lintCatalogs(nil, nil); err != nil {
		t.Errorf("lintCatalogs() with catalog.path error = %v", err)
	}
}

func TestLintCatalogs_NoPath(t *testing.T) {
	setupEnv(t)
	setLintFlags(false, "text")

	if err := lintCatalogs(nil, nil); cli.ExitCode(err) != cli.ExitUsage {
		t.Errorf("ExitCode = %d, want %d", cli.ExitCode(err), cli.ExitUsage)
	}
}
