package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

const rulesYAML = `version: "1"
formulas:
  - name: damage
    expression: max(attack - armor, 1) * multiplier
    tests:
      - name: armored
        vars: {attack: 10, armor: 4, multiplier: 2}
        expect: 12
  - name: can_flee
    kind: condition
    expression: speed > enemySpeed and not cornered
    tests:
      - vars: {speed: 5, enemySpeed: 3, cornered: false}
        expect: true
  - name: ratio
    expression: hits / attempts
    tests:
      - vars: {hits: 1, attempts: 0}
        error: division_by_zero
`

// setupEnv points the audit store at a fresh pure-Go SQLite database and
// resets the global flags.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FORMULA_AUDIT_BACKEND", "sqlite")
	t.Setenv("FORMULA_AUDIT_SQLITE_DRIVER", "sqlite")
	t.Setenv("FORMULA_AUDIT_SQLITE_PATH", filepath.Join(dir, "audit.db"))
	t.Setenv("FORMULA_LOG_LEVEL", "error")
	cfgFile = ""
	verbose = false
	return dir
}

func newTestCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetContext(context.Background())
	return cmd, &out, &errOut
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
