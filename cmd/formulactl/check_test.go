package main

import (
	"testing"

	"mercator-hq/formula/pkg/cli"
)

func setCheckFlags(quiet bool, vars ...string) {
	checkFlags.vars = vars
	checkFlags.varsFile = ""
	checkFlags.catalog = ""
	checkFlags.format = "text"
	checkFlags.quiet = quiet
}

func TestCheckCondition(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name     string
		expr     string
		vars     []string
		quiet    bool
		wantCode int
		wantOut  string
	}{
		{"true", "playerLevel > enemyLevel and not fleeing", []string{"playerLevel=5", "enemyLevel=3", "fleeing=false"}, false, cli.ExitOK, "true\n"},
		{"false", "hp < 10", []string{"hp=30"}, false, checkFalse, "false\n"},
		{"quiet true", "1 < 2", nil, true, cli.ExitOK, ""},
		{"quiet false", "1 > 2", nil, true, checkFalse, ""},
		{"not boolean", "1 + 1", nil, false, checkError, ""},
		{"rejected", "window.alert(1)", nil, true, checkError, ""},
		{"unknown variable", "x > 1", nil, false, checkError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setCheckFlags(tt.quiet, tt.vars...)
			cmd, out, _ := newTestCommand()

			err := checkCondition(cmd, []string{tt.expr})
			if got := cli.ExitCode(err); got != tt.wantCode {
				t.Fatalf("ExitCode = %d, want %d (err %v)", got, tt.wantCode, err)
			}
			if err != nil && !cli.Silent(err) {
				t.Errorf("error %v should be silent", err)
			}
			if out.String() != tt.wantOut {
				t.Errorf("output = %q, want %q", out.String(), tt.wantOut)
			}
		})
	}
}

func TestCheckCondition_Catalog(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "rules.yaml", rulesYAML)

	setCheckFlags(false, "speed=2", "enemySpeed=3", "cornered=false")
	checkFlags.catalog = path
	cmd, out, _ := newTestCommand()

	err := checkCondition(cmd, []string{"can_flee"})
	if cli.ExitCode(err) != checkFalse {
		t.Fatalf("ExitCode = %d, want %d", cli.ExitCode(err), checkFalse)
	}
	if out.String() != "false\n" {
		t.Errorf("output = %q, want %q", out.String(), "false\n")
	}
}
