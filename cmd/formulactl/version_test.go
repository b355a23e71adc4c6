package main

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	versionCmd.Run(versionCmd, nil)

	for _, want := range []string{"formulactl " + Version, "Git Commit: " + GitCommit, runtime.Version()} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestBuildInfo(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	defer func() { Version, GitCommit = origVersion, origCommit }()

	Version = "1.2.3-test"
	GitCommit = "abc123"

	info := buildInfo()
	if info.Version != "1.2.3-test" || info.Commit != "abc123" || info.BuildTime != BuildDate {
		t.Errorf("buildInfo() = %+v", info)
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	want := []string{"eval", "check", "validate", "lint", "test", "audit", "serve", "bench", "completion", "version"}
	for _, name := range want {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q is not registered", name)
		}
	}
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			cmd, out, _ := newTestCommand()
			if err := completionCmd.RunE(cmd, []string{shell}); err != nil {
				t.Fatalf("completion %s: %v", shell, err)
			}
			if !strings.Contains(out.String(), "formulactl") {
				t.Errorf("completion %s output does not mention formulactl", shell)
			}
		})
	}
}
