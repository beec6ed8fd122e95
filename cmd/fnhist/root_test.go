package main

import (
	"testing"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd("1.0.0", nil)

	if cmd == nil {
		t.Fatal("NewRootCmd returned nil")
	}
	if cmd.Use != "fnhist" {
		t.Errorf("expected Use='fnhist', got %q", cmd.Use)
	}
	if cmd.Version != "1.0.0" {
		t.Errorf("expected Version='1.0.0', got %q", cmd.Version)
	}
	if len(cmd.Commands()) != 0 {
		t.Errorf("expected no subcommands without an app, got %d", len(cmd.Commands()))
	}
}

func TestRootCmdHasFlags(t *testing.T) {
	cmd := NewRootCmd("1.0.0", nil)

	for _, name := range []string{"repo", "json", "log-level", "log-format", "priority"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected persistent flag %q to exist", name)
		}
	}
}

func TestRootCmdSubcommands(t *testing.T) {
	cmd := NewRootCmd("dev", newApp())

	for _, name := range []string{"search", "functions", "files", "commits", "watch", "config"} {
		if !isBuiltin(name) {
			t.Errorf("expected %q to be builtin", name)
		}
		found := false
		for _, c := range cmd.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("expected subcommand %q", name)
		}
	}
	if !isBuiltin("log") {
		t.Error("expected alias log to be builtin")
	}
	if isBuiltin("frobnicate") {
		t.Error("frobnicate is not builtin")
	}
}
