package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/4thel00z/fnhist/internal"
	"github.com/charmbracelet/fang"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if tryExternalCommand(ctx) {
		return
	}

	rootCmd := NewRootCmd(version, newApp())
	if err := fang.Execute(ctx, rootCmd); err != nil {
		stop()
		os.Exit(1)
	}
}

func tryExternalCommand(ctx context.Context) bool {
	if len(os.Args) < 2 {
		return false
	}

	cmd := os.Args[1]
	if cmd == "" || cmd[0] == '-' {
		return false
	}
	if isBuiltin(cmd) {
		return false
	}

	if _, err := findExternal(cmd); err != nil {
		return false
	}

	if err := executeExternal(ctx, cmd, os.Args[2:], version); err != nil {
		fmt.Fprintf(os.Stderr, "fnhist %s: %v\n", cmd, err)
		os.Exit(1)
	}

	return true
}

func isBuiltin(name string) bool {
	for _, c := range NewRootCmd(version, newApp()).Commands() {
		if c.Name() == name || c.HasAlias(name) {
			return true
		}
	}
	switch name {
	case "help", "completion":
		return true
	}
	return false
}

type app struct {
	resolver *internal.ScopeResolver
}

func newApp() *app {
	return &app{resolver: internal.NewScopeResolver()}
}
