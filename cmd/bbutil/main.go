// Package main is the entry point for the bbutil CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/laburec/bbutil/internal/app"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	reg, err := newRegistry()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(app.ExitStart)
	}
	os.Exit(execute(rootCmd(reg), os.Stderr))
}

// exitError carries a Console exit code through cobra.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// execute runs root and maps its result to a process exit code.
func execute(root *cobra.Command, stderr io.Writer) int {
	err := root.Execute()
	var ee *exitError
	switch {
	case err == nil:
		return app.ExitOK
	case errors.As(err, &ee):
		return ee.code
	default:
		fmt.Fprintln(stderr, "Error:", err)
		return app.ExitStart
	}
}

// newRegistry returns the registry of built-in modules.
func newRegistry() (*app.Registry, error) {
	reg := app.NewRegistry()
	if err := reg.Register(exampleModule(), langModule(), dbModule()); err != nil {
		return nil, err
	}
	return reg, nil
}

func rootCmd(reg *app.Registry) *cobra.Command {
	root := &cobra.Command{
		Use:           "bbutil",
		Short:         "bbutil: logging, SQLite and gettext helpers",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.IntP("verbose", "v", -1, "verbosity 0-3 (-1 = use config)")
	pf.String("config", "", "configuration file (default: search bbutil.json upward)")
	pf.String("log-file", "", "also write the log to this file")
	pf.Bool("tui", false, "show the log in a terminal viewer")

	for _, mod := range reg.Modules() {
		root.AddCommand(moduleCmd(reg, mod))
	}
	root.AddCommand(initCmd())

	return root
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
