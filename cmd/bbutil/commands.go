package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/laburec/bbutil/internal/app"
	"github.com/laburec/bbutil/internal/config"
	"github.com/laburec/bbutil/internal/logging"
	"github.com/laburec/bbutil/internal/tui"
)

// moduleCmd exposes a registered module as a subcommand.
func moduleCmd(reg *app.Registry, mod *app.Module) *cobra.Command {
	cmd := &cobra.Command{
		Use:   mod.ID,
		Short: mod.Description,
		RunE: func(cmd *cobra.Command, args []string) error {
			if code := runModule(cmd, reg, mod.ID, args); code != app.ExitOK {
				return &exitError{code: code}
			}
			return nil
		},
	}
	if mod.Flags != nil {
		mod.Flags(cmd.Flags())
	}
	return cmd
}

// runModule loads the configuration, opens the logger and executes the
// module through a Console. It returns the Console exit code.
func runModule(cmd *cobra.Command, reg *app.Registry, id string, args []string) int {
	stderr := cmd.ErrOrStderr()

	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return app.ExitStart
	}

	useTUI, _ := cmd.Flags().GetBool("tui")
	opts := app.LogOptions{Stdout: cmd.OutOrStdout(), Stderr: stderr}
	var viewer *tui.Writer
	if useTUI {
		cfg.Threaded = true
		viewer = tui.NewWriter()
		opts.NoConsole = true
		opts.Extra = []logging.Writer{viewer}
	}

	log, err := app.NewLog(cfg, opts)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return app.ExitStart
	}
	if err := log.Open(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return app.ExitStart
	}
	// Close is a no-op when the console already closed the log.
	defer log.Close()

	ctx, stop := signalContext()
	defer stop()

	actx := &app.Context{
		Log:      log,
		Config:   cfg,
		Registry: reg,
		Flags:    cmd.Flags(),
		Args:     args,
		Out:      cmd.OutOrStdout(),
	}
	console := &app.Console{Registry: reg}

	if viewer == nil {
		return console.Execute(ctx, actx, id)
	}

	done := make(chan int, 1)
	go func() {
		code := console.Execute(ctx, actx, id)
		_ = log.Close()
		done <- code
	}()

	if err := tui.Run(ctx, viewer, tui.Options{
		Title:       log.App() + " " + id,
		AccentColor: cfg.TUI.AccentColor,
		MaxLines:    cfg.TUI.MaxLines,
	}); err != nil {
		fmt.Fprintln(stderr, "tui:", err)
	}
	return <-done
}

// loadConfig reads the configuration named by --config, or the nearest
// bbutil config file, and applies the global flag overrides. Without any
// config file the defaults are used.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	switch {
	case err == nil:
	case path == "" && errors.Is(err, config.ErrNotFound):
		dir, werr := os.Getwd()
		if werr != nil {
			return nil, fmt.Errorf("get working directory: %w", werr)
		}
		d := config.Defaults()
		d.App = config.DetectAppName(dir)
		cfg = &d
	default:
		return nil, err
	}

	if cmd.Flags().Changed("verbose") {
		v, _ := cmd.Flags().GetInt("verbose")
		if v < 0 || v > config.MaxVerbose {
			return nil, fmt.Errorf("--verbose must be between 0 and %d, got %d", config.MaxVerbose, v)
		}
		cfg.Verbose = v
	}
	if f, _ := cmd.Flags().GetString("log-file"); f != "" {
		cfg.LogFile = f
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Scaffold a bbutil project (config, locales dir, .gitignore)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			created, err := config.ScaffoldProject(dir)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatScaffoldResult(created))
			return nil
		},
	}
}

// formatScaffoldResult lists the created paths, or says nothing changed.
func formatScaffoldResult(created []string) string {
	if len(created) == 0 {
		return "All files already exist, nothing to create.\n"
	}
	var b strings.Builder
	for _, p := range created {
		fmt.Fprintf(&b, "  created  %s\n", p)
	}
	return b.String()
}
