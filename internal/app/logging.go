package app

import (
	"fmt"
	"io"

	"github.com/laburec/bbutil/internal/config"
	"github.com/laburec/bbutil/internal/logging"
	"github.com/laburec/bbutil/internal/logging/console"
	"github.com/laburec/bbutil/internal/logging/file"
	"github.com/laburec/bbutil/internal/logging/zapsink"
)

// DefaultApp names the application when the configuration does not.
const DefaultApp = "bbutil"

// LogOptions select the writers NewLog registers.
type LogOptions struct {
	Stdout io.Writer
	Stderr io.Writer

	// NoConsole skips the console writer, e.g. when a TUI owns the terminal.
	NoConsole bool

	// Extra writers are registered after the built-in ones.
	Extra []logging.Writer
}

// NewLog builds an unopened logger from cfg: a console writer, plus a file
// or zap writer when cfg.LogFile is set.
func NewLog(cfg *config.Config, opts LogOptions) (*logging.Logging, error) {
	name := cfg.App
	if name == "" {
		name = DefaultApp
	}

	log := logging.New(
		logging.WithApp(name),
		logging.WithLevel(cfg.Verbose),
		logging.WithThreaded(cfg.Threaded),
	)

	if !opts.NoConsole {
		c := console.New()
		c.Setup(console.Options{ErrorIndex: []logging.Level{logging.LevelError, logging.LevelException}})
		if opts.Stdout != nil {
			c.Stdout = opts.Stdout
		}
		if opts.Stderr != nil {
			c.Stderr = opts.Stderr
		}
		log.Register(c)
	}

	if cfg.LogFile != "" {
		w, err := fileWriter(cfg)
		if err != nil {
			return nil, err
		}
		log.Register(w)
	}

	for _, w := range opts.Extra {
		log.Register(w)
	}
	return log, nil
}

func fileWriter(cfg *config.Config) (logging.Writer, error) {
	if cfg.LogFormat == "zap" {
		w, err := zapsink.NewProduction(cfg.LogFile)
		if err != nil {
			return nil, fmt.Errorf("app: zap log %s: %w", cfg.LogFile, err)
		}
		return w, nil
	}

	format := file.FormatText
	if cfg.LogFormat == "jsonl" {
		format = file.FormatJSONL
	}
	w, err := file.New(file.Config{
		Filename:   cfg.LogFile,
		AppendData: true,
		Format:     format,
		MaxSizeMB:  cfg.LogSizeMB,
		MaxBackups: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("app: log file %s: %w", cfg.LogFile, err)
	}
	return w, nil
}
