// Package file provides a logging.Writer that appends one line per message
// to a log file, as plain text or JSONL, with optional size rotation.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/laburec/bbutil/internal/logging"
)

// Format selects the line encoding.
type Format string

const (
	FormatText  Format = "text"
	FormatJSONL Format = "jsonl"
)

var (
	// ErrNoFilename is returned when the writer has no target file.
	ErrNoFilename = errors.New("file: no filename")
	// ErrNoLogname is returned when a timestamped name is requested without a base name.
	ErrNoLogname = errors.New("file: logname is required with append_datetime")
	// ErrNotOpen is reported when writing before Open.
	ErrNotOpen = errors.New("file: writer is not open")
)

// Config describes where the log goes. Either Filename, or Path plus Name,
// must be set.
type Config struct {
	Filename string

	Path           string
	Name           string
	AppendDatetime bool

	// AppendData keeps existing content instead of truncating.
	AppendData bool
	Format     Format

	// MaxSizeMB > 0 rotates the file through lumberjack.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Index restricts the categories written; empty means all.
	Index []logging.Level
}

// syncer is satisfied by *os.File.
type syncer interface {
	Sync() error
}

// Writer is a file-backed logging.Writer.
type Writer struct {
	logging.Filter

	Filename string
	Format   Format

	cfg Config

	mu  sync.Mutex
	out io.WriteCloser

	// Fallback receives write failures; defaults to os.Stderr.
	Fallback io.Writer

	now func() time.Time
}

// New validates cfg and resolves the target filename.
func New(cfg Config) (*Writer, error) {
	w := &Writer{
		Filter:   logging.Filter{Index: cfg.Index},
		Format:   cfg.Format,
		cfg:      cfg,
		Fallback: os.Stderr,
		now:      time.Now,
	}
	if w.Format == "" {
		w.Format = FormatText
	}
	if w.Format != FormatText && w.Format != FormatJSONL {
		return nil, fmt.Errorf("file: unknown format %q", cfg.Format)
	}

	switch {
	case cfg.Filename != "":
		w.Filename = cfg.Filename
	case cfg.AppendDatetime && cfg.Name == "":
		return nil, ErrNoLogname
	case cfg.Path != "" && cfg.Name != "":
		w.Filename = filepath.Join(cfg.Path, w.logname())
	default:
		return nil, ErrNoFilename
	}
	return w, nil
}

func (w *Writer) logname() string {
	if !w.cfg.AppendDatetime {
		return w.cfg.Name + ".log"
	}
	return fmt.Sprintf("%s-%s.log", w.cfg.Name, w.now().Format("20060102-150405"))
}

func (w *Writer) Name() string { return "file" }

// Open creates the parent directory and opens the file.
func (w *Writer) Open() error {
	if w.Filename == "" {
		return ErrNoFilename
	}
	if err := os.MkdirAll(filepath.Dir(w.Filename), 0755); err != nil {
		return fmt.Errorf("file: mkdir %q: %w", filepath.Dir(w.Filename), err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cfg.MaxSizeMB > 0 {
		w.out = &lumberjack.Logger{
			Filename:   w.Filename,
			MaxSize:    w.cfg.MaxSizeMB,
			MaxBackups: w.cfg.MaxBackups,
			MaxAge:     w.cfg.MaxAgeDays,
			Compress:   w.cfg.Compress,
		}
		return nil
	}

	flags := os.O_CREATE | os.O_WRONLY
	if w.cfg.AppendData {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(w.Filename, flags, 0644)
	if err != nil {
		return fmt.Errorf("file: open %q: %w", w.Filename, err)
	}
	w.out = f
	return nil
}

// Close closes the file. Closing an unopened writer is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.out == nil {
		return nil
	}
	err := w.out.Close()
	w.out = nil
	if err != nil {
		return fmt.Errorf("file: close %q: %w", w.Filename, err)
	}
	return nil
}

// Clear has nothing to reset in a file.
func (w *Writer) Clear() error { return nil }

// Write appends one line and syncs. Failures go to Fallback.
func (w *Writer) Write(m logging.Message) {
	if err := w.write(m); err != nil && w.Fallback != nil {
		fmt.Fprintln(w.Fallback, err)
	}
}

func (w *Writer) write(m logging.Message) error {
	line, err := w.encode(m)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.out == nil {
		return ErrNotOpen
	}
	if _, err := w.out.Write(line); err != nil {
		return fmt.Errorf("file: write: %w", err)
	}
	if s, ok := w.out.(syncer); ok {
		if err := s.Sync(); err != nil {
			return fmt.Errorf("file: sync: %w", err)
		}
	}
	return nil
}

func (w *Writer) encode(m logging.Message) ([]byte, error) {
	if w.Format == FormatJSONL {
		data, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("file: marshal: %w", err)
		}
		return append(data, '\n'), nil
	}
	return []byte(m.Line() + "\n"), nil
}
