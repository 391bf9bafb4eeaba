// Package console provides a logging.Writer for terminals: styled category
// labels, an inline progress bar and an stdout/stderr split.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/laburec/bbutil/internal/logging"
)

const (
	DefaultTextSpace = 15
	DefaultSeparator = "|"
	DefaultBarLen    = 50
)

// levelWidth is the column width of the category label.
const levelWidth = 9

// Writer prints messages to a terminal.
type Writer struct {
	logging.Filter

	Styles     map[string]Style
	ErrorIndex []logging.Level
	Encoding   string
	TextSpace  int
	Separator  string
	BarLen     int

	// LineWidth limits progress output; zero means unlimited. Open sets it
	// from the terminal when stdout is one.
	LineWidth int

	Stdout io.Writer
	Stderr io.Writer

	// UseError reports whether the last message went to Stderr.
	UseError bool

	bar progress.Model
}

// New returns a Writer with the default styles writing to os.Stdout and
// os.Stderr.
func New() *Writer {
	return &Writer{
		Styles:    DefaultStyles(),
		TextSpace: DefaultTextSpace,
		Separator: DefaultSeparator,
		BarLen:    DefaultBarLen,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
}

func (w *Writer) Name() string { return "console" }

// Options change the layout of a Writer. Zero fields keep the current
// value; a non-nil ErrorIndex replaces the index.
type Options struct {
	TextSpace  int
	Separator  string
	ErrorIndex []logging.Level
	BarLen     int
}

// Setup applies opts. Call it before Open, which sizes the bar.
func (w *Writer) Setup(opts Options) {
	if opts.TextSpace > 0 {
		w.TextSpace = opts.TextSpace
	}
	if opts.Separator != "" {
		w.Separator = opts.Separator
	}
	if opts.ErrorIndex != nil {
		w.ErrorIndex = opts.ErrorIndex
	}
	if opts.BarLen > 0 {
		w.BarLen = opts.BarLen
	}
}

// AddStyle registers or replaces the style used for the named category.
func (w *Writer) AddStyle(name, text, color string, bold bool) {
	if w.Styles == nil {
		w.Styles = DefaultStyles()
	}
	w.Styles[name] = newStyle(name, text, lipgloss.Color(color), bold)
}

// Open resolves the output encoding and terminal width.
func (w *Writer) Open() error {
	w.Encoding = "utf-8"
	if f, ok := w.Stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			w.LineWidth = width
		}
	}
	w.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(w.BarLen),
		progress.WithoutPercentage(),
	)
	return nil
}

func (w *Writer) Close() error { return nil }

// Clear returns the cursor to the start of the line on the stream used last.
func (w *Writer) Clear() error {
	_, err := io.WriteString(w.stream(), "\r")
	return err
}

func (w *Writer) Write(m logging.Message) {
	w.UseError = isIn(w.ErrorIndex, m.Level) && !m.Raw
	out := w.stream()

	switch {
	case m.Raw:
		_, _ = io.WriteString(out, m.Content+"\n")
	case m.Level == logging.LevelProgress:
		w.writeProgress(out, m)
	default:
		_, _ = io.WriteString(out, w.format(m))
	}
}

func (w *Writer) stream() io.Writer {
	if w.UseError {
		return w.Stderr
	}
	return w.Stdout
}

func (w *Writer) format(m logging.Message) string {
	level := string(m.Level)
	label := textStyle.Render(padRight(level, levelWidth))
	if style, ok := w.Styles[level]; ok {
		label = style.Render(levelWidth)
	}

	var b strings.Builder
	if m.App != "" {
		b.WriteString(appStyle.Render(m.App))
		b.WriteByte(' ')
	}
	b.WriteString(label)
	b.WriteByte(' ')
	b.WriteString(padRight(m.Tag, w.TextSpace))
	b.WriteByte(' ')
	b.WriteString(w.Separator)
	b.WriteByte(' ')
	b.WriteString(m.Content)
	b.WriteByte('\n')
	return b.String()
}

// writeProgress redraws the bar in place. The step that reaches the limit
// is followed by a newline so later output starts on a fresh line.
func (w *Writer) writeProgress(out io.Writer, m logging.Message) {
	percent := fmt.Sprintf(" %6.2f%%", m.Value)
	if w.LineWidth > 0 && w.BarLen+len(percent)+1 > w.LineWidth {
		return
	}
	if w.bar.Width != w.BarLen {
		w.bar = progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(w.BarLen),
			progress.WithoutPercentage(),
		)
	}

	_, _ = io.WriteString(out, "\r"+w.bar.ViewAs(m.Value/100)+percent)
	if m.Limit > 0 && m.Counter == m.Limit {
		_, _ = io.WriteString(out, "\n")
	}
}

func isIn(levels []logging.Level, level logging.Level) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}
