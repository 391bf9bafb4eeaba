package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/laburec/bbutil/internal/logging"
	"github.com/laburec/bbutil/internal/tui/components"
)

const maxBarWidth = 50

// Model is the bubbletea model for the log viewer.
type Model struct {
	events <-chan tea.Msg
	theme  Theme
	title  string

	log      components.LogView
	bar      progress.Model
	progress *logging.Message

	counts map[logging.Level]int
	total  int

	width  int
	height int
	done   bool
}

// New creates a Model that consumes events from w.
func New(w *Writer, title, accentColor string) Model {
	return Model{
		events: w.Events(),
		theme:  NewTheme(accentColor),
		title:  title,
		log:    components.NewLogView(80, 21),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxBarWidth), progress.WithoutPercentage()),
		counts: make(map[logging.Level]int),
		width:  80,
		height: 24,
	}
}

// Init starts listening for log messages.
func (m Model) Init() tea.Cmd {
	return waitForMessage(m.events)
}

// waitForMessage blocks on the writer channel and returns the next message.
func waitForMessage(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return logClosedMsg{}
		}
		return msg
	}
}

// Done reports whether the log has been closed.
func (m Model) Done() bool { return m.done }

// Count returns how many messages of the given category were received.
func (m Model) Count(level logging.Level) int { return m.counts[level] }

// Update handles all incoming bubbletea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.log = m.log.SetSize(msg.Width, m.logHeight())
		m.bar.Width = min(maxBarWidth, max(msg.Width-10, 1))
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		if isQuitKey(key) {
			return m, tea.Quit
		}
		switch key {
		case followKey:
			m.log = m.log.ToggleFollow()
			return m, nil
		case clearKey:
			m.log = m.log.SetContent(nil)
			return m, nil
		}
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd

	case logMessageMsg:
		entry := logging.Message(msg)
		m.total++
		m.counts[entry.Level]++
		if entry.Level == logging.LevelProgress {
			m.progress = &entry
		} else {
			m.log = m.log.AppendLine(m.theme.RenderLine(entry))
		}
		return m, waitForMessage(m.events)

	case clearMsg:
		m.progress = nil
		return m, waitForMessage(m.events)

	case logClosedMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) logHeight() int {
	h := m.height - 3 // header, progress, footer
	if h < 1 {
		h = 1
	}
	return h
}

// View renders header, log, progress and footer.
func (m Model) View() string {
	header := m.theme.AccentHeaderStyle().Width(m.width).Render(
		strings.Join([]string{" " + m.title, fmt.Sprintf("%d messages", m.total)}, "  │  "),
	)
	return header + "\n" + m.log.View() + "\n" + m.renderProgress() + "\n" + m.renderFooter()
}

func (m Model) renderProgress() string {
	if m.progress == nil {
		return ""
	}
	return fmt.Sprintf("%s %6.2f%%  %d/%d", m.bar.ViewAs(m.progress.Value/100), m.progress.Value, m.progress.Counter, m.progress.Limit)
}

func (m Model) renderFooter() string {
	state := "running"
	if m.done {
		state = "closed"
	}
	follow := "off"
	if m.log.Following() {
		follow = "on"
	}
	lines := fmt.Sprintf("lines: %d", m.log.Len())
	if d := m.log.Dropped(); d > 0 {
		lines += fmt.Sprintf(" (+%d dropped)", d)
	}
	errs := m.counts[logging.LevelError] + m.counts[logging.LevelException]
	return footerStyle.Render(fmt.Sprintf("%s  %s  errors: %d  warnings: %d  [f] follow: %s  [c] clear  [q] quit",
		state, lines, errs, m.counts[logging.LevelWarn], follow))
}

// WithMaxLines returns a copy retaining at most n log lines. Zero keeps
// the default; a negative n keeps everything.
func (m Model) WithMaxLines(n int) Model {
	switch {
	case n > 0:
		m.log = m.log.WithMaxLines(n)
	case n < 0:
		m.log = m.log.WithMaxLines(0)
	}
	return m
}

// Options configure Run.
type Options struct {
	Title       string
	AccentColor string
	MaxLines    int
}

// Run shows the viewer until the writer closes, ctx is cancelled or the
// user quits. Later writes are dropped once the viewer is gone.
func Run(ctx context.Context, w *Writer, opts Options) error {
	defer w.Detach()
	m := New(w, opts.Title, opts.AccentColor).WithMaxLines(opts.MaxLines)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
