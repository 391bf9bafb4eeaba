// Package components holds reusable bubbletea building blocks.
package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultMaxLines bounds the retained scrollback.
const DefaultMaxLines = 5000

// LogView is the scrollable message panel of the log viewer. New lines
// scroll it to the bottom while following. Only the newest maxLines lines
// are kept; the rest are counted as dropped.
type LogView struct {
	vp       viewport.Model
	lines    []string // rendered message lines
	follow   bool
	width    int
	height   int
	maxLines int
	dropped  int
}

// NewLogView creates a LogView with the given dimensions, initially in follow mode.
func NewLogView(w, h int) LogView {
	vp := viewport.New(w, h)
	return LogView{
		vp:       vp,
		follow:   true,
		width:    w,
		height:   h,
		maxLines: DefaultMaxLines,
	}
}

// WithMaxLines returns a copy retaining at most n lines (n <= 0 keeps all).
func (v LogView) WithMaxLines(n int) LogView {
	v.maxLines = n
	v.lines = v.trim(v.lines)
	v.vp.SetContent(strings.Join(v.lines, "\n"))
	return v
}

// Len returns the number of retained lines.
func (v LogView) Len() int {
	return len(v.lines)
}

// Dropped returns how many lines fell out of the retention window.
func (v LogView) Dropped() int {
	return v.dropped
}

func (v *LogView) trim(lines []string) []string {
	if v.maxLines > 0 && len(lines) > v.maxLines {
		v.dropped += len(lines) - v.maxLines
		return append([]string(nil), lines[len(lines)-v.maxLines:]...)
	}
	return lines
}

func (v *LogView) refresh() {
	v.vp.SetContent(strings.Join(v.lines, "\n"))
	if v.follow {
		v.vp.GotoBottom()
	}
}

// AppendLine appends one rendered message line.
func (v LogView) AppendLine(rendered string) LogView {
	v.lines = v.trim(append(v.lines, rendered))
	v.refresh()
	return v
}

// SetContent replaces every line and resets the dropped count. A nil
// slice empties the panel.
func (v LogView) SetContent(lines []string) LogView {
	v.dropped = 0
	v.lines = v.trim(append([]string(nil), lines...))
	v.refresh()
	return v
}

// ToggleFollow switches follow mode on or off.
// When turned on, scrolls immediately to the bottom.
func (v LogView) ToggleFollow() LogView {
	v.follow = !v.follow
	if v.follow {
		v.vp.GotoBottom()
	}
	return v
}

// SetSize resizes the log view to the given dimensions.
func (v LogView) SetSize(w, h int) LogView {
	v.width = w
	v.height = h
	v.vp.Width = w
	v.vp.Height = h
	if v.follow {
		v.vp.GotoBottom()
	}
	return v
}

// Following reports whether follow mode is currently active.
func (v LogView) Following() bool {
	return v.follow
}

// Update handles bubbletea messages (scroll keys, mouse events).
func (v LogView) Update(msg tea.Msg) (LogView, tea.Cmd) {
	var cmd tea.Cmd
	v.vp, cmd = v.vp.Update(msg)
	// If user scrolled away from bottom, exit follow mode.
	if v.follow && !v.vp.AtBottom() {
		// Only disable follow on explicit scroll messages, not on resize.
		switch msg.(type) {
		case tea.KeyMsg, tea.MouseMsg:
			v.follow = false
		}
	}
	return v, cmd
}

// View renders the log view content.
func (v LogView) View() string {
	return v.vp.View()
}
