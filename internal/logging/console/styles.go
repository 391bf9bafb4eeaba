package console

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/laburec/bbutil/internal/logging"
)

var (
	colorWhite  = lipgloss.Color("#FAFAFA")
	colorGray   = lipgloss.Color("#888888")
	colorBlue   = lipgloss.Color("#5B9BD5")
	colorGreen  = lipgloss.Color("#6BCB77")
	colorYellow = lipgloss.Color("#FFD93D")
	colorRed    = lipgloss.Color("#FF6B6B")
	colorOrange = lipgloss.Color("#FFA54F")
	colorPurple = lipgloss.Color("#7D56F4")
)

// Style is how one category label is printed.
type Style struct {
	Name  string
	Text  string
	Style lipgloss.Style
}

// Render pads the label to width and applies the style.
func (s Style) Render(width int) string {
	return s.Style.Render(padRight(s.Text, width))
}

func newStyle(name, text string, color lipgloss.Color, bold bool) Style {
	return Style{
		Name:  name,
		Text:  text,
		Style: lipgloss.NewStyle().Foreground(color).Bold(bold),
	}
}

// DefaultStyles returns the eight built-in category styles.
func DefaultStyles() map[string]Style {
	styles := []Style{
		newStyle(string(logging.LevelInform), "INFORM", colorGreen, false),
		newStyle(string(logging.LevelDebug1), "DEBUG1", colorBlue, false),
		newStyle(string(logging.LevelDebug2), "DEBUG2", colorBlue, false),
		newStyle(string(logging.LevelDebug3), "DEBUG3", colorGray, false),
		newStyle(string(logging.LevelWarn), "WARN", colorYellow, true),
		newStyle(string(logging.LevelError), "ERROR", colorRed, true),
		newStyle(string(logging.LevelException), "EXCEPTION", colorRed, false),
		newStyle(string(logging.LevelTimer), "TIMER", colorOrange, false),
	}
	out := make(map[string]Style, len(styles))
	for _, s := range styles {
		out[s.Name] = s
	}
	return out
}

var appStyle = lipgloss.NewStyle().Foreground(colorPurple).Bold(true)

var textStyle = lipgloss.NewStyle().Foreground(colorWhite)

func padRight(s string, width int) string {
	n := lipgloss.Width(s)
	if n >= width {
		return s
	}
	out := make([]byte, 0, len(s)+width-n)
	out = append(out, s...)
	for i := n; i < width; i++ {
		out = append(out, ' ')
	}
	return string(out)
}
