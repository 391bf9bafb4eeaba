package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/laburec/bbutil/internal/logging"
)

// Theme holds the accent-color-derived styles.
type Theme struct {
	accentStyle lipgloss.Style // header bar
	appStyle    lipgloss.Style // app name in log lines
}

// NewTheme creates a Theme from a hex accent color string (e.g. "#7D56F4").
// If accentColor is empty, the default accent color is used.
func NewTheme(accentColor string) Theme {
	color := defaultAccentColor
	if accentColor != "" {
		color = accentColor
	}
	c := lipgloss.Color(color)
	return Theme{
		accentStyle: lipgloss.NewStyle().
			Background(c).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true),
		appStyle: lipgloss.NewStyle().
			Foreground(c),
	}
}

// AccentHeaderStyle returns the style for the header bar.
func (t Theme) AccentHeaderStyle() lipgloss.Style {
	return t.accentStyle
}

// RenderLine renders one message as a single log line. Raw messages keep
// their content unstyled.
func (t Theme) RenderLine(m logging.Message) string {
	if m.Raw {
		return m.Content
	}

	ts := timestampStyle.Render(m.Time.Format("15:04:05"))
	label := levelStyle(m.Level).Render(fmt.Sprintf("%-9s", m.Level))

	parts := []string{ts}
	if m.App != "" {
		parts = append(parts, t.appStyle.Render(m.App))
	}
	parts = append(parts, label)
	if m.Tag != "" {
		parts = append(parts, m.Tag+":")
	}
	parts = append(parts, m.Content)
	return strings.Join(parts, " ")
}
