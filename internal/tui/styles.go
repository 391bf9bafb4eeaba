// Package tui provides a bubbletea + lipgloss log viewer fed by a
// logging.Writer.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/laburec/bbutil/internal/logging"
)

// defaultAccentColor is the default accent color (indigo).
const defaultAccentColor = "#7D56F4"

var (
	colorWhite  = lipgloss.Color("#FAFAFA")
	colorGray   = lipgloss.Color("#888888")
	colorBlue   = lipgloss.Color("#5B9BD5")
	colorGreen  = lipgloss.Color("#6BCB77")
	colorYellow = lipgloss.Color("#FFD93D")
	colorRed    = lipgloss.Color("#FF6B6B")
	colorOrange = lipgloss.Color("#FFA54F")
)

var (
	footerStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	timestampStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	informStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	debugStyle = lipgloss.NewStyle().
			Foreground(colorBlue)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	timerStyle = lipgloss.NewStyle().
			Foreground(colorOrange)

	infoStyle = lipgloss.NewStyle().
			Foreground(colorWhite)
)

// levelStyle returns the label style for a category.
func levelStyle(level logging.Level) lipgloss.Style {
	switch level {
	case logging.LevelInform:
		return informStyle
	case logging.LevelDebug1, logging.LevelDebug2, logging.LevelDebug3:
		return debugStyle
	case logging.LevelWarn:
		return warnStyle
	case logging.LevelError, logging.LevelException:
		return errorStyle
	case logging.LevelTimer:
		return timerStyle
	default:
		return infoStyle
	}
}
