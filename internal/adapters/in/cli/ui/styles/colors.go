// Package styles holds the lipgloss palette and helpers used by siteback's
// terminal output. Colors are dropped automatically when stdout is not a TTY.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	Green  = lipgloss.Color("#00cc6a")
	Cyan   = lipgloss.Color("#00a0cc")
	Red    = lipgloss.Color("#ff4444")
	Yellow = lipgloss.Color("#fbbf24")

	Neutral200 = lipgloss.Color("#e5e5e5")
	Neutral500 = lipgloss.Color("#737373")
	Neutral700 = lipgloss.Color("#404040")

	ColorPrimary = Green
	ColorSuccess = Green
	ColorWarning = Yellow
	ColorError   = Red
	ColorInfo    = Cyan

	ColorText      = Neutral200
	ColorTextMuted = Neutral500
	ColorBorder    = Neutral700
)
