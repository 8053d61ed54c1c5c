package styles

import "github.com/charmbracelet/lipgloss"

// Theme contains the composed styles for CLI output.
var Theme = struct {
	Title lipgloss.Style
	Muted lipgloss.Style
	Bold  lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
}{
	Title: lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary),
	Muted: lipgloss.NewStyle().Foreground(ColorTextMuted),
	Bold:  lipgloss.NewStyle().Bold(true).Foreground(ColorText),

	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Info:    lipgloss.NewStyle().Foreground(ColorInfo),
}

// RenderError returns a styled error message.
func RenderError(msg string) string {
	return Theme.Error.Render(IconError + " " + msg)
}

// RenderSuccess returns a styled success message.
func RenderSuccess(msg string) string {
	return Theme.Success.Render(IconSuccess + " " + msg)
}

// RenderWarning returns a styled warning message.
func RenderWarning(msg string) string {
	return Theme.Warning.Render(IconWarning + " " + msg)
}

// RenderInfo returns a styled info message.
func RenderInfo(msg string) string {
	return Theme.Info.Render(IconInfo + " " + msg)
}
