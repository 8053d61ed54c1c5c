package styles

// Plain glyphs so output stays readable in cron mail and log files.
const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "!"
	IconInfo    = "i"
)
