package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(fgColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	terminalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	commandStyle = lipgloss.NewStyle().Foreground(cyanColor).Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(successColor)
	activeStyle  = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(mutedColor)
	warnStyle    = lipgloss.NewStyle().Foreground(warningColor)
	errStyle     = lipgloss.NewStyle().Foreground(errorColor)
)

// checkStatus colours a CI check status.
func checkStatus(status string) string {
	switch status {
	case "passed", "success":
		return doneStyle.Render("✓ " + status)
	case "running":
		return warnStyle.Render("◑ " + status)
	case "failed":
		return errStyle.Render("✗ " + status)
	default:
		return status
	}
}
