package tui

import "github.com/charmbracelet/lipgloss"

//nolint:gochecknoglobals // shared lipgloss styles.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	okStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("46"))

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	// noticeStyle is for the subscription failure notice under the status line.
	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)
