package board

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	errorColor   = lipgloss.Color("196")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	confirmStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(errorColor).
			Padding(0, 1)

	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(mutedColor)
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(primaryColor).Underline(true)
	cursorStyle    = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	doneStyle      = lipgloss.NewStyle().Foreground(mutedColor).Strikethrough(true)
	subtleStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	toastStyle     = lipgloss.NewStyle().Foreground(successColor)
	errorStyle     = lipgloss.NewStyle().Foreground(errorColor)
)
