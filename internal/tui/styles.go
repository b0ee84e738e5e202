package tui

import "github.com/charmbracelet/lipgloss"

var (
	appStyle = lipgloss.NewStyle().Foreground(colorText)

	headerAppStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	headerBarStyle = lipgloss.NewStyle().
			Background(colorMantle).
			Foreground(colorText)
	screenTitleStyle = lipgloss.NewStyle().
				Background(colorMantle).
				Foreground(colorMuted)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Background(colorSurface)
	statusErrBarStyle = lipgloss.NewStyle().
				Foreground(colorError).
				Background(colorSurface)
	footerStyle = lipgloss.NewStyle().Background(colorMantle)

	// TitleStyle and friends are shared with the screens package.
	TitleStyle   = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	SuccessStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	WarnStyle    = lipgloss.NewStyle().Foreground(colorWarn)
	ErrorStyle   = lipgloss.NewStyle().Foreground(colorError)
	KeyStyle     = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
)
