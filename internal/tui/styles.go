package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7FDBCA")).
			Background(lipgloss.Color("#11151c")).
			Padding(0, 2)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#333333"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(1, 2)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	selectedNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#7FDBCA")).
				Bold(true)

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888"))

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5599FF"))

	hotkeysStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(0, 2)

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7FDBCA")).
			Padding(0, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4444")).
			Padding(0, 2)

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			Padding(0, 2)

	outputEmptyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#555555")).
				Padding(0, 2)

	confirmStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Padding(0, 2)

	statusActive = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	statusBusy   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))

	helpHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7FDBCA")).
			Bold(true)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5599FF"))

	helpDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
)
