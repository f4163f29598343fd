// Package tui renders the interactive sandbox dashboard.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the dashboard and blocks until the user quits.
func Run(deps Deps) error {
	p := tea.NewProgram(newModel(deps), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
