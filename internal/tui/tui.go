package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JustAaronHere/NetWeaver/internal/monitor"
)

// Run starts the monitor dashboard with the given configuration.
func Run(config *monitor.Config) error {
	model, err := New(config)
	if err != nil {
		return fmt.Errorf("failed to create dashboard model: %w", err)
	}
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}

	// Check if sampling failed underneath the dashboard
	if m, ok := finalModel.(Model); ok {
		if m.state == StateError && m.err != nil {
			return m.err
		}
	}

	return nil
}
