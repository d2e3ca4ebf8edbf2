package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds all the styles used in the dashboard.
type Styles struct {
	// Text styles
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Header   lipgloss.Style
	Subtle   lipgloss.Style

	// Status styles
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style

	// Counter panel styles
	Label lipgloss.Style
	Value lipgloss.Style

	// Problem counters (color-coded by value)
	CountOK  lipgloss.Style // zero
	CountBad lipgloss.Style // anything else

	// Container styles
	Box       lipgloss.Style
	StatusBar lipgloss.Style
}

// DefaultStyles returns the default style set.
func DefaultStyles() Styles {
	return Styles{
		// Text styles
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")),

		Subtle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		// Status styles
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")), // Green

		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red

		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")), // Orange

		// Counter panel styles
		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color("87")), // Cyan

		Value: lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")), // White

		// Problem counters
		CountOK: lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")), // Green

		CountBad: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")), // Red

		// Container styles
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2),

		StatusBar: lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1),
	}
}

// DarkTheme returns a dark theme style set.
func DarkTheme() Styles {
	return DefaultStyles()
}

// LightTheme returns a light theme style set.
func LightTheme() Styles {
	s := DefaultStyles()

	// Adjust colors for light backgrounds
	s.Subtle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	s.Header = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0"))
	s.Value = lipgloss.NewStyle().Foreground(lipgloss.Color("0"))

	return s
}

// MinimalTheme returns a minimal style set with fewer colors.
func MinimalTheme() Styles {
	s := DefaultStyles()

	// Use fewer, more muted colors
	s.Title = lipgloss.NewStyle().Bold(true)
	s.Label = lipgloss.NewStyle().Bold(true)
	s.Value = lipgloss.NewStyle()

	return s
}
