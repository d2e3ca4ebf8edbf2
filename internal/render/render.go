// Package render writes command results to the terminal: classic
// traceroute text, detail tables, audit findings and the optimizer
// reports. Colors switch off automatically when output is not a
// terminal.
package render

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
)

// Config holds rendering options.
type Config struct {
	// Colors enables ANSI color output. Forced off when the output is
	// not a terminal.
	Colors bool

	// NoHostname disables hostname display
	NoHostname bool

	// Width is the terminal width (0 = auto-detect)
	Width int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Colors: true,
		Width:  0, // Auto-detect
	}
}

// Renderer formats results and writes them to one output.
type Renderer struct {
	out     io.Writer
	config  Config
	scheme  *ColorScheme
	colored bool
	isTTY   bool
}

// New creates a Renderer. Colors are dropped when out is not a
// terminal.
func New(out io.Writer, config Config) *Renderer {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = isTerminal(f)
	}
	if !isTTY {
		config.Colors = false
	}

	return &Renderer{
		out:     out,
		config:  config,
		scheme:  DefaultColorScheme(),
		colored: config.Colors,
		isTTY:   isTTY,
	}
}

// IsTTY returns whether the output is a terminal.
func (r *Renderer) IsTTY() bool {
	return r.isTTY
}

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ColorScheme defines colors for different output elements.
type ColorScheme struct {
	Hop      *color.Color
	IP       *color.Color
	Hostname *color.Color
	RTTLow   *color.Color // < 50ms
	RTTMed   *color.Color // 50-150ms
	RTTHigh  *color.Color // > 150ms
	Timeout  *color.Color
	Header   *color.Color
	Good     *color.Color
	Warn     *color.Color
	Crit     *color.Color
	Accent   *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Hop:      color.New(color.FgCyan, color.Bold),
		IP:       color.New(color.FgWhite),
		Hostname: color.New(color.FgGreen),
		RTTLow:   color.New(color.FgGreen),
		RTTMed:   color.New(color.FgYellow),
		RTTHigh:  color.New(color.FgRed),
		Timeout:  color.New(color.FgRed, color.Bold),
		Header:   color.New(color.FgWhite, color.Bold),
		Good:     color.New(color.FgGreen),
		Warn:     color.New(color.FgYellow),
		Crit:     color.New(color.FgRed, color.Bold),
		Accent:   color.New(color.FgCyan, color.Bold),
	}
}

// newTable builds a table with the house appearance.
func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetBorder(true)
	table.SetRowLine(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("│")
	table.SetColumnSeparator("│")
	table.SetRowSeparator("─")
	table.SetHeaderLine(true)
	table.SetTablePadding(" ")
	return table
}

// paint colors s when coloring is on, otherwise returns it as-is.
func (r *Renderer) paint(c *color.Color, s string) string {
	if !r.colored {
		return s
	}
	return c.Sprint(s)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
