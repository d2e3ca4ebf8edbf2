// Package tui provides the interactive terminal dashboard for the
// traffic monitor.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/JustAaronHere/NetWeaver/internal/monitor"
	"github.com/JustAaronHere/NetWeaver/internal/netutil"
)

// State represents the current state of the dashboard.
type State int

const (
	StateRunning State = iota
	StateError
)

// Model is the Bubble Tea model for the monitor dashboard.
type Model struct {
	// Configuration
	config *monitor.Config
	width  int
	height int

	// State
	state      State
	current    monitor.Sample
	haveSample bool
	err        error
	elapsed    time.Duration
	startTime  time.Time

	// UI components
	spinner spinner.Model

	// Styles
	styles Styles

	// Channel for counter samples
	sampleChan chan monitor.Sample
	ctx        context.Context
	cancel     context.CancelFunc
}

// SampleMsg is sent when a new counter sample arrives.
type SampleMsg struct {
	Sample monitor.Sample
}

// ErrorMsg is sent when sampling fails.
type ErrorMsg struct {
	Err error
}

// TickMsg is sent to update elapsed time.
type TickMsg time.Time

// New creates a new dashboard model.
func New(config *monitor.Config) (*Model, error) {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ctx, cancel := context.WithCancel(context.Background())

	m := &Model{
		config:     config,
		state:      StateRunning,
		spinner:    s,
		styles:     DefaultStyles(),
		width:      80,
		height:     24,
		startTime:  time.Now(),
		sampleChan: make(chan monitor.Sample, 16),
		ctx:        ctx,
		cancel:     cancel,
	}

	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.runMonitor(),
		m.tickCmd(),
		m.waitForSample(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		m.elapsed = time.Since(m.startTime)
		if m.state == StateRunning {
			return m, m.tickCmd()
		}

	case SampleMsg:
		m.current = msg.Sample
		m.haveSample = true
		// Continue waiting for more samples
		return m, m.waitForSample()

	case ErrorMsg:
		m.state = StateError
		m.err = msg.Err
		m.cancel()
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	// Counter panel
	b.WriteString(m.renderStats())

	// Footer
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

// renderHeader renders the header section.
func (m Model) renderHeader() string {
	title := m.styles.Title.Render("NetWeaver Monitor")

	var status string
	switch m.state {
	case StateRunning:
		status = m.spinner.View() + " Sampling..."
	case StateError:
		status = m.styles.Error.Render("✗ Error")
	}

	info := fmt.Sprintf("Interface: %s | Interval: %s", m.interfaceName(), m.config.Interval)

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.styles.Subtle.Render(info),
		status,
	)
}

// renderStats renders the counter and rate panel.
func (m Model) renderStats() string {
	if !m.haveSample {
		return m.styles.Subtle.Render("Waiting for first sample...")
	}

	c := m.current.Counters
	r := m.current.Rates

	rows := []string{
		m.styles.Header.Render("Traffic"),
		m.renderRow("Recv", fmt.Sprintf("%s  (%s total)",
			netutil.FormatBandwidth(r.RecvBytesPerSec), netutil.FormatBytes(float64(c.BytesRecv)))),
		m.renderRow("Sent", fmt.Sprintf("%s  (%s total)",
			netutil.FormatBandwidth(r.SentBytesPerSec), netutil.FormatBytes(float64(c.BytesSent)))),
		"",
		m.styles.Header.Render("Packets"),
		m.renderRow("RX", fmt.Sprintf("%.0f pkt/s  (%d total)", r.RecvPacketsPerSec, c.PacketsRecv)),
		m.renderRow("TX", fmt.Sprintf("%.0f pkt/s  (%d total)", r.SentPacketsPerSec, c.PacketsSent)),
		"",
		m.styles.Header.Render("Health"),
		m.renderRow("Errors", m.colorizeCount(c.ErrsRecv+c.ErrsSent)),
		m.renderRow("Drops", m.colorizeCount(c.DropsRecv+c.DropsSent)),
	}

	return strings.Join(rows, "\n")
}

// renderRow renders one label-value line.
func (m Model) renderRow(label, value string) string {
	return fmt.Sprintf("  %s %s",
		m.styles.Label.Render(fmt.Sprintf("%-8s", label+":")),
		m.styles.Value.Render(value),
	)
}

// colorizeCount renders a problem counter green at zero, red otherwise.
func (m Model) colorizeCount(v uint64) string {
	s := fmt.Sprintf("%d", v)
	if v == 0 {
		return m.styles.CountOK.Render(s)
	}
	return m.styles.CountBad.Render(s)
}

// renderFooter renders the footer section.
func (m Model) renderFooter() string {
	parts := []string{
		fmt.Sprintf("Uptime: %s", m.elapsed.Truncate(time.Second)),
		"Press 'q' to quit",
	}
	return m.styles.Subtle.Render(strings.Join(parts, " | "))
}

func (m Model) interfaceName() string {
	if m.config.Interface == "" {
		return monitor.AllInterfaces
	}
	return m.config.Interface
}

// runMonitor starts the counter watch in the background.
func (m Model) runMonitor() tea.Cmd {
	return func() tea.Msg {
		mon, err := monitor.New(m.config)
		if err != nil {
			return ErrorMsg{Err: err}
		}

		err = mon.Watch(m.ctx, func(s monitor.Sample) {
			select {
			case m.sampleChan <- s:
			case <-m.ctx.Done():
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return ErrorMsg{Err: err}
		}
		return nil
	}
}

// waitForSample waits for a sample from the channel.
func (m Model) waitForSample() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-m.sampleChan:
			return SampleMsg{Sample: s}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// tickCmd returns a command that sends tick messages.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Close releases resources.
func (m *Model) Close() error {
	m.cancel()
	return nil
}
