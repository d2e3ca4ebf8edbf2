package audit

import (
	"context"
	"net"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustAaronHere/NetWeaver/internal/netutil"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "127.0.0.1", cfg.Target)
	assert.Equal(t, 200*time.Millisecond, cfg.Timeout)
	assert.True(t, cfg.CheckARP)
	assert.True(t, cfg.CheckPorts)
	assert.True(t, cfg.CheckGateway)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "no target",
			mutate:  func(c *Config) { c.Target = "" },
			wantErr: ErrNoTarget,
		},
		{
			name:    "timeout too short",
			mutate:  func(c *Config) { c.Timeout = time.Millisecond },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "zero port",
			mutate:  func(c *Config) { c.Ports = []uint16{80, 0} },
			wantErr: ErrInvalidPort,
		},
		{
			name: "every check disabled",
			mutate: func(c *Config) {
				c.CheckARP = false
				c.CheckPorts = false
				c.CheckGateway = false
			},
			wantErr: ErrNoChecks,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Target = ""

	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestAuditPorts(t *testing.T) {
	ports := auditPorts()

	for _, want := range []uint16{22, 23, 135, 445, 3389, 8443} {
		assert.Contains(t, ports, want)
	}

	seen := make(map[uint16]bool)
	for i, p := range ports {
		assert.False(t, seen[p], "duplicate port %d", p)
		seen[p] = true
		if i > 0 {
			assert.Less(t, ports[i-1], p, "ports must be sorted")
		}
	}
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "info", SeverityInfo.String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "critical", SeverityCritical.String())
}

func TestReportCounts(t *testing.T) {
	r := &Report{Findings: []Finding{
		{Severity: SeverityInfo},
		{Severity: SeverityWarning},
		{Severity: SeverityWarning},
		{Severity: SeverityCritical},
	}}

	assert.Equal(t, 1, r.Criticals())
	assert.Equal(t, 2, r.Warnings())
}

func arpEntry(t *testing.T, ip, mac string) netutil.ARPEntry {
	t.Helper()
	hw, err := net.ParseMAC(mac)
	require.NoError(t, err)
	return netutil.ARPEntry{IP: net.ParseIP(ip).To4(), MAC: hw, Device: "eth0"}
}

func TestARPFindingsClean(t *testing.T) {
	entries := []netutil.ARPEntry{
		arpEntry(t, "192.168.1.1", "00:50:56:c0:00:08"),
		arpEntry(t, "192.168.1.100", "f0:18:98:12:34:56"),
	}

	findings := arpFindings(entries)
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityInfo, findings[0].Severity)
	assert.Contains(t, findings[0].Summary, "2 unique MACs")
}

func TestARPFindingsDuplicateMAC(t *testing.T) {
	entries := []netutil.ARPEntry{
		arpEntry(t, "192.168.1.1", "00:50:56:c0:00:08"),
		arpEntry(t, "192.168.1.50", "00:50:56:c0:00:08"),
		arpEntry(t, "192.168.1.100", "f0:18:98:12:34:56"),
	}

	findings := arpFindings(entries)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, checkARP, f.Check)
	assert.Equal(t, SeverityCritical, f.Severity)
	assert.Contains(t, f.Summary, "00:50:56:c0:00:08")
	assert.Contains(t, f.Summary, "2 addresses")
	assert.Equal(t, []string{"192.168.1.1", "192.168.1.50"}, f.Detail)
}

func TestPortFindings(t *testing.T) {
	t.Run("no open ports", func(t *testing.T) {
		findings := portFindings(nil)
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityInfo, findings[0].Severity)
	})

	t.Run("safe services only", func(t *testing.T) {
		findings := portFindings([]uint16{22, 443})
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityInfo, findings[0].Severity)
		assert.Equal(t, []string{"22 (SSH)", "443 (HTTPS)"}, findings[0].Detail)
	})

	t.Run("risky services warn", func(t *testing.T) {
		findings := portFindings([]uint16{445, 22, 23})
		require.Len(t, findings, 3)

		assert.Equal(t, SeverityInfo, findings[0].Severity)
		assert.Equal(t, []string{"22 (SSH)", "23 (Telnet)", "445 (SMB)"}, findings[0].Detail)

		assert.Equal(t, SeverityWarning, findings[1].Severity)
		assert.Contains(t, findings[1].Summary, "Telnet")
		assert.Equal(t, SeverityWarning, findings[2].Severity)
		assert.Contains(t, findings[2].Summary, "SMB")
	})

	t.Run("unknown service named as such", func(t *testing.T) {
		findings := portFindings([]uint16{4444})
		require.Len(t, findings, 1)
		assert.Equal(t, []string{"4444 (unknown)"}, findings[0].Detail)
	})
}

func TestGatewayFindings(t *testing.T) {
	gw := net.ParseIP("192.168.1.1")

	t.Run("silent gateway is informational", func(t *testing.T) {
		findings := gatewayFindings(gw, 0, 0)
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityInfo, findings[0].Severity)
		assert.Contains(t, findings[0].Summary, "did not answer")
	})

	t.Run("high latency warns", func(t *testing.T) {
		findings := gatewayFindings(gw, 250*time.Millisecond, 3)
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityWarning, findings[0].Severity)
		assert.Contains(t, findings[0].Summary, "latency high")
	})

	t.Run("normal latency is informational", func(t *testing.T) {
		findings := gatewayFindings(gw, 2*time.Millisecond, 3)
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityInfo, findings[0].Severity)
	})
}

func TestRunARPCheckOnly(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("Skipping: ARP table lives in /proc")
	}

	cfg := DefaultConfig()
	cfg.CheckPorts = false
	cfg.CheckGateway = false

	a, err := New(cfg)
	require.NoError(t, err)

	report, err := a.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, report.Findings)
	for _, f := range report.Findings {
		assert.Equal(t, checkARP, f.Check)
	}
	assert.NotZero(t, report.Duration)
}

func TestRunCanceledContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CheckARP = false

	a, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = a.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
