package scan

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotEmpty(t, cfg.Ports)
	assert.Equal(t, 500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.PortTimeout)
	assert.Equal(t, 64, cfg.Concurrency)
	assert.True(t, cfg.EnableRDNS)
	assert.True(t, cfg.ResolveMAC)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: nil,
		},
		{
			name:    "timeout too short",
			mutate:  func(c *Config) { c.Timeout = time.Millisecond },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "port timeout too short",
			mutate:  func(c *Config) { c.PortTimeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Concurrency = 0 },
			wantErr: ErrInvalidConcurrency,
		},
		{
			name:    "excessive concurrency",
			mutate:  func(c *Config) { c.Concurrency = 5000 },
			wantErr: ErrInvalidConcurrency,
		},
		{
			name:    "zero port",
			mutate:  func(c *Config) { c.Ports = []uint16{80, 0} },
			wantErr: ErrInvalidPort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Concurrency = -1

	_, err := New(cfg)
	require.Error(t, err)
}

func TestScanInvalidTarget(t *testing.T) {
	s := newTestScanner(t, hermeticConfig())
	defer s.Close()

	_, err := s.Scan(context.Background(), "not-a-network")
	assert.Error(t, err)
}

func TestScanContextCanceled(t *testing.T) {
	s := newTestScanner(t, hermeticConfig())
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Scan(ctx, "127.0.0.1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScannerCloseIdempotent(t *testing.T) {
	s := newTestScanner(t, hermeticConfig())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestConnectScanFindsListener(t *testing.T) {
	if rawSocketPermitted() == nil {
		t.Skip("Skipping: privileged scanner uses the raw-socket path")
	}

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	openPort := uint16(ln.Addr().(*net.TCPAddr).Port)

	cfg := hermeticConfig()
	cfg.Ports = []uint16{1, openPort} // tcpmux is refused on any sane host

	s, err := New(cfg)
	require.NoError(t, err)
	defer s.Close()

	result, err := s.Scan(context.Background(), "127.0.0.1")
	require.NoError(t, err)

	require.Equal(t, 1, result.TotalHosts)
	require.Equal(t, 1, result.ResponsiveHosts)
	require.Len(t, result.Devices, 1)

	dev := result.Devices[0]
	assert.True(t, dev.IP.Equal(net.ParseIP("127.0.0.1")))
	assert.Contains(t, dev.OpenPorts, openPort)
	assert.NotContains(t, dev.OpenPorts, uint16(1))
	assert.False(t, dev.LastSeen.IsZero())
}

func TestConnectProbeRefusedCountsAsAlive(t *testing.T) {
	if rawSocketPermitted() == nil {
		t.Skip("Skipping: privileged scanner uses the raw-socket path")
	}

	s, err := New(hermeticConfig())
	require.NoError(t, err)
	defer s.Close()

	// Loopback answers the liveness probe either with an accept or a
	// refusal; silence is impossible, so the host must register alive.
	alive := make(map[uint32]float64)
	s.connectSweep(context.Background(), []net.IP{net.ParseIP("127.0.0.1")}, alive)
	assert.Len(t, alive, 1)
}

func TestLatencyMs(t *testing.T) {
	assert.Equal(t, 0.0, latencyMs(100, 100))
	assert.Equal(t, 0.0, latencyMs(200, 100))
	assert.Equal(t, 1.5, latencyMs(1000, 2500))
}

func TestPortPairAddressing(t *testing.T) {
	s := &Scanner{config: DefaultConfig()}
	pr := portPair{host: 0x7f000001, port: 8080}

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(int(pr.port)))
	assert.Equal(t, "127.0.0.1:8080", addr)
	assert.False(t, s.connectPort(context.Background(), portPair{host: 0x7f000001, port: 1}))
}

// newTestScanner builds a scanner, skipping when the privileged path
// cannot determine a local source address (root in an isolated netns).
func newTestScanner(t *testing.T, cfg *Config) *Scanner {
	t.Helper()
	s, err := New(cfg)
	if err != nil && rawSocketPermitted() == nil {
		t.Skipf("privileged scanner unavailable: %v", err)
	}
	require.NoError(t, err)
	return s
}

// hermeticConfig keeps tests off the resolver and the ARP table.
func hermeticConfig() *Config {
	cfg := DefaultConfig()
	cfg.EnableRDNS = false
	cfg.ResolveMAC = false
	cfg.Timeout = 500 * time.Millisecond
	cfg.PortTimeout = 200 * time.Millisecond
	return cfg
}
