package trace

import (
	"time"

	"github.com/JustAaronHere/NetWeaver/internal/logging"
	"github.com/JustAaronHere/NetWeaver/internal/probe"
)

// Config holds the configuration for a trace operation.
type Config struct {
	// Probe settings
	Method     probe.Method  // Probe method to use (default: ICMP)
	ProbeCount int           // Number of probes per hop (default: 3)
	MaxHops    int           // Maximum TTL/hops (default: 30)
	FirstHop   int           // Starting TTL (default: 1)
	Timeout    time.Duration // Per-probe timeout (default: 3s)
	DestPort   int           // Destination port for UDP/TCP probes (0 = method default)

	// Mode settings
	Sequential     bool // Use sequential mode instead of concurrent
	MaxConcurrency int  // Maximum concurrent probes (default: 10)

	// EnableRDNS resolves hop hostnames as they come in.
	EnableRDNS bool

	// Logger receives progress events; nil discards them.
	Logger *logging.Logger

	// Callback for real-time hop updates (streaming output)
	OnHop func(hop *Hop) // Called after each hop is probed
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Method:         probe.MethodICMP,
		ProbeCount:     3,
		MaxHops:        30,
		FirstHop:       1,
		Timeout:        3 * time.Second,
		DestPort:       0,
		MaxConcurrency: 10,
		EnableRDNS:     true,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxHops < 1 || c.MaxHops > 255 {
		return ErrInvalidMaxHops
	}
	if c.ProbeCount < 1 || c.ProbeCount > 10 {
		return ErrInvalidProbeCount
	}
	if c.Timeout < 100*time.Millisecond {
		return ErrInvalidTimeout
	}
	if c.FirstHop < 1 || c.FirstHop > c.MaxHops {
		return ErrInvalidFirstHop
	}
	if c.DestPort < 0 || c.DestPort > 65535 {
		return ErrInvalidDestPort
	}
	return nil
}
