// Package probe provides the network probing implementations used by the
// tracer and the auditor. The default prober drives the raw packet engine;
// an unprivileged ICMP fallback covers hosts where raw sockets are denied.
package probe

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Prober defines the interface for different probe methods.
type Prober interface {
	// Probe sends a probe packet with the given TTL and returns the result.
	// The dest parameter is the target IP address.
	// The ttl parameter is the Time-To-Live value for the IP packet.
	// Returns a Result on success, or an error on failure.
	Probe(ctx context.Context, dest net.IP, ttl int) (*Result, error)

	// Name returns the probe method name (e.g., "icmp", "udp", "tcp").
	Name() string

	// RequiresRoot returns true if this probe method requires root/admin privileges.
	RequiresRoot() bool

	// Close releases any resources held by the prober.
	Close() error
}

// Result contains the result of a single probe.
type Result struct {
	// ResponseIP is the IP address that responded
	ResponseIP net.IP

	// RTT is the round-trip time
	RTT time.Duration

	// ICMPType is the ICMP message type (for ICMP-based responses)
	ICMPType int

	// ICMPCode is the ICMP message code
	ICMPCode int

	// Reached indicates if the destination was reached
	// (Echo Reply for ICMP, Port Unreachable for UDP, SYN-ACK/RST for TCP)
	Reached bool

	// TTLExpired indicates if the response was a TTL exceeded message
	TTLExpired bool
}

// Method represents the type of probe to use.
type Method int

const (
	// MethodICMP uses ICMP Echo Request packets
	MethodICMP Method = iota
	// MethodUDP uses UDP packets to high ports
	MethodUDP
	// MethodTCP uses TCP SYN packets
	MethodTCP
)

// String returns the string representation of the probe method.
func (m Method) String() string {
	switch m {
	case MethodICMP:
		return "icmp"
	case MethodUDP:
		return "udp"
	case MethodTCP:
		return "tcp"
	default:
		return "unknown"
	}
}

// ParseMethod parses a probe method name.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "icmp", "":
		return MethodICMP, nil
	case "udp":
		return MethodUDP, nil
	case "tcp":
		return MethodTCP, nil
	default:
		return 0, fmt.Errorf("unknown probe method %q (want icmp, udp, or tcp)", s)
	}
}

// Config holds the settings shared by all probers.
type Config struct {
	// Timeout is the maximum time to wait for a response.
	Timeout time.Duration

	// Port is the destination port for TCP probes (default 80) and the
	// base port for UDP probes (default 33434).
	Port int

	// Identifier distinguishes this prober's probes; 0 picks one.
	Identifier uint16
}

// New creates a prober for the given method. Raw-socket probing is
// preferred; when it is denied and the method is ICMP, the unprivileged
// datagram fallback is used instead.
func New(method Method, cfg Config) (Prober, error) {
	p, rawErr := NewRawProber(method, cfg)
	if rawErr == nil {
		return p, nil
	}

	if method == MethodICMP && IsPermissionError(rawErr) {
		fb, err := NewICMPProber(ICMPProberConfig{
			Timeout:    cfg.Timeout,
			Identifier: cfg.Identifier,
		})
		if err == nil {
			return fb, nil
		}
	}
	return nil, rawErr
}
