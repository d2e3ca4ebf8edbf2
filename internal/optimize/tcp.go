package optimize

import (
	"fmt"
	"strconv"
)

// TCPParam is one kernel TCP setting alongside its recommended value.
type TCPParam struct {
	Name        string
	Description string
	Value       string
	Recommended string
	Satisfied   bool
}

// TCPReport lists the inspected TCP stack parameters.
type TCPReport struct {
	Params []TCPParam
}

// Tuned reports whether every inspected parameter matches its
// recommendation.
func (r *TCPReport) Tuned() bool {
	for _, p := range r.Params {
		if !p.Satisfied {
			return false
		}
	}
	return len(r.Params) > 0
}

// tcpTunables are the settings worth inspecting, with the values high
// bandwidth-delay paths want.
var tcpTunables = []struct {
	name, want, desc string
}{
	{"tcp_window_scaling", "1", "Window scaling for high bandwidth-delay paths"},
	{"tcp_timestamps", "1", "Timestamps for RTT estimation and PAWS"},
	{"tcp_sack", "1", "Selective acknowledgments"},
	{"tcp_fastopen", "3", "Fast Open for both client and server"},
	{"tcp_congestion_control", "bbr", "BBR congestion control"},
}

// InspectTCP reads the kernel's TCP tunables and compares each against
// its recommended value. Read-only: nothing is ever written back.
func (o *Optimizer) InspectTCP() (*TCPReport, error) {
	report := &TCPReport{}
	var lastErr error
	for _, t := range tcpTunables {
		value, err := readTCPSysctl(t.name)
		if err != nil {
			o.log.Debug("sysctl unavailable", "name", t.name, "error", err)
			lastErr = err
			continue
		}
		report.Params = append(report.Params, TCPParam{
			Name:        t.name,
			Description: t.desc,
			Value:       value,
			Recommended: t.want,
			Satisfied:   tunableSatisfied(t.name, value, t.want),
		})
	}
	if len(report.Params) == 0 {
		return nil, fmt.Errorf("no TCP parameters readable: %w", lastErr)
	}
	return report, nil
}

// tunableSatisfied compares a sysctl value against the recommendation.
// tcp_fastopen is a bitmask, so any superset of the wanted bits counts.
func tunableSatisfied(name, value, want string) bool {
	if name == "tcp_fastopen" {
		got, gotErr := strconv.Atoi(value)
		bits, wantErr := strconv.Atoi(want)
		if gotErr == nil && wantErr == nil {
			return got&bits == bits
		}
	}
	return value == want
}
