//go:build linux

package optimize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	sysctlNetIPv4 = "/proc/sys/net/ipv4"
	procNetSNMP   = "/proc/net/snmp"
)

// readTCPSysctl returns the trimmed value of one net.ipv4 tunable.
func readTCPSysctl(name string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(sysctlNetIPv4, name))
	if err != nil {
		return "", fmt.Errorf("reading sysctl %s: %w", name, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// readTCPRetransmits returns the kernel's cumulative count of
// retransmitted TCP segments.
func readTCPRetransmits() (uint64, error) {
	f, err := os.Open(procNetSNMP)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return parseSNMPField(f, "Tcp", "RetransSegs")
}
