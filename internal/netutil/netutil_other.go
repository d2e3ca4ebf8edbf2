//go:build !linux

package netutil

import (
	"fmt"
	"net"
	"runtime"
)

// DefaultGateway is only implemented for Linux.
func DefaultGateway() (net.IP, error) {
	return nil, fmt.Errorf("default gateway lookup not supported on %s", runtime.GOOS)
}

// ARPTable is only implemented for Linux.
func ARPTable() ([]ARPEntry, error) {
	return nil, fmt.Errorf("arp table lookup not supported on %s", runtime.GOOS)
}
