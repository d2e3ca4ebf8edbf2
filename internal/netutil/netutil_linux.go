//go:build linux

package netutil

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

const (
	procRoute = "/proc/net/route"
	procARP   = "/proc/net/arp"

	routeFlagUp      = 0x1
	routeFlagGateway = 0x2
	arpFlagComplete  = 0x2
)

// DefaultGateway reads the default route's gateway from /proc/net/route.
func DefaultGateway() (net.IP, error) {
	f, err := os.Open(procRoute)
	if err != nil {
		return nil, fmt.Errorf("read routing table: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Scan() // header row

	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 8 {
			continue
		}

		flags, err := strconv.ParseUint(fields[3], 16, 32)
		if err != nil || flags&routeFlagUp == 0 || flags&routeFlagGateway == 0 {
			continue
		}
		if fields[1] != "00000000" {
			continue
		}

		gw, err := parseHexIPv4(fields[2])
		if err != nil {
			continue
		}
		return gw, nil
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read routing table: %w", err)
	}
	return nil, fmt.Errorf("no default gateway found")
}

// parseHexIPv4 decodes the kernel's little-endian hex address encoding.
func parseHexIPv4(s string) (net.IP, error) {
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("bad route address %q", s)
	}
	return net.IPv4(byte(v), byte(v>>8), byte(v>>16), byte(v>>24)).To4(), nil
}

// ARPTable reads the host's ARP cache. Incomplete entries are skipped.
func ARPTable() ([]ARPEntry, error) {
	f, err := os.Open(procARP)
	if err != nil {
		return nil, fmt.Errorf("read arp table: %w", err)
	}
	defer f.Close()

	var entries []ARPEntry
	sc := bufio.NewScanner(f)
	sc.Scan() // header row

	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 {
			continue
		}

		flags, err := strconv.ParseUint(strings.TrimPrefix(fields[2], "0x"), 16, 32)
		if err != nil || flags&arpFlagComplete == 0 {
			continue
		}

		ip := net.ParseIP(fields[0])
		mac, macErr := net.ParseMAC(fields[3])
		if ip == nil || macErr != nil {
			continue
		}

		entries = append(entries, ARPEntry{
			IP:     ip.To4(),
			MAC:    mac,
			Device: fields[5],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read arp table: %w", err)
	}
	return entries, nil
}
