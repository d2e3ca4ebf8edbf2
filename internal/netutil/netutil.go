// Package netutil holds the address, port, and interface helpers shared by
// the scanner, tracer, and auditor: CIDR expansion, port-list parsing,
// service classification, and host-side network introspection.
package netutil

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"
)

// maxExpandedHosts caps CIDR expansion; anything wider than a /16 is
// rejected rather than silently truncated.
const maxExpandedHosts = 65534

// ExpandCIDR expands a CIDR range or single address into the list of host
// addresses it covers. Network and broadcast addresses are excluded; a /32
// (or bare address) yields that one host, and a /31 yields both ends per
// RFC 3021.
func ExpandCIDR(target string) ([]net.IP, error) {
	if !strings.Contains(target, "/") {
		ip := net.ParseIP(target)
		if ip == nil || ip.To4() == nil {
			return nil, fmt.Errorf("invalid IPv4 address %q", target)
		}
		return []net.IP{ip.To4()}, nil
	}

	ip, ipnet, err := net.ParseCIDR(target)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR %q: %w", target, err)
	}
	if ip.To4() == nil {
		return nil, fmt.Errorf("only IPv4 ranges are supported, got %q", target)
	}

	ones, bits := ipnet.Mask.Size()
	hostBits := bits - ones

	switch {
	case hostBits == 0:
		return []net.IP{ip.To4()}, nil
	case hostBits == 1:
		base := ipToUint32(ipnet.IP)
		return []net.IP{uint32ToIP(base), uint32ToIP(base + 1)}, nil
	}

	count := (uint32(1) << hostBits) - 2
	if count > maxExpandedHosts {
		return nil, fmt.Errorf("range %q expands to %d hosts, limit is %d", target, count, maxExpandedHosts)
	}

	network := ipToUint32(ipnet.IP)
	hosts := make([]net.IP, 0, count)
	for i := uint32(1); i <= count; i++ {
		hosts = append(hosts, uint32ToIP(network+i))
	}
	return hosts, nil
}

func ipToUint32(ip net.IP) uint32 {
	v4 := ip.To4()
	return uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3])
}

func uint32ToIP(v uint32) net.IP {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v)).To4()
}

// ParsePorts parses a port list like "80,443,8000-8010" into a sorted,
// de-duplicated slice.
func ParsePorts(spec string) ([]uint16, error) {
	seen := make(map[uint16]bool)

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if strings.Contains(part, "-") {
			bounds := strings.SplitN(part, "-", 2)
			lo, err := parsePort(bounds[0])
			if err != nil {
				return nil, fmt.Errorf("port range %q: %w", part, err)
			}
			hi, err := parsePort(bounds[1])
			if err != nil {
				return nil, fmt.Errorf("port range %q: %w", part, err)
			}
			if lo > hi {
				return nil, fmt.Errorf("port range %q: start after end", part)
			}
			for p := int(lo); p <= int(hi); p++ {
				seen[uint16(p)] = true
			}
			continue
		}

		p, err := parsePort(part)
		if err != nil {
			return nil, err
		}
		seen[p] = true
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf("no ports in %q", spec)
	}

	ports := make([]uint16, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	return ports, nil
}

func parsePort(s string) (uint16, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if n < 1 || n > 65535 {
		return 0, fmt.Errorf("port %d out of range", n)
	}
	return uint16(n), nil
}

// CommonPorts returns the default port set scanned when none is given.
func CommonPorts() []uint16 {
	return []uint16{
		21, 22, 23, 25, 53, 80, 110, 143, 443, 445,
		3306, 3389, 5432, 5900, 8080, 8443,
	}
}

var serviceNames = map[uint16]string{
	21:   "FTP",
	22:   "SSH",
	23:   "Telnet",
	25:   "SMTP",
	53:   "DNS",
	80:   "HTTP",
	110:  "POP3",
	135:  "MSRPC",
	139:  "NetBIOS",
	143:  "IMAP",
	443:  "HTTPS",
	445:  "SMB",
	1433: "MSSQL",
	3306: "MySQL",
	3389: "RDP",
	5432: "PostgreSQL",
	5900: "VNC",
	8080: "HTTP-Alt",
	8443: "HTTPS-Alt",
}

// ServiceName names the service conventionally bound to a port, or "".
func ServiceName(port uint16) string {
	return serviceNames[port]
}

var riskyPorts = map[uint16]bool{
	21:   true, // FTP, cleartext credentials
	23:   true, // Telnet
	135:  true, // MSRPC
	139:  true, // NetBIOS
	445:  true, // SMB
	1433: true, // MSSQL
	3389: true, // RDP
	5900: true, // VNC
}

// IsRiskyPort reports whether an exposed port is commonly abused.
func IsRiskyPort(port uint16) bool {
	return riskyPorts[port]
}

// RiskyPorts returns the audit probe set, sorted.
func RiskyPorts() []uint16 {
	ports := make([]uint16, 0, len(riskyPorts))
	for p := range riskyPorts {
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	return ports
}

// FormatBandwidth renders a byte rate with a binary unit prefix.
func FormatBandwidth(bytesPerSec float64) string {
	units := []string{"B/s", "KB/s", "MB/s", "GB/s"}
	value := bytesPerSec
	idx := 0
	for value >= 1024 && idx < len(units)-1 {
		value /= 1024
		idx++
	}
	return fmt.Sprintf("%.2f %s", value, units[idx])
}

// FormatBytes renders a byte count with a binary unit prefix.
func FormatBytes(bytes float64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	value := bytes
	idx := 0
	for value >= 1024 && idx < len(units)-1 {
		value /= 1024
		idx++
	}
	return fmt.Sprintf("%.2f %s", value, units[idx])
}

// FormatLatency renders a microsecond measurement in the most readable unit.
func FormatLatency(us float64) string {
	switch {
	case us < 1000:
		return fmt.Sprintf("%.2f µs", us)
	case us < 1000000:
		return fmt.Sprintf("%.2f ms", us/1000)
	default:
		return fmt.Sprintf("%.2f s", us/1000000)
	}
}

// AdaptiveTimeout scales a timeout from an observed average RTT, floored
// at 100ms so a quiet LAN does not starve slow responders.
func AdaptiveTimeout(avgRTT time.Duration) time.Duration {
	scaled := time.Duration(float64(avgRTT) * 2.5)
	if scaled < 100*time.Millisecond {
		return 100 * time.Millisecond
	}
	return scaled
}

// ResolveHost resolves a hostname or literal address to an IPv4 address.
func ResolveHost(host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
		return nil, fmt.Errorf("%q is not an IPv4 address", host)
	}

	addrs, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", host, err)
	}
	for _, addr := range addrs {
		if v4 := addr.To4(); v4 != nil {
			return v4, nil
		}
	}
	return nil, fmt.Errorf("no IPv4 address for %q", host)
}

// Interface describes one host network interface.
type Interface struct {
	Name     string
	MAC      net.HardwareAddr
	MTU      int
	Up       bool
	Loopback bool
	Addrs    []string
}

// Interfaces enumerates the host's network interfaces with their
// addresses.
func Interfaces() ([]Interface, error) {
	sys, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	out := make([]Interface, 0, len(sys))
	for _, ifi := range sys {
		entry := Interface{
			Name:     ifi.Name,
			MAC:      ifi.HardwareAddr,
			MTU:      ifi.MTU,
			Up:       ifi.Flags&net.FlagUp != 0,
			Loopback: ifi.Flags&net.FlagLoopback != 0,
		}
		if addrs, err := ifi.Addrs(); err == nil {
			for _, a := range addrs {
				entry.Addrs = append(entry.Addrs, a.String())
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// LocalIP finds the host's outbound IPv4 address by opening a UDP socket
// toward a public address; no packet is sent. Falls back to scanning
// interfaces when the host has no route.
func LocalIP() (net.IP, error) {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && addr.IP.To4() != nil {
			return addr.IP.To4(), nil
		}
	}

	ifaces, err := Interfaces()
	if err != nil {
		return nil, err
	}
	for _, ifi := range ifaces {
		if !ifi.Up || ifi.Loopback {
			continue
		}
		for _, a := range ifi.Addrs {
			if ip, _, err := net.ParseCIDR(a); err == nil && ip.To4() != nil {
				return ip.To4(), nil
			}
		}
	}
	return nil, fmt.Errorf("no usable IPv4 interface found")
}

// LocalNetwork returns the CIDR of the network the outbound interface
// sits on, like "192.168.1.0/24". When the owning interface cannot be
// identified a /24 around the local address is assumed.
func LocalNetwork() (string, error) {
	local, err := LocalIP()
	if err != nil {
		return "", err
	}

	ifaces, err := Interfaces()
	if err == nil {
		for _, ifi := range ifaces {
			for _, a := range ifi.Addrs {
				_, ipnet, err := net.ParseCIDR(a)
				if err != nil || ipnet.IP.To4() == nil {
					continue
				}
				if ipnet.Contains(local) {
					return ipnet.String(), nil
				}
			}
		}
	}

	masked := local.Mask(net.CIDRMask(24, 32))
	return fmt.Sprintf("%s/24", masked), nil
}

// vendorPrefixes maps well-known OUI prefixes to vendor names. Intentionally
// small: enough to recognize the virtualization and SBC hardware that shows
// up on lab networks.
var vendorPrefixes = map[[3]byte]string{
	{0x00, 0x50, 0x56}: "VMware",
	{0x00, 0x0c, 0x29}: "VMware",
	{0x08, 0x00, 0x27}: "VirtualBox",
	{0x52, 0x54, 0x00}: "QEMU/KVM",
	{0x00, 0x1c, 0x42}: "Parallels",
	{0xdc, 0xa6, 0x32}: "Raspberry Pi",
	{0xb8, 0x27, 0xeb}: "Raspberry Pi",
	{0xf0, 0x18, 0x98}: "Apple",
	{0x00, 0x1b, 0x63}: "Apple",
}

// VendorForMAC looks up the vendor for a MAC address OUI, or "Unknown".
func VendorForMAC(mac net.HardwareAddr) string {
	if len(mac) < 3 {
		return "Unknown"
	}
	if v, ok := vendorPrefixes[[3]byte{mac[0], mac[1], mac[2]}]; ok {
		return v
	}
	return "Unknown"
}

// ARPEntry is one row of the host's ARP table.
type ARPEntry struct {
	IP     net.IP
	MAC    net.HardwareAddr
	Device string
}
