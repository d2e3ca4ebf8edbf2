// Package engine implements the native packet engine: wire-format crafting
// and parsing of ICMP/TCP/UDP packets, RFC 1071 checksums, a fixed-capacity
// buffer pool, and cross-platform raw-socket transport with reply correlation.
package engine

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Protocol tags a packet with its transport protocol, using IANA numbers.
type Protocol uint8

const (
	ProtocolICMP  Protocol = 1
	ProtocolTCP   Protocol = 6
	ProtocolUDP   Protocol = 17
	ProtocolOther Protocol = 255
)

// String returns the protocol name.
func (p Protocol) String() string {
	switch p {
	case ProtocolICMP:
		return "icmp"
	case ProtocolTCP:
		return "tcp"
	case ProtocolUDP:
		return "udp"
	default:
		return "other"
	}
}

// Wire-format sizes in bytes.
const (
	IPv4HeaderSize = 20
	ICMPHeaderSize = 8
	TCPHeaderSize  = 20
	UDPHeaderSize  = 8

	// MaxPacketSize is the largest encodable IPv4 packet.
	MaxPacketSize = 65535
)

// ICMP message types handled by the engine.
const (
	icmpEchoReply    = 0
	icmpUnreachable  = 3
	icmpEchoRequest  = 8
	icmpTimeExceeded = 11
)

// ICMP destination-unreachable codes.
const (
	icmpCodePortUnreachable = 3
)

// Packet is the in-memory representation of a constructed or parsed packet.
// Data holds the full IPv4 encoding; Data[:Length] is the valid region.
// Addresses are IPv4 in host order: "8.8.8.8" is 0x08080808.
type Packet struct {
	Protocol Protocol
	Length   int
	SrcIP    uint32
	DstIP    uint32
	SrcPort  uint16 // zero when not applicable (ICMP)
	DstPort  uint16
	TTL      uint8
	Checksum uint16 // transport-layer checksum embedded in the encoding

	// Timestamp is the engine's monotonic clock in microseconds, stamped
	// at craft time and at receive time.
	Timestamp uint64

	Data []byte
}

// Bytes returns the valid encoded region of the packet.
func (p *Packet) Bytes() []byte {
	if p.Length < 0 || p.Length > len(p.Data) {
		return nil
	}
	return p.Data[:p.Length]
}

// ParseIPv4 converts a dotted-quad string to a host-order uint32.
func ParseIPv4(s string) (uint32, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return 0, errorf(ErrInvalidParameter, "bad IPv4 address %q", s)
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, errorf(ErrInvalidParameter, "not an IPv4 address %q", s)
	}
	return binary.BigEndian.Uint32(v4), nil
}

// FormatIPv4 converts a host-order uint32 to dotted-quad form.
func FormatIPv4(ip uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip))
}

// FromNetIP converts a net.IP to the engine's uint32 form.
// Returns false for nil or non-IPv4 addresses.
func FromNetIP(ip net.IP) (uint32, bool) {
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(v4), true
}

// ToNetIP converts the engine's uint32 form to a net.IP.
func ToNetIP(ip uint32) net.IP {
	return net.IPv4(byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip))
}
