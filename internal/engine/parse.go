package engine

import "encoding/binary"

const etherTypeIPv4 = 0x0800
const etherHeaderSize = 14

// Parse decodes a raw IPv4 packet into a Packet. It is the inverse of
// crafting: protocol, addresses, TTL, ports (TCP/UDP) and the transport
// checksum are recovered from the bytes. A leading Ethernet frame is
// skipped when one is present. The returned Packet aliases raw; it does
// not copy.
func Parse(raw []byte) (*Packet, error) {
	raw = stripEthernet(raw)

	if len(raw) < IPv4HeaderSize {
		return nil, errorf(ErrPacketParseFailed, "%d bytes, need %d", len(raw), IPv4HeaderSize)
	}
	if raw[0]>>4 != 4 {
		return nil, errorf(ErrPacketParseFailed, "IP version %d", raw[0]>>4)
	}

	ihl := int(raw[0]&0x0f) * 4
	if ihl < IPv4HeaderSize || ihl > len(raw) {
		return nil, errorf(ErrPacketParseFailed, "header length %d", ihl)
	}

	totalLen := int(binary.BigEndian.Uint16(raw[2:4]))
	if totalLen < ihl || totalLen > len(raw) {
		return nil, errorf(ErrPacketParseFailed, "total length %d of %d bytes", totalLen, len(raw))
	}

	p := &Packet{
		Length: totalLen,
		TTL:    raw[8],
		SrcIP:  binary.BigEndian.Uint32(raw[12:16]),
		DstIP:  binary.BigEndian.Uint32(raw[16:20]),
		Data:   raw,
	}

	seg := raw[ihl:totalLen]
	switch Protocol(raw[9]) {
	case ProtocolICMP:
		if len(seg) < ICMPHeaderSize {
			return nil, errorf(ErrPacketParseFailed, "ICMP segment %d bytes", len(seg))
		}
		p.Protocol = ProtocolICMP
		p.Checksum = binary.BigEndian.Uint16(seg[2:4])

	case ProtocolTCP:
		if len(seg) < TCPHeaderSize {
			return nil, errorf(ErrPacketParseFailed, "TCP segment %d bytes", len(seg))
		}
		p.Protocol = ProtocolTCP
		p.SrcPort = binary.BigEndian.Uint16(seg[0:2])
		p.DstPort = binary.BigEndian.Uint16(seg[2:4])
		p.Checksum = binary.BigEndian.Uint16(seg[16:18])

	case ProtocolUDP:
		if len(seg) < UDPHeaderSize {
			return nil, errorf(ErrPacketParseFailed, "UDP segment %d bytes", len(seg))
		}
		p.Protocol = ProtocolUDP
		p.SrcPort = binary.BigEndian.Uint16(seg[0:2])
		p.DstPort = binary.BigEndian.Uint16(seg[2:4])
		p.Checksum = binary.BigEndian.Uint16(seg[6:8])

	default:
		p.Protocol = ProtocolOther
	}

	return p, nil
}

// stripEthernet drops a leading Ethernet header when the bytes clearly do
// not start with an IPv4 header but carry the IPv4 ethertype.
func stripEthernet(raw []byte) []byte {
	if len(raw) > etherHeaderSize+IPv4HeaderSize &&
		raw[0]>>4 != 4 &&
		binary.BigEndian.Uint16(raw[12:14]) == etherTypeIPv4 {
		return raw[etherHeaderSize:]
	}
	return raw
}

// Validate performs a structural sanity check: non-zero length within the
// backing buffer, a well-formed IPv4 header, and a protocol tag consistent
// with the encoded bytes and their minimum header size. It does not verify
// checksums; use VerifyPacketChecksums for that.
func Validate(p *Packet) bool {
	if p == nil || p.Length == 0 || p.Length > len(p.Data) || p.Length > MaxPacketSize {
		return false
	}
	data := p.Data[:p.Length]
	if len(data) < IPv4HeaderSize || data[0]>>4 != 4 {
		return false
	}

	ihl := int(data[0]&0x0f) * 4
	if ihl < IPv4HeaderSize || ihl > p.Length {
		return false
	}
	if int(binary.BigEndian.Uint16(data[2:4])) > p.Length {
		return false
	}

	wire := Protocol(data[9])
	if p.Protocol != ProtocolOther && wire != p.Protocol {
		return false
	}

	switch wire {
	case ProtocolICMP:
		return p.Length >= ihl+ICMPHeaderSize
	case ProtocolTCP:
		return p.Length >= ihl+TCPHeaderSize
	case ProtocolUDP:
		return p.Length >= ihl+UDPHeaderSize
	}
	return true
}

// VerifyPacketChecksums recomputes the IPv4 header checksum and the
// transport checksum (pseudo-header for TCP/UDP) against the packet bytes.
// A packet crafted with a zero source address cannot be verified for
// TCP/UDP since the kernel rewrites the source on send.
func VerifyPacketChecksums(p *Packet) bool {
	if !Validate(p) {
		return false
	}
	data := p.Data[:p.Length]
	ihl := int(data[0]&0x0f) * 4

	if !ValidateChecksum(data[:ihl]) {
		return false
	}

	totalLen := int(binary.BigEndian.Uint16(data[2:4]))
	seg := data[ihl:totalLen]

	switch Protocol(data[9]) {
	case ProtocolICMP:
		return ValidateChecksum(seg)
	case ProtocolTCP, ProtocolUDP:
		src := binary.BigEndian.Uint32(data[12:16])
		dst := binary.BigEndian.Uint32(data[16:20])
		return transportChecksum(src, dst, Protocol(data[9]), seg) == 0
	}
	return true
}

// ICMPEchoInfo extracts the type, code, identifier and sequence fields from
// an ICMP packet. Identifier and sequence are meaningful for echo request
// and echo reply messages.
func ICMPEchoInfo(p *Packet) (typ, code uint8, id, seq uint16, ok bool) {
	if p == nil || p.Protocol != ProtocolICMP {
		return 0, 0, 0, 0, false
	}
	seg := icmpSegment(p)
	if seg == nil {
		return 0, 0, 0, 0, false
	}
	return seg[0], seg[1], binary.BigEndian.Uint16(seg[4:6]), binary.BigEndian.Uint16(seg[6:8]), true
}

// IsEchoReply reports whether p is an ICMP Echo Reply.
func IsEchoReply(p *Packet) bool {
	typ, _, _, _, ok := ICMPEchoInfo(p)
	return ok && typ == icmpEchoReply
}

// IsTimeExceeded reports whether p is an ICMP Time Exceeded message.
func IsTimeExceeded(p *Packet) bool {
	typ, _, _, _, ok := ICMPEchoInfo(p)
	return ok && typ == icmpTimeExceeded
}

// IsUnreachable reports whether p is an ICMP Destination Unreachable
// message, and if so whether the code is port-unreachable.
func IsUnreachable(p *Packet) (unreachable, port bool) {
	typ, code, _, _, ok := ICMPEchoInfo(p)
	if !ok || typ != icmpUnreachable {
		return false, false
	}
	return true, code == icmpCodePortUnreachable
}

// TCPFlags returns the flag byte of a TCP packet.
func TCPFlags(p *Packet) (uint8, bool) {
	if p == nil || p.Protocol != ProtocolTCP || p.Length > len(p.Data) {
		return 0, false
	}
	data := p.Data[:p.Length]
	if len(data) < IPv4HeaderSize {
		return 0, false
	}
	ihl := int(data[0]&0x0f) * 4
	if ihl < IPv4HeaderSize || ihl+TCPHeaderSize > p.Length {
		return 0, false
	}
	return data[ihl+13], true
}

// IsSynAck reports whether p is a TCP segment with SYN and ACK set, the
// reply an open port sends to a SYN probe.
func IsSynAck(p *Packet) bool {
	flags, ok := TCPFlags(p)
	return ok && flags&(tcpFlagSYN|tcpFlagACK) == tcpFlagSYN|tcpFlagACK
}

// IsRst reports whether p is a TCP segment with RST set, the reply a
// closed port sends to a SYN probe.
func IsRst(p *Packet) bool {
	flags, ok := TCPFlags(p)
	return ok && flags&tcpFlagRST != 0
}

// icmpSegment returns the ICMP bytes of p, nil if truncated.
func icmpSegment(p *Packet) []byte {
	if p.Length > len(p.Data) || p.Length < IPv4HeaderSize {
		return nil
	}
	data := p.Data[:p.Length]
	ihl := int(data[0]&0x0f) * 4
	if ihl < IPv4HeaderSize || ihl+ICMPHeaderSize > p.Length {
		return nil
	}
	return data[ihl:]
}

// QuotedPacket extracts the original IPv4 header quoted inside an ICMP
// error message (Time Exceeded, Destination Unreachable). Per RFC 792 the
// quote carries the offending IP header plus at least the first 8 bytes of
// its payload, enough to recover the probe's ports or echo id/seq.
func QuotedPacket(p *Packet) (*Packet, bool) {
	typ, _, _, _, ok := ICMPEchoInfo(p)
	if !ok || (typ != icmpTimeExceeded && typ != icmpUnreachable) {
		return nil, false
	}
	seg := icmpSegment(p)
	if len(seg) < ICMPHeaderSize+IPv4HeaderSize+8 {
		return nil, false
	}

	quoted := seg[ICMPHeaderSize:]
	if quoted[0]>>4 != 4 {
		return nil, false
	}
	ihl := int(quoted[0]&0x0f) * 4
	if ihl < IPv4HeaderSize || len(quoted) < ihl+8 {
		return nil, false
	}

	q := &Packet{
		Length: len(quoted),
		TTL:    quoted[8],
		SrcIP:  binary.BigEndian.Uint32(quoted[12:16]),
		DstIP:  binary.BigEndian.Uint32(quoted[16:20]),
		Data:   quoted,
	}

	// Only the first 8 bytes of the quoted payload are guaranteed, which
	// covers ports for TCP/UDP and id/seq for ICMP echo.
	inner := quoted[ihl:]
	switch Protocol(quoted[9]) {
	case ProtocolICMP:
		q.Protocol = ProtocolICMP
	case ProtocolTCP:
		q.Protocol = ProtocolTCP
		q.SrcPort = binary.BigEndian.Uint16(inner[0:2])
		q.DstPort = binary.BigEndian.Uint16(inner[2:4])
	case ProtocolUDP:
		q.Protocol = ProtocolUDP
		q.SrcPort = binary.BigEndian.Uint16(inner[0:2])
		q.DstPort = binary.BigEndian.Uint16(inner[2:4])
	default:
		q.Protocol = ProtocolOther
	}

	return q, true
}

// QuotedEchoInfo returns the id/seq of the echo request quoted inside an
// ICMP error message.
func QuotedEchoInfo(p *Packet) (id, seq uint16, ok bool) {
	q, ok := QuotedPacket(p)
	if !ok || q.Protocol != ProtocolICMP {
		return 0, 0, false
	}
	data := q.Data
	ihl := int(data[0]&0x0f) * 4
	if len(data) < ihl+ICMPHeaderSize {
		return 0, 0, false
	}
	inner := data[ihl:]
	return binary.BigEndian.Uint16(inner[4:6]), binary.BigEndian.Uint16(inner[6:8]), true
}
