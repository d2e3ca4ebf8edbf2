package engine

import "encoding/binary"

// IPv4 flag bits (high bits of the flags/fragment-offset field).
const ipFlagDontFragment = 0x4000

// TCP header flags.
const (
	tcpFlagFIN = 0x01
	tcpFlagSYN = 0x02
	tcpFlagRST = 0x04
	tcpFlagACK = 0x10
)

const defaultTTL = 64
const tcpWindowSize = 65535

// CraftOption adjusts how a packet is encoded.
type CraftOption func(*craftOptions)

type craftOptions struct {
	ttl          int
	dontFragment bool
	payload      []byte
	srcIP        uint32
}

// WithTTL sets the IPv4 time-to-live. Valid range is 1-255.
func WithTTL(ttl int) CraftOption {
	return func(o *craftOptions) { o.ttl = ttl }
}

// WithDontFragment sets the IPv4 DF flag.
func WithDontFragment() CraftOption {
	return func(o *craftOptions) { o.dontFragment = true }
}

// WithPayload appends payload bytes after the ICMP header.
// Only CraftICMPEcho honors it; TCP SYN and UDP take payload explicitly.
func WithPayload(b []byte) CraftOption {
	return func(o *craftOptions) { o.payload = b }
}

// WithSourceIP overrides the IPv4 source address. CraftICMPEcho leaves the
// source zero by default so the kernel fills it on send.
func WithSourceIP(ip uint32) CraftOption {
	return func(o *craftOptions) { o.srcIP = ip }
}

func applyCraftOptions(opts []CraftOption) (craftOptions, error) {
	o := craftOptions{ttl: defaultTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ttl < 1 || o.ttl > 255 {
		return o, errorf(ErrInvalidParameter, "TTL %d out of range", o.ttl)
	}
	return o, nil
}

// CraftICMPEcho builds an ICMP Echo Request (type 8, code 0) with the given
// identifier and sequence number into p. The source address is left zero
// unless WithSourceIP is given; the kernel fills it on send.
func (e *Engine) CraftICMPEcho(p *Packet, dstIP uint32, id, seq uint16, opts ...CraftOption) error {
	if err := e.check(); err != nil {
		return err
	}
	o, err := applyCraftOptions(opts)
	if err != nil {
		return err
	}

	total := IPv4HeaderSize + ICMPHeaderSize + len(o.payload)
	if total > MaxPacketSize {
		return errorf(ErrPacketTooLarge, "ICMP payload %d bytes", len(o.payload))
	}
	buf, err := craftBuffer(p, total)
	if err != nil {
		return err
	}

	e.writeIPv4Header(buf, total, o, ProtocolICMP, o.srcIP, dstIP)

	// ICMP header: type, code, checksum, identifier, sequence
	icmp := buf[IPv4HeaderSize:total]
	icmp[0] = icmpEchoRequest
	icmp[1] = 0
	icmp[2], icmp[3] = 0, 0
	binary.BigEndian.PutUint16(icmp[4:6], id)
	binary.BigEndian.PutUint16(icmp[6:8], seq)
	copy(icmp[8:], o.payload)

	// Checksum covers the whole ICMP message
	cksum := Checksum(icmp)
	binary.BigEndian.PutUint16(icmp[2:4], cksum)

	p.Protocol = ProtocolICMP
	p.Length = total
	p.SrcIP = o.srcIP
	p.DstIP = dstIP
	p.SrcPort = 0
	p.DstPort = 0
	p.TTL = uint8(o.ttl)
	p.Checksum = cksum
	p.Timestamp = e.TimestampMicros()

	return nil
}

// CraftTCPSyn builds a minimal TCP SYN segment with an engine-chosen initial
// sequence number, zero acknowledgment, and a pseudo-header checksum. The IP
// header carries the DF flag, matching connection-opening segments from real
// stacks.
func (e *Engine) CraftTCPSyn(p *Packet, srcIP, dstIP uint32, srcPort, dstPort uint16, opts ...CraftOption) error {
	if err := e.check(); err != nil {
		return err
	}
	o, err := applyCraftOptions(opts)
	if err != nil {
		return err
	}
	o.dontFragment = true

	total := IPv4HeaderSize + TCPHeaderSize
	buf, err := craftBuffer(p, total)
	if err != nil {
		return err
	}

	e.writeIPv4Header(buf, total, o, ProtocolTCP, srcIP, dstIP)

	tcp := buf[IPv4HeaderSize:total]
	binary.BigEndian.PutUint16(tcp[0:2], srcPort)
	binary.BigEndian.PutUint16(tcp[2:4], dstPort)
	binary.BigEndian.PutUint32(tcp[4:8], e.randUint32()) // initial sequence number
	binary.BigEndian.PutUint32(tcp[8:12], 0)             // no acknowledgment
	tcp[12] = 0x50 // data offset = 5 words
	tcp[13] = tcpFlagSYN
	binary.BigEndian.PutUint16(tcp[14:16], tcpWindowSize)
	tcp[16], tcp[17] = 0, 0
	binary.BigEndian.PutUint16(tcp[18:20], 0) // urgent pointer

	cksum := transportChecksum(srcIP, dstIP, ProtocolTCP, tcp)
	binary.BigEndian.PutUint16(tcp[16:18], cksum)

	p.Protocol = ProtocolTCP
	p.Length = total
	p.SrcIP = srcIP
	p.DstIP = dstIP
	p.SrcPort = srcPort
	p.DstPort = dstPort
	p.TTL = uint8(o.ttl)
	p.Checksum = cksum
	p.Timestamp = e.TimestampMicros()

	return nil
}

// CraftUDP builds a UDP datagram carrying payload, with the length field
// covering header+payload and a pseudo-header checksum. A computed checksum
// of zero is transmitted as 0xffff per RFC 768.
func (e *Engine) CraftUDP(p *Packet, srcIP, dstIP uint32, srcPort, dstPort uint16, payload []byte, opts ...CraftOption) error {
	if err := e.check(); err != nil {
		return err
	}
	o, err := applyCraftOptions(opts)
	if err != nil {
		return err
	}

	total := IPv4HeaderSize + UDPHeaderSize + len(payload)
	if total > MaxPacketSize {
		return errorf(ErrPacketTooLarge, "UDP payload %d bytes", len(payload))
	}
	buf, err := craftBuffer(p, total)
	if err != nil {
		return err
	}

	e.writeIPv4Header(buf, total, o, ProtocolUDP, srcIP, dstIP)

	udp := buf[IPv4HeaderSize:total]
	binary.BigEndian.PutUint16(udp[0:2], srcPort)
	binary.BigEndian.PutUint16(udp[2:4], dstPort)
	binary.BigEndian.PutUint16(udp[4:6], uint16(UDPHeaderSize+len(payload)))
	udp[6], udp[7] = 0, 0
	copy(udp[8:], payload)

	cksum := transportChecksum(srcIP, dstIP, ProtocolUDP, udp)
	if cksum == 0 {
		cksum = 0xffff
	}
	binary.BigEndian.PutUint16(udp[6:8], cksum)

	p.Protocol = ProtocolUDP
	p.Length = total
	p.SrcIP = srcIP
	p.DstIP = dstIP
	p.SrcPort = srcPort
	p.DstPort = dstPort
	p.TTL = uint8(o.ttl)
	p.Checksum = cksum
	p.Timestamp = e.TimestampMicros()

	return nil
}

// craftBuffer returns the destination slice for an encoding of total bytes,
// allocating one when the packet has no backing buffer yet.
func craftBuffer(p *Packet, total int) ([]byte, error) {
	if p == nil {
		return nil, errorf(ErrInvalidParameter, "nil packet")
	}
	if p.Data == nil {
		p.Data = make([]byte, total)
		return p.Data, nil
	}
	if len(p.Data) < total {
		return nil, errorf(ErrBufferTooSmall, "output buffer %d bytes, need %d", len(p.Data), total)
	}
	return p.Data[:total], nil
}

// writeIPv4Header encodes a 20-byte IPv4 header with its checksum.
// A zero source address is legal: with IP_HDRINCL the kernel fills it.
func (e *Engine) writeIPv4Header(buf []byte, total int, o craftOptions, proto Protocol, srcIP, dstIP uint32) {
	flags := uint16(0)
	if o.dontFragment {
		flags = ipFlagDontFragment
	}

	buf[0] = 0x45 // version 4, header length 5 words
	buf[1] = 0    // TOS
	binary.BigEndian.PutUint16(buf[2:4], uint16(total))
	binary.BigEndian.PutUint16(buf[4:6], e.randUint16()) // identification
	binary.BigEndian.PutUint16(buf[6:8], flags)
	buf[8] = uint8(o.ttl)
	buf[9] = byte(proto)
	buf[10], buf[11] = 0, 0
	binary.BigEndian.PutUint32(buf[12:16], srcIP)
	binary.BigEndian.PutUint32(buf[16:20], dstIP)

	binary.BigEndian.PutUint16(buf[10:12], Checksum(buf[:IPv4HeaderSize]))
}
