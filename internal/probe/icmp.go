package probe

import (
	"context"
	"encoding/binary"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// ICMPProber implements the Prober interface with the kernel's ICMP
// support instead of hand-crafted packets. It first tries a raw ICMP
// listener and falls back to an unprivileged datagram socket, which lets
// traces run without root on hosts that allow ping sockets.
type ICMPProber struct {
	conn       *icmp.PacketConn
	privileged bool
	identifier uint16
	sequence   uint32
	timeout    time.Duration
}

// ICMPProberConfig holds configuration for the ICMP prober.
type ICMPProberConfig struct {
	Timeout    time.Duration
	Identifier uint16 // If 0, uses process ID
}

// NewICMPProber creates a new ICMP prober.
func NewICMPProber(config ICMPProberConfig) (*ICMPProber, error) {
	if config.Timeout == 0 {
		config.Timeout = 3 * time.Second
	}

	identifier := config.Identifier
	if identifier == 0 {
		identifier = uint16(os.Getpid() & 0xffff)
	}

	p := &ICMPProber{
		identifier: identifier,
		timeout:    config.Timeout,
	}

	var err error
	p.conn, err = icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err == nil {
		p.privileged = true
	} else {
		// Try unprivileged mode
		p.conn, err = icmp.ListenPacket("udp4", "0.0.0.0")
	}
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Probe sends an ICMP Echo Request with the given TTL and waits for a response.
func (p *ICMPProber) Probe(ctx context.Context, dest net.IP, ttl int) (*Result, error) {
	if ttl < 1 || ttl > 255 {
		return nil, ErrInvalidTTL
	}
	if dest.To4() == nil {
		return nil, ErrInvalidTarget
	}
	if p.conn == nil {
		return nil, ErrSocketClosed
	}

	if err := p.conn.IPv4PacketConn().SetTTL(ttl); err != nil {
		return nil, err
	}

	// Build ICMP message
	seq := uint16(atomic.AddUint32(&p.sequence, 1))
	payload := make([]byte, 8)
	binary.BigEndian.PutUint64(payload, uint64(time.Now().UnixNano()))

	msg := &icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   int(p.identifier),
			Seq:  int(seq),
			Data: payload,
		},
	}

	msgBytes, err := msg.Marshal(nil)
	if err != nil {
		return nil, err
	}

	// Set deadline
	deadline := time.Now().Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	p.conn.SetDeadline(deadline)

	var dst net.Addr = &net.IPAddr{IP: dest}
	if !p.privileged {
		// Datagram ICMP sockets want UDP addressing.
		dst = &net.UDPAddr{IP: dest}
	}

	sendTime := time.Now()
	if _, err := p.conn.WriteTo(msgBytes, dst); err != nil {
		return nil, err
	}

	return p.waitForResponse(ctx, dest, seq, sendTime)
}

// waitForResponse waits for an ICMP response matching our probe.
func (p *ICMPProber) waitForResponse(ctx context.Context, dest net.IP, expectedSeq uint16, sendTime time.Time) (*Result, error) {
	buf := make([]byte, 1500)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		n, peer, err := p.conn.ReadFrom(buf)
		if err != nil {
			if isTimeoutError(err) {
				return nil, ErrTimeout
			}
			return nil, err
		}

		// Parse the response
		result, matched := p.parseResponse(buf[:n], peer, expectedSeq, sendTime)
		if matched {
			return result, nil
		}
		// Not our packet, continue waiting
	}
}

// parseResponse parses an ICMP response and checks if it matches our probe.
func (p *ICMPProber) parseResponse(data []byte, peer net.Addr, expectedSeq uint16, sendTime time.Time) (*Result, bool) {
	msg, err := icmp.ParseMessage(1, data)
	if err != nil {
		return nil, false
	}

	rtt := time.Since(sendTime)
	peerIP := extractIP(peer)

	switch msg.Type {
	case ipv4.ICMPTypeEchoReply:
		// Echo Reply - destination reached
		echo, ok := msg.Body.(*icmp.Echo)
		if !ok {
			return nil, false
		}
		if uint16(echo.Seq) != expectedSeq {
			return nil, false
		}
		// Unprivileged sockets rewrite the identifier, so it is only
		// checked on the raw listener.
		if p.privileged && uint16(echo.ID) != p.identifier {
			return nil, false
		}
		return &Result{
			ResponseIP: peerIP,
			RTT:        rtt,
			ICMPType:   int(msg.Type.(ipv4.ICMPType)),
			ICMPCode:   int(msg.Code),
			Reached:    true,
			TTLExpired: false,
		}, true

	case ipv4.ICMPTypeTimeExceeded:
		// Time Exceeded - intermediate hop
		body, ok := msg.Body.(*icmp.TimeExceeded)
		if !ok {
			return nil, false
		}
		if !p.matchQuotedEcho(body.Data, expectedSeq) {
			return nil, false
		}
		return &Result{
			ResponseIP: peerIP,
			RTT:        rtt,
			ICMPType:   int(msg.Type.(ipv4.ICMPType)),
			ICMPCode:   int(msg.Code),
			Reached:    false,
			TTLExpired: true,
		}, true

	case ipv4.ICMPTypeDestinationUnreachable:
		// Destination Unreachable
		body, ok := msg.Body.(*icmp.DstUnreach)
		if !ok {
			return nil, false
		}
		if !p.matchQuotedEcho(body.Data, expectedSeq) {
			return nil, false
		}
		return &Result{
			ResponseIP: peerIP,
			RTT:        rtt,
			ICMPType:   int(msg.Type.(ipv4.ICMPType)),
			ICMPCode:   int(msg.Code),
			Reached:    true, // We reached the destination but it's unreachable
			TTLExpired: false,
		}, true
	}

	return nil, false
}

// matchQuotedEcho checks if an ICMP error quotes our echo request. The
// quote carries the original IP header plus at least 8 bytes of the echo,
// enough for the id and sequence fields.
func (p *ICMPProber) matchQuotedEcho(origData []byte, expectedSeq uint16) bool {
	if len(origData) < 28 { // 20 (IP) + 8 (ICMP header)
		return false
	}

	// IPv4 header length is in the first byte (lower 4 bits * 4)
	ipHeaderLen := int(origData[0]&0x0f) * 4
	if len(origData) < ipHeaderLen+8 {
		return false
	}

	icmpHeader := origData[ipHeaderLen:]
	if icmpHeader[0] != 8 { // ICMP Echo Request type
		return false
	}

	origID := binary.BigEndian.Uint16(icmpHeader[4:6])
	origSeq := binary.BigEndian.Uint16(icmpHeader[6:8])

	if origSeq != expectedSeq {
		return false
	}
	if p.privileged && origID != p.identifier {
		return false
	}
	return true
}

// Name returns the probe method name.
func (p *ICMPProber) Name() string {
	return "icmp"
}

// RequiresRoot reports whether the prober needed privileges; the datagram
// fallback does not.
func (p *ICMPProber) RequiresRoot() bool {
	return p.privileged
}

// Close releases resources held by the prober.
func (p *ICMPProber) Close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

// Helper functions

func extractIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.IPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	default:
		return nil
	}
}

func isTimeoutError(err error) bool {
	if netErr, ok := err.(net.Error); ok {
		return netErr.Timeout()
	}
	return false
}
