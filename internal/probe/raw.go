package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/JustAaronHere/NetWeaver/internal/engine"
	"github.com/JustAaronHere/NetWeaver/internal/netutil"
)

const (
	defaultTCPPort     = 80
	defaultUDPBasePort = 33434

	// recvSlice bounds each engine receive so context cancellation is
	// noticed promptly.
	recvSlice = 250 * time.Millisecond
)

// RawProber implements the Prober interface on top of the raw packet
// engine. It crafts its own IPv4 probes (ICMP Echo, UDP to high ports, or
// TCP SYN) and classifies the correlated replies the engine hands back.
//
// Each RawProber owns its own engine, so at most one probe is in flight
// per prober and a correlated reply can be checked against exactly one
// outstanding sequence number.
type RawProber struct {
	eng         *engine.Engine
	method      Method
	timeout     time.Duration
	port        uint16
	srcIP       uint32
	id          uint16
	srcPortBase uint16
	sequence    uint32
}

// NewRawProber creates a raw-socket prober for the given method.
func NewRawProber(method Method, cfg Config) (*RawProber, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	port := cfg.Port
	if port == 0 {
		if method == MethodTCP {
			port = defaultTCPPort
		} else {
			port = defaultUDPBasePort
		}
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("port %d out of range", port)
	}

	if err := rawSocketPermitted(); err != nil {
		return nil, err
	}

	id := cfg.Identifier
	if id == 0 {
		id = uint16(os.Getpid() & 0xffff)
	}

	eng, err := engine.New(engine.WithProbeTimeout(cfg.Timeout))
	if err != nil {
		return nil, err
	}

	p := &RawProber{
		eng:         eng,
		method:      method,
		timeout:     cfg.Timeout,
		port:        uint16(port),
		id:          id,
		srcPortBase: uint16(30000 + (os.Getpid() % 10000)),
	}

	// TCP and UDP checksums cover a pseudo-header with the source address,
	// so those probes need the real local IP; ICMP can leave it to the
	// kernel.
	if method != MethodICMP {
		local, err := netutil.LocalIP()
		if err != nil {
			eng.Close()
			return nil, fmt.Errorf("determine local address: %w", err)
		}
		src, ok := engine.FromNetIP(local)
		if !ok {
			eng.Close()
			return nil, fmt.Errorf("local address %s is not IPv4", local)
		}
		p.srcIP = src
	}

	return p, nil
}

// rawSocketPermitted mirrors the engine's privilege gate so the factory
// can fall back before any socket work happens. On Windows the denial only
// surfaces once a socket is opened.
func rawSocketPermitted() error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if os.Geteuid() != 0 {
		return ErrPermissionDenied
	}
	return nil
}

// Probe sends one probe with the given TTL and waits for the reply.
func (p *RawProber) Probe(ctx context.Context, dest net.IP, ttl int) (*Result, error) {
	if ttl < 1 || ttl > 255 {
		return nil, ErrInvalidTTL
	}
	dst, ok := engine.FromNetIP(dest)
	if !ok {
		return nil, ErrInvalidTarget
	}

	seq := uint16(atomic.AddUint32(&p.sequence, 1))

	var (
		pkt          engine.Packet
		sport, dport uint16
		err          error
	)
	switch p.method {
	case MethodICMP:
		err = p.eng.CraftICMPEcho(&pkt, dst, p.id, seq, engine.WithTTL(ttl))
	case MethodUDP:
		sport = p.srcPortBase
		dport = p.port + seq%100
		err = p.eng.CraftUDP(&pkt, p.srcIP, dst, sport, dport, nil, engine.WithTTL(ttl))
	case MethodTCP:
		sport = p.srcPortBase + seq%1000
		dport = p.port
		err = p.eng.CraftTCPSyn(&pkt, p.srcIP, dst, sport, dport, engine.WithTTL(ttl))
	default:
		return nil, fmt.Errorf("unsupported probe method %v", p.method)
	}
	if err != nil {
		return nil, mapEngineErr(err)
	}

	sentStamp := pkt.Timestamp
	if err := p.eng.Send(&pkt); err != nil {
		return nil, mapEngineErr(err)
	}

	deadline := time.Now().Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		remain := time.Until(deadline)
		if remain <= 0 {
			return nil, ErrTimeout
		}
		if remain > recvSlice {
			remain = recvSlice
		}

		reply, err := p.eng.Recv(remain)
		if err != nil {
			if engine.IsTimeout(err) {
				continue
			}
			return nil, mapEngineErr(err)
		}

		if res, ok := p.classify(reply, dst, seq, sport, dport, sentStamp); ok {
			return res, nil
		}
		// Correlated to this engine but not to the probe in flight; a late
		// reply to an abandoned sequence. Keep waiting.
	}
}

// classify checks a correlated reply against the probe in flight and
// converts it into a Result.
func (p *RawProber) classify(reply *engine.Packet, dst uint32, seq, sport, dport uint16, sentStamp uint64) (*Result, bool) {
	res := &Result{
		ResponseIP: engine.ToNetIP(reply.SrcIP),
		RTT:        p.rtt(reply, sentStamp),
	}

	switch reply.Protocol {
	case engine.ProtocolICMP:
		typ, code, id, rseq, ok := engine.ICMPEchoInfo(reply)
		if !ok {
			return nil, false
		}
		res.ICMPType = int(typ)
		res.ICMPCode = int(code)

		if engine.IsEchoReply(reply) {
			if p.method != MethodICMP || id != p.id || rseq != seq {
				return nil, false
			}
			res.Reached = true
			return res, true
		}

		expired := engine.IsTimeExceeded(reply)
		unreachable, _ := engine.IsUnreachable(reply)
		if !expired && !unreachable {
			return nil, false
		}
		if !p.quoteMatches(reply, dst, seq, sport, dport) {
			return nil, false
		}
		if expired {
			res.TTLExpired = true
		} else {
			// The packet made it to a host that refused it; for UDP a
			// port-unreachable from the target is the "arrived" signal.
			res.Reached = true
		}
		return res, true

	case engine.ProtocolTCP:
		if p.method != MethodTCP {
			return nil, false
		}
		if reply.SrcIP != dst || reply.SrcPort != dport || reply.DstPort != sport {
			return nil, false
		}
		if !engine.IsSynAck(reply) && !engine.IsRst(reply) {
			return nil, false
		}
		res.Reached = true
		return res, true
	}

	return nil, false
}

// quoteMatches verifies that the packet quoted inside an ICMP error is the
// probe currently in flight.
func (p *RawProber) quoteMatches(reply *engine.Packet, dst uint32, seq, sport, dport uint16) bool {
	q, ok := engine.QuotedPacket(reply)
	if !ok || q.DstIP != dst {
		return false
	}

	switch p.method {
	case MethodICMP:
		id, rseq, ok := engine.QuotedEchoInfo(reply)
		return ok && id == p.id && rseq == seq
	case MethodUDP, MethodTCP:
		return q.SrcPort == sport && q.DstPort == dport
	}
	return false
}

// rtt derives the round trip from the engine's send and arrival stamps.
func (p *RawProber) rtt(reply *engine.Packet, sentStamp uint64) time.Duration {
	if reply.Timestamp <= sentStamp {
		return 0
	}
	return time.Duration(reply.Timestamp-sentStamp) * time.Microsecond
}

// Name returns the probe method name.
func (p *RawProber) Name() string {
	return p.method.String()
}

// RequiresRoot returns true; crafting raw IPv4 packets needs privileges.
func (p *RawProber) RequiresRoot() bool {
	return true
}

// Close releases the underlying engine.
func (p *RawProber) Close() error {
	return mapEngineErr(p.eng.Close())
}

// mapEngineErr converts engine errors to the probe package's sentinels.
func mapEngineErr(err error) error {
	switch {
	case err == nil:
		return nil
	case engine.IsTimeout(err):
		return ErrTimeout
	case engine.IsPermission(err):
		return ErrPermissionDenied
	case errors.Is(err, engine.ErrEngineClosed):
		return ErrSocketClosed
	default:
		return err
	}
}
