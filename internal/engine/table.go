package engine

import (
	"sync"
	"time"
)

// probeKey identifies an in-flight probe. For ICMP echo the pair is the
// identifier and sequence number; for TCP and UDP it is the source and
// destination port. addr is the probed address.
type probeKey struct {
	proto Protocol
	addr  uint32
	a, b  uint16
}

// probeTable tracks outstanding probes so received packets can be matched
// back to the probe that elicited them. It is bounded: expired entries are
// evicted on registration, and when full the entry closest to expiry is
// dropped to make room.
type probeTable struct {
	mu       sync.Mutex
	capacity int
	pending  map[probeKey]time.Time
}

func newProbeTable(capacity int) *probeTable {
	return &probeTable{
		capacity: capacity,
		pending:  make(map[probeKey]time.Time, capacity),
	}
}

func (t *probeTable) register(key probeKey, deadline time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for k, d := range t.pending {
		if d.Before(now) {
			delete(t.pending, k)
		}
	}
	if len(t.pending) >= t.capacity {
		var oldest probeKey
		var oldestAt time.Time
		for k, d := range t.pending {
			if oldestAt.IsZero() || d.Before(oldestAt) {
				oldest, oldestAt = k, d
			}
		}
		delete(t.pending, oldest)
	}
	t.pending[key] = deadline
}

// match removes and reports a pending probe matching any of the candidate
// keys. Expired entries do not match.
func (t *probeTable) match(keys ...probeKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for _, key := range keys {
		d, ok := t.pending[key]
		if !ok {
			continue
		}
		delete(t.pending, key)
		if d.Before(now) {
			continue
		}
		return true
	}
	return false
}

func (t *probeTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// outboundKey derives the correlation key for a packet about to be sent.
func outboundKey(p *Packet) (probeKey, bool) {
	switch p.Protocol {
	case ProtocolICMP:
		_, _, id, seq, ok := ICMPEchoInfo(p)
		if !ok {
			return probeKey{}, false
		}
		return probeKey{proto: ProtocolICMP, addr: p.DstIP, a: id, b: seq}, true
	case ProtocolTCP, ProtocolUDP:
		return probeKey{proto: p.Protocol, addr: p.DstIP, a: p.SrcPort, b: p.DstPort}, true
	}
	return probeKey{}, false
}

// inboundKeys derives the candidate correlation keys for a received
// packet: the direct-reply key (echo reply, SYN-ACK, RST) and, for ICMP
// error messages, the key of the probe quoted inside the error.
func inboundKeys(p *Packet) []probeKey {
	var keys []probeKey

	switch p.Protocol {
	case ProtocolICMP:
		typ, _, id, seq, ok := ICMPEchoInfo(p)
		if !ok {
			return nil
		}
		if typ == icmpEchoReply {
			keys = append(keys, probeKey{proto: ProtocolICMP, addr: p.SrcIP, a: id, b: seq})
		}
		if q, ok := QuotedPacket(p); ok {
			switch q.Protocol {
			case ProtocolICMP:
				if qid, qseq, ok := QuotedEchoInfo(p); ok {
					keys = append(keys, probeKey{proto: ProtocolICMP, addr: q.DstIP, a: qid, b: qseq})
				}
			case ProtocolTCP, ProtocolUDP:
				keys = append(keys, probeKey{proto: q.Protocol, addr: q.DstIP, a: q.SrcPort, b: q.DstPort})
			}
		}

	case ProtocolTCP, ProtocolUDP:
		// Reply ports are the probe's reversed.
		keys = append(keys, probeKey{proto: p.Protocol, addr: p.SrcIP, a: p.DstPort, b: p.SrcPort})
	}

	return keys
}
