package scan

import (
	"context"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/JustAaronHere/NetWeaver/internal/engine"
)

type portPair struct {
	host uint32
	port uint16
}

// synSweep half-open scans every (host, port) pair through the engine.
// All probes share one source port, so a SYN-ACK identifies its pair by
// the reply's source address and port alone. A port is open only on
// SYN-ACK; RSTs and ICMP errors consume their table entry and fall out
// of the drain as closed or filtered.
func (s *Scanner) synSweep(ctx context.Context, hosts []uint32, ports []uint16) (map[uint32][]uint16, error) {
	open := make(map[uint32][]uint16)

	pairs := make([]portPair, 0, len(hosts)*len(ports))
	for _, h := range hosts {
		for _, p := range ports {
			pairs = append(pairs, portPair{host: h, port: p})
		}
	}

	for start := 0; start < len(pairs); start += sprayBatch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + sprayBatch
		if end > len(pairs) {
			end = len(pairs)
		}

		sent := 0
		for _, pr := range pairs[start:end] {
			var pkt engine.Packet
			if err := s.eng.CraftTCPSyn(&pkt, s.srcIP, pr.host, s.sport, pr.port); err != nil {
				return nil, err
			}
			if err := s.eng.Send(&pkt); err != nil {
				s.log.Debug("syn send failed",
					"target", engine.FormatIPv4(pr.host),
					"port", pr.port,
					"error", err,
				)
				continue
			}
			sent++
		}

		if err := s.drainSynReplies(ctx, sent, open); err != nil {
			return nil, err
		}
	}

	for h := range open {
		sort.Slice(open[h], func(i, j int) bool { return open[h][i] < open[h][j] })
	}
	return open, nil
}

func (s *Scanner) drainSynReplies(ctx context.Context, want int, open map[uint32][]uint16) error {
	deadline := time.Now().Add(s.config.PortTimeout)
	for got := 0; got < want; got++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		remain := time.Until(deadline)
		if remain <= 0 {
			return nil
		}

		reply, err := s.eng.Recv(remain)
		if err != nil {
			if engine.IsTimeout(err) {
				return nil
			}
			return err
		}

		if reply.Protocol == engine.ProtocolTCP && engine.IsSynAck(reply) && reply.DstPort == s.sport {
			open[reply.SrcIP] = append(open[reply.SrcIP], reply.SrcPort)
		}
	}
	return nil
}

// connectPorts is the unprivileged port scan: a fixed worker pool
// attempting full TCP connects against every (host, port) pair.
func (s *Scanner) connectPorts(ctx context.Context, hosts []uint32, ports []uint16) map[uint32][]uint16 {
	open := make(map[uint32][]uint16)
	if len(hosts) == 0 || len(ports) == 0 {
		return open
	}

	var mu sync.Mutex
	jobs := make(chan portPair, s.config.Concurrency)
	var wg sync.WaitGroup

	for i := 0; i < s.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pr := range jobs {
				if ctx.Err() != nil {
					continue
				}
				if s.connectPort(ctx, pr) {
					mu.Lock()
					open[pr.host] = append(open[pr.host], pr.port)
					mu.Unlock()
				}
			}
		}()
	}

	for _, h := range hosts {
		for _, p := range ports {
			jobs <- portPair{host: h, port: p}
		}
	}
	close(jobs)
	wg.Wait()

	for h := range open {
		sort.Slice(open[h], func(i, j int) bool { return open[h][i] < open[h][j] })
	}
	return open
}

// connectPort reports whether a full handshake succeeds within the
// per-port timeout. A refusal is a closed port, not an open one.
func (s *Scanner) connectPort(ctx context.Context, pr portPair) bool {
	d := net.Dialer{Timeout: s.config.PortTimeout}
	addr := net.JoinHostPort(engine.FormatIPv4(pr.host), strconv.Itoa(int(pr.port)))

	conn, err := d.DialContext(ctx, "tcp4", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
