package scan

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/JustAaronHere/NetWeaver/internal/engine"
)

// livenessPort is the connect-probe target. Port 80 answers on most
// hosts one way or the other: an accept or a refusal both prove the
// host is up.
const livenessPort = 80

// icmpSweep sends one echo request per host through the engine and
// records the round-trip latency of every host that replies. Hosts are
// sprayed in batches so in-flight probes stay within the correlation
// table, with one receive drain per batch.
func (s *Scanner) icmpSweep(ctx context.Context, hosts []net.IP, alive map[uint32]float64) error {
	targets := make([]uint32, 0, len(hosts))
	for _, h := range hosts {
		if ip, ok := engine.FromNetIP(h); ok {
			targets = append(targets, ip)
		}
	}

	var seq uint16
	for start := 0; start < len(targets); start += sprayBatch {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + sprayBatch
		if end > len(targets) {
			end = len(targets)
		}

		bySeq := make(map[uint16]uint32, end-start)
		stamps := make(map[uint16]uint64, end-start)
		sent := 0
		for _, dst := range targets[start:end] {
			var pkt engine.Packet
			if err := s.eng.CraftICMPEcho(&pkt, dst, s.id, seq); err != nil {
				return err
			}
			if err := s.eng.Send(&pkt); err != nil {
				// Unroutable addresses fail at sendto. Skip them; the
				// rest of the batch is unaffected.
				s.log.Debug("echo send failed", "target", engine.FormatIPv4(dst), "error", err)
				seq++
				continue
			}
			bySeq[seq] = dst
			stamps[seq] = pkt.Timestamp
			sent++
			seq++
		}

		if err := s.drainEchoes(ctx, sent, bySeq, stamps, alive); err != nil {
			return err
		}
	}
	return nil
}

// drainEchoes consumes correlated replies for one batch until every
// probe is accounted for or the liveness timeout expires.
func (s *Scanner) drainEchoes(ctx context.Context, want int, bySeq map[uint16]uint32, stamps map[uint16]uint64, alive map[uint32]float64) error {
	deadline := time.Now().Add(s.config.Timeout)
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

		// The correlation table vouched for id and seq; anything that is
		// not an echo reply is an ICMP error for a dead or filtered host.
		if !engine.IsEchoReply(reply) {
			continue
		}
		_, _, _, rseq, ok := engine.ICMPEchoInfo(reply)
		if !ok {
			continue
		}
		dst, known := bySeq[rseq]
		if !known || dst != reply.SrcIP {
			continue
		}
		if _, dup := alive[dst]; !dup {
			alive[dst] = latencyMs(stamps[rseq], reply.Timestamp)
		}
	}
	return nil
}

// connectSweep probes hosts with a TCP connect and records the ones
// that answer. A completed handshake and a refused connection both
// count as alive; only silence does not.
func (s *Scanner) connectSweep(ctx context.Context, hosts []net.IP, alive map[uint32]float64) {
	if len(hosts) == 0 {
		return
	}

	var mu sync.Mutex
	jobs := make(chan net.IP, len(hosts))
	var wg sync.WaitGroup

	workers := s.config.Concurrency
	if workers > len(hosts) {
		workers = len(hosts)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for host := range jobs {
				if ctx.Err() != nil {
					continue
				}
				lat, ok := s.connectProbe(ctx, host)
				if !ok {
					continue
				}
				if ip, valid := engine.FromNetIP(host); valid {
					mu.Lock()
					if _, dup := alive[ip]; !dup {
						alive[ip] = lat
					}
					mu.Unlock()
				}
			}
		}()
	}

	for _, host := range hosts {
		jobs <- host
	}
	close(jobs)
	wg.Wait()
}

// connectProbe dials one host and reports whether it is alive and how
// long the answer took.
func (s *Scanner) connectProbe(ctx context.Context, host net.IP) (float64, bool) {
	d := net.Dialer{Timeout: s.config.Timeout}
	addr := net.JoinHostPort(host.String(), strconv.Itoa(livenessPort))

	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp4", addr)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	if err == nil {
		conn.Close()
		return elapsed, true
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		// The refusal came from the host itself.
		return elapsed, true
	}
	return 0, false
}

func latencyMs(sent, received uint64) float64 {
	if received <= sent {
		return 0
	}
	return float64(received-sent) / 1000.0
}
