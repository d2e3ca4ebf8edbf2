package engine

import (
	"errors"
	"sync"
	"time"
)

// recvPollInterval is the SO_RCVTIMEO granularity for reader goroutines.
// Readers wake at this rate to notice transport shutdown.
const recvPollInterval = 500 * time.Millisecond

// frameBuffer is how many received frames can queue between the reader
// goroutines and Recv before frames are dropped, mirroring kernel
// raw-socket behavior under a slow consumer.
const frameBuffer = 256

// errRecvTimeout is the internal poll-timeout signal between a platform
// conn and its reader loop. It never crosses the engine boundary.
var errRecvTimeout = errors.New("recv poll timeout")

// rawConn is one raw IPv4 socket. send writes a full packet, IP header
// included; recv blocks up to recvPollInterval and returns errRecvTimeout
// when nothing arrived.
type rawConn interface {
	send(pkt []byte, dstIP uint32) error
	recv(buf []byte) (int, error)
	close() error
}

type frame struct {
	data []byte
	at   time.Time
}

// transport owns one raw socket per protocol, opened on first use, each
// with a reader goroutine feeding the shared frames channel.
type transport struct {
	mu     sync.Mutex
	conns  map[Protocol]rawConn
	frames chan frame
	done   chan struct{}
	wg     sync.WaitGroup
}

// newTransport verifies raw-socket privilege before any socket work.
func newTransport() (*transport, error) {
	if err := checkRawSocketPrivilege(); err != nil {
		return nil, err
	}
	return &transport{
		conns:  make(map[Protocol]rawConn),
		frames: make(chan frame, frameBuffer),
		done:   make(chan struct{}),
	}, nil
}

// conn returns the raw socket for proto, opening it and starting its
// reader on first use.
func (t *transport) conn(proto Protocol) (rawConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.done:
		return nil, ErrEngineClosed
	default:
	}

	if c, ok := t.conns[proto]; ok {
		return c, nil
	}
	c, err := openRawConn(proto)
	if err != nil {
		return nil, err
	}
	t.conns[proto] = c

	t.wg.Add(1)
	go t.readLoop(c)
	return c, nil
}

// readLoop pulls frames off one raw socket until close. Full IP headers
// are preserved; each frame is copied out of the scratch buffer so the
// consumer owns its bytes.
func (t *transport) readLoop(c rawConn) {
	defer t.wg.Done()

	buf := make([]byte, MaxPacketSize)
	for {
		select {
		case <-t.done:
			return
		default:
		}

		n, err := c.recv(buf)
		if err != nil {
			if errors.Is(err, errRecvTimeout) {
				continue
			}
			return
		}
		if n == 0 {
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case t.frames <- frame{data: data, at: time.Now()}:
		case <-t.done:
			return
		default:
			// Consumer is behind; drop like the kernel would.
		}
	}
}

// close shuts every socket and joins the readers.
func (t *transport) close() {
	t.mu.Lock()
	select {
	case <-t.done:
		t.mu.Unlock()
		return
	default:
	}
	close(t.done)
	for _, c := range t.conns {
		c.close()
	}
	t.mu.Unlock()

	t.wg.Wait()
}

// Send transmits a crafted packet over a raw socket and registers it for
// reply correlation. The privilege check happens before any socket is
// created, so an unprivileged caller gets ErrPermissionDenied rather than
// a half-open transport.
func (e *Engine) Send(p *Packet) error {
	if err := e.check(); err != nil {
		return err
	}
	if p == nil || p.Bytes() == nil {
		return errorf(ErrInvalidParameter, "send of empty packet")
	}
	if p.Length > MaxPacketSize {
		return errorf(ErrPacketTooLarge, "%d bytes", p.Length)
	}
	if !Validate(p) {
		return errorf(ErrInvalidParameter, "packet fails validation")
	}

	tr, err := e.transportConn()
	if err != nil {
		return err
	}
	c, err := tr.conn(p.Protocol)
	if err != nil {
		return err
	}
	if err := c.send(p.Bytes(), p.DstIP); err != nil {
		return err
	}

	if key, ok := outboundKey(p); ok {
		e.table.register(key, time.Now().Add(e.probeTimeout))
	}
	e.sent.Add(1)
	return nil
}

// Recv waits up to timeout for a packet that correlates with an
// outstanding probe: an echo reply matching a sent id/seq, a TCP reply on
// a reversed port pair, or an ICMP error quoting a sent probe. Unrelated
// traffic is discarded. ErrTimeout when nothing matching arrives in time.
func (e *Engine) Recv(timeout time.Duration) (*Packet, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, errorf(ErrInvalidParameter, "timeout %v", timeout)
	}

	tr, err := e.transportConn()
	if err != nil {
		return nil, err
	}
	// Replies and ICMP errors arrive on the ICMP socket regardless of
	// which protocol probed.
	if _, err := tr.conn(ProtocolICMP); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case f := <-tr.frames:
			e.received.Add(1)
			p, err := Parse(f.data)
			if err != nil {
				continue
			}
			p.Timestamp = e.micros(f.at)
			if !e.table.match(inboundKeys(p)...) {
				continue
			}
			e.matched.Add(1)
			return p, nil

		case <-tr.done:
			return nil, ErrEngineClosed

		case <-timer.C:
			return nil, errorf(ErrTimeout, "no reply within %v", timeout)
		}
	}
}

func (e *Engine) micros(at time.Time) uint64 {
	return uint64(at.Sub(e.start).Microseconds())
}
