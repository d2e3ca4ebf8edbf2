package engine

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultProbeTimeout  = 5 * time.Second
	defaultTableCapacity = 1024
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	probeTimeout  time.Duration
	tableCapacity int
	seed          int64
	seeded        bool
}

// WithProbeTimeout sets how long a sent probe stays eligible for reply
// correlation. Default 5s.
func WithProbeTimeout(d time.Duration) Option {
	return func(o *options) { o.probeTimeout = d }
}

// WithTableCapacity bounds the number of in-flight probes tracked at
// once. Default 1024.
func WithTableCapacity(n int) Option {
	return func(o *options) { o.tableCapacity = n }
}

// WithRandSeed makes packet randomness (IP ids, sequence numbers)
// deterministic. Intended for tests.
func WithRandSeed(seed int64) Option {
	return func(o *options) { o.seed = seed; o.seeded = true }
}

// Engine crafts, sends and receives raw IPv4 packets. The zero value is
// not usable; construct with New. All methods are safe for concurrent
// use. The engine opens no sockets until the first Send or Recv, so
// crafting and parsing work without privileges.
type Engine struct {
	mu     sync.Mutex
	closed bool
	tr     *transport

	start        time.Time
	probeTimeout time.Duration
	table        *probeTable

	rngMu sync.Mutex
	rng   *rand.Rand

	sent     atomic.Uint64
	received atomic.Uint64
	matched  atomic.Uint64
}

// New initializes an engine.
func New(opts ...Option) (*Engine, error) {
	o := options{
		probeTimeout:  defaultProbeTimeout,
		tableCapacity: defaultTableCapacity,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.probeTimeout <= 0 {
		return nil, errorf(ErrInvalidParameter, "probe timeout %v", o.probeTimeout)
	}
	if o.tableCapacity <= 0 {
		return nil, errorf(ErrInvalidParameter, "table capacity %d", o.tableCapacity)
	}

	seed := o.seed
	if !o.seeded {
		seed = time.Now().UnixNano()
	}

	return &Engine{
		start:        time.Now(),
		probeTimeout: o.probeTimeout,
		table:        newProbeTable(o.tableCapacity),
		rng:          rand.New(rand.NewSource(seed)),
	}, nil
}

// Close shuts the engine down, closing any open sockets and stopping
// receive loops. Close is idempotent; operations after Close fail with
// ErrEngineClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	tr := e.tr
	e.tr = nil
	e.mu.Unlock()

	if tr != nil {
		tr.close()
	}
	return nil
}

// TimestampMicros returns microseconds elapsed since the engine was
// created, from the monotonic clock. It returns 0 after Close.
func (e *Engine) TimestampMicros() uint64 {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return 0
	}
	return uint64(time.Since(e.start).Microseconds())
}

// Stats is a snapshot of engine counters.
type Stats struct {
	PacketsSent     uint64
	PacketsReceived uint64
	RepliesMatched  uint64
	PendingProbes   int
	Uptime          time.Duration
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	return Stats{
		PacketsSent:     e.sent.Load(),
		PacketsReceived: e.received.Load(),
		RepliesMatched:  e.matched.Load(),
		PendingProbes:   e.table.len(),
		Uptime:          time.Since(e.start),
	}
}

func (e *Engine) check() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	return nil
}

// transportConn returns the lazily opened transport, creating it on
// first use.
func (e *Engine) transportConn() (*transport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	if e.tr == nil {
		tr, err := newTransport()
		if err != nil {
			return nil, err
		}
		e.tr = tr
	}
	return e.tr, nil
}

func (e *Engine) randUint16() uint16 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return uint16(e.rng.Intn(1 << 16))
}

func (e *Engine) randUint32() uint32 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Uint32()
}
