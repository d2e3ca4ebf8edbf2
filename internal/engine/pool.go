package engine

import "sync"

// Handle identifies a buffer leased from a Pool.
type Handle int32

// InvalidHandle is returned by Acquire on failure.
const InvalidHandle Handle = -1

// Pool is a fixed-size pool of equally sized packet buffers carved out of
// one contiguous allocation. Acquire and Release never allocate; when the
// pool is empty Acquire fails instead of blocking. A released handle may
// be handed out again, and releasing the same handle twice is an error.
// Pool is safe for concurrent use.
type Pool struct {
	mu         sync.Mutex
	arena      []byte
	bufferSize int
	free       []Handle
	checkedOut []bool
	closed     bool
}

// NewPool allocates a pool of count buffers of bufferSize bytes each.
func NewPool(bufferSize, count int) (*Pool, error) {
	if bufferSize <= 0 || count <= 0 {
		return nil, errorf(ErrInvalidParameter, "pool %d x %d bytes", count, bufferSize)
	}
	if bufferSize > MaxPacketSize {
		return nil, errorf(ErrPacketTooLarge, "buffer size %d exceeds %d", bufferSize, MaxPacketSize)
	}

	p := &Pool{
		arena:      make([]byte, bufferSize*count),
		bufferSize: bufferSize,
		free:       make([]Handle, count),
		checkedOut: make([]bool, count),
	}
	for i := range p.free {
		p.free[i] = Handle(count - 1 - i)
	}
	return p, nil
}

// Acquire leases a buffer from the pool. The returned slice is the full
// buffer, len == BufferSize. It fails with ErrPoolExhausted when every
// buffer is checked out.
func (p *Pool) Acquire() (Handle, []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return InvalidHandle, nil, ErrPoolClosed
	}
	if len(p.free) == 0 {
		return InvalidHandle, nil, errorf(ErrPoolExhausted, "%d buffers in use", len(p.checkedOut))
	}

	h := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.checkedOut[h] = true
	return h, p.slot(h), nil
}

// Release returns a leased buffer to the pool. Releasing a handle that is
// not currently checked out fails with ErrDoubleRelease.
func (p *Pool) Release(h Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if h < 0 || int(h) >= len(p.checkedOut) {
		return errorf(ErrBadHandle, "handle %d of %d", h, len(p.checkedOut))
	}
	if !p.checkedOut[h] {
		return errorf(ErrDoubleRelease, "handle %d", h)
	}

	p.checkedOut[h] = false
	p.free = append(p.free, h)
	return nil
}

// Buffer returns the slice backing a checked-out handle.
func (p *Pool) Buffer(h Handle) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if h < 0 || int(h) >= len(p.checkedOut) || !p.checkedOut[h] {
		return nil, errorf(ErrBadHandle, "handle %d", h)
	}
	return p.slot(h), nil
}

// Close releases the arena. Buffers still checked out become invalid.
// Close is idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.arena = nil
	p.free = nil
	return nil
}

// Available reports how many buffers are free.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Capacity reports the total number of buffers.
func (p *Pool) Capacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.checkedOut)
}

// BufferSize reports the size of each buffer.
func (p *Pool) BufferSize() int {
	return p.bufferSize
}

func (p *Pool) slot(h Handle) []byte {
	off := int(h) * p.bufferSize
	return p.arena[off : off+p.bufferSize : off+p.bufferSize]
}
