package trace

import "errors"

// Trace-related errors.
var (
	// ErrInvalidMaxHops indicates max hops is out of valid range (1-255)
	ErrInvalidMaxHops = errors.New("max hops must be between 1 and 255")

	// ErrInvalidProbeCount indicates probe count is out of valid range
	ErrInvalidProbeCount = errors.New("probe count must be between 1 and 10")

	// ErrInvalidTimeout indicates timeout is too short
	ErrInvalidTimeout = errors.New("timeout must be at least 100ms")

	// ErrInvalidFirstHop indicates first hop is invalid
	ErrInvalidFirstHop = errors.New("first hop must be between 1 and max hops")

	// ErrInvalidDestPort indicates the destination port is out of range
	ErrInvalidDestPort = errors.New("destination port must be between 0 and 65535")
)
