package optimize

import "errors"

var (
	// ErrNoResolvers indicates the benchmark has no resolvers to test.
	ErrNoResolvers = errors.New("at least one resolver is required")

	// ErrNoDomains indicates the benchmark has no names to query.
	ErrNoDomains = errors.New("at least one benchmark domain is required")

	// ErrNoProbeTarget indicates no reference host was configured.
	ErrNoProbeTarget = errors.New("probe target is required")

	// ErrInvalidTimeout indicates an unusably short timeout.
	ErrInvalidTimeout = errors.New("timeout must be at least 10ms")

	// ErrInvalidProbeCount indicates the probe count is out of range.
	ErrInvalidProbeCount = errors.New("probe count must be between 1 and 64")

	// ErrMTUInconclusive indicates not even the minimum-size probe got a
	// reply, so no path MTU can be derived.
	ErrMTUInconclusive = errors.New("no reply to the minimum-size probe, path MTU is inconclusive")
)
