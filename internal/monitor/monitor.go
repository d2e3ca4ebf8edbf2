// Package monitor samples network interface traffic counters and
// derives transfer rates from consecutive samples. It backs the
// one-shot snapshot view, the realtime dashboard, and the Prometheus
// daemon.
package monitor

import (
	"context"
	"time"

	"github.com/JustAaronHere/NetWeaver/internal/logging"
)

// AllInterfaces selects the aggregate of every interface.
const AllInterfaces = "all"

const minInterval = 100 * time.Millisecond

// Counters is one interface's cumulative kernel counters.
type Counters struct {
	Interface   string
	BytesRecv   uint64
	PacketsRecv uint64
	ErrsRecv    uint64
	DropsRecv   uint64
	BytesSent   uint64
	PacketsSent uint64
	ErrsSent    uint64
	DropsSent   uint64
	At          time.Time
}

// Rates are per-second transfer rates between two samples.
type Rates struct {
	RecvBytesPerSec   float64
	SentBytesPerSec   float64
	RecvPacketsPerSec float64
	SentPacketsPerSec float64
}

// Sample pairs a counter snapshot with the rates since the previous one.
type Sample struct {
	Counters Counters
	Rates    Rates
}

// Config controls sampling.
type Config struct {
	// Interface names a single interface, or AllInterfaces (or empty)
	// for the aggregate.
	Interface string

	// Interval is the sampling cadence for Watch.
	Interval time.Duration

	Logger *logging.Logger
}

// DefaultConfig returns monitoring defaults.
func DefaultConfig() *Config {
	return &Config{
		Interface: AllInterfaces,
		Interval:  time.Second,
	}
}

// Monitor reads interface counters.
type Monitor struct {
	config *Config
	log    *logging.Logger
}

// New creates a Monitor.
func New(config *Config) (*Monitor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Interval < minInterval {
		return nil, ErrInvalidInterval
	}
	log := config.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Monitor{
		config: config,
		log:    log.WithComponent("monitor"),
	}, nil
}

// Interfaces returns current counters for every interface.
func (m *Monitor) Interfaces() ([]Counters, error) {
	return readCounters()
}

// Snapshot returns current counters for the configured interface, or
// the aggregate across all of them.
func (m *Monitor) Snapshot() (Counters, error) {
	rows, err := readCounters()
	if err != nil {
		return Counters{}, err
	}

	name := m.config.Interface
	if name == "" || name == AllInterfaces {
		return aggregate(rows), nil
	}
	for _, row := range rows {
		if row.Interface == name {
			return row, nil
		}
	}
	return Counters{}, &UnknownInterfaceError{Name: name}
}

// Watch samples at the configured interval and calls fn with each
// sample until the context is done. The first sample primes the rate
// calculation and is not reported.
func (m *Monitor) Watch(ctx context.Context, fn func(Sample)) error {
	prev, err := m.Snapshot()
	if err != nil {
		return err
	}

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		cur, err := m.Snapshot()
		if err != nil {
			m.log.Warn("counter read failed", "error", err)
			continue
		}
		fn(Sample{Counters: cur, Rates: rateBetween(prev, cur)})
		prev = cur
	}
}

// Rate takes two snapshots separated by window and returns the transfer
// rates between them. A zero window uses the configured interval.
func (m *Monitor) Rate(ctx context.Context, window time.Duration) (Rates, error) {
	if window <= 0 {
		window = m.config.Interval
	}
	first, err := m.Snapshot()
	if err != nil {
		return Rates{}, err
	}

	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Rates{}, ctx.Err()
	case <-timer.C:
	}

	second, err := m.Snapshot()
	if err != nil {
		return Rates{}, err
	}
	return rateBetween(first, second), nil
}

// rateBetween derives per-second rates from two snapshots. Counter
// wraps and non-advancing clocks yield zero rather than nonsense.
func rateBetween(prev, cur Counters) Rates {
	elapsed := cur.At.Sub(prev.At).Seconds()
	if elapsed <= 0 {
		return Rates{}
	}
	delta := func(a, b uint64) float64 {
		if b < a {
			return 0
		}
		return float64(b-a) / elapsed
	}
	return Rates{
		RecvBytesPerSec:   delta(prev.BytesRecv, cur.BytesRecv),
		SentBytesPerSec:   delta(prev.BytesSent, cur.BytesSent),
		RecvPacketsPerSec: delta(prev.PacketsRecv, cur.PacketsRecv),
		SentPacketsPerSec: delta(prev.PacketsSent, cur.PacketsSent),
	}
}

// aggregate sums rows into one "all" pseudo-interface.
func aggregate(rows []Counters) Counters {
	total := Counters{Interface: AllInterfaces, At: time.Now()}
	for _, row := range rows {
		total.BytesRecv += row.BytesRecv
		total.PacketsRecv += row.PacketsRecv
		total.ErrsRecv += row.ErrsRecv
		total.DropsRecv += row.DropsRecv
		total.BytesSent += row.BytesSent
		total.PacketsSent += row.PacketsSent
		total.ErrsSent += row.ErrsSent
		total.DropsSent += row.DropsSent
		if !row.At.IsZero() {
			total.At = row.At
		}
	}
	return total
}
