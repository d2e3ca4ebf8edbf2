// Package optimize measures the network conditions a host actually sees
// and reports what could be tuned: resolver latency, the usable path MTU
// toward a reference target, and the kernel's TCP stack settings.
// Everything here is read-only; the advisor recommends, it never applies.
package optimize

import (
	"time"

	"github.com/JustAaronHere/NetWeaver/internal/logging"
)

const (
	defaultDNSTimeout   = 2 * time.Second
	defaultProbeTimeout = 2 * time.Second
	defaultProbeCount   = 5
	defaultProbeTarget  = "8.8.8.8"
)

// Config controls the optimizer's measurements.
type Config struct {
	// Resolvers are the DNS servers to benchmark, addresses with an
	// optional port (53 assumed).
	Resolvers []string

	// Domains are the names each resolver is queried for.
	Domains []string

	// ProbeTarget is the reference host latency and path-MTU probes
	// are aimed at.
	ProbeTarget string

	// DNSTimeout bounds each benchmark query.
	DNSTimeout time.Duration

	// ProbeTimeout bounds each latency or MTU probe.
	ProbeTimeout time.Duration

	// ProbeCount is how many latency probes Advise sends.
	ProbeCount int

	Logger *logging.Logger
}

// DefaultConfig returns measurement defaults: the big public resolvers,
// a handful of heavily anycast domains, and a well-connected probe
// target.
func DefaultConfig() *Config {
	return &Config{
		Resolvers: []string{
			"8.8.8.8",        // Google
			"1.1.1.1",        // Cloudflare
			"9.9.9.9",        // Quad9
			"208.67.222.222", // OpenDNS
		},
		Domains: []string{
			"google.com",
			"github.com",
			"cloudflare.com",
			"amazon.com",
			"microsoft.com",
		},
		ProbeTarget:  defaultProbeTarget,
		DNSTimeout:   defaultDNSTimeout,
		ProbeTimeout: defaultProbeTimeout,
		ProbeCount:   defaultProbeCount,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if len(c.Resolvers) == 0 {
		return ErrNoResolvers
	}
	if len(c.Domains) == 0 {
		return ErrNoDomains
	}
	if c.ProbeTarget == "" {
		return ErrNoProbeTarget
	}
	if c.DNSTimeout < 10*time.Millisecond || c.ProbeTimeout < 10*time.Millisecond {
		return ErrInvalidTimeout
	}
	if c.ProbeCount < 1 || c.ProbeCount > 64 {
		return ErrInvalidProbeCount
	}
	return nil
}

// Optimizer runs the individual measurements. One Optimizer may be used
// for any number of reports.
type Optimizer struct {
	config *Config
	log    *logging.Logger
}

// New creates an Optimizer. A nil config uses defaults.
func New(config *Config) (*Optimizer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	log := config.Logger
	if log == nil {
		log = logging.Discard()
	}

	return &Optimizer{
		config: config,
		log:    log.WithComponent("optimize"),
	}, nil
}
