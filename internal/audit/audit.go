// Package audit runs local security checks: which risky services the
// audited host exposes, whether the ARP table shows signs of spoofing,
// and whether the default gateway behaves. Checks observe and report;
// they never change anything.
package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/JustAaronHere/NetWeaver/internal/logging"
	"github.com/JustAaronHere/NetWeaver/internal/netutil"
)

const (
	defaultTimeout = 200 * time.Millisecond
	defaultTarget  = "127.0.0.1"

	checkARP     = "arp"
	checkPorts   = "ports"
	checkGateway = "gateway"
)

// Severity classifies a finding.
type Severity int

const (
	// SeverityInfo is an observation, nothing to act on.
	SeverityInfo Severity = iota

	// SeverityWarning is exposure worth reviewing.
	SeverityWarning

	// SeverityCritical is an active indicator of compromise.
	SeverityCritical
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "info"
	}
}

// Finding is one audit observation.
type Finding struct {
	// Check names the check that produced the finding.
	Check string

	Severity Severity

	// Summary is the one-line observation.
	Summary string

	// Detail holds supporting lines: addresses, open ports, errors.
	Detail []string
}

// Report collects the findings of one audit run.
type Report struct {
	Target   string
	Findings []Finding
	Duration time.Duration
}

// Criticals counts critical findings.
func (r *Report) Criticals() int { return r.count(SeverityCritical) }

// Warnings counts warning findings.
func (r *Report) Warnings() int { return r.count(SeverityWarning) }

func (r *Report) count(s Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}

// Config controls which checks run and how they probe.
type Config struct {
	// Target is the host whose port exposure is audited.
	Target string

	// Ports probed on the target; empty uses the common service ports
	// plus every risky port.
	Ports []uint16

	// Timeout bounds each port probe.
	Timeout time.Duration

	// CheckARP, CheckPorts and CheckGateway select the checks Run
	// performs.
	CheckARP     bool
	CheckPorts   bool
	CheckGateway bool

	Logger *logging.Logger
}

// DefaultConfig returns an every-check audit of the local host.
func DefaultConfig() *Config {
	return &Config{
		Target:       defaultTarget,
		Timeout:      defaultTimeout,
		CheckARP:     true,
		CheckPorts:   true,
		CheckGateway: true,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Target == "" {
		return ErrNoTarget
	}
	if c.Timeout < 10*time.Millisecond {
		return ErrInvalidTimeout
	}
	for _, p := range c.Ports {
		if p == 0 {
			return ErrInvalidPort
		}
	}
	if !c.CheckARP && !c.CheckPorts && !c.CheckGateway {
		return ErrNoChecks
	}
	return nil
}

// Auditor runs the configured checks.
type Auditor struct {
	config *Config
	ports  []uint16
	log    *logging.Logger
}

// New creates an Auditor. A nil config audits the local host with every
// check enabled.
func New(config *Config) (*Auditor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ports := config.Ports
	if len(ports) == 0 {
		ports = auditPorts()
	}

	log := config.Logger
	if log == nil {
		log = logging.Discard()
	}

	return &Auditor{
		config: config,
		ports:  ports,
		log:    log.WithComponent("audit"),
	}, nil
}

// Run performs the enabled checks and returns their findings.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{Target: a.config.Target}

	if a.config.CheckARP {
		report.Findings = append(report.Findings, a.arpCheck()...)
	}

	if a.config.CheckPorts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		findings, err := a.portCheck(ctx)
		if err != nil {
			return nil, fmt.Errorf("port check: %w", err)
		}
		report.Findings = append(report.Findings, findings...)
	}

	if a.config.CheckGateway {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Findings = append(report.Findings, a.gatewayCheck(ctx)...)
	}

	report.Duration = time.Since(start)
	a.log.Info("audit finished",
		"target", report.Target,
		"findings", len(report.Findings),
		"critical", report.Criticals(),
		"warnings", report.Warnings(),
		"duration", report.Duration)
	return report, nil
}

// auditPorts merges the common service ports with every risky port, so
// the exposure check always covers the ports it would warn about.
func auditPorts() []uint16 {
	seen := make(map[uint16]bool)
	var ports []uint16
	for _, p := range append(netutil.CommonPorts(), netutil.RiskyPorts()...) {
		if !seen[p] {
			seen[p] = true
			ports = append(ports, p)
		}
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	return ports
}
