package trace

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/JustAaronHere/NetWeaver/internal/enrich"
	"github.com/JustAaronHere/NetWeaver/internal/logging"
	"github.com/JustAaronHere/NetWeaver/internal/probe"
)

// Tracer performs network path tracing operations.
type Tracer struct {
	config *Config
	log    *logging.Logger
	rdns   *enrich.RDNSResolver

	// prober serves sequential traces; concurrent workers build their own
	// from newProber, since reply correlation is per-prober state.
	prober    probe.Prober
	newProber func() (probe.Prober, error)
}

// New creates a new Tracer with the given configuration.
func New(config *Config) (*Tracer, error) {
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

	t := &Tracer{
		config: config,
		log:    log.WithComponent("trace"),
	}

	method := config.Method
	probeCfg := probe.Config{
		Timeout: config.Timeout,
		Port:    config.DestPort,
	}
	t.newProber = func() (probe.Prober, error) {
		return probe.New(method, probeCfg)
	}

	// Build one prober up front so permission problems surface here
	// rather than inside every worker.
	p, err := t.newProber()
	if err != nil {
		return nil, fmt.Errorf("failed to create prober: %w", err)
	}
	t.prober = p

	if config.EnableRDNS {
		t.rdns = enrich.NewRDNSResolver(enrich.DefaultRDNSConfig())
	}

	return t, nil
}

// Trace performs a route trace to the specified target.
func (t *Tracer) Trace(ctx context.Context, target string) (*TraceResult, error) {
	// Resolve target to IP
	dest, err := t.resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}

	t.log.Info("starting trace",
		"target", target,
		"resolved", dest.String(),
		"method", t.prober.Name(),
		"max_hops", t.config.MaxHops)

	// Perform the trace
	var hops []Hop
	if t.config.Sequential {
		hops, err = t.traceSequential(ctx, dest)
	} else {
		hops, err = t.traceConcurrent(ctx, dest)
	}

	if err != nil {
		return nil, err
	}

	result := t.buildResult(target, dest, hops)
	t.log.Info("trace finished",
		"target", target,
		"hops", result.Summary.TotalHops,
		"completed", result.Completed)

	return result, nil
}

// Close releases resources held by the tracer.
func (t *Tracer) Close() error {
	if t.rdns != nil {
		t.rdns.Close()
	}
	if t.prober != nil {
		return t.prober.Close()
	}
	return nil
}

// resolveTarget resolves a hostname or IP string to an IPv4 address.
func (t *Tracer) resolveTarget(ctx context.Context, target string) (net.IP, error) {
	// Check if target is already an IP address
	if ip := net.ParseIP(target); ip != nil {
		if ip.To4() == nil {
			return nil, fmt.Errorf("%s is not an IPv4 address", target)
		}
		return ip.To4(), nil
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", target, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no IPv4 addresses found for %s", target)
	}

	return ips[0].To4(), nil
}

// traceSequential performs a sequential trace, one TTL at a time.
func (t *Tracer) traceSequential(ctx context.Context, dest net.IP) ([]Hop, error) {
	hops := make([]Hop, 0, t.config.MaxHops)

	for ttl := t.config.FirstHop; ttl <= t.config.MaxHops; ttl++ {
		if ctx.Err() != nil {
			return hops, ctx.Err()
		}

		hop := t.probeHop(ctx, t.prober, dest, ttl)
		hops = append(hops, hop)

		// Check if we've reached the destination
		if hop.Responded && hop.IP != nil && hop.IP.Equal(dest) {
			break
		}
	}

	return hops, nil
}

// probeHop sends multiple probes for a single hop and aggregates the results.
func (t *Tracer) probeHop(ctx context.Context, prober probe.Prober, dest net.IP, ttl int) Hop {
	hop := Hop{
		Number: ttl,
		RTTs:   make([]float64, 0, t.config.ProbeCount),
	}

	var lastIP net.IP

	for i := 0; i < t.config.ProbeCount; i++ {
		if ctx.Err() != nil {
			break
		}

		result, err := prober.Probe(ctx, dest, ttl)
		if err != nil {
			// Timeout or error - record as -1
			hop.RTTs = append(hop.RTTs, -1)
			continue
		}

		// Record successful probe
		rtt := float64(result.RTT.Microseconds()) / 1000.0 // Convert to ms
		hop.RTTs = append(hop.RTTs, rtt)

		if result.ResponseIP != nil {
			lastIP = result.ResponseIP
		}
	}

	// Set hop IP if we got any response
	if lastIP != nil {
		hop.IP = lastIP
		hop.Responded = true
	}

	// Calculate statistics
	hop.AvgRTT, hop.MinRTT, hop.MaxRTT, hop.Jitter = calculateRTTStats(hop.RTTs)
	hop.LossPercent = calculateLossPercent(hop.RTTs)
	hop.HighLatency = hop.Responded && hop.AvgRTT > highLatencyThresholdMs

	if t.rdns != nil && hop.IP != nil {
		hop.Hostname, _ = t.rdns.Lookup(ctx, hop.IP)
	}

	t.log.Debug("hop probed",
		"ttl", ttl,
		"ip", hop.IP,
		"avg_rtt_ms", hop.AvgRTT,
		"loss", hop.LossPercent)

	if t.config.OnHop != nil {
		cb := hop
		t.config.OnHop(&cb)
	}

	return hop
}

// timeoutHop builds the hop recorded when no probe could be sent at all.
func (t *Tracer) timeoutHop(ttl int) Hop {
	rtts := make([]float64, t.config.ProbeCount)
	for i := range rtts {
		rtts[i] = -1
	}

	hop := Hop{Number: ttl, RTTs: rtts}
	hop.AvgRTT, hop.MinRTT, hop.MaxRTT, hop.Jitter = calculateRTTStats(rtts)
	hop.LossPercent = calculateLossPercent(rtts)
	return hop
}

// buildResult creates a TraceResult from the collected hops.
func (t *Tracer) buildResult(target string, dest net.IP, hops []Hop) *TraceResult {
	result := &TraceResult{
		Target:      target,
		ResolvedIP:  dest,
		Timestamp:   time.Now(),
		ProbeMethod: t.prober.Name(),
		MaxHops:     t.config.MaxHops,
		Hops:        hops,
		Completed:   false,
	}

	// Check if trace completed (reached destination)
	if len(hops) > 0 {
		lastHop := hops[len(hops)-1]
		if lastHop.IP != nil && lastHop.IP.Equal(dest) {
			result.Completed = true
		}
	}

	// Calculate summary statistics
	result.Summary = t.calculateSummary(hops)

	return result
}

// calculateSummary calculates aggregate statistics for the trace.
func (t *Tracer) calculateSummary(hops []Hop) Summary {
	summary := Summary{
		TotalHops: len(hops),
	}

	var totalLoss float64
	for _, hop := range hops {
		totalLoss += hop.LossPercent
	}

	if len(hops) > 0 {
		summary.PacketLossPercent = totalLoss / float64(len(hops))
	}

	// Total time is the RTT to the last responding hop
	for i := len(hops) - 1; i >= 0; i-- {
		if hops[i].AvgRTT > 0 {
			summary.TotalTimeMs = hops[i].AvgRTT
			break
		}
	}

	return summary
}

// calculateRTTStats calculates RTT statistics from a slice of RTT values.
// Negative values are treated as timeouts and excluded from calculations.
func calculateRTTStats(rtts []float64) (avg, min, max, jitter float64) {
	var valid []float64
	for _, rtt := range rtts {
		if rtt >= 0 {
			valid = append(valid, rtt)
		}
	}

	if len(valid) == 0 {
		return 0, 0, 0, 0
	}

	min = valid[0]
	max = valid[0]
	sum := 0.0

	for _, rtt := range valid {
		sum += rtt
		if rtt < min {
			min = rtt
		}
		if rtt > max {
			max = rtt
		}
	}

	avg = sum / float64(len(valid))
	jitter = max - min

	return
}

// calculateLossPercent calculates packet loss percentage.
// Negative RTT values indicate timeouts.
func calculateLossPercent(rtts []float64) float64 {
	if len(rtts) == 0 {
		return 0
	}

	timeouts := 0
	for _, rtt := range rtts {
		if rtt < 0 {
			timeouts++
		}
	}

	return float64(timeouts) / float64(len(rtts)) * 100
}
