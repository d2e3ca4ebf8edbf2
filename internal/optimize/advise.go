package optimize

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/JustAaronHere/NetWeaver/internal/monitor"
	"github.com/JustAaronHere/NetWeaver/internal/netutil"
	"github.com/JustAaronHere/NetWeaver/internal/probe"
)

const (
	// Thresholds that trip a recommendation.
	latencyThreshold = 50 * time.Millisecond
	lossThreshold    = 1.0 // percent of probes
	retransThreshold = 100 // segments during the sample window

	// sampleWindow is how long throughput and retransmission activity
	// are observed.
	sampleWindow = time.Second

	adviseTTL = 64
)

// Metrics are the measured conditions recommendations are drawn from.
type Metrics struct {
	// AvgLatency is the mean round trip to the probe target across the
	// probes that were answered.
	AvgLatency time.Duration

	// PacketLoss is the percentage of probes that got no reply.
	PacketLoss float64

	// ProbesSent is how many latency probes went out; zero means
	// probing was unavailable and the latency fields are meaningless.
	ProbesSent int

	// Retransmits counts TCP segments the kernel retransmitted during
	// the sample window.
	Retransmits uint64

	// RecvRate and SentRate are the aggregate interface throughput
	// during the sample window, bytes per second.
	RecvRate float64
	SentRate float64
}

// Advice pairs measured metrics with tuning recommendations.
type Advice struct {
	Metrics         Metrics
	Recommendations []string
}

// Advise measures latency, loss, throughput and retransmission activity,
// then derives tuning recommendations. Measurements that need privileges
// or /proc degrade to zero values instead of failing the whole report.
func (o *Optimizer) Advise(ctx context.Context) (*Advice, error) {
	target, err := netutil.ResolveHost(o.config.ProbeTarget)
	if err != nil {
		return nil, err
	}

	o.log.Info("measuring network conditions", "target", target, "window", sampleWindow)

	var m Metrics
	retransBefore, retransOK := o.retransmits()
	m.RecvRate, m.SentRate = o.throughput(ctx)
	if retransOK {
		if after, ok := o.retransmits(); ok && after >= retransBefore {
			m.Retransmits = after - retransBefore
		}
	}

	if err := o.measureLatency(ctx, target, &m); err != nil {
		return nil, err
	}

	return &Advice{Metrics: m, Recommendations: recommend(m)}, nil
}

// retransmits reads the kernel's cumulative retransmission counter,
// reporting whether it is available at all.
func (o *Optimizer) retransmits() (uint64, bool) {
	v, err := readTCPRetransmits()
	if err != nil {
		o.log.Debug("retransmit counters unavailable", "error", err)
		return 0, false
	}
	return v, true
}

// throughput samples aggregate interface rates over one window, zero
// when counters are unavailable.
func (o *Optimizer) throughput(ctx context.Context) (recv, sent float64) {
	mon, err := monitor.New(&monitor.Config{
		Interface: monitor.AllInterfaces,
		Interval:  sampleWindow,
		Logger:    o.config.Logger,
	})
	if err != nil {
		return 0, 0
	}
	rates, err := mon.Rate(ctx, sampleWindow)
	if err != nil {
		o.log.Debug("throughput sample unavailable", "error", err)
		return 0, 0
	}
	return rates.RecvBytesPerSec, rates.SentBytesPerSec
}

// measureLatency sends the configured number of echo probes and fills
// the latency and loss fields. Unavailable probing leaves ProbesSent at
// zero.
func (o *Optimizer) measureLatency(ctx context.Context, target net.IP, m *Metrics) error {
	p, err := probe.New(probe.MethodICMP, probe.Config{Timeout: o.config.ProbeTimeout})
	if err != nil {
		o.log.Warn("latency probing unavailable", "error", err)
		return nil
	}
	defer p.Close()

	var total time.Duration
	var received int
	for i := 0; i < o.config.ProbeCount; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := p.Probe(ctx, target, adviseTTL)
		m.ProbesSent++
		switch {
		case err == nil && res.Reached:
			total += res.RTT
			received++
		case err != nil && !errors.Is(err, probe.ErrTimeout):
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.log.Debug("probe failed", "target", target, "error", err)
		}
	}

	if received > 0 {
		m.AvgLatency = total / time.Duration(received)
	}
	if m.ProbesSent > 0 {
		m.PacketLoss = float64(m.ProbesSent-received) / float64(m.ProbesSent) * 100
	}
	return nil
}

// recommend applies the advisory rules to the measured metrics. The
// latency rules only fire when probing actually ran.
func recommend(m Metrics) []string {
	var recs []string
	if m.ProbesSent > 0 && m.AvgLatency > latencyThreshold {
		recs = append(recs, "Enable TCP Fast Open to reduce connection latency")
	}
	if m.ProbesSent > 0 && m.PacketLoss > lossThreshold {
		recs = append(recs, "Investigate physical connection - high packet loss detected")
	}
	if m.Retransmits > retransThreshold {
		recs = append(recs, "Tune TCP congestion control algorithm (recommend BBR)")
	}
	recs = append(recs,
		"Enable TCP window scaling for better throughput",
		"Configure optimal MTU size for your network",
	)
	return recs
}
