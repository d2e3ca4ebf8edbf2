package monitor

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JustAaronHere/NetWeaver/internal/logging"
)

const (
	namespace          = "netweaver"
	subsystemInterface = "interface"

	shutdownGrace     = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Daemon exposes interface counters and rates as Prometheus metrics.
// Counters are republished on every sampling tick; rates come from the
// same tick-to-tick deltas the dashboard uses.
type Daemon struct {
	mon    *Monitor
	listen string
	log    *logging.Logger

	registry *prometheus.Registry

	recvBytes   *prometheus.GaugeVec
	sentBytes   *prometheus.GaugeVec
	recvPackets *prometheus.GaugeVec
	sentPackets *prometheus.GaugeVec
	recvErrs    *prometheus.GaugeVec
	sentErrs    *prometheus.GaugeVec
	recvDrops   *prometheus.GaugeVec
	sentDrops   *prometheus.GaugeVec

	recvBytesRate   *prometheus.GaugeVec
	sentBytesRate   *prometheus.GaugeVec
	recvPacketsRate *prometheus.GaugeVec
	sentPacketsRate *prometheus.GaugeVec

	prev map[string]Counters
}

// NewDaemon creates a metrics daemon around a Monitor. listen is the
// HTTP address for /metrics.
func NewDaemon(mon *Monitor, listen string) *Daemon {
	registry := prometheus.NewRegistry()

	gauge := func(name, help string) *prometheus.GaugeVec {
		g := prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystemInterface,
				Name:      name,
				Help:      help,
			},
			[]string{"interface"},
		)
		registry.MustRegister(g)
		return g
	}

	d := &Daemon{
		mon:    mon,
		listen: listen,
		log:    mon.log.WithComponent("daemon"),

		registry: registry,

		recvBytes:   gauge("receive_bytes", "Cumulative bytes received, as reported by the kernel."),
		sentBytes:   gauge("transmit_bytes", "Cumulative bytes transmitted, as reported by the kernel."),
		recvPackets: gauge("receive_packets", "Cumulative packets received."),
		sentPackets: gauge("transmit_packets", "Cumulative packets transmitted."),
		recvErrs:    gauge("receive_errors", "Cumulative receive errors."),
		sentErrs:    gauge("transmit_errors", "Cumulative transmit errors."),
		recvDrops:   gauge("receive_drops", "Cumulative inbound packets dropped."),
		sentDrops:   gauge("transmit_drops", "Cumulative outbound packets dropped."),

		recvBytesRate:   gauge("receive_bytes_per_second", "Receive throughput over the last sampling interval."),
		sentBytesRate:   gauge("transmit_bytes_per_second", "Transmit throughput over the last sampling interval."),
		recvPacketsRate: gauge("receive_packets_per_second", "Receive packet rate over the last sampling interval."),
		sentPacketsRate: gauge("transmit_packets_per_second", "Transmit packet rate over the last sampling interval."),

		prev: make(map[string]Counters),
	}

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return d
}

// Handler returns the /metrics HTTP handler.
func (d *Daemon) Handler() http.Handler {
	return promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{})
}

// Run serves /metrics on the daemon's listen address and keeps the
// gauges current until the context is done.
func (d *Daemon) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", d.Handler())

	srv := &http.Server{
		Addr:              d.listen,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go d.sampleLoop(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	d.log.Info("metrics daemon listening", "addr", d.listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (d *Daemon) sampleLoop(ctx context.Context) {
	ticker := time.NewTicker(d.mon.config.Interval)
	defer ticker.Stop()

	d.sample()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sample()
		}
	}
}

func (d *Daemon) sample() {
	rows, err := d.mon.Interfaces()
	if err != nil {
		d.log.Warn("counter read failed", "error", err)
		return
	}
	d.observe(rows)
}

// observe publishes one set of counter rows, deriving per-interface
// rates against the previous publication.
func (d *Daemon) observe(rows []Counters) {
	for _, row := range rows {
		labels := prometheus.Labels{"interface": row.Interface}

		d.recvBytes.With(labels).Set(float64(row.BytesRecv))
		d.sentBytes.With(labels).Set(float64(row.BytesSent))
		d.recvPackets.With(labels).Set(float64(row.PacketsRecv))
		d.sentPackets.With(labels).Set(float64(row.PacketsSent))
		d.recvErrs.With(labels).Set(float64(row.ErrsRecv))
		d.sentErrs.With(labels).Set(float64(row.ErrsSent))
		d.recvDrops.With(labels).Set(float64(row.DropsRecv))
		d.sentDrops.With(labels).Set(float64(row.DropsSent))

		if prev, ok := d.prev[row.Interface]; ok {
			rates := rateBetween(prev, row)
			d.recvBytesRate.With(labels).Set(rates.RecvBytesPerSec)
			d.sentBytesRate.With(labels).Set(rates.SentBytesPerSec)
			d.recvPacketsRate.With(labels).Set(rates.RecvPacketsPerSec)
			d.sentPacketsRate.With(labels).Set(rates.SentPacketsPerSec)
		}
		d.prev[row.Interface] = row
	}
}
