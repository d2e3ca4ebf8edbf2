package render

import (
	"bytes"
	"fmt"

	"github.com/JustAaronHere/NetWeaver/internal/netutil"
	"github.com/JustAaronHere/NetWeaver/internal/optimize"
)

// DNS writes the resolver benchmark ranking.
func (r *Renderer) DNS(report *optimize.DNSReport) error {
	var buf bytes.Buffer

	buf.WriteString(r.paint(r.scheme.Header, "DNS resolver benchmark\n\n"))

	table := newTable(&buf)
	table.SetHeader([]string{"Rank", "Resolver", "Avg Latency", "Queries", "Failed"})
	for i, res := range report.Results {
		latency := "-"
		if res.Reachable() {
			ms := float64(res.AvgLatency.Microseconds()) / 1000
			latency = r.colorizeRTT(ms, fmt.Sprintf("%.2f ms", ms))
		}
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			res.Resolver,
			latency,
			fmt.Sprintf("%d", res.Queries),
			fmt.Sprintf("%d", res.Failed),
		})
	}
	table.Render()

	if fastest, ok := report.Fastest(); ok {
		fmt.Fprintf(&buf, "\nFastest resolver: %s\n", r.paint(r.scheme.Good, fastest.Resolver))
	} else {
		buf.WriteString(r.paint(r.scheme.Crit, "\nNo resolver answered.\n"))
	}

	_, err := r.out.Write(buf.Bytes())
	return err
}

// MTU writes the path MTU discovery outcome.
func (r *Renderer) MTU(report *optimize.MTUReport) error {
	var buf bytes.Buffer

	buf.WriteString(r.paint(r.scheme.Header, "Path MTU discovery\n\n"))
	fmt.Fprintf(&buf, "  Target:     %s\n", report.Target)
	if report.Interface != "" {
		fmt.Fprintf(&buf, "  Interface:  %s (link MTU %d)\n", report.Interface, report.LinkMTU)
	}
	fmt.Fprintf(&buf, "  Path MTU:   %s\n", r.paint(r.scheme.Accent, fmt.Sprintf("%d", report.PathMTU)))

	if report.LinkMTU > 0 && report.PathMTU < report.LinkMTU {
		note := fmt.Sprintf("\nThe path carries less than the link (%d < %d); consider clamping the interface MTU.\n",
			report.PathMTU, report.LinkMTU)
		buf.WriteString(r.paint(r.scheme.Warn, note))
	}

	_, err := r.out.Write(buf.Bytes())
	return err
}

// TCP writes the TCP tunables report.
func (r *Renderer) TCP(report *optimize.TCPReport) error {
	var buf bytes.Buffer

	buf.WriteString(r.paint(r.scheme.Header, "TCP stack inspection\n\n"))

	table := newTable(&buf)
	table.SetHeader([]string{"Parameter", "Current", "Recommended", "Status"})
	for _, p := range report.Params {
		status := r.paint(r.scheme.Good, "ok")
		if !p.Satisfied {
			status = r.paint(r.scheme.Warn, "tune")
		}
		table.Append([]string{p.Name, p.Value, p.Recommended, status})
	}
	table.Render()

	if report.Tuned() {
		buf.WriteString(r.paint(r.scheme.Good, "\nEvery parameter already matches the recommendation.\n"))
	}

	_, err := r.out.Write(buf.Bytes())
	return err
}

// Advice writes the measured metrics and the recommendations drawn from
// them.
func (r *Renderer) Advice(advice *optimize.Advice) error {
	var buf bytes.Buffer

	buf.WriteString(r.paint(r.scheme.Header, "Network conditions\n\n"))

	m := advice.Metrics
	if m.ProbesSent > 0 {
		ms := float64(m.AvgLatency.Microseconds()) / 1000
		fmt.Fprintf(&buf, "  Avg latency:    %s\n", r.colorizeRTT(ms, fmt.Sprintf("%.2f ms", ms)))
		loss := fmt.Sprintf("%.1f%%", m.PacketLoss)
		if m.PacketLoss > 0 {
			loss = r.paint(r.scheme.Warn, loss)
		}
		fmt.Fprintf(&buf, "  Packet loss:    %s\n", loss)
	} else {
		fmt.Fprintf(&buf, "  Avg latency:    %s\n", "unavailable")
	}
	fmt.Fprintf(&buf, "  Throughput:     rx %s, tx %s\n",
		netutil.FormatBandwidth(m.RecvRate), netutil.FormatBandwidth(m.SentRate))
	fmt.Fprintf(&buf, "  Retransmits:    %d in window\n", m.Retransmits)

	buf.WriteString(r.paint(r.scheme.Header, "\nRecommendations\n\n"))
	for i, rec := range advice.Recommendations {
		fmt.Fprintf(&buf, "  %d. %s\n", i+1, rec)
	}

	_, err := r.out.Write(buf.Bytes())
	return err
}
