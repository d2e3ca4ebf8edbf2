package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/JustAaronHere/NetWeaver/internal/trace"
)

// TraceText writes the trace in classic traceroute style.
func (r *Renderer) TraceText(result *trace.TraceResult) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "traceroute to %s (%s), %d hops max\n\n",
		result.Target, result.ResolvedIP, result.MaxHops)

	for i := range result.Hops {
		buf.WriteString(r.TraceHop(&result.Hops[i]))
	}

	buf.WriteString("\n")
	if result.Completed {
		fmt.Fprintf(&buf, "Trace complete. %d hops, %.2f ms total\n",
			result.Summary.TotalHops, result.Summary.TotalTimeMs)
	} else {
		fmt.Fprintf(&buf, "Trace incomplete after %d hops\n",
			result.Summary.TotalHops)
	}

	_, err := r.out.Write(buf.Bytes())
	return err
}

// TraceHop formats a single hop line, for streaming output while the
// trace is still running.
func (r *Renderer) TraceHop(hop *trace.Hop) string {
	var buf bytes.Buffer

	buf.WriteString(r.paint(r.scheme.Hop, fmt.Sprintf("%3d  ", hop.Number)))

	if !hop.Responded {
		buf.WriteString(r.paint(r.scheme.Timeout, "* * *"))
		buf.WriteString("\n")
		return buf.String()
	}

	ipStr := r.paint(r.scheme.IP, hop.IP.String())
	if hop.Hostname != "" && !r.config.NoHostname {
		fmt.Fprintf(&buf, "%s (%s)  ", r.paint(r.scheme.Hostname, hop.Hostname), ipStr)
	} else {
		fmt.Fprintf(&buf, "%s  ", ipStr)
	}

	for _, rtt := range hop.RTTs {
		if rtt < 0 {
			fmt.Fprintf(&buf, "%s  ", r.paint(r.scheme.Timeout, "*"))
		} else {
			fmt.Fprintf(&buf, "%s  ", r.colorizeRTT(rtt, fmt.Sprintf("%.3f ms", rtt)))
		}
	}

	if hop.HighLatency {
		buf.WriteString(r.paint(r.scheme.Warn, "[high latency]"))
	}

	buf.WriteString("\n")
	return buf.String()
}

// TraceTable writes the trace as a detailed table with per-hop
// statistics.
func (r *Renderer) TraceTable(result *trace.TraceResult) error {
	var buf bytes.Buffer

	header := fmt.Sprintf("Target: %s (%s)\n", result.Target, result.ResolvedIP)
	header += fmt.Sprintf("Method: %s | Time: %s\n\n",
		strings.ToUpper(result.ProbeMethod),
		result.Timestamp.Format("2006-01-02 15:04:05"))
	buf.WriteString(r.paint(r.scheme.Header, header))

	table := newTable(&buf)
	table.SetHeader([]string{"Hop", "IP Address", "Hostname", "Avg", "Min", "Max", "Jitter", "Loss"})
	for i := range result.Hops {
		table.Append(r.traceRow(&result.Hops[i]))
	}
	table.Render()

	r.writeTraceSummary(&buf, result)

	_, err := r.out.Write(buf.Bytes())
	return err
}

// traceRow formats a single hop as a table row.
func (r *Renderer) traceRow(hop *trace.Hop) []string {
	row := []string{fmt.Sprintf("%d", hop.Number)}

	if !hop.Responded {
		return append(row, "*", "-", "-", "-", "-", "-", "-")
	}
	row = append(row, hop.IP.String(), truncateString(hop.Hostname, 25))

	if hop.AvgRTT > 0 {
		row = append(row,
			r.colorizeRTT(hop.AvgRTT, fmt.Sprintf("%.2f", hop.AvgRTT)),
			fmt.Sprintf("%.2f", hop.MinRTT),
			fmt.Sprintf("%.2f", hop.MaxRTT),
			fmt.Sprintf("%.2f", hop.Jitter),
			fmt.Sprintf("%.0f%%", hop.LossPercent))
	} else {
		row = append(row, "-", "-", "-", "-", "-")
	}
	return row
}

// colorizeRTT colors a rendered RTT by the latency thresholds.
func (r *Renderer) colorizeRTT(rtt float64, s string) string {
	switch {
	case rtt < 50:
		return r.paint(r.scheme.RTTLow, s)
	case rtt < 150:
		return r.paint(r.scheme.RTTMed, s)
	default:
		return r.paint(r.scheme.RTTHigh, s)
	}
}

// writeTraceSummary writes the trace summary.
func (r *Renderer) writeTraceSummary(buf *bytes.Buffer, result *trace.TraceResult) {
	responding := 0
	for _, hop := range result.Hops {
		if hop.Responded {
			responding++
		}
	}

	buf.WriteString("\nSummary:\n")
	fmt.Fprintf(buf, "  Total Hops:    %d\n", result.Summary.TotalHops)
	fmt.Fprintf(buf, "  Responding:    %d\n", responding)
	fmt.Fprintf(buf, "  Total Time:    %.2f ms\n", result.Summary.TotalTimeMs)
	fmt.Fprintf(buf, "  Packet Loss:   %.1f%%\n", result.Summary.PacketLossPercent)

	status := r.paint(r.scheme.Good, "Complete")
	if !result.Completed {
		status = r.paint(r.scheme.Crit, "Incomplete")
	}
	fmt.Fprintf(buf, "  Status:        %s\n", status)
}
