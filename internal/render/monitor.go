package render

import (
	"bytes"
	"fmt"

	"github.com/JustAaronHere/NetWeaver/internal/monitor"
	"github.com/JustAaronHere/NetWeaver/internal/netutil"
)

// Counters writes a one-shot traffic snapshot for every interface.
func (r *Renderer) Counters(rows []monitor.Counters) error {
	var buf bytes.Buffer

	table := newTable(&buf)
	table.SetHeader([]string{"Interface", "RX Bytes", "RX Packets", "TX Bytes", "TX Packets", "Errors", "Drops"})
	for _, row := range rows {
		table.Append([]string{
			row.Interface,
			netutil.FormatBytes(float64(row.BytesRecv)),
			fmt.Sprintf("%d", row.PacketsRecv),
			netutil.FormatBytes(float64(row.BytesSent)),
			fmt.Sprintf("%d", row.PacketsSent),
			r.counterCell(row.ErrsRecv + row.ErrsSent),
			r.counterCell(row.DropsRecv + row.DropsSent),
		})
	}
	table.Render()

	_, err := r.out.Write(buf.Bytes())
	return err
}

// Sample writes one live sample with rates, for non-TTY watch output.
func (r *Renderer) Sample(s monitor.Sample) error {
	_, err := fmt.Fprintf(r.out, "%s  rx %s (%s)  tx %s (%s)\n",
		s.Counters.At.Format("15:04:05"),
		netutil.FormatBandwidth(s.Rates.RecvBytesPerSec),
		netutil.FormatBytes(float64(s.Counters.BytesRecv)),
		netutil.FormatBandwidth(s.Rates.SentBytesPerSec),
		netutil.FormatBytes(float64(s.Counters.BytesSent)))
	return err
}

// counterCell colors error and drop counts that are nonzero.
func (r *Renderer) counterCell(n uint64) string {
	s := fmt.Sprintf("%d", n)
	if n == 0 {
		return r.paint(r.scheme.Good, s)
	}
	return r.paint(r.scheme.Crit, s)
}
