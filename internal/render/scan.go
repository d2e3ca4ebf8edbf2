package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/JustAaronHere/NetWeaver/internal/netutil"
	"github.com/JustAaronHere/NetWeaver/internal/scan"
)

// Devices writes the scan result as a device table with a summary line.
func (r *Renderer) Devices(result *scan.Result) error {
	var buf bytes.Buffer

	header := fmt.Sprintf("Network: %s\n\n", result.Network)
	buf.WriteString(r.paint(r.scheme.Header, header))

	if len(result.Devices) == 0 {
		buf.WriteString("No responsive hosts found.\n")
	} else {
		table := newTable(&buf)
		table.SetHeader([]string{"IP Address", "Hostname", "MAC", "Vendor", "Open Ports", "Latency"})
		for _, dev := range result.Devices {
			table.Append(r.deviceRow(dev))
		}
		table.Render()
	}

	fmt.Fprintf(&buf, "\n%d of %d hosts responded in %.2fs\n",
		result.ResponsiveHosts, result.TotalHosts, result.Duration.Seconds())

	_, err := r.out.Write(buf.Bytes())
	return err
}

// deviceRow formats one discovered device.
func (r *Renderer) deviceRow(dev scan.Device) []string {
	hostname := dev.Hostname
	if hostname == "" {
		hostname = "-"
	}
	mac := "-"
	if dev.MAC != nil {
		mac = dev.MAC.String()
	}
	vendor := dev.Vendor
	if vendor == "" {
		vendor = "-"
	}

	latency := "-"
	if dev.LatencyMs > 0 {
		latency = r.colorizeRTT(dev.LatencyMs, fmt.Sprintf("%.2f ms", dev.LatencyMs))
	}

	return []string{
		r.paint(r.scheme.IP, dev.IP.String()),
		truncateString(hostname, 30),
		mac,
		truncateString(vendor, 20),
		r.formatPorts(dev.OpenPorts),
		latency,
	}
}

// formatPorts renders an open-port list, coloring risky services.
func (r *Renderer) formatPorts(ports []uint16) string {
	if len(ports) == 0 {
		return "-"
	}

	rendered := make([]string, 0, len(ports))
	for _, port := range ports {
		s := strconv.Itoa(int(port))
		if name := netutil.ServiceName(port); name != "" {
			s += "/" + name
		}
		if netutil.IsRiskyPort(port) {
			s = r.paint(r.scheme.Warn, s)
		}
		rendered = append(rendered, s)
	}
	return strings.Join(rendered, ", ")
}
