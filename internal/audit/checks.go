package audit

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/JustAaronHere/NetWeaver/internal/netutil"
	"github.com/JustAaronHere/NetWeaver/internal/probe"
	"github.com/JustAaronHere/NetWeaver/internal/scan"
)

const (
	auditConcurrency = 32

	gatewayProbes           = 3
	gatewayTimeout          = time.Second
	gatewayTTL              = 64
	gatewayLatencyThreshold = 100 * time.Millisecond
)

// arpCheck looks for one MAC address answering for several IPs, the
// signature of ARP spoofing.
func (a *Auditor) arpCheck() []Finding {
	entries, err := netutil.ARPTable()
	if err != nil {
		a.log.Debug("arp table unavailable", "error", err)
		return []Finding{{
			Check:    checkARP,
			Severity: SeverityInfo,
			Summary:  "arp table unavailable",
			Detail:   []string{err.Error()},
		}}
	}
	return arpFindings(entries)
}

// arpFindings groups ARP entries by MAC and flags every MAC claiming
// more than one address.
func arpFindings(entries []netutil.ARPEntry) []Finding {
	byMAC := make(map[string][]string)
	for _, e := range entries {
		mac := e.MAC.String()
		byMAC[mac] = append(byMAC[mac], e.IP.String())
	}

	macs := make([]string, 0, len(byMAC))
	for mac := range byMAC {
		macs = append(macs, mac)
	}
	sort.Strings(macs)

	var findings []Finding
	for _, mac := range macs {
		ips := byMAC[mac]
		if len(ips) < 2 {
			continue
		}
		sort.Strings(ips)
		findings = append(findings, Finding{
			Check:    checkARP,
			Severity: SeverityCritical,
			Summary:  fmt.Sprintf("MAC %s claims %d addresses, possible ARP spoofing", mac, len(ips)),
			Detail:   ips,
		})
	}

	if len(findings) == 0 {
		return []Finding{{
			Check:    checkARP,
			Severity: SeverityInfo,
			Summary:  fmt.Sprintf("arp table clean, %d unique MACs", len(byMAC)),
		}}
	}
	return findings
}

// portCheck scans the target's audit ports and reports what answers,
// with a warning per risky service.
func (a *Auditor) portCheck(ctx context.Context) ([]Finding, error) {
	target, err := netutil.ResolveHost(a.config.Target)
	if err != nil {
		return nil, err
	}

	scanner, err := scan.New(&scan.Config{
		Ports:       a.ports,
		Timeout:     a.config.Timeout,
		PortTimeout: a.config.Timeout,
		Concurrency: auditConcurrency,
		Logger:      a.config.Logger,
	})
	if err != nil {
		return nil, err
	}
	defer scanner.Close()

	result, err := scanner.Scan(ctx, target.String())
	if err != nil {
		return nil, err
	}

	seen := make(map[uint16]bool)
	var open []uint16
	for _, dev := range result.Devices {
		for _, port := range dev.OpenPorts {
			if !seen[port] {
				seen[port] = true
				open = append(open, port)
			}
		}
	}
	return portFindings(open), nil
}

// portFindings turns the open-port list into one summary plus a warning
// per risky service.
func portFindings(open []uint16) []Finding {
	if len(open) == 0 {
		return []Finding{{
			Check:    checkPorts,
			Severity: SeverityInfo,
			Summary:  "no open ports found",
		}}
	}

	sort.Slice(open, func(i, j int) bool { return open[i] < open[j] })

	listed := make([]string, 0, len(open))
	var warnings []Finding
	for _, port := range open {
		name := netutil.ServiceName(port)
		if name == "" {
			name = "unknown"
		}
		listed = append(listed, fmt.Sprintf("%d (%s)", port, name))
		if netutil.IsRiskyPort(port) {
			warnings = append(warnings, Finding{
				Check:    checkPorts,
				Severity: SeverityWarning,
				Summary:  fmt.Sprintf("risky service exposed: %s on port %d", name, port),
			})
		}
	}

	findings := []Finding{{
		Check:    checkPorts,
		Severity: SeverityInfo,
		Summary:  fmt.Sprintf("%d open ports", len(open)),
		Detail:   listed,
	}}
	return append(findings, warnings...)
}

// gatewayCheck measures echo latency to the default gateway. A slow or
// detouring gateway can indicate traffic interception, or just a bad
// link; either way it is worth a look.
func (a *Auditor) gatewayCheck(ctx context.Context) []Finding {
	gw, err := netutil.DefaultGateway()
	if err != nil {
		a.log.Debug("gateway unavailable", "error", err)
		return []Finding{{
			Check:    checkGateway,
			Severity: SeverityInfo,
			Summary:  "default gateway unknown",
			Detail:   []string{err.Error()},
		}}
	}

	avg, received, err := a.pingGateway(ctx, gw)
	if err != nil {
		a.log.Debug("gateway probing unavailable", "error", err)
		return []Finding{{
			Check:    checkGateway,
			Severity: SeverityInfo,
			Summary:  fmt.Sprintf("gateway %s latency unmeasured", gw),
			Detail:   []string{err.Error()},
		}}
	}
	return gatewayFindings(gw, avg, received)
}

// pingGateway sends a few echo probes and averages the answered ones.
func (a *Auditor) pingGateway(ctx context.Context, gw net.IP) (avg time.Duration, received int, err error) {
	p, err := probe.New(probe.MethodICMP, probe.Config{Timeout: gatewayTimeout})
	if err != nil {
		return 0, 0, err
	}
	defer p.Close()

	var total time.Duration
	for i := 0; i < gatewayProbes; i++ {
		if ctx.Err() != nil {
			break
		}
		res, err := p.Probe(ctx, gw, gatewayTTL)
		if err == nil && res.Reached {
			total += res.RTT
			received++
		}
	}

	if received > 0 {
		avg = total / time.Duration(received)
	}
	return avg, received, nil
}

// gatewayFindings classifies the measured gateway latency.
func gatewayFindings(gw net.IP, avg time.Duration, received int) []Finding {
	if received == 0 {
		// Plenty of gateways drop echo; silence alone proves nothing.
		return []Finding{{
			Check:    checkGateway,
			Severity: SeverityInfo,
			Summary:  fmt.Sprintf("gateway %s did not answer echo probes", gw),
		}}
	}

	latency := netutil.FormatLatency(float64(avg.Microseconds()))
	if avg > gatewayLatencyThreshold {
		return []Finding{{
			Check:    checkGateway,
			Severity: SeverityWarning,
			Summary:  fmt.Sprintf("gateway %s latency high: %s", gw, latency),
		}}
	}
	return []Finding{{
		Check:    checkGateway,
		Severity: SeverityInfo,
		Summary:  fmt.Sprintf("gateway %s latency %s", gw, latency),
	}}
}
