// Package scan discovers live hosts on a network range and enumerates
// their open ports. Discovery and port probing run through the raw
// packet engine when the process has raw-socket privileges (ICMP echo
// sweep, half-open TCP SYN scan) and fall back to plain TCP connect
// probing otherwise. Discovered devices are enriched with reverse DNS
// names and, on the local segment, ARP-derived MAC addresses and
// hardware vendors.
package scan

import (
	"context"
	"fmt"
	"net"
	"os"
	"sort"
	"time"

	"github.com/JustAaronHere/NetWeaver/internal/engine"
	"github.com/JustAaronHere/NetWeaver/internal/enrich"
	"github.com/JustAaronHere/NetWeaver/internal/logging"
	"github.com/JustAaronHere/NetWeaver/internal/netutil"
)

const (
	defaultLivenessTimeout = 500 * time.Millisecond
	defaultPortTimeout     = 200 * time.Millisecond
	defaultConcurrency     = 64

	// sprayBatch bounds how many probes are in flight per engine batch so
	// the correlation table never evicts a live entry mid-sweep.
	sprayBatch = 512
)

// Device is one responsive host with everything the scan learned about it.
type Device struct {
	IP        net.IP
	Hostname  string
	MAC       net.HardwareAddr
	Vendor    string
	OpenPorts []uint16
	LatencyMs float64
	LastSeen  time.Time
}

// Result holds the outcome of a network scan.
type Result struct {
	Network         string
	TotalHosts      int
	ResponsiveHosts int
	Duration        time.Duration
	Devices         []Device
}

// Config controls scan behavior.
type Config struct {
	// Ports to probe on each live host. Empty means the common-ports set.
	Ports []uint16

	// Timeout is how long to wait for a liveness reply per sweep batch.
	Timeout time.Duration

	// PortTimeout is the per-port wait for the port scan.
	PortTimeout time.Duration

	// Concurrency sizes the worker pool used by the connect fallbacks.
	Concurrency int

	// EnableRDNS resolves hostnames for discovered devices.
	EnableRDNS bool

	// ResolveMAC annotates devices with ARP-table MAC addresses and
	// hardware vendors. Only effective for hosts on the local segment.
	ResolveMAC bool

	Logger *logging.Logger
}

// DefaultConfig returns scan defaults.
func DefaultConfig() *Config {
	return &Config{
		Ports:       netutil.CommonPorts(),
		Timeout:     defaultLivenessTimeout,
		PortTimeout: defaultPortTimeout,
		Concurrency: defaultConcurrency,
		EnableRDNS:  true,
		ResolveMAC:  true,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Timeout < 10*time.Millisecond {
		return ErrInvalidTimeout
	}
	if c.PortTimeout < 10*time.Millisecond {
		return ErrInvalidTimeout
	}
	if c.Concurrency < 1 || c.Concurrency > 1024 {
		return ErrInvalidConcurrency
	}
	for _, p := range c.Ports {
		if p == 0 {
			return ErrInvalidPort
		}
	}
	return nil
}

// Scanner performs network scans. Create with New, release with Close.
type Scanner struct {
	config *Config
	log    *logging.Logger

	// eng drives the privileged paths. Nil when the process cannot open
	// raw sockets; every probe then goes through the connect fallback.
	eng   *engine.Engine
	srcIP uint32
	id    uint16
	sport uint16

	rdns *enrich.RDNSResolver
}

// New creates a Scanner. Raw-socket privileges are detected here: with
// them the scanner sweeps via the packet engine, without them it degrades
// to TCP connect probing and logs the downgrade.
func New(config *Config) (*Scanner, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(config.Ports) == 0 {
		config.Ports = netutil.CommonPorts()
	}

	log := config.Logger
	if log == nil {
		log = logging.Discard()
	}

	s := &Scanner{
		config: config,
		log:    log.WithComponent("scan"),
	}

	if err := rawSocketPermitted(); err == nil {
		eng, err := engine.New(
			engine.WithProbeTimeout(2*config.Timeout+config.PortTimeout),
			engine.WithTableCapacity(2*sprayBatch),
		)
		if err != nil {
			return nil, err
		}
		local, err := netutil.LocalIP()
		if err != nil {
			eng.Close()
			return nil, fmt.Errorf("resolving local address: %w", err)
		}
		src, ok := engine.FromNetIP(local)
		if !ok {
			eng.Close()
			return nil, fmt.Errorf("local address %v is not IPv4", local)
		}
		pid := os.Getpid()
		s.eng = eng
		s.srcIP = src
		s.id = uint16(pid & 0xffff)
		s.sport = uint16(30000 + pid%10000)
	} else {
		s.log.Warn("raw sockets unavailable, using connect probing", "error", err)
	}

	if config.EnableRDNS {
		s.rdns = enrich.NewRDNSResolver(enrich.DefaultRDNSConfig())
	}

	return s, nil
}

// Privileged reports whether the scanner is using raw-socket sweeps.
func (s *Scanner) Privileged() bool {
	return s.eng != nil
}

// Close releases the scanner's resources.
func (s *Scanner) Close() error {
	if s.rdns != nil {
		s.rdns.Close()
	}
	if s.eng != nil {
		return s.eng.Close()
	}
	return nil
}

// Scan sweeps the target (a CIDR range, or a single address) for live
// hosts, probes each live host's ports, and enriches the results.
func (s *Scanner) Scan(ctx context.Context, target string) (*Result, error) {
	hosts, err := netutil.ExpandCIDR(target)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	s.log.Info("starting scan",
		"target", target,
		"hosts", len(hosts),
		"ports", len(s.config.Ports),
		"privileged", s.Privileged(),
	)

	// Stage 1: liveness. The engine sweep answers for most hosts; those
	// that drop ICMP get a second chance over TCP connect.
	alive := make(map[uint32]float64)
	if s.eng != nil {
		if err := s.icmpSweep(ctx, hosts, alive); err != nil {
			return nil, err
		}
		var silent []net.IP
		for _, h := range hosts {
			if ip, ok := engine.FromNetIP(h); ok {
				if _, seen := alive[ip]; !seen {
					silent = append(silent, h)
				}
			}
		}
		s.connectSweep(ctx, silent, alive)
	} else {
		s.connectSweep(ctx, hosts, alive)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	liveHosts := make([]uint32, 0, len(alive))
	for ip := range alive {
		liveHosts = append(liveHosts, ip)
	}
	sort.Slice(liveHosts, func(i, j int) bool { return liveHosts[i] < liveHosts[j] })

	// Stage 2: port scan of every live host.
	var open map[uint32][]uint16
	if s.eng != nil {
		open, err = s.synSweep(ctx, liveHosts, s.config.Ports)
		if err != nil {
			return nil, err
		}
	} else {
		open = s.connectPorts(ctx, liveHosts, s.config.Ports)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3: enrichment.
	devices := make([]Device, 0, len(liveHosts))
	now := time.Now()
	for _, ip := range liveHosts {
		devices = append(devices, Device{
			IP:        engine.ToNetIP(ip),
			OpenPorts: open[ip],
			LatencyMs: alive[ip],
			LastSeen:  now,
		})
	}
	if s.rdns != nil {
		s.resolveHostnames(ctx, devices)
	}
	if s.config.ResolveMAC {
		s.resolveVendors(devices)
	}

	result := &Result{
		Network:         target,
		TotalHosts:      len(hosts),
		ResponsiveHosts: len(devices),
		Duration:        time.Since(start),
		Devices:         devices,
	}

	s.log.Info("scan finished",
		"target", target,
		"responsive", result.ResponsiveHosts,
		"duration", result.Duration,
	)
	return result, nil
}

// resolveHostnames fills in reverse-DNS names for all devices at once.
func (s *Scanner) resolveHostnames(ctx context.Context, devices []Device) {
	ips := make([]net.IP, len(devices))
	for i := range devices {
		ips[i] = devices[i].IP
	}
	names := s.rdns.LookupBatch(ctx, ips)
	for i := range devices {
		devices[i].Hostname = names[devices[i].IP.String()]
	}
}

// resolveVendors annotates devices that appear in the ARP table with
// their MAC address and hardware vendor.
func (s *Scanner) resolveVendors(devices []Device) {
	entries, err := netutil.ARPTable()
	if err != nil {
		s.log.Debug("arp table unavailable", "error", err)
		return
	}
	byIP := make(map[string]net.HardwareAddr, len(entries))
	for _, e := range entries {
		byIP[e.IP.String()] = e.MAC
	}
	for i := range devices {
		if mac, ok := byIP[devices[i].IP.String()]; ok {
			devices[i].MAC = mac
			devices[i].Vendor = netutil.VendorForMAC(mac)
		}
	}
}
