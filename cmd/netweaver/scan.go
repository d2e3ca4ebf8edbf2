package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JustAaronHere/NetWeaver/internal/netutil"
	"github.com/JustAaronHere/NetWeaver/internal/scan"
)

var (
	scanPorts       string
	scanTimeout     time.Duration
	scanConcurrency int
	scanNoRDNS      bool
	scanNoVendor    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [network]",
	Short: "Scan and discover network devices",
	Long: `Scan a network for live hosts, open ports and device details.

Without an argument the local network is detected and scanned.

Examples:
  netweaver scan                        Scan the local network
  netweaver scan 192.168.1.0/24         Scan a CIDR range
  netweaver scan 10.0.0.5               Scan a single host
  netweaver scan -p 22,80,8000-8100     Scan specific ports`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanPorts, "ports", "p", "", "Ports to probe, like 22,80,8000-8100 (default: common set)")
	scanCmd.Flags().DurationVarP(&scanTimeout, "timeout", "w", 0, "Per-probe timeout")
	scanCmd.Flags().IntVarP(&scanConcurrency, "concurrency", "c", 0, "Concurrent probe workers")
	scanCmd.Flags().BoolVar(&scanNoRDNS, "no-rdns", false, "Skip reverse DNS lookups")
	scanCmd.Flags().BoolVar(&scanNoVendor, "no-vendor", false, "Skip MAC vendor identification")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	var network string
	if len(args) > 0 {
		network = resolveAlias(args[0])
	} else {
		detected, err := netutil.LocalNetwork()
		if err != nil {
			return fmt.Errorf("failed to detect local network: %w", err)
		}
		network = detected
	}

	scanConfig := scan.DefaultConfig()
	scanConfig.Logger = logger
	scanConfig.EnableRDNS = cfg.Scan.RDNS
	scanConfig.ResolveMAC = cfg.Scan.Vendor

	// Port list: flag wins over config file, empty keeps the common set
	portSpec := cfg.Scan.Ports
	if cmd.Flags().Changed("ports") {
		portSpec = scanPorts
	}
	if portSpec != "" {
		ports, err := netutil.ParsePorts(portSpec)
		if err != nil {
			return fmt.Errorf("invalid port list: %w", err)
		}
		scanConfig.Ports = ports
	}

	if cfg.Scan.Timeout > 0 {
		scanConfig.PortTimeout = cfg.Scan.Timeout
	}
	if cmd.Flags().Changed("timeout") {
		scanConfig.Timeout = scanTimeout
		scanConfig.PortTimeout = scanTimeout
	}
	if scanConcurrency > 0 {
		scanConfig.Concurrency = scanConcurrency
	}
	if scanNoRDNS {
		scanConfig.EnableRDNS = false
	}
	if scanNoVendor {
		scanConfig.ResolveMAC = false
	}

	scanner, err := scan.New(scanConfig)
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}
	defer scanner.Close()

	if !scanner.Privileged() {
		fmt.Fprintln(os.Stderr, "Running without raw socket privileges, using connect probes")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := scanner.Scan(ctx, network)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	return newRenderer().Devices(result)
}
