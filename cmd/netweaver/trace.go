package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JustAaronHere/NetWeaver/internal/probe"
	"github.com/JustAaronHere/NetWeaver/internal/trace"
)

var (
	traceUDP        bool
	traceTCP        bool
	traceMaxHops    int
	traceQueries    int
	traceTimeout    time.Duration
	traceFirstHop   int
	traceSequential bool
	tracePort       int
	traceNoRDNS     bool
	traceTable      bool
)

var traceCmd = &cobra.Command{
	Use:   "trace <target>",
	Short: "Trace the route to a target",
	Long: `Trace the route packets take to reach a destination host, showing
each hop along the path with timing information.

Examples:
  netweaver trace google.com            Basic trace using ICMP
  netweaver trace -U google.com         Use UDP probes
  netweaver trace -T --port 443 host    TCP probe to port 443
  netweaver trace --table google.com    Detailed table output`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	traceCmd.Flags().BoolVarP(&traceUDP, "udp", "U", false, "Use UDP probes")
	traceCmd.Flags().BoolVarP(&traceTCP, "tcp", "T", false, "Use TCP SYN probes")
	traceCmd.Flags().IntVarP(&traceMaxHops, "max-hops", "m", 0, "Maximum number of hops")
	traceCmd.Flags().IntVar(&traceQueries, "queries", 0, "Number of probes per hop")
	traceCmd.Flags().DurationVarP(&traceTimeout, "timeout", "w", 0, "Probe timeout")
	traceCmd.Flags().IntVarP(&traceFirstHop, "first-hop", "f", 0, "Start from specified hop")
	traceCmd.Flags().BoolVar(&traceSequential, "sequential", false, "Probe hops one at a time")
	traceCmd.Flags().IntVarP(&tracePort, "port", "p", 0, "Destination port (UDP/TCP)")
	traceCmd.Flags().BoolVar(&traceNoRDNS, "no-rdns", false, "Disable reverse DNS lookups")
	traceCmd.Flags().BoolVar(&traceTable, "table", false, "Show detailed table output")

	rootCmd.AddCommand(traceCmd)
}

func runTrace(cmd *cobra.Command, args []string) error {
	target := resolveAlias(args[0])

	traceConfig := trace.DefaultConfig()
	traceConfig.Logger = logger

	// Config file defaults, then explicit flags on top
	defaults := cfg.Trace
	if defaults.Method != "" {
		method, err := probe.ParseMethod(defaults.Method)
		if err != nil {
			return fmt.Errorf("invalid trace method in config: %w", err)
		}
		traceConfig.Method = method
	}
	if defaults.MaxHops > 0 {
		traceConfig.MaxHops = defaults.MaxHops
	}
	if defaults.Queries > 0 {
		traceConfig.ProbeCount = defaults.Queries
	}
	if defaults.Timeout > 0 {
		traceConfig.Timeout = defaults.Timeout
	}
	if defaults.FirstHop > 0 {
		traceConfig.FirstHop = defaults.FirstHop
	}
	if defaults.Port > 0 {
		traceConfig.DestPort = defaults.Port
	}
	traceConfig.Sequential = defaults.Sequential

	if traceUDP {
		traceConfig.Method = probe.MethodUDP
	}
	if traceTCP {
		traceConfig.Method = probe.MethodTCP
	}
	if cmd.Flags().Changed("max-hops") {
		traceConfig.MaxHops = traceMaxHops
	}
	if cmd.Flags().Changed("queries") {
		traceConfig.ProbeCount = traceQueries
	}
	if cmd.Flags().Changed("timeout") {
		traceConfig.Timeout = traceTimeout
	}
	if cmd.Flags().Changed("first-hop") {
		traceConfig.FirstHop = traceFirstHop
	}
	if cmd.Flags().Changed("port") {
		traceConfig.DestPort = tracePort
	}
	if cmd.Flags().Changed("sequential") {
		traceConfig.Sequential = traceSequential
	}
	if traceNoRDNS {
		traceConfig.EnableRDNS = false
	}

	r := newRenderer()

	// On a terminal, print each hop as it is probed. Piped output gets
	// the whole text block once the trace finishes.
	streaming := !traceTable && r.IsTTY()
	if streaming {
		traceConfig.OnHop = func(hop *trace.Hop) {
			fmt.Print(r.TraceHop(hop))
		}
	}

	tracer, err := trace.New(traceConfig)
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	defer tracer.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if streaming {
		fmt.Printf("traceroute to %s, %d hops max\n\n", target, traceConfig.MaxHops)
	}

	result, err := tracer.Trace(ctx, target)
	if err != nil {
		return fmt.Errorf("trace failed: %w", err)
	}

	if traceTable {
		return r.TraceTable(result)
	}
	if !streaming {
		return r.TraceText(result)
	}

	// Hops already printed via OnHop, just the summary remains
	fmt.Println()
	if result.Completed {
		fmt.Printf("Trace complete. %d hops, %.2f ms total\n",
			result.Summary.TotalHops, result.Summary.TotalTimeMs)
	} else {
		fmt.Printf("Trace incomplete after %d hops\n", result.Summary.TotalHops)
	}

	return nil
}
