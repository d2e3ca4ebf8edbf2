package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JustAaronHere/NetWeaver/internal/optimize"
)

var (
	optDNS    bool
	optMTU    bool
	optTCP    bool
	optAdvise bool
	optAll    bool
	optTarget string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Analyze network performance",
	Long: `Measure the network conditions this host sees and report what could
be tuned. Nothing is ever changed; every report is read-only.

Examples:
  netweaver optimize --dns              Benchmark DNS resolvers
  netweaver optimize --mtu              Discover the path MTU
  netweaver optimize --tcp              Inspect TCP tuning parameters
  netweaver optimize --advise           Measure conditions and recommend
  netweaver optimize --all              Run every report`,
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().BoolVar(&optDNS, "dns", false, "Benchmark and rank DNS resolvers")
	optimizeCmd.Flags().BoolVar(&optMTU, "mtu", false, "Discover the path MTU")
	optimizeCmd.Flags().BoolVar(&optTCP, "tcp", false, "Inspect TCP tuning parameters")
	optimizeCmd.Flags().BoolVar(&optAdvise, "advise", false, "Measure conditions and recommend tuning")
	optimizeCmd.Flags().BoolVar(&optAll, "all", false, "Run every report")
	optimizeCmd.Flags().StringVar(&optTarget, "target", "", "Probe target for MTU discovery and advice")

	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	if !optDNS && !optMTU && !optTCP && !optAdvise && !optAll {
		return cmd.Help()
	}

	optConfig := optimize.DefaultConfig()
	optConfig.Logger = logger
	if len(cfg.Optimize.Resolvers) > 0 {
		optConfig.Resolvers = cfg.Optimize.Resolvers
	}
	if len(cfg.Optimize.Domains) > 0 {
		optConfig.Domains = cfg.Optimize.Domains
	}
	if optTarget != "" {
		optConfig.ProbeTarget = resolveAlias(optTarget)
	}

	opt, err := optimize.New(optConfig)
	if err != nil {
		return fmt.Errorf("failed to create optimizer: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	r := newRenderer()

	// With --all a failing report is skipped so the others still run;
	// a single requested report fails the command.
	if optDNS || optAll {
		report, err := opt.BenchmarkDNS(ctx)
		if err != nil {
			if !optAll {
				return fmt.Errorf("dns benchmark failed: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Skipping DNS benchmark: %v\n", err)
		} else if err := r.DNS(report); err != nil {
			return err
		}
	}

	if optMTU || optAll {
		report, err := opt.DiscoverMTU(ctx)
		if err != nil {
			if !optAll {
				return fmt.Errorf("mtu discovery failed: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Skipping path MTU discovery: %v\n", err)
		} else if err := r.MTU(report); err != nil {
			return err
		}
	}

	if optTCP || optAll {
		report, err := opt.InspectTCP()
		if err != nil {
			if !optAll {
				return fmt.Errorf("tcp inspection failed: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Skipping TCP inspection: %v\n", err)
		} else if err := r.TCP(report); err != nil {
			return err
		}
	}

	if optAdvise || optAll {
		advice, err := opt.Advise(ctx)
		if err != nil {
			if !optAll {
				return fmt.Errorf("advise failed: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Skipping advice: %v\n", err)
		} else if err := r.Advice(advice); err != nil {
			return err
		}
	}

	return nil
}
