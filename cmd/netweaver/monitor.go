package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JustAaronHere/NetWeaver/internal/monitor"
	"github.com/JustAaronHere/NetWeaver/internal/tui"
)

var (
	monInterface string
	monInterval  time.Duration
	monWatch     bool
	monRealtime  bool
	monDaemon    bool
	monListen    string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor network traffic",
	Long: `Watch interface RX/TX counters and transfer rates.

By default a one-shot snapshot of every interface is printed.

Examples:
  netweaver monitor                     One-shot counter snapshot
  netweaver monitor --watch             Stream samples until interrupted
  netweaver monitor --realtime          Live dashboard
  netweaver monitor --daemon            Serve Prometheus metrics
  netweaver monitor -i eth0 --watch     Watch a single interface`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().StringVarP(&monInterface, "interface", "i", "", "Interface to monitor (default: all)")
	monitorCmd.Flags().DurationVar(&monInterval, "interval", 0, "Sampling interval")
	monitorCmd.Flags().BoolVar(&monWatch, "watch", false, "Stream samples until interrupted")
	monitorCmd.Flags().BoolVar(&monRealtime, "realtime", false, "Live TUI dashboard")
	monitorCmd.Flags().BoolVar(&monDaemon, "daemon", false, "Serve Prometheus metrics until interrupted")
	monitorCmd.Flags().StringVar(&monListen, "listen", "", "Metrics listen address in daemon mode")

	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	monConfig := monitor.DefaultConfig()
	monConfig.Logger = logger
	if cfg.Monitor.Interface != "" {
		monConfig.Interface = cfg.Monitor.Interface
	}
	if cfg.Monitor.Interval > 0 {
		monConfig.Interval = cfg.Monitor.Interval
	}
	if cmd.Flags().Changed("interface") {
		monConfig.Interface = monInterface
	}
	if cmd.Flags().Changed("interval") {
		monConfig.Interval = monInterval
	}

	listen := cfg.Monitor.Listen
	if cmd.Flags().Changed("listen") {
		listen = monListen
	}
	if listen == "" {
		listen = ":9155"
	}

	if monRealtime {
		return tui.Run(monConfig)
	}

	mon, err := monitor.New(monConfig)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case monDaemon:
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return monitor.NewDaemon(mon, listen).Run(ctx)

	case monWatch:
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		r := newRenderer()
		err := mon.Watch(ctx, func(s monitor.Sample) {
			_ = r.Sample(s)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err

	default:
		rows, err := mon.Interfaces()
		if err != nil {
			return fmt.Errorf("failed to read counters: %w", err)
		}
		return newRenderer().Counters(rows)
	}
}
