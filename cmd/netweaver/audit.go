package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JustAaronHere/NetWeaver/internal/audit"
	"github.com/JustAaronHere/NetWeaver/internal/netutil"
)

var (
	auditPortSpec  string
	auditTimeout   time.Duration
	auditNoARP     bool
	auditNoPorts   bool
	auditNoGateway bool
)

var auditCmd = &cobra.Command{
	Use:   "audit [target]",
	Short: "Audit the network for security problems",
	Long: `Run read-only security checks: ARP-table spoofing detection, exposed
risky services and gateway health. The local host is audited when no
target is given.

Examples:
  netweaver audit                       Audit the local host
  netweaver audit 192.168.1.10          Audit another host's ports
  netweaver audit --no-ports            ARP and gateway checks only`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVarP(&auditPortSpec, "ports", "p", "", "Ports to check, like 22,80,8000-8100 (default: common + risky set)")
	auditCmd.Flags().DurationVarP(&auditTimeout, "timeout", "w", 0, "Per-probe timeout")
	auditCmd.Flags().BoolVar(&auditNoARP, "no-arp", false, "Skip the ARP spoofing check")
	auditCmd.Flags().BoolVar(&auditNoPorts, "no-ports", false, "Skip the port exposure check")
	auditCmd.Flags().BoolVar(&auditNoGateway, "no-gateway", false, "Skip the gateway check")

	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	auditConfig := audit.DefaultConfig()
	auditConfig.Logger = logger
	if len(args) > 0 {
		auditConfig.Target = resolveAlias(args[0])
	}
	if auditPortSpec != "" {
		ports, err := netutil.ParsePorts(auditPortSpec)
		if err != nil {
			return fmt.Errorf("invalid port list: %w", err)
		}
		auditConfig.Ports = ports
	}
	if cmd.Flags().Changed("timeout") {
		auditConfig.Timeout = auditTimeout
	}
	auditConfig.CheckARP = !auditNoARP
	auditConfig.CheckPorts = !auditNoPorts
	auditConfig.CheckGateway = !auditNoGateway

	auditor, err := audit.New(auditConfig)
	if err != nil {
		return fmt.Errorf("failed to create auditor: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	report, err := auditor.Run(ctx)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	return newRenderer().Audit(report)
}
