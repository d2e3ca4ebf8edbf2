package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JustAaronHere/NetWeaver/internal/netutil"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show host interfaces and gateway",
	Long: `List the host's network interfaces with MAC, vendor, MTU, state and
addresses, plus the default gateway.`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	ifaces, err := netutil.Interfaces()
	if err != nil {
		return fmt.Errorf("failed to list interfaces: %w", err)
	}

	gateway, err := netutil.DefaultGateway()
	if err != nil {
		logger.Debug("default gateway unknown", "error", err)
		gateway = nil
	}

	return newRenderer().Interfaces(ifaces, gateway)
}
