package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JustAaronHere/NetWeaver/internal/config"
	"github.com/JustAaronHere/NetWeaver/internal/logging"
	"github.com/JustAaronHere/NetWeaver/internal/render"
)

var (
	// Global flags
	noColor bool
	verbose bool
	quiet   bool

	// Config file
	cfgFile string
	cfg     *config.Config

	// Shared logger, built in loadConfig
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "netweaver",
	Short: "Network intelligence toolkit",
	Long: `NetWeaver - network intelligence toolkit

NetWeaver discovers devices, traces routes, watches interface traffic,
benchmarks resolvers and audits the local network, all driven by a
native packet engine with graceful fallbacks for unprivileged runs.

Examples:
  netweaver scan                    Scan the local network
  netweaver scan 10.0.0.0/24        Scan a specific network
  netweaver trace google.com        Trace the route to a host
  netweaver monitor                 One-shot interface counters
  netweaver monitor --realtime      Live dashboard
  netweaver optimize --all          Run every optimizer report
  netweaver audit                   Audit the local host and gateway
  netweaver inspect                 Show interfaces and gateway
  netweaver config --init           Create default config file`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.config/netweaver/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig loads configuration from file and builds the shared logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error

	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	if !cmd.Flags().Changed("no-color") && cfg.Output.NoColor {
		noColor = true
	}

	logConfig := cfg.Logging
	if verbose {
		logConfig.Level = logging.LevelDebug
	}
	if quiet {
		logConfig.Level = logging.LevelError
	}
	logger, err = logging.New(logConfig)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	return nil
}

// newRenderer builds the stdout renderer all commands share.
func newRenderer() *render.Renderer {
	return render.New(os.Stdout, render.Config{Colors: !noColor})
}

// resolveAlias maps a configured target alias to its address.
func resolveAlias(target string) string {
	if cfg != nil && cfg.Aliases != nil {
		if alias, ok := cfg.Aliases[target]; ok {
			return alias
		}
	}
	return target
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("NetWeaver %s\n", version)
		fmt.Printf("  Commit: %s\n", commit)
		fmt.Printf("  Built:  %s\n", date)
		fmt.Printf("  Config: %s\n", config.GetConfigPath())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage the NetWeaver configuration file.

Commands:
  netweaver config --init      Create default config file
  netweaver config --show      Show the active configuration
  netweaver config --example   Print an annotated example config
  netweaver config --path      Show config file path`,
	RunE: runConfig,
}

var (
	configInit    bool
	configShow    bool
	configExample bool
	configPath    bool
)

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Create default config file")
	configCmd.Flags().BoolVar(&configShow, "show", false, "Show the active configuration")
	configCmd.Flags().BoolVar(&configExample, "example", false, "Print an annotated example config")
	configCmd.Flags().BoolVar(&configPath, "path", false, "Show config file path")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configPath {
		fmt.Println(config.GetConfigPath())
		return nil
	}

	if configInit {
		path := config.GetConfigPath()
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}

		if err := config.DefaultConfig().Save(); err != nil {
			return fmt.Errorf("failed to create config: %w", err)
		}

		fmt.Printf("Created config file: %s\n", path)
		fmt.Println("\nEdit this file to customize defaults.")
		return nil
	}

	if configShow {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		fmt.Print(string(data))
		return nil
	}

	if configExample {
		fmt.Println(config.GenerateExample())
		return nil
	}

	// No flag specified, show help
	return cmd.Help()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets version information for the CLI.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}
