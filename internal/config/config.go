// Package config provides configuration file support for NetWeaver.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JustAaronHere/NetWeaver/internal/logging"
)

// Config represents the NetWeaver configuration file structure.
type Config struct {
	// Logging controls log level, format, and destination.
	Logging logging.Config `yaml:"logging"`

	// Scan holds defaults for network scans.
	Scan ScanConfig `yaml:"scan"`

	// Trace holds defaults for route traces.
	Trace TraceConfig `yaml:"trace"`

	// Monitor holds defaults for interface monitoring.
	Monitor MonitorConfig `yaml:"monitor"`

	// Optimize holds defaults for the optimization advisor.
	Optimize OptimizeConfig `yaml:"optimize"`

	// Output controls rendering shared by all commands.
	Output OutputConfig `yaml:"output"`

	// Aliases for common targets
	Aliases map[string]string `yaml:"aliases,omitempty"`
}

// ScanConfig holds default values for scan parameters.
type ScanConfig struct {
	// Ports is a port list like "22,80,8000-8100"; empty means the
	// built-in common set.
	Ports   string        `yaml:"ports"`
	Timeout time.Duration `yaml:"timeout"`
	RDNS    bool          `yaml:"rdns"`
	Vendor  bool          `yaml:"vendor"`
}

// TraceConfig holds default values for trace parameters.
type TraceConfig struct {
	// Method is the probe method: icmp, udp, or tcp.
	Method     string        `yaml:"method"`
	MaxHops    int           `yaml:"max_hops"`
	Queries    int           `yaml:"queries"`
	Timeout    time.Duration `yaml:"timeout"`
	FirstHop   int           `yaml:"first_hop"`
	Port       int           `yaml:"port"`
	Sequential bool          `yaml:"sequential"`
}

// MonitorConfig holds default values for interface monitoring.
type MonitorConfig struct {
	// Interface restricts monitoring to one interface; empty means all.
	Interface string        `yaml:"interface"`
	Interval  time.Duration `yaml:"interval"`
	// Listen is the address the metrics endpoint binds in daemon mode.
	Listen string `yaml:"listen"`
}

// OptimizeConfig holds the resolver benchmark inputs.
type OptimizeConfig struct {
	Resolvers []string `yaml:"resolvers"`
	Domains   []string `yaml:"domains"`
}

// OutputConfig holds rendering settings shared by all commands.
type OutputConfig struct {
	NoColor bool `yaml:"no_color"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Logging: logging.DefaultConfig(),
		Scan: ScanConfig{
			Ports:   "",
			Timeout: 500 * time.Millisecond,
			RDNS:    true,
			Vendor:  true,
		},
		Trace: TraceConfig{
			Method:     "icmp",
			MaxHops:    30,
			Queries:    3,
			Timeout:    3 * time.Second,
			FirstHop:   1,
			Port:       0, // 0 means use default for probe method
			Sequential: false,
		},
		Monitor: MonitorConfig{
			Interface: "",
			Interval:  time.Second,
			Listen:    ":9155",
		},
		Optimize: OptimizeConfig{
			Resolvers: []string{
				"8.8.8.8",        // Google
				"1.1.1.1",        // Cloudflare
				"9.9.9.9",        // Quad9
				"208.67.222.222", // OpenDNS
			},
			Domains: []string{
				"google.com",
				"github.com",
				"cloudflare.com",
				"amazon.com",
				"microsoft.com",
			},
		},
		Output:  OutputConfig{NoColor: false},
		Aliases: make(map[string]string),
	}
}

// Load reads configuration from the default config file locations.
// It searches in order:
//  1. ./netweaver.yaml (current directory)
//  2. ~/.config/netweaver/config.yaml (Linux/macOS)
//  3. %APPDATA%\netweaver\config.yaml (Windows)
//
// If no config file is found, returns default configuration.
func Load() (*Config, error) {
	paths := getConfigPaths()

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return LoadFrom(path)
		}
	}

	// No config file found, return defaults
	return DefaultConfig(), nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Save writes the configuration to the default user config path.
func (c *Config) Save() error {
	return c.SaveTo(getUserConfigPath())
}

// SaveTo writes the configuration to a specific file path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// getConfigPaths returns the list of config file paths to search.
func getConfigPaths() []string {
	paths := []string{
		"netweaver.yaml",
		"netweaver.yml",
		".netweaver.yaml",
		".netweaver.yml",
	}

	// Add user config path
	userPath := getUserConfigPath()
	if userPath != "" {
		paths = append(paths, userPath)
	}

	return paths
}

// getUserConfigPath returns the user-specific config file path.
func getUserConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "netweaver", "config.yaml")
		}
	default: // Linux, macOS, etc.
		home, err := os.UserHomeDir()
		if err == nil {
			// Check XDG_CONFIG_HOME first
			xdgConfig := os.Getenv("XDG_CONFIG_HOME")
			if xdgConfig != "" {
				return filepath.Join(xdgConfig, "netweaver", "config.yaml")
			}
			return filepath.Join(home, ".config", "netweaver", "config.yaml")
		}
	}
	return ""
}

// GetConfigPath returns the path where user config would be saved.
func GetConfigPath() string {
	return getUserConfigPath()
}

// GenerateExample generates an example configuration file content.
func GenerateExample() string {
	return `# NetWeaver Configuration File
# Location: ~/.config/netweaver/config.yaml (Linux/macOS)
#           %APPDATA%\netweaver\config.yaml (Windows)
#           ./netweaver.yaml (current directory)

logging:
  level: info             # debug, info, warn, error
  format: text            # text or json
  output: stderr          # stderr, stdout, or a file path

scan:
  ports: ""               # port list, empty = built-in common set
  timeout: 500ms          # per-probe timeout
  rdns: true              # reverse DNS lookups
  vendor: true            # MAC vendor identification

trace:
  method: icmp            # icmp, udp, or tcp
  max_hops: 30            # maximum number of hops
  queries: 3              # probes per hop
  timeout: 3s             # probe timeout
  first_hop: 1            # starting hop
  port: 0                 # destination port (0 = default)
  sequential: false       # probe hops one at a time

monitor:
  interface: ""           # empty = all interfaces
  interval: 1s            # sampling interval
  listen: ":9155"         # metrics endpoint in daemon mode

optimize:
  resolvers:              # DNS servers benchmarked by optimize
    - 8.8.8.8
    - 1.1.1.1
    - 9.9.9.9
    - 208.67.222.222
  domains:                # lookup targets for the benchmark
    - google.com
    - github.com
    - cloudflare.com
    - amazon.com
    - microsoft.com

output:
  no_color: false         # disable colors

# Target aliases (optional)
aliases:
  dns: 8.8.8.8
  cf: 1.1.1.1
  gw: 192.168.1.1
`
}
