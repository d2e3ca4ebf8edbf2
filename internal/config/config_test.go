package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 500*time.Millisecond, cfg.Scan.Timeout)
	assert.True(t, cfg.Scan.RDNS)
	assert.Equal(t, "icmp", cfg.Trace.Method)
	assert.Equal(t, 30, cfg.Trace.MaxHops)
	assert.Equal(t, 3, cfg.Trace.Queries)
	assert.Equal(t, time.Second, cfg.Monitor.Interval)
	assert.Equal(t, ":9155", cfg.Monitor.Listen)
	assert.Len(t, cfg.Optimize.Resolvers, 4)
	assert.Len(t, cfg.Optimize.Domains, 5)
	assert.False(t, cfg.Output.NoColor)
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveToLoadFromRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trace.MaxHops = 12
	cfg.Scan.Ports = "22,80,443"
	cfg.Monitor.Interface = "eth0"
	cfg.Aliases["gw"] = "192.168.1.1"

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 12, loaded.Trace.MaxHops)
	assert.Equal(t, "22,80,443", loaded.Scan.Ports)
	assert.Equal(t, "eth0", loaded.Monitor.Interface)
	assert.Equal(t, "192.168.1.1", loaded.Aliases["gw"])
}

func TestLoadFromPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	partial := "trace:\n  max_hops: 8\n"
	require.NoError(t, os.WriteFile(path, []byte(partial), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Trace.MaxHops)
	// Everything else falls back to defaults.
	assert.Equal(t, 3, cfg.Trace.Queries)
	assert.Equal(t, "icmp", cfg.Trace.Method)
	assert.Equal(t, 500*time.Millisecond, cfg.Scan.Timeout)
}

func TestGenerateExampleParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.yaml")
	require.NoError(t, os.WriteFile(path, []byte(GenerateExample()), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Trace.MaxHops)
	assert.Equal(t, 3*time.Second, cfg.Trace.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Scan.Timeout)
	assert.Equal(t, ":9155", cfg.Monitor.Listen)
	assert.Equal(t, "8.8.8.8", cfg.Aliases["dns"])
}

func TestGetConfigPath(t *testing.T) {
	// The path is derived from the environment; just make sure the
	// lookup does not blow up and yields something plausible.
	path := GetConfigPath()
	if path != "" {
		assert.Contains(t, path, "netweaver")
	}
}
