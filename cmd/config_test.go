package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sim "github.com/tiersim/tiersim/sim"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, sim.PolicyFixed, cfg.Policy)
	assert.Equal(t, int64(100<<20), cfg.Mid.CapacityBytes)
	assert.Equal(t, int64(1<<20), cfg.Fast.CapacityBytes)
	assert.Equal(t, 4146, cfg.Mid.Channels)
	assert.Equal(t, 4146, cfg.Slow.Channels)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	// GIVEN a config file overriding a subset of fields
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
policy: mid-cache
mid:
  capacity_bytes: 1500000
  channels: 8
  read_rate_mbs: 550
  write_rate_mbs: 530
migration:
  check_interval: 25
  queue_size: 4
trace:
  layout: extended
  path: /tmp/trace.txt
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	// WHEN the config is loaded
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	// THEN overridden fields take effect and untouched defaults survive
	assert.Equal(t, "mid-cache", cfg.Policy)
	assert.Equal(t, int64(1_500_000), cfg.Mid.CapacityBytes)
	assert.Equal(t, 8, cfg.Mid.Channels)
	assert.Equal(t, int64(25), cfg.Migration.CheckInterval)
	assert.Equal(t, "extended", cfg.Trace.Layout)
	assert.Equal(t, float64(156), cfg.Slow.ReadRateMBs, "slow-tier default untouched")
}

func TestConfig_Validate_RejectsBrokenConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero mid channels", func(c *Config) { c.Mid.Channels = 0 }},
		{"negative slow read rate", func(c *Config) { c.Slow.ReadRateMBs = -1 }},
		{"negative fast capacity", func(c *Config) { c.Fast.CapacityBytes = -1 }},
		{"zero check interval", func(c *Config) { c.Migration.CheckInterval = 0 }},
		{"zero queue size", func(c *Config) { c.Migration.QueueSize = 0 }},
		{"lru eviction", func(c *Config) { c.EvictionPolicy = "lru" }},
		{"unknown layout", func(c *Config) { c.Trace.Layout = "parquet" }},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		assert.Error(t, cfg.Validate(), tc.name)
	}
}

func TestConfig_Topology_ConvertsRatesToBytesPerSecond(t *testing.T) {
	// GIVEN the default MB/s rates
	cfg := DefaultConfig()

	// WHEN the topology is built
	topo := cfg.Topology()

	// THEN rates are bytes per second (1 MB = 1<<20 bytes)
	assert.Equal(t, float64(550<<20), topo.Spec(sim.TierMid).ReadRate)
	assert.Equal(t, float64(530<<20), topo.Spec(sim.TierMid).WriteRate)
	assert.Equal(t, float64(156<<20), topo.Spec(sim.TierSlow).ReadRate)
	assert.Equal(t, int64(100<<20), topo.Spec(sim.TierMid).CapacityBytes)
}

func TestLoadRequests_LegacyTraceEndToEnd(t *testing.T) {
	// GIVEN a legacy trace on disk and the default column layout
	path := filepath.Join(t.TempDir(), "trace.csv")
	require.NoError(t, os.WriteFile(path, []byte("0,11\n1000,12\n"), 0o644))
	cfg := DefaultConfig()
	cfg.Trace.Path = path

	// WHEN requests are loaded
	requests, err := loadRequests(&cfg)
	require.NoError(t, err)
	require.Len(t, requests, 2)

	// THEN addresses, default sizes, and arrivals carry through
	assert.Equal(t, uint64(11), requests[0].Addr)
	assert.Equal(t, int64(128<<10), requests[0].Size, "default 128 KB size")
	assert.Equal(t, sim.OpRead, requests[0].Op)
	assert.Equal(t, int64(0), requests[0].ArrivalTime)
	assert.Equal(t, int64(1000), requests[1].ArrivalTime, "ns timestamps by default")
}

func TestLoadRequests_MissingPath(t *testing.T) {
	cfg := DefaultConfig()
	_, err := loadRequests(&cfg)
	require.Error(t, err)
}
