package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	sim "github.com/tiersim/tiersim/sim"
	"github.com/tiersim/tiersim/sim/trace"
)

// TierConfig holds one tier's device parameters as configured. Rates are in
// MB/s as conventionally published in device datasheets; they are converted
// to bytes per second when the topology is built.
type TierConfig struct {
	CapacityBytes int64   `yaml:"capacity_bytes"`
	Channels      int     `yaml:"channels"`
	ReadRateMBs   float64 `yaml:"read_rate_mbs"`
	WriteRateMBs  float64 `yaml:"write_rate_mbs"`
}

// MigrationConfig tunes the migration subsystem.
type MigrationConfig struct {
	CheckInterval int64 `yaml:"check_interval"`
	QueueSize     int   `yaml:"queue_size"`
}

// TraceConfig selects the trace layout and, for the legacy layout, the
// column positions and units.
type TraceConfig struct {
	Layout          string `yaml:"layout"`
	Path            string `yaml:"path"`
	Delimiter       string `yaml:"delimiter"`
	IDColumn        int    `yaml:"id_column"`
	TimestampColumn int    `yaml:"timestamp_column"`
	SizeColumn      int    `yaml:"size_column"`
	OpColumn        int    `yaml:"op_column"`
	TimestampUnit   string `yaml:"timestamp_unit"`
	SizeUnit        string `yaml:"size_unit"`
	DefaultSize     int64  `yaml:"default_size"`
	ZoneColumn      bool   `yaml:"zone_column"`
}

// Config is the full YAML configuration, read once at startup and immutable
// afterward.
type Config struct {
	Fast TierConfig `yaml:"fast"`
	Mid  TierConfig `yaml:"mid"`
	Slow TierConfig `yaml:"slow"`

	Policy         string          `yaml:"policy"`
	EvictionPolicy string          `yaml:"eviction_policy"`
	Migration      MigrationConfig `yaml:"migration"`
	Trace          TraceConfig     `yaml:"trace"`
}

// DefaultConfig mirrors the reference hardware profile: an HDD slow tier at
// 156 MB/s, an SSD mid tier at 550/530 MB/s, 4146 channels per device tier,
// 100 MB mid capacity and 1 MB fast capacity.
func DefaultConfig() Config {
	return Config{
		Fast: TierConfig{CapacityBytes: 1 << 20},
		Mid: TierConfig{
			CapacityBytes: 100 << 20,
			Channels:      4146,
			ReadRateMBs:   550,
			WriteRateMBs:  530,
		},
		Slow: TierConfig{
			Channels:     4146,
			ReadRateMBs:  156,
			WriteRateMBs: 156,
		},
		Policy:         sim.PolicyFixed,
		EvictionPolicy: string(sim.EvictFIFO),
		Migration: MigrationConfig{
			CheckInterval: sim.DefaultCheckInterval,
			QueueSize:     sim.DefaultQueueSize,
		},
		Trace: TraceConfig{
			Layout:          string(trace.LayoutLegacy),
			Delimiter:       ",",
			IDColumn:        1,
			TimestampColumn: 0,
			SizeColumn:      -1,
			OpColumn:        -1,
			TimestampUnit:   "ns",
			SizeUnit:        "KB",
			DefaultSize:     128,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path keeps
// the defaults untouched.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the simulation cannot run with.
func (c *Config) Validate() error {
	for _, tc := range []struct {
		name string
		cfg  TierConfig
	}{{"mid", c.Mid}, {"slow", c.Slow}} {
		if tc.cfg.Channels <= 0 {
			return fmt.Errorf("tier %s: channels must be positive, got %d", tc.name, tc.cfg.Channels)
		}
		if tc.cfg.ReadRateMBs <= 0 || tc.cfg.WriteRateMBs <= 0 {
			return fmt.Errorf("tier %s: transfer rates must be positive", tc.name)
		}
	}
	if c.Fast.CapacityBytes < 0 || c.Mid.CapacityBytes < 0 {
		return fmt.Errorf("tier capacities must be non-negative")
	}
	if c.Migration.CheckInterval <= 0 {
		return fmt.Errorf("migration check_interval must be positive, got %d", c.Migration.CheckInterval)
	}
	if c.Migration.QueueSize <= 0 {
		return fmt.Errorf("migration queue_size must be positive, got %d", c.Migration.QueueSize)
	}
	if _, err := sim.ParseEvictionPolicy(c.EvictionPolicy); err != nil {
		return err
	}
	if _, err := trace.ParseLayout(c.Trace.Layout); err != nil {
		return err
	}
	return nil
}

const bytesPerMB = 1 << 20

// Topology converts the configured MB/s rates to bytes per second and builds
// the immutable tier topology.
func (c *Config) Topology() *sim.Topology {
	build := func(tc TierConfig) sim.TierSpec {
		return sim.TierSpec{
			CapacityBytes: tc.CapacityBytes,
			Channels:      tc.Channels,
			ReadRate:      tc.ReadRateMBs * bytesPerMB,
			WriteRate:     tc.WriteRateMBs * bytesPerMB,
		}
	}
	topo := &sim.Topology{}
	topo.Specs[sim.TierFast] = build(c.Fast)
	topo.Specs[sim.TierMid] = build(c.Mid)
	topo.Specs[sim.TierSlow] = build(c.Slow)
	return topo
}

// LegacyOptions translates the trace section into the legacy reader options.
func (c *Config) LegacyOptions() trace.LegacyOptions {
	return trace.LegacyOptions{
		Delimiter:       c.Trace.Delimiter,
		IDColumn:        c.Trace.IDColumn,
		TimestampColumn: c.Trace.TimestampColumn,
		SizeColumn:      c.Trace.SizeColumn,
		OpColumn:        c.Trace.OpColumn,
		TimestampUnit:   c.Trace.TimestampUnit,
		SizeUnit:        c.Trace.SizeUnit,
		DefaultSize:     c.Trace.DefaultSize,
		ZoneColumn:      c.Trace.ZoneColumn,
	}
}
