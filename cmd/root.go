package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/tiersim/tiersim/sim"
	"github.com/tiersim/tiersim/sim/metrics"
	"github.com/tiersim/tiersim/sim/trace"
)

var (
	configPath    string // YAML config file path
	tracePath     string // trace file path (overrides config)
	policyName    string // placement policy name (overrides config)
	logLevel      string // log verbosity level
	outputPath    string // per-request record CSV destination ("" = stdout)
	summaryPath   string // end-of-run summary destination ("" = stdout)
	metricsListen string // optional Prometheus /metrics listen address
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "tiersim",
	Short: "Discrete-event simulator for multi-tier storage placement",
}

// runCmd replays a trace through the configured placement policy
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a trace through the tier hierarchy",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := LoadConfig(configPath)
		if err != nil {
			logrus.Fatalf("Configuration error: %v", err)
		}
		if tracePath != "" {
			cfg.Trace.Path = tracePath
		}
		if policyName != "" {
			cfg.Policy = policyName
		}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Configuration error: %v", err)
		}

		requests, err := loadRequests(&cfg)
		if err != nil {
			logrus.Fatalf("Trace error: %v", err)
		}
		logrus.Infof("Loaded %d requests from %s trace", len(requests), cfg.Trace.Layout)

		if metricsListen != "" {
			go func() {
				if err := metrics.RunServer(context.Background(), metricsListen); err != nil {
					logrus.Warnf("metrics server: %v", err)
				}
			}()
		}

		topo := cfg.Topology()
		states := map[sim.Tier]*sim.TierState{
			sim.TierFast: sim.NewTierState(sim.TierFast, cfg.Fast.CapacityBytes),
			sim.TierMid:  sim.NewTierState(sim.TierMid, cfg.Mid.CapacityBytes),
		}
		pools := map[sim.Tier]*sim.ResourcePool{
			sim.TierMid:  sim.NewResourcePool(cfg.Mid.Channels),
			sim.TierSlow: sim.NewResourcePool(cfg.Slow.Channels),
		}
		// No external oracle is wired through the CLI; selecting the oracle
		// policy here fails construction, as it must.
		policy, err := sim.NewPlacementPolicy(cfg.Policy, topo, states, nil, nil)
		if err != nil {
			logrus.Fatalf("Policy error: %v", err)
		}

		out, closeOut, err := openSink(outputPath, os.Stdout)
		if err != nil {
			logrus.Fatalf("Output error: %v", err)
		}
		defer closeOut()

		s := sim.NewSimulator(topo, pools, states, policy)
		s.Output = sim.NewRecordWriter(out)
		s.CheckInterval = cfg.Migration.CheckInterval
		s.Migration = sim.NewOrchestrator(cfg.Fast.CapacityBytes, cfg.Mid.CapacityBytes, cfg.Migration.QueueSize)

		startTime := time.Now()
		if err := s.Run(requests); err != nil {
			s.Migration.Shutdown()
			logrus.Fatalf("Simulation failed: %v", err)
		}
		migStats := s.Migration.Shutdown()
		logrus.Infof("Simulation took %v wall-clock", time.Since(startTime))

		sumOut, closeSum, err := openSink(summaryPath, os.Stdout)
		if err != nil {
			logrus.Fatalf("Summary error: %v", err)
		}
		defer closeSum()
		if err := sim.WriteSummary(sumOut, s.Counters, migStats); err != nil {
			logrus.Fatalf("Summary error: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// loadRequests reads the configured trace file and converts its records into
// simulator requests.
func loadRequests(cfg *Config) ([]*sim.Request, error) {
	if cfg.Trace.Path == "" {
		return nil, fmt.Errorf("no trace file configured (use --trace or trace.path)")
	}
	f, err := os.Open(cfg.Trace.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	layout, _ := trace.ParseLayout(cfg.Trace.Layout)
	var records []trace.Record
	switch layout {
	case trace.LayoutExtended:
		records, err = trace.ReadExtended(f)
	default:
		records, err = trace.ReadLegacy(f, cfg.LegacyOptions())
	}
	if err != nil {
		return nil, err
	}

	requests := make([]*sim.Request, 0, len(records))
	for _, rec := range records {
		op := sim.OpRead
		if rec.Write {
			op = sim.OpWrite
		}
		requests = append(requests, &sim.Request{
			Addr:        rec.Addr,
			Size:        rec.Size,
			Op:          op,
			ArrivalTime: rec.ArrivalNS,
			Sequential:  rec.Sequential,
			ServiceTime: rec.ServiceTimeNS,
			Zone:        rec.Zone,
		})
	}
	return requests, nil
}

// openSink opens path for writing, or returns fallback when path is empty.
func openSink(path string, fallback io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return fallback, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file")
	runCmd.Flags().StringVar(&tracePath, "trace", "", "Trace file to replay (overrides config)")
	runCmd.Flags().StringVar(&policyName, "policy", "", "Placement policy: fixed, mid-cache, zone, oracle, pin-fast, pin-mid, pin-slow (overrides config)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&outputPath, "output", "", "Per-request record CSV file (default stdout)")
	runCmd.Flags().StringVar(&summaryPath, "summary", "", "End-of-run summary file (default stdout)")
	runCmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "Optional Prometheus /metrics listen address, e.g. :9090")

	rootCmd.AddCommand(runCmd)
}
