// Package sim provides the discrete-event engine for the tiered-storage
// placement simulator.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - request.go: the replayed I/O request and its fields
//   - event.go: the two event types that drive the run (arrival, completion)
//   - simulator.go: the event heap and the virtual-clock loop
//
// # Two scheduling domains
//
// The engine itself is single-goroutine: only Run advances the clock, and
// pools, tier states, policies and counters are touched exclusively from
// events. The migration subsystem (hotness.go, migration.go, selector.go,
// orchestrator.go) is the one concurrent piece: a background executor on
// wall-clock time, bridged to the engine by a bounded queue and a
// mutex-guarded tracker.
//
// Sub-packages:
//   - sim/trace/: trace-file parsing (two layouts), pure input concern
//   - sim/metrics/: Prometheus instrumentation and the optional /metrics server
package sim
