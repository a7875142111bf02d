// Implements the migration orchestrator: the composition of hotness tracker,
// candidate selector, bounded queue, and background executor. The simulation
// engine drives it through TrackRequest (per completed request) and
// PeriodicUpdate (every N completed requests); it computes the delayed
// reward signal for migration effectiveness.

package sim

import (
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/tiersim/tiersim/sim/metrics"
)

// DefaultCheckInterval is the default number of completed requests between
// periodic migration checks.
const DefaultCheckInterval = 50

// rewardWindowSize is the number of most recent request latencies feeding
// the delayed-reward computation. The reward is undefined (reported as zero)
// until the window is full.
const rewardWindowSize = 50

// MigrationStats is the migration subsystem's statistics snapshot.
type MigrationStats struct {
	AddressesTracked  int
	HotAddresses      int
	ColdAddresses     int
	TotalOperations   int64 // sum of access counts across tracked addresses
	RequestsTracked   int64
	Enqueued          int64
	Completed         int64
	AddressesMigrated int
	TotalMigrations   int64
	QueueLen          int
	QueueFull         bool
	AverageReward     float64
}

// Orchestrator ties the migration subsystem together and exposes the two
// entry points the simulation engine calls.
type Orchestrator struct {
	tracker  *Tracker
	queue    *MigrationQueue
	executor *Executor
	selector *Selector

	mu              sync.Mutex
	latencyWindow   []int64 // last rewardWindowSize served latencies, virtual ns
	requestsTracked int64
	enqueued        int64
	rewards         []float64
}

// NewOrchestrator wires the migration subsystem for the given promotion
// capacities and starts the background executor.
func NewOrchestrator(fastCapacity, midCapacity int64, queueSize int) *Orchestrator {
	tracker := NewTracker()
	queue := NewMigrationQueue(queueSize)
	o := &Orchestrator{
		tracker:  tracker,
		queue:    queue,
		executor: NewExecutor(queue, tracker),
		selector: NewSelector(tracker, fastCapacity, midCapacity),
	}
	o.executor.Start()
	return o
}

// Tracker exposes the hotness tracker (used by tests and statistics).
func (o *Orchestrator) Tracker() *Tracker {
	return o.tracker
}

// TrackRequest records one completed request for hotness analysis and the
// reward latency window. Cheap and non-blocking: a mutex-scoped update only.
func (o *Orchestrator) TrackRequest(addr uint64, tier Tier, latencyNS, sizeBytes int64) {
	o.tracker.Record(addr, tier, latencyNS, sizeBytes)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.latencyWindow = append(o.latencyWindow, latencyNS)
	if len(o.latencyWindow) > rewardWindowSize {
		o.latencyWindow = o.latencyWindow[1:]
	}
	o.requestsTracked++
}

// PeriodicUpdate runs one selection cycle against the current usage of the
// promotion-target tiers, enqueues the resulting candidates (dropping on a
// full queue), and folds the delayed reward into the running average.
func (o *Orchestrator) PeriodicUpdate(midUsage, fastUsage int64) {
	candidates := o.selector.SelectCandidates(midUsage, fastUsage)

	accepted := 0
	for _, c := range candidates {
		if !o.queue.Enqueue(c) {
			metrics.MigrationsDropped.Inc()
			break // queue full; remaining candidates are dropped this cycle
		}
		metrics.MigrationsEnqueued.Inc()
		accepted++
	}

	o.mu.Lock()
	o.enqueued += int64(accepted)
	reward, defined := o.delayedRewardLocked()
	if defined {
		o.rewards = append(o.rewards, reward)
	}
	o.mu.Unlock()

	if accepted > 0 {
		logrus.Debugf("migration check: enqueued %d of %d candidates", accepted, len(candidates))
	}
	if defined {
		logrus.Debugf("migration reward: %.3f", reward)
	}
}

// delayedRewardLocked computes completed-migrations / mean-recent-latency
// (in seconds). The reward is undefined until the latency window is full or
// while no migration has completed. Caller holds o.mu.
func (o *Orchestrator) delayedRewardLocked() (float64, bool) {
	if len(o.latencyWindow) < rewardWindowSize {
		return 0, false
	}
	completed := o.executor.Completed()
	if completed == 0 {
		return 0, false
	}
	window := make([]float64, len(o.latencyWindow))
	for i, v := range o.latencyWindow {
		window[i] = float64(v)
	}
	avgSeconds := stat.Mean(window, nil) / 1e9
	if avgSeconds < 1e-9 {
		avgSeconds = 1e-9
	}
	return float64(completed) / avgSeconds, true
}

// Statistics returns a snapshot of the migration subsystem's counters.
func (o *Orchestrator) Statistics() MigrationStats {
	snap := o.tracker.Snapshot()

	o.mu.Lock()
	defer o.mu.Unlock()

	st := MigrationStats{
		AddressesTracked: len(snap),
		RequestsTracked:  o.requestsTracked,
		Enqueued:         o.enqueued,
		Completed:        o.executor.Completed(),
		QueueLen:         o.queue.Len(),
		QueueFull:        o.queue.Full(),
	}
	for _, a := range snap {
		st.TotalOperations += a.AccessCount
		if a.AccessCount >= hotThreshold {
			st.HotAddresses++
		}
		if a.AccessCount <= coldThreshold {
			st.ColdAddresses++
		}
		if a.MigrationCount > 0 {
			st.AddressesMigrated++
		}
		st.TotalMigrations += a.MigrationCount
	}
	if len(o.rewards) > 0 {
		st.AverageReward = stat.Mean(o.rewards, nil)
	}
	return st
}

// Shutdown stops the background executor (bounded wait) and returns the
// final statistics.
func (o *Orchestrator) Shutdown() MigrationStats {
	o.executor.Stop()
	return o.Statistics()
}
