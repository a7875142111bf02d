// Implements the migration queue and the background migration executor.
// The queue is the message-passing boundary between the simulation domain
// (producer, via the selector) and the migration domain (consumer); the
// executor runs on wall-clock time, decoupled from the virtual clock.

package sim

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tiersim/tiersim/sim/metrics"
)

// DefaultQueueSize is the default bound of the migration queue.
const DefaultQueueSize = 10

// MigrationCandidate is a proposed tier change for one address. Candidates
// are created by the selector, consumed exactly once by the executor (or
// dropped when the queue is full), and never persisted.
type MigrationCandidate struct {
	Addr         uint64
	CurrentTier  Tier
	TargetTier   Tier
	HotnessScore float64
	IdentifiedAt time.Time
}

// MigrationQueue is a bounded thread-safe FIFO of migration candidates.
// Back-pressure is lossy: Enqueue on a full queue fails without blocking and
// without disturbing already-queued candidates.
type MigrationQueue struct {
	mu    sync.Mutex
	items []*MigrationCandidate
	max   int
}

// NewMigrationQueue creates a queue bounded at maxSize candidates.
func NewMigrationQueue(maxSize int) *MigrationQueue {
	if maxSize <= 0 {
		maxSize = DefaultQueueSize
	}
	return &MigrationQueue{max: maxSize}
}

// Enqueue appends a candidate, returning false (candidate dropped) if the
// queue is full.
func (q *MigrationQueue) Enqueue(c *MigrationCandidate) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.max {
		return false
	}
	q.items = append(q.items, c)
	metrics.MigrationQueueDepth.Set(float64(len(q.items)))
	return true
}

// Dequeue removes and returns the oldest candidate, or nil when empty.
func (q *MigrationQueue) Dequeue() *MigrationCandidate {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	c := q.items[0]
	q.items = q.items[1:]
	metrics.MigrationQueueDepth.Set(float64(len(q.items)))
	return c
}

// Len returns the current queue occupancy.
func (q *MigrationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Full reports whether the queue is at its bound.
func (q *MigrationQueue) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) >= q.max
}

// Executor timing. The poll interval paces the loop between empty dequeues;
// the stop timeout bounds how long Stop waits for the in-flight iteration.
const (
	executorPollInterval = 10 * time.Millisecond
	executorStopTimeout  = 5 * time.Second
)

// Executor is the background worker that drains the migration queue and
// applies candidates to the hotness tracker. It advances on wall-clock time,
// independent of the virtual clock, so it interleaves with the simulation
// domain at arbitrary points. Startable once, stoppable exactly once.
type Executor struct {
	queue   *MigrationQueue
	tracker *Tracker
	poll    time.Duration

	mu        sync.Mutex
	started   bool
	stopped   bool
	completed int64

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewExecutor creates an executor draining queue into tracker.
func NewExecutor(queue *MigrationQueue, tracker *Tracker) *Executor {
	return &Executor{
		queue:   queue,
		tracker: tracker,
		poll:    executorPollInterval,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the background loop. Subsequent calls are no-ops.
func (e *Executor) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	go e.loop()
}

// Stop signals the loop to finish and waits, bounded, for the in-flight
// iteration. After a non-timeout return no further state mutation occurs.
// A timeout is logged, not escalated: the outstanding iteration finishes on
// its own schedule.
func (e *Executor) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.mu.Unlock()

	close(e.stopCh)
	select {
	case <-e.doneCh:
	case <-time.After(executorStopTimeout):
		logrus.Warnf("migration executor did not stop within %s; outstanding work will finish in the background", executorStopTimeout)
	}
}

// Completed returns the number of migrations applied so far.
func (e *Executor) Completed() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed
}

func (e *Executor) loop() {
	defer close(e.doneCh)
	for {
		if c := e.queue.Dequeue(); c != nil {
			e.apply(c)
			continue
		}
		// Empty queue: wait a small real-time interval rather than spin.
		select {
		case <-e.stopCh:
			return
		case <-time.After(e.poll):
		}
	}
}

func (e *Executor) apply(c *MigrationCandidate) {
	if !e.tracker.ApplyMigration(c.Addr, c.TargetTier) {
		logrus.Warnf("migration executor: address %d no longer tracked, dropping %s -> %s", c.Addr, c.CurrentTier, c.TargetTier)
		return
	}
	e.mu.Lock()
	e.completed++
	e.mu.Unlock()
	metrics.MigrationsCompleted.Inc()
	logrus.Debugf("migrated address %d: %s -> %s (score %.1f)", c.Addr, c.CurrentTier, c.TargetTier, c.HotnessScore)
}
