// Implements the hotness tracker: per-address access statistics shared
// between the simulation domain (per-request reporting) and the migration
// domain (the background executor's apply step). Every access runs under a
// single mutex scoped to one read-modify-write; the lock is never held
// across a wait in either domain.

package sim

import (
	"sync"
	"time"
)

// Hotness classification thresholds, in raw access counts.
const (
	hotThreshold  = 5 // access_count >= 5 classifies Hot
	coldThreshold = 1 // access_count <= 1 classifies Cold
)

// accessHistorySize bounds the per-address ring of recent access timestamps.
const accessHistorySize = 100

// Heat is the hotness classification of an address.
type Heat int

const (
	Cold Heat = iota
	Warm
	Hot
)

func (h Heat) String() string {
	switch h {
	case Hot:
		return "hot"
	case Warm:
		return "warm"
	}
	return "cold"
}

// AddressStats aggregates the access history of one address. Entries are
// created on first access and never deleted during a run.
type AddressStats struct {
	Addr           uint64
	Tier           Tier  // tier that served the most recent access
	AccessCount    int64
	TotalLatency   int64 // cumulative served latency, virtual ns
	SizeBytes      int64 // size observed on the most recent access
	FirstAccess    int64 // wall-clock unix ns
	LastAccess     int64 // wall-clock unix ns
	AccessTimes    []int64 // bounded history of recent access times, oldest first
	MigrationCount int64
}

// Tracker records per-address access statistics under mutual exclusion.
type Tracker struct {
	mu    sync.Mutex
	addrs map[uint64]*AddressStats
}

// NewTracker creates an empty hotness tracker.
func NewTracker() *Tracker {
	return &Tracker{addrs: make(map[uint64]*AddressStats)}
}

// Record creates or updates the stats for addr after an access served by
// tier with the given latency.
func (t *Tracker) Record(addr uint64, tier Tier, latencyNS, sizeBytes int64) {
	now := time.Now().UnixNano()

	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.addrs[addr]
	if !ok {
		st = &AddressStats{Addr: addr, FirstAccess: now}
		t.addrs[addr] = st
	}
	st.Tier = tier
	st.AccessCount++
	st.TotalLatency += latencyNS
	st.SizeBytes = sizeBytes
	st.LastAccess = now
	st.AccessTimes = append(st.AccessTimes, now)
	if len(st.AccessTimes) > accessHistorySize {
		st.AccessTimes = st.AccessTimes[1:]
	}
}

// Classify buckets addr as Hot (count >= 5), Cold (count <= 1), or Warm.
func (t *Tracker) Classify(addr uint64) Heat {
	t.mu.Lock()
	defer t.mu.Unlock()
	var count int64
	if st, ok := t.addrs[addr]; ok {
		count = st.AccessCount
	}
	return classifyCount(count)
}

func classifyCount(count int64) Heat {
	switch {
	case count >= hotThreshold:
		return Hot
	case count <= coldThreshold:
		return Cold
	}
	return Warm
}

// Snapshot returns a deep copy of all tracked addresses so a scan never
// observes a structure mutating underneath it.
func (t *Tracker) Snapshot() map[uint64]AddressStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[uint64]AddressStats, len(t.addrs))
	for addr, st := range t.addrs {
		cp := *st
		cp.AccessTimes = append([]int64(nil), st.AccessTimes...)
		out[addr] = cp
	}
	return out
}

// Stats returns a copy of the stats for addr, or false if untracked.
func (t *Tracker) Stats(addr uint64) (AddressStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.addrs[addr]
	if !ok {
		return AddressStats{}, false
	}
	cp := *st
	cp.AccessTimes = append([]int64(nil), st.AccessTimes...)
	return cp, true
}

// ApplyMigration records that addr now lives on tier: the serving tier is
// updated and the migration count incremented, without disturbing access
// statistics. Returns false for untracked addresses.
func (t *Tracker) ApplyMigration(addr uint64, tier Tier) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.addrs[addr]
	if !ok {
		return false
	}
	st.Tier = tier
	st.MigrationCount++
	return true
}

// Len returns the number of tracked addresses.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.addrs)
}
