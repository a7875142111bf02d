// Implements per-tier capacity accounting and FIFO-by-admission eviction.
// TierState is touched only from the simulation domain.

package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tiersim/tiersim/sim/metrics"
)

// EvictionPolicy names an eviction ordering. The configuration surface has
// historically advertised LRU and LFU alongside FIFO, but only FIFO-by-
// admission-time is implemented; the other names are rejected at construction
// rather than silently mapped to FIFO.
type EvictionPolicy string

const (
	EvictFIFO EvictionPolicy = "fifo"
	EvictLRU  EvictionPolicy = "lru"
	EvictLFU  EvictionPolicy = "lfu"
)

// ParseEvictionPolicy validates an eviction policy name.
func ParseEvictionPolicy(name string) (EvictionPolicy, error) {
	switch EvictionPolicy(name) {
	case EvictFIFO, "":
		return EvictFIFO, nil
	case EvictLRU, EvictLFU:
		return "", fmt.Errorf("eviction policy %q is recognized but not implemented; only %q is available", name, EvictFIFO)
	}
	return "", fmt.Errorf("unknown eviction policy %q", name)
}

// CapacityFaultError reports an admission that could not be satisfied even
// after evicting every resident item: the tier is undersized for the
// workload. It is treated as a fatal configuration error, never masked.
type CapacityFaultError struct {
	Tier     Tier
	Addr     uint64
	Size     int64
	Capacity int64
}

func (e *CapacityFaultError) Error() string {
	return fmt.Sprintf("capacity fault on %s tier: item %d (%d bytes) exceeds tier capacity %d bytes even with an empty resident set",
		e.Tier, e.Addr, e.Size, e.Capacity)
}

// TierState tracks the resident set and byte usage of one capacity-
// constrained tier. Invariant outside Admit: used == sum of resident sizes
// and used <= capacity.
type TierState struct {
	tier     Tier
	capacity int64
	used     int64
	resident map[uint64]int64
	order    []uint64 // admission order, oldest first

	evictions    int64
	evictedBytes int64
}

// NewTierState creates capacity accounting for a tier.
func NewTierState(t Tier, capacityBytes int64) *TierState {
	return &TierState{
		tier:     t,
		capacity: capacityBytes,
		resident: make(map[uint64]int64),
	}
}

// Admit marks addr resident, evicting oldest-admitted items first when the
// admission would exceed capacity. Admitting an already-resident address is
// a no-op. A *CapacityFaultError is returned when eviction cannot free
// enough space.
func (ts *TierState) Admit(addr uint64, size int64) error {
	if _, ok := ts.resident[addr]; ok {
		return nil
	}
	if available := ts.capacity - ts.used; size > available {
		ts.evict(size - available)
	}
	if ts.used+size > ts.capacity {
		metrics.CapacityFaults.WithLabelValues(ts.tier.String()).Inc()
		return &CapacityFaultError{Tier: ts.tier, Addr: addr, Size: size, Capacity: ts.capacity}
	}
	ts.resident[addr] = size
	ts.used += size
	ts.order = append(ts.order, addr)
	return nil
}

// evict removes oldest-admitted items until bytesNeeded is covered or the
// resident set is empty, reporting what was freed.
func (ts *TierState) evict(bytesNeeded int64) (count int, freed int64) {
	for bytesNeeded > 0 && len(ts.order) > 0 {
		oldest := ts.order[0]
		ts.order = ts.order[1:]
		size, ok := ts.resident[oldest]
		if !ok {
			continue
		}
		delete(ts.resident, oldest)
		ts.used -= size
		bytesNeeded -= size
		freed += size
		count++
	}
	if count > 0 {
		ts.evictions += int64(count)
		ts.evictedBytes += freed
		metrics.Evictions.WithLabelValues(ts.tier.String()).Add(float64(count))
		metrics.EvictedBytes.WithLabelValues(ts.tier.String()).Add(float64(freed))
		logrus.Debugf("[%s] evicted %d items (%d bytes), usage now %d/%d bytes",
			ts.tier, count, freed, ts.used, ts.capacity)
	}
	return count, freed
}

// Remove drops addr from the resident set if present.
func (ts *TierState) Remove(addr uint64) {
	size, ok := ts.resident[addr]
	if !ok {
		return
	}
	delete(ts.resident, addr)
	ts.used -= size
}

// Resident reports whether addr is currently admitted.
func (ts *TierState) Resident(addr uint64) bool {
	_, ok := ts.resident[addr]
	return ok
}

// Used returns the bytes currently admitted.
func (ts *TierState) Used() int64 {
	return ts.used
}

// Capacity returns the fixed tier capacity in bytes.
func (ts *TierState) Capacity() int64 {
	return ts.capacity
}

// Len returns the number of resident items.
func (ts *TierState) Len() int {
	return len(ts.resident)
}

// Evictions returns cumulative eviction count and bytes freed.
func (ts *TierState) Evictions() (count int64, bytes int64) {
	return ts.evictions, ts.evictedBytes
}
