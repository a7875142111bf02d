// Implements the migration candidate selector: the periodic scan that
// classifies tracked addresses and proposes tier moves respecting
// target-tier headroom.

package sim

import (
	"sort"
	"time"
)

const (
	// selectorHeadroom is the usage fraction above which a tier stops
	// accepting promotion candidates.
	selectorHeadroom = 0.9
	// selectorMaxCandidates bounds the work proposed per cycle.
	selectorMaxCandidates = 10
	// selectorMinAccess is the access count below which no candidate is
	// proposed. Deliberately equal to the Hot threshold, and therefore
	// stricter than the Warm boundary: it keeps addresses hovering just
	// above Warm from thrashing in and out of the queue.
	selectorMinAccess = 5
)

// Selector scans the hotness tracker and proposes migrations.
type Selector struct {
	tracker *Tracker
	fastCap int64
	midCap  int64
}

// NewSelector creates a selector over tracker for the given promotion-target
// capacities.
func NewSelector(tracker *Tracker, fastCapacity, midCapacity int64) *Selector {
	return &Selector{tracker: tracker, fastCap: fastCapacity, midCap: midCapacity}
}

// SelectCandidates scans a snapshot of all tracked addresses and returns at
// most selectorMaxCandidates proposals, hottest first. midUsage and
// fastUsage are the current byte usage of the promotion targets.
func (s *Selector) SelectCandidates(midUsage, fastUsage int64) []*MigrationCandidate {
	now := time.Now()
	var candidates []*MigrationCandidate

	for addr, st := range s.tracker.Snapshot() {
		target := s.targetTier(st.Tier, classifyCount(st.AccessCount), midUsage, fastUsage)
		// Propose only moves that change tier, and only for addresses
		// clearly past the Hot threshold.
		if target == st.Tier || st.AccessCount < selectorMinAccess {
			continue
		}
		candidates = append(candidates, &MigrationCandidate{
			Addr:         addr,
			CurrentTier:  st.Tier,
			TargetTier:   target,
			HotnessScore: float64(st.AccessCount),
			IdentifiedAt: now,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].HotnessScore != candidates[j].HotnessScore {
			return candidates[i].HotnessScore > candidates[j].HotnessScore
		}
		return candidates[i].Addr < candidates[j].Addr // deterministic ties
	})
	if len(candidates) > selectorMaxCandidates {
		candidates = candidates[:selectorMaxCandidates]
	}
	return candidates
}

// targetTier picks where an address should live: Hot addresses move to the
// fastest tier above the current one with usage below the headroom fraction;
// Cold addresses move one tier slower; Warm addresses stay put.
func (s *Selector) targetTier(current Tier, heat Heat, midUsage, fastUsage int64) Tier {
	switch heat {
	case Hot:
		for t := current.Faster(); t != TierNone; t = t.Faster() {
			if s.hasHeadroom(t, midUsage, fastUsage) {
				return t
			}
		}
	case Cold:
		if slower := current.Slower(); slower != TierNone {
			return slower
		}
	}
	return current
}

func (s *Selector) hasHeadroom(t Tier, midUsage, fastUsage int64) bool {
	switch t {
	case TierFast:
		return s.fastCap > 0 && float64(fastUsage) < float64(s.fastCap)*selectorHeadroom
	case TierMid:
		return s.midCap > 0 && float64(midUsage) < float64(s.midCap)*selectorHeadroom
	}
	return false
}
