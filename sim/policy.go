// Implements the placement dispatcher: the closed set of placement policies
// that map a request to a serving tier, a service duration, and an optional
// post-completion admission. Exactly one policy is active per run, selected
// at construction time by name.

package sim

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
)

// Placement is the dispatcher's decision for one request.
type Placement struct {
	Tier     Tier  // serving tier
	Duration int64 // service duration in virtual nanoseconds
	// AdmitTo is the tier whose capacity accounting records the item once
	// service completes (promotion into a cache tier), or TierNone.
	AdmitTo Tier
}

// PlacementPolicy maps a request to a placement. Implementations are pure
// functions of the request and current tier occupancy (plus the external
// oracle for the oracle-driven variant); they perform no capacity mutation
// themselves.
type PlacementPolicy interface {
	Place(req *Request) Placement
}

// CompletionObserver is implemented by policies that need the observed
// outcome of a served request (currently only the oracle-driven policy,
// which forwards it to the external oracle).
type CompletionObserver interface {
	RequestCompleted(req *Request, placed Placement, servedNS int64)
}

// Policy names accepted by NewPlacementPolicy.
const (
	PolicyFixed    = "fixed"     // hash-parity assignment to Mid or Slow
	PolicyMidCache = "mid-cache" // Mid tier as a cache in front of Slow
	PolicyZone     = "zone"      // externally labeled hot/cold zones
	PolicyOracle   = "oracle"    // external placement oracle decides
	PolicyPinFast  = "pin-fast"  // every request served by the Fast tier
	PolicyPinMid   = "pin-mid"   // every request served by the Mid tier
	PolicyPinSlow  = "pin-slow"  // every request served by the Slow tier
)

// NewPlacementPolicy constructs the single active policy for a run.
// states holds the capacity accounting for the constrained tiers (TierFast
// and TierMid entries may be nil when the policy does not use them).
// oracle and features are required only for PolicyOracle; a missing oracle
// is a construction-time error because the run cannot proceed without a
// placement decision.
func NewPlacementPolicy(name string, topo *Topology, states map[Tier]*TierState, oracle Oracle, features FeatureSource) (PlacementPolicy, error) {
	switch name {
	case PolicyFixed:
		return &fixedAssignment{topo: topo}, nil
	case PolicyMidCache:
		mid := states[TierMid]
		if mid == nil {
			return nil, fmt.Errorf("policy %q requires capacity accounting for the %s tier", name, TierMid)
		}
		return &midCache{topo: topo, mid: mid}, nil
	case PolicyZone:
		fast := states[TierFast]
		if fast == nil {
			return nil, fmt.Errorf("policy %q requires capacity accounting for the %s tier", name, TierFast)
		}
		return &zoneTiered{topo: topo, fast: fast}, nil
	case PolicyOracle:
		if oracle == nil {
			return nil, fmt.Errorf("policy %q selected but no placement oracle is configured", name)
		}
		if features == nil {
			return nil, fmt.Errorf("policy %q selected but no feature source is configured", name)
		}
		return &oracleDriven{
			topo:     topo,
			oracle:   oracle,
			features: features,
			fast:     states[TierFast],
			mid:      states[TierMid],
			lastTier: make(map[uint64]Tier),
		}, nil
	case PolicyPinFast:
		return &pinned{topo: topo, tier: TierFast}, nil
	case PolicyPinMid:
		return &pinned{topo: topo, tier: TierMid}, nil
	case PolicyPinSlow:
		return &pinned{topo: topo, tier: TierSlow}, nil
	}
	return nil, fmt.Errorf("unknown placement policy %q", name)
}

// fixedAssignment deterministically splits the address space between the Mid
// and Slow tiers by hash parity. Stable across repeated calls for the same
// address; performs no admissions.
type fixedAssignment struct {
	topo *Topology
}

func (p *fixedAssignment) Place(req *Request) Placement {
	tier := TierSlow
	if addrParity(req.Addr) == 1 {
		tier = TierMid
	}
	return Placement{
		Tier:     tier,
		Duration: p.topo.ServiceDuration(tier, req.Op, req.Size),
		AdmitTo:  TierNone,
	}
}

// addrParity hashes the address and returns its low bit. FNV-1a keeps the
// split stable across runs and processes, unlike map iteration or runtime
// hash seeds.
func addrParity(addr uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], addr)
	h := fnv.New64a()
	h.Write(buf[:])
	return h.Sum64() & 1
}

// midCache serves hits from the Mid tier and misses from the Slow tier,
// promoting the missed item into Mid afterward (which may trigger eviction).
type midCache struct {
	topo *Topology
	mid  *TierState
}

func (p *midCache) Place(req *Request) Placement {
	if p.mid.Resident(req.Addr) {
		return Placement{
			Tier:     TierMid,
			Duration: p.topo.ServiceDuration(TierMid, req.Op, req.Size),
			AdmitTo:  TierMid, // idempotent refresh
		}
	}
	return Placement{
		Tier:     TierSlow,
		Duration: p.topo.ServiceDuration(TierSlow, req.Op, req.Size),
		AdmitTo:  TierMid,
	}
}

// zoneTiered routes by the trace's hot/cold zone label, except items already
// resident in the Fast tier, which are served there at the fixed nominal
// latency. Items served from a device tier are admitted into Fast afterward.
type zoneTiered struct {
	topo *Topology
	fast *TierState
}

func (p *zoneTiered) Place(req *Request) Placement {
	if p.fast.Resident(req.Addr) {
		return Placement{Tier: TierFast, Duration: FastHitDuration, AdmitTo: TierNone}
	}
	tier := TierSlow
	if req.Zone == "hot" {
		tier = TierMid
	}
	return Placement{
		Tier:     tier,
		Duration: p.topo.ServiceDuration(tier, req.Op, req.Size),
		AdmitTo:  TierFast,
	}
}

// oracleDriven delegates the tier decision to the external placement oracle
// and reports each observed outcome back to it. The policy only builds the
// feature vector (via the external FeatureSource), applies the decision, and
// forwards outcomes; it never inspects the oracle's model.
type oracleDriven struct {
	topo     *Topology
	oracle   Oracle
	features FeatureSource
	fast     *TierState
	mid      *TierState

	lastTier map[uint64]Tier
}

func (p *oracleDriven) Place(req *Request) Placement {
	tier := p.oracle.Decide(p.features.Features(req, p.priorTier(req.Addr), p.usageRatio(p.mid), p.usageRatio(p.fast)))
	if tier < TierFast || tier > TierSlow {
		tier = TierSlow
	}
	admit := TierNone
	switch tier {
	case TierFast:
		admit = TierFast
	case TierMid:
		admit = TierMid
	}
	return Placement{
		Tier:     tier,
		Duration: p.topo.ServiceDuration(tier, req.Op, req.Size),
		AdmitTo:  admit,
	}
}

// RequestCompleted reports the served latency to the oracle. The next-state
// vector is built from the same request as a proxy, reflecting the tier the
// request was just served from.
func (p *oracleDriven) RequestCompleted(req *Request, placed Placement, servedNS int64) {
	p.lastTier[req.Addr] = placed.Tier
	next := p.features.Features(req, placed.Tier, p.usageRatio(p.mid), p.usageRatio(p.fast))
	p.oracle.Observe(float64(servedNS)/1e9, next, false)
}

func (p *oracleDriven) priorTier(addr uint64) Tier {
	if t, ok := p.lastTier[addr]; ok {
		return t
	}
	return TierSlow
}

func (p *oracleDriven) usageRatio(ts *TierState) float64 {
	if ts == nil || ts.Capacity() == 0 {
		return 0
	}
	return float64(ts.Used()) / float64(ts.Capacity())
}

// pinned unconditionally serves every request from one designated tier.
// Useful as a baseline.
type pinned struct {
	topo *Topology
	tier Tier
}

func (p *pinned) Place(req *Request) Placement {
	admit := TierNone
	if p.tier != TierSlow {
		admit = p.tier
	}
	return Placement{
		Tier:     p.tier,
		Duration: p.topo.ServiceDuration(p.tier, req.Op, req.Size),
		AdmitTo:  admit,
	}
}
