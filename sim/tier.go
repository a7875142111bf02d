// Defines the storage tier hierarchy: tier identities, per-tier device
// parameters, and service-duration computation.

package sim

import "fmt"

// Tier identifies one of the three storage classes in the hierarchy,
// ordered fastest to slowest.
type Tier int

const (
	// TierNone marks the absence of a tier (e.g. no post-completion admission).
	TierNone Tier = iota - 1
	// TierFast is the volatile memory tier. Accesses complete at a fixed
	// nominal latency and bypass channel contention.
	TierFast
	// TierMid is the solid-state tier.
	TierMid
	// TierSlow is the rotational tier. In most placements it is treated as
	// unconstrained in capacity.
	TierSlow
)

// NumTiers is the number of real tiers (excluding TierNone).
const NumTiers = 3

// FastHitDuration is the fixed nominal service time, in virtual nanoseconds,
// of a fast-tier access. Fast-tier hits do not contend for device channels.
const FastHitDuration int64 = 10

func (t Tier) String() string {
	switch t {
	case TierFast:
		return "RAM"
	case TierMid:
		return "SSD"
	case TierSlow:
		return "HDD"
	}
	return "none"
}

// Faster returns the next faster tier, or TierNone if t is already fastest.
func (t Tier) Faster() Tier {
	if t <= TierFast {
		return TierNone
	}
	return t - 1
}

// Slower returns the next slower tier, or TierNone if t is already slowest.
func (t Tier) Slower() Tier {
	if t >= TierSlow {
		return TierNone
	}
	return t + 1
}

// TierSpec holds the fixed device parameters of one tier. Rates are in bytes
// per virtual second; Channels is the number of parallel service channels.
type TierSpec struct {
	CapacityBytes int64
	Channels      int
	ReadRate      float64
	WriteRate     float64
}

// Topology is the immutable three-tier device configuration for a run.
type Topology struct {
	Specs [NumTiers]TierSpec
}

// Spec returns the device parameters for a tier.
func (tp *Topology) Spec(t Tier) TierSpec {
	return tp.Specs[t]
}

// ServiceDuration computes the virtual-time cost, in nanoseconds, of
// transferring size bytes on the given tier. Fast-tier accesses always cost
// the fixed nominal duration regardless of size.
func (tp *Topology) ServiceDuration(t Tier, op Op, size int64) int64 {
	if t == TierFast {
		return FastHitDuration
	}
	spec := tp.Specs[t]
	rate := spec.ReadRate
	if op == OpWrite {
		rate = spec.WriteRate
	}
	if rate <= 0 {
		panic(fmt.Sprintf("ServiceDuration: tier %s has no %s transfer rate", t, op))
	}
	return int64(float64(size) / rate * 1e9)
}
