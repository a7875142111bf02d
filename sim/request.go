// Defines the Request struct that models an individual I/O request replayed
// from a trace. Requests are immutable once constructed by the trace source
// and are consumed exactly once by the simulation engine.

package sim

import "fmt"

// Op is the kind of an I/O operation.
type Op int

const (
	OpRead Op = iota
	OpWrite
)

func (o Op) String() string {
	if o == OpWrite {
		return "write"
	}
	return "read"
}

// Request models a single I/O request from the trace.
type Request struct {
	Addr uint64 // logical block address (or hashed legacy identifier)
	Size int64  // transfer size in bytes
	Op   Op

	ArrivalTime int64 // virtual time of arrival, in nanoseconds

	Sequential bool // sequential/random hint (extended trace layout only)

	// ServiceTime is the externally supplied service time in nanoseconds,
	// or 0 when the trace does not carry one. It feeds oracle feature
	// vectors; the simulated duration is always computed from tier rates.
	ServiceTime int64

	// Zone is the externally supplied "hot"/"cold" zone label consumed by
	// the zone-tiered placement policy. Empty for traces without a zone
	// column.
	Zone string
}

func (r Request) String() string {
	return fmt.Sprintf("Request(addr=%d, size=%d, op=%s, arrival=%dns)", r.Addr, r.Size, r.Op, r.ArrivalTime)
}
