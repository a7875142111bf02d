package sim

import "github.com/sirupsen/logrus"

// Event defines the interface for all simulation events.
// Each event has a Timestamp (in virtual nanoseconds) and an Execute method
// that advances simulation state when invoked.
type Event interface {
	Timestamp() int64
	Execute(*Simulator)
}

// ArrivalEvent represents the arrival of a new I/O request into the system.
type ArrivalEvent struct {
	time    int64
	Request *Request
}

// Timestamp returns the scheduled time of the ArrivalEvent.
func (e *ArrivalEvent) Timestamp() int64 {
	return e.time
}

// Execute dispatches the request through the active placement policy. A
// request served by a device tier must first acquire one of that tier's
// channels; if none is free it is parked FIFO on the pool and its service is
// scheduled later, when a completion releases a channel.
func (e *ArrivalEvent) Execute(sim *Simulator) {
	req := e.Request
	logrus.Debugf("<< arrival: addr %d at %d ns", req.Addr, e.time)

	pl := sim.Policy.Place(req)
	pool := sim.Pools[pl.Tier]
	if pool == nil || pool.TryAcquire() {
		// Fast-tier accesses bypass channel contention entirely; device
		// tiers got a free channel and start service immediately.
		sim.Schedule(&CompletionEvent{
			time:      e.time + pl.Duration,
			Request:   req,
			Placement: pl,
			arrivedAt: e.time,
		})
		return
	}
	pool.Enqueue(&waiter{req: req, placement: pl, arrivedAt: e.time})
}

// CompletionEvent represents the end of a request's service on its tier.
// Served time covers both the channel wait and the transfer itself.
type CompletionEvent struct {
	time      int64
	Request   *Request
	Placement Placement
	arrivedAt int64 // virtual time the request first asked for service
}

// Timestamp returns the scheduled time of the CompletionEvent.
func (e *CompletionEvent) Timestamp() int64 {
	return e.time
}

// Execute performs all completion bookkeeping exactly once per request:
// service counters, capacity admission, the per-request output record,
// oracle outcome reporting, hotness tracking, the periodic migration check,
// and finally the channel release that may start the next waiter's service.
func (e *CompletionEvent) Execute(sim *Simulator) {
	req := e.Request
	served := e.time - e.arrivedAt
	logrus.Debugf(">> completion: addr %d on %s, served %d ns", req.Addr, e.Placement.Tier, served)

	sim.Counters.RecordCompletion(e.Placement.Tier, req.Op, served)

	if e.Placement.AdmitTo != TierNone {
		if state := sim.States[e.Placement.AdmitTo]; state != nil {
			if err := state.Admit(req.Addr, req.Size); err != nil {
				sim.fail(err)
				return
			}
		}
	}

	if err := sim.Output.WriteRecord(req.Addr, e.arrivedAt, e.time, served, e.Placement.Tier); err != nil {
		sim.fail(err)
		return
	}

	if obs, ok := sim.Policy.(CompletionObserver); ok {
		obs.RequestCompleted(req, e.Placement, served)
	}

	if sim.Migration != nil {
		sim.Migration.TrackRequest(req.Addr, e.Placement.Tier, served, req.Size)
		sim.completed++
		if sim.CheckInterval > 0 && sim.completed%sim.CheckInterval == 0 {
			sim.Migration.PeriodicUpdate(sim.usedBytes(TierMid), sim.usedBytes(TierFast))
		}
	} else {
		sim.completed++
	}

	if pool := sim.Pools[e.Placement.Tier]; pool != nil {
		if w := pool.Release(); w != nil {
			sim.Schedule(&CompletionEvent{
				time:      e.time + w.placement.Duration,
				Request:   w.req,
				Placement: w.placement,
				arrivedAt: w.arrivedAt,
			})
		}
	}
}
