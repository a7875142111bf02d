package sim

import (
	"container/heap"

	"github.com/sirupsen/logrus"
)

// queuedEvent pairs an event with the sequence number it was scheduled
// under. The sequence breaks timestamp ties so events with equal virtual
// times run in scheduling order; without it, requests whose arrival gaps
// were clamped to zero would be served out of trace order.
type queuedEvent struct {
	event Event
	seq   int64
}

// EventQueue implements heap.Interface ordered by event timestamp, with
// scheduling order as the tie-break, so the simulator always pops the
// earliest pending event and tied events keep FIFO order.
type EventQueue []queuedEvent

func (eq EventQueue) Len() int { return len(eq) }

func (eq EventQueue) Less(i, j int) bool {
	if eq[i].event.Timestamp() != eq[j].event.Timestamp() {
		return eq[i].event.Timestamp() < eq[j].event.Timestamp()
	}
	return eq[i].seq < eq[j].seq
}

func (eq EventQueue) Swap(i, j int) {
	eq[i], eq[j] = eq[j], eq[i]
}

func (eq *EventQueue) Push(x any) {
	*eq = append(*eq, x.(queuedEvent))
}

func (eq *EventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	*eq = old[:n-1]
	return item
}

// Simulator is the discrete-event engine. It owns the virtual clock, the
// event heap, the tier topology and all per-run state; nothing lives in
// package globals, so multiple simulators can run side by side.
//
// All fields are touched only from the goroutine driving Run. The migration
// Orchestrator is the single exception: it is internally synchronized and
// shared with its background executor.
type Simulator struct {
	Clock      int64
	EventQueue EventQueue

	Topology *Topology
	Pools    map[Tier]*ResourcePool
	States   map[Tier]*TierState
	Policy   PlacementPolicy
	Counters *ServiceCounters
	Output   *RecordWriter

	Migration     *Orchestrator
	CheckInterval int64

	completed int64
	nextSeq   int64
	err       error
}

// NewSimulator assembles an engine over the given topology, channel pools,
// tier capacity states and placement policy. Output and Migration are
// optional; CheckInterval defaults to DefaultCheckInterval.
func NewSimulator(topo *Topology, pools map[Tier]*ResourcePool, states map[Tier]*TierState, policy PlacementPolicy) *Simulator {
	return &Simulator{
		EventQueue:    EventQueue{},
		Topology:      topo,
		Pools:         pools,
		States:        states,
		Policy:        policy,
		Counters:      &ServiceCounters{},
		Output:        NewRecordWriter(nil),
		CheckInterval: DefaultCheckInterval,
	}
}

// Schedule pushes an event onto the event heap. Each event gets the next
// sequence number, so events sharing a timestamp run in the order they were
// scheduled.
func (sim *Simulator) Schedule(e Event) {
	heap.Push(&sim.EventQueue, queuedEvent{event: e, seq: sim.nextSeq})
	sim.nextSeq++
}

// fail records the first fatal error; Run drains no further events after it.
func (sim *Simulator) fail(err error) {
	if sim.err == nil {
		sim.err = err
	}
}

// Completed returns the number of requests fully served so far.
func (sim *Simulator) Completed() int64 {
	return sim.completed
}

// usedBytes reports the bytes resident on a tier, 0 for uncapped tiers.
func (sim *Simulator) usedBytes(t Tier) int64 {
	if st := sim.States[t]; st != nil {
		return st.Used()
	}
	return 0
}

// Run schedules an arrival per request and drains the event heap in timestamp
// order, advancing the virtual clock to each event before executing it. It
// returns the first fatal error (capacity fault or broken output sink), or
// nil after the heap empties.
func (sim *Simulator) Run(requests []*Request) error {
	heap.Init(&sim.EventQueue)
	for _, req := range requests {
		sim.Schedule(&ArrivalEvent{time: req.ArrivalTime, Request: req})
	}
	logrus.Infof("starting simulation with %d requests", len(requests))

	for sim.EventQueue.Len() > 0 {
		if sim.err != nil {
			return sim.err
		}
		event := heap.Pop(&sim.EventQueue).(queuedEvent).event
		sim.Clock = event.Timestamp()
		event.Execute(sim)
	}
	if sim.err != nil {
		return sim.err
	}

	logrus.Infof("simulation finished at %d ns, %d requests served", sim.Clock, sim.completed)
	return nil
}
