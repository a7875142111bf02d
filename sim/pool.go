// Implements the per-tier resource pool that models a fixed number of
// parallel device channels. Requests that cannot immediately acquire a
// channel wait in FIFO order; the pool is touched only from the simulation
// domain and needs no locking.

package sim

// waiter is a request parked on a full resource pool together with everything
// needed to start its service once a channel frees up.
type waiter struct {
	req       *Request
	placement Placement
	arrivedAt int64 // virtual time the request first asked for a channel
}

// ResourcePool models the parallel service channels of one physical tier.
// Capacity is fixed at construction. Grant order is strictly FIFO: a waiter
// can only be overtaken by requests that arrived before it.
type ResourcePool struct {
	capacity int
	inUse    int
	waiters  []*waiter
}

// NewResourcePool creates a pool with the given channel count.
func NewResourcePool(channels int) *ResourcePool {
	if channels <= 0 {
		panic("NewResourcePool: channel count must be positive")
	}
	return &ResourcePool{capacity: channels}
}

// TryAcquire claims a free channel if one exists. It returns false when all
// channels are busy; the caller must then park the request with Enqueue.
func (p *ResourcePool) TryAcquire() bool {
	if p.inUse < p.capacity {
		p.inUse++
		return true
	}
	return false
}

// Enqueue parks a request at the back of the wait list.
func (p *ResourcePool) Enqueue(w *waiter) {
	p.waiters = append(p.waiters, w)
}

// Release frees a channel. If a waiter is queued, the channel is handed to
// the oldest one and that waiter is returned so the caller can schedule its
// service; otherwise the channel returns to the free set and nil is returned.
func (p *ResourcePool) Release() *waiter {
	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		return w
	}
	if p.inUse == 0 {
		panic("ResourcePool.Release: no channel in use")
	}
	p.inUse--
	return nil
}

// InUse returns the number of busy channels.
func (p *ResourcePool) InUse() int {
	return p.inUse
}

// Waiting returns the number of parked requests.
func (p *ResourcePool) Waiting() int {
	return len(p.waiters)
}
