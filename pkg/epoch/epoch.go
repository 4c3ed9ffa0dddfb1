// Package epoch provides epoch-based safe memory reclamation for lock-free
// data structures. Readers pin the domain before touching shared nodes and
// unpin when done; writers defer destruction of unlinked nodes until no
// pinned reader could still observe them.
package epoch

import (
	"sync"
	"sync/atomic"
)

// Domain tracks active pins and nodes awaiting reclamation. One Domain is
// typically shared by every operation against a single tree.
type Domain struct {
	globalEpoch uint64

	pins sync.Map // pinID -> *pinState

	retiredMu sync.Mutex
	retired   map[uint64][]func()

	nextPinID uint64

	minSafeEpoch uint64
}

type pinState struct {
	epoch  uint64
	active int32
}

// NewDomain creates an empty reclamation domain.
func NewDomain() *Domain {
	return &Domain{
		globalEpoch: 1, // epoch 0 means "unset"
		retired:     make(map[uint64][]func()),
	}
}

// Guard represents one thread's pin of the domain. While held, any node
// visible at pin time is guaranteed not to be physically freed.
type Guard struct {
	dom   *Domain
	state *pinState
	pinID uint64
}

// Pin records the current epoch and marks the calling goroutine as active.
// The returned Guard must be released with Leave.
func (d *Domain) Pin() *Guard {
	pinID := atomic.AddUint64(&d.nextPinID, 1)
	state := &pinState{}

	state.epoch = atomic.LoadUint64(&d.globalEpoch)
	atomic.StoreInt32(&state.active, 1)

	d.pins.Store(pinID, state)

	return &Guard{dom: d, state: state, pinID: pinID}
}

// Leave ends the pin, allowing the domain to reclaim anything retired at or
// after the guard's epoch once no other pin observes it.
func (g *Guard) Leave() {
	if g == nil || g.state == nil {
		return
	}
	atomic.StoreInt32(&g.state.active, 0)
	g.dom.pins.Delete(g.pinID)
}

// Epoch reports the epoch this guard was pinned at.
func (g *Guard) Epoch() uint64 {
	if g == nil || g.state == nil {
		return 0
	}
	return g.state.epoch
}

// Defer schedules fn to run in a later Reclaim, once no active pin holds an
// epoch at or before the global epoch current when Defer was called (pins
// taken afterward at that same epoch also hold it back). fn is typically a
// closure that drops the last Go reference to an
// unlinked node; it must not itself touch the tree.
func (g *Guard) Defer(fn func()) {
	if fn == nil {
		return
	}
	dom := g.dom
	epoch := atomic.LoadUint64(&dom.globalEpoch)

	dom.retiredMu.Lock()
	dom.retired[epoch] = append(dom.retired[epoch], fn)
	dom.retiredMu.Unlock()
}

// Advance bumps the global epoch. Callers are not required to call this
// directly; Defer piggybacks on whatever epoch is current, and Reclaim
// advances the frontier on its own by inspecting active pins.
func (d *Domain) Advance() uint64 {
	return atomic.AddUint64(&d.globalEpoch, 1)
}

// Reclaim runs every deferred closure that is safe to run right now —
// those retired at an epoch strictly before the oldest epoch any live pin
// could still observe — and returns how many ran.
func (d *Domain) Reclaim() int {
	minEpoch := d.minActiveEpoch()
	atomic.StoreUint64(&d.minSafeEpoch, minEpoch)

	d.retiredMu.Lock()
	defer d.retiredMu.Unlock()

	ran := 0
	for epoch, fns := range d.retired {
		if epoch < minEpoch {
			for _, fn := range fns {
				fn()
			}
			ran += len(fns)
			delete(d.retired, epoch)
		}
	}
	return ran
}

// minActiveEpoch returns the oldest epoch any live pin could still observe.
// With zero active pins that's "everything retired so far", i.e. one past
// the current global epoch — every pin's recorded epoch is always <= the
// current global epoch, so starting there and lowering for each active pin
// naturally collapses to that case when the range below finds none.
func (d *Domain) minActiveEpoch() uint64 {
	minEpoch := atomic.LoadUint64(&d.globalEpoch) + 1
	d.pins.Range(func(_, value interface{}) bool {
		state := value.(*pinState)
		if atomic.LoadInt32(&state.active) == 1 && state.epoch < minEpoch {
			minEpoch = state.epoch
		}
		return true
	})
	return minEpoch
}

// PendingCount returns the number of deferred closures not yet run.
func (d *Domain) PendingCount() int {
	d.retiredMu.Lock()
	defer d.retiredMu.Unlock()
	count := 0
	for _, fns := range d.retired {
		count += len(fns)
	}
	return count
}

// ActivePins returns the number of currently pinned guards.
func (d *Domain) ActivePins() int {
	count := 0
	d.pins.Range(func(_, value interface{}) bool {
		state := value.(*pinState)
		if atomic.LoadInt32(&state.active) == 1 {
			count++
		}
		return true
	})
	return count
}

// Drain forces reclamation of everything retired so far, regardless of
// pinned readers. It exists for teardown: callers must have already
// established that no other goroutine can be pinned against this domain.
func (d *Domain) Drain() int {
	d.retiredMu.Lock()
	defer d.retiredMu.Unlock()
	ran := 0
	for epoch, fns := range d.retired {
		for _, fn := range fns {
			fn()
		}
		ran += len(fns)
		delete(d.retired, epoch)
	}
	return ran
}
