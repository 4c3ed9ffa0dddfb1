package epoch

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestPinAndLeave(t *testing.T) {
	d := NewDomain()
	if d.ActivePins() != 0 {
		t.Fatalf("expected 0 active pins, got %d", d.ActivePins())
	}
	g := d.Pin()
	if d.ActivePins() != 1 {
		t.Fatalf("expected 1 active pin, got %d", d.ActivePins())
	}
	g.Leave()
	if d.ActivePins() != 0 {
		t.Fatalf("expected 0 active pins after Leave, got %d", d.ActivePins())
	}
}

func TestDeferRunsAfterPinLeaves(t *testing.T) {
	d := NewDomain()
	g := d.Pin()

	var ran int32
	g.Defer(func() { atomic.StoreInt32(&ran, 1) })

	if d.PendingCount() != 1 {
		t.Fatalf("expected 1 pending reclamation, got %d", d.PendingCount())
	}

	// No pin has left yet; reclaim must not run it.
	d.Reclaim()
	if atomic.LoadInt32(&ran) != 0 {
		t.Fatal("closure ran while its pinning guard was still active")
	}

	g.Leave()
	d.Reclaim()
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatal("closure did not run after the guard left")
	}
	if d.PendingCount() != 0 {
		t.Fatalf("expected 0 pending after reclaim, got %d", d.PendingCount())
	}
}

func TestDeferBlockedByOtherActivePin(t *testing.T) {
	d := NewDomain()
	early := d.Pin() // pinned at the old epoch, stays active throughout

	late := d.Pin()
	var ran int32
	late.Defer(func() { atomic.StoreInt32(&ran, 1) })
	late.Leave()

	d.Reclaim()
	if atomic.LoadInt32(&ran) != 0 {
		t.Fatal("closure ran while an older pin was still active")
	}

	early.Leave()
	d.Reclaim()
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatal("closure did not run once the blocking pin left")
	}
}

func TestDrainIgnoresActivePins(t *testing.T) {
	d := NewDomain()
	g := d.Pin()
	var ran int32
	g.Defer(func() { atomic.StoreInt32(&ran, 1) })

	d.Drain()
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatal("Drain did not run a pending closure")
	}
	g.Leave()
}

func TestConcurrentPinLeaveReclaim(t *testing.T) {
	d := NewDomain()
	var wg sync.WaitGroup
	var totalRun int32

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := d.Pin()
			g.Defer(func() { atomic.AddInt32(&totalRun, 1) })
			g.Leave()
		}()
	}
	wg.Wait()

	for tries := 0; tries < 10 && d.PendingCount() > 0; tries++ {
		d.Reclaim()
	}
	if d.PendingCount() != 0 {
		t.Fatalf("pending reclamations remained: %d", d.PendingCount())
	}
	if atomic.LoadInt32(&totalRun) != 64 {
		t.Fatalf("expected 64 closures to run, got %d", totalRun)
	}
}
