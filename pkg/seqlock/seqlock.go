// Package seqlock implements an optimistic, non-blocking read / exclusive
// write lock over a single payload value. Readers take a snapshot that
// never blocks a writer; the snapshot is validated before it is trusted,
// and a reader may request to be promoted to exclusive access.
//
// Concurrent data structures in Go cannot safely hand readers a raw pointer
// into memory a writer mutates in place — the race detector (correctly)
// refuses to consider that benign. This SeqLock instead publishes each
// write as a freshly built, immutable payload behind an atomic pointer.
// A reader's snapshot is the pointer value it observed; validation is a
// single pointer comparison rather than a sequence-counter re-read, but it
// gives callers the same contract: lock-free reads, validate-before-use,
// upgrade-or-retry writes.
package seqlock

import (
	"sync"
	"sync/atomic"
)

// SeqLock guards a payload of type T behind an atomically swapped pointer.
type SeqLock[T any] struct {
	mu  sync.Mutex
	ptr atomic.Pointer[T]
}

// New creates a SeqLock whose initial payload is the value pointed to by
// initial. initial must not be mutated afterward; the lock takes ownership
// of it as an immutable snapshot.
func New[T any](initial *T) *SeqLock[T] {
	l := &SeqLock[T]{}
	l.ptr.Store(initial)
	return l
}

// ReadGuard is a lock-free, optimistic view of a SeqLock's payload.
type ReadGuard[T any] struct {
	lock *SeqLock[T]
	snap *T
}

// ReadLock takes a snapshot of the current payload. It never blocks, even
// while a writer holds the lock.
func (l *SeqLock[T]) ReadLock() ReadGuard[T] {
	return ReadGuard[T]{lock: l, snap: l.ptr.Load()}
}

// Value returns the snapshot observed at ReadLock (or the most recent
// Restart) time. The pointer is only meaningful until the guard is known
// to be invalid; callers must not retain it past a failed Validate.
func (g ReadGuard[T]) Value() *T {
	return g.snap
}

// Validate reports whether the payload is still the one this guard
// observed — i.e. no writer has published a change since.
func (g ReadGuard[T]) Validate() bool {
	return g.lock.ptr.Load() == g.snap
}

// Restart re-takes the snapshot in place, discarding the stale one. Used
// after a failed Validate so a caller can resume a multi-step protocol
// without restarting the whole operation.
func (g *ReadGuard[T]) Restart() {
	g.snap = g.lock.ptr.Load()
}

// Upgrade atomically promotes a still-valid read guard to exclusive write
// access. It fails if the payload has changed since the snapshot was taken.
func (g ReadGuard[T]) Upgrade() (WriteGuard[T], bool) {
	g.lock.mu.Lock()
	if g.lock.ptr.Load() != g.snap {
		g.lock.mu.Unlock()
		return WriteGuard[T]{}, false
	}
	return WriteGuard[T]{lock: g.lock, base: g.snap}, true
}

// WriteGuard is the exclusive access granted by a successful Upgrade. The
// holder builds a new payload value based on Base and either Publish-es it
// or Discards the attempt, in both cases releasing the lock.
type WriteGuard[T any] struct {
	lock *SeqLock[T]
	base *T
}

// Base returns the payload as observed at upgrade time, for the writer to
// derive its replacement from.
func (w WriteGuard[T]) Base() *T {
	return w.base
}

// Publish installs next as the new payload, visible to readers from this
// point on, and releases the write lock. next must not be mutated again.
func (w WriteGuard[T]) Publish(next *T) {
	w.lock.ptr.Store(next)
	w.lock.mu.Unlock()
}

// Discard releases the write lock without publishing a change.
func (w WriteGuard[T]) Discard() {
	w.lock.mu.Unlock()
}
