package bst

import (
	"cmp"
	"sync/atomic"

	"concurrentbst/pkg/epoch"
)

// Tree is a concurrent ordered map. The zero value is not usable; construct
// one with New. All methods are safe for concurrent use by any number of
// goroutines; the tree performs no rebalancing and offers no iteration.
type Tree[K cmp.Ordered, V any] struct {
	root *node[K, V]
	dom  *epoch.Domain
	size atomic.Int64
}

// New creates an empty tree.
func New[K cmp.Ordered, V any]() *Tree[K, V] {
	var placeholder K
	return &Tree[K, V]{
		root: newSentinel[K, V](placeholder),
		dom:  epoch.NewDomain(),
	}
}

func (t *Tree[K, V]) newCursor() *cursor[K, V] {
	return newCursor(t.root)
}

// Len returns the number of live keys, tracked as an atomic counter rather
// than by traversal — this module does not support iteration.
func (t *Tree[K, V]) Len() int {
	return int(t.size.Load())
}

// PendingReclamations reports how many unlinked nodes are retired but not
// yet safe to free, for diagnostics and tests.
func (t *Tree[K, V]) PendingReclamations() int {
	return t.dom.PendingCount()
}

// Insert stores value at key if key is absent or was previously deleted.
// If key already holds a live value, Insert returns the value it was given
// unchanged (rejected) and false; the tree is not modified.
func (t *Tree[K, V]) Insert(key K, value V) (rejected V, inserted bool) {
	for {
		guard := t.dom.Pin()
		cur := t.newCursor()
		result := cur.find(key)

		wg, ok := cur.rguard.Upgrade()
		if !ok {
			guard.Leave()
			continue
		}

		base := wg.Base()
		switch result {
		case orderEqual:
			if base.value != nil {
				wg.Discard()
				guard.Leave()
				return value, false
			}
			v := value
			wg.Publish(&nodeInner[K, V]{value: &v, left: base.left, right: base.right})
		case orderLess:
			child := newNode[K, V](key, value)
			wg.Publish(base.withChild(dirLeft, newChildRef(child)))
		default:
			child := newNode[K, V](key, value)
			wg.Publish(base.withChild(dirRight, newChildRef(child)))
		}

		t.size.Add(1)
		guard.Leave()
		var zero V
		return zero, true
	}
}

// Delete removes key if it currently holds a live value, returning the
// removed value and true. If key is absent or already a tombstone, it
// returns false and leaves the tree unchanged.
func (t *Tree[K, V]) Delete(key K) (value V, deleted bool) {
	for {
		guard := t.dom.Pin()
		cur := t.newCursor()
		result := cur.find(key)

		if result != orderEqual {
			guard.Leave()
			var zero V
			return zero, false
		}

		wg, ok := cur.rguard.Upgrade()
		if !ok {
			guard.Leave()
			continue
		}

		base := wg.Base()
		if base.value == nil {
			wg.Discard()
			guard.Leave()
			var zero V
			return zero, false
		}

		prev := *base.value
		wg.Publish(&nodeInner[K, V]{value: nil, left: base.left, right: base.right})
		t.size.Add(-1)

		cur.rguard = cur.current.inner.ReadLock()
		cur.cleanup(guard)

		// Mirror the teacher's retire-then-advance-then-reclaim sequence:
		// advance so future pins see past this delete, leave our own pin
		// before reclaiming so it never blocks its own garbage.
		t.dom.Advance()
		guard.Leave()
		t.dom.Reclaim()
		return prev, true
	}
}

type lookupResult[V any] struct {
	value V
	found bool
}

// LookupWith finds key and invokes f with a pointer to its value (nil if
// absent or tombstoned), returning whatever f returns. f must not retain
// the pointer past the call: the snapshot it points into is only known
// consistent for the duration of the call.
//
// This resolves spec's lookup-serialization open question in favor of the
// lighter validated-read path rather than an upgrade to a write guard.
func LookupWith[K cmp.Ordered, V any, R any](t *Tree[K, V], key K, f func(*V) R) R {
	for {
		guard := t.dom.Pin()
		cur := t.newCursor()
		result := cur.find(key)

		if result != orderEqual {
			guard.Leave()
			return f(nil)
		}

		if !cur.rguard.Validate() {
			guard.Leave()
			continue
		}

		r := f(cur.rguard.Value().value)
		guard.Leave()
		return r
	}
}

// Lookup is a convenience wrapper over LookupWith for the common case of
// wanting a copy of the value.
func (t *Tree[K, V]) Lookup(key K) (value V, found bool) {
	res := LookupWith(t, key, func(v *V) lookupResult[V] {
		if v == nil {
			var zero V
			return lookupResult[V]{value: zero, found: false}
		}
		return lookupResult[V]{value: *v, found: true}
	})
	return res.value, res.found
}

// Close tears the tree down: an iterative in-order traversal schedules
// the destruction of every node still linked into the tree (vacant nodes
// and the sentinel included) through the reclamation domain, then
// drains it. Close must not be called concurrently with any other method,
// and the tree must not be used afterward.
func (t *Tree[K, V]) Close() {
	guard := t.dom.Pin()
	var stack []*node[K, V]
	current := t.root
	for {
		if current != nil {
			stack = append(stack, current)
			current = current.inner.ReadLock().Value().left.orNil()
		} else if len(stack) > 0 {
			current = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			current.retire(guard)
			current = current.inner.ReadLock().Value().right.orNil()
		} else {
			break
		}
	}
	guard.Leave()
	t.dom.Drain()
}
