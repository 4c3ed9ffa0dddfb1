// Package bst implements a concurrent ordered map keyed by a totally
// ordered type, as a partially external relaxed binary search tree
// protected by optimistic lock coupling. Insert, delete, and lookup may run
// concurrently from any number of goroutines without a global lock; the
// tree performs no rebalancing and supports no range queries or iteration.
package bst

import (
	"cmp"

	"concurrentbst/pkg/epoch"
	"concurrentbst/pkg/seqlock"
)

// dir is the direction a cursor descends in: the child slot under
// inspection on the node it currently holds.
type dir int

const (
	dirLeft dir = iota
	dirRight
)

// node is immutable once constructed except through its SeqLock-guarded
// interior. Its key never changes after insert.
type node[K cmp.Ordered, V any] struct {
	key   K
	inner *seqlock.SeqLock[nodeInner[K, V]]
}

// nodeInner is the payload a node's SeqLock publishes. value == nil means
// the node is a vacant tombstone; left/right == nil means "no child in
// that direction". Each published nodeInner is immutable: cleanup and
// insert/delete build a new one and Publish it rather than mutate fields
// in place.
type nodeInner[K cmp.Ordered, V any] struct {
	value *V
	left  *childRef[K, V]
	right *childRef[K, V]
}

// childRef is a boxed child pointer carrying the single-bit "retired" mark
// spec.md's data model describes. Go has no spare bits in a pointer to
// steal, so the tag is carried alongside it in a small immutable struct.
type childRef[K cmp.Ordered, V any] struct {
	node    *node[K, V]
	retired bool
}

func newChildRef[K cmp.Ordered, V any](n *node[K, V]) *childRef[K, V] {
	if n == nil {
		return nil
	}
	return &childRef[K, V]{node: n}
}

func retiredChildRef[K cmp.Ordered, V any](ref *childRef[K, V]) *childRef[K, V] {
	if ref == nil {
		return nil
	}
	return &childRef[K, V]{node: ref.node, retired: true}
}

// orNil unwraps a childRef to the node it points at, or nil.
func (ref *childRef[K, V]) orNil() *node[K, V] {
	if ref == nil {
		return nil
	}
	return ref.node
}

// child returns the childRef in the given direction.
func (in *nodeInner[K, V]) child(d dir) *childRef[K, V] {
	if d == dirLeft {
		return in.left
	}
	return in.right
}

// withChild returns a copy of in with the given direction's child replaced.
func (in *nodeInner[K, V]) withChild(d dir, ref *childRef[K, V]) *nodeInner[K, V] {
	next := *in
	if d == dirLeft {
		next.left = ref
	} else {
		next.right = ref
	}
	return &next
}

func newNode[K cmp.Ordered, V any](key K, value V) *node[K, V] {
	v := value
	return &node[K, V]{
		key: key,
		inner: seqlock.New(&nodeInner[K, V]{
			value: &v,
		}),
	}
}

// newSentinel builds the fixed root sentinel: an arbitrary placeholder key
// and no value, with the real tree hanging off its right child.
func newSentinel[K cmp.Ordered, V any](placeholder K) *node[K, V] {
	return &node[K, V]{
		key:   placeholder,
		inner: seqlock.New(&nodeInner[K, V]{}),
	}
}

// retire schedules the node's own destruction once no pinned reader could
// still observe it. The node carries no external resources, so "destroy"
// is just dropping the last Go reference; the closure exists to give the
// reclamation domain something to run and count.
func (n *node[K, V]) retire(guard *epoch.Guard) {
	captured := n
	guard.Defer(func() { captured.inner = nil })
}
