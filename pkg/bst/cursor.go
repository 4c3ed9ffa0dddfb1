package bst

import (
	"cmp"

	"concurrentbst/pkg/epoch"
	"concurrentbst/pkg/seqlock"
)

// ordering is the result of a cursor's find step: which way an absent key
// would be inserted, or that it was found.
type ordering int

const (
	orderLess ordering = iota
	orderEqual
	orderGreater
)

type ancestorFrame[K cmp.Ordered, V any] struct {
	node *node[K, V]
	dir  dir
}

// cursor is a per-operation, single-goroutine descent position. It is never
// shared between goroutines and holds no lock beyond the SeqLock read guard
// on its current node.
type cursor[K cmp.Ordered, V any] struct {
	current   *node[K, V]
	curDir    dir
	rguard    seqlock.ReadGuard[nodeInner[K, V]]
	ancestors []ancestorFrame[K, V]
}

func newCursor[K cmp.Ordered, V any](root *node[K, V]) *cursor[K, V] {
	return &cursor[K, V]{
		current: root,
		curDir:  dirRight,
		rguard:  root.inner.ReadLock(),
	}
}

// isRoot reports whether the cursor's current node is the tree's sentinel.
func (c *cursor[K, V]) isRoot() bool {
	return len(c.ancestors) == 0
}

// push validates the guard currently held, then descends into child,
// replacing current/dir/rguard. It returns false if the current guard was
// invalidated by a concurrent write; the caller must retry its step, since
// push leaves the cursor's path un-rewound.
func (c *cursor[K, V]) push(child *node[K, V], childGuard seqlock.ReadGuard[nodeInner[K, V]], newDir dir) bool {
	if !c.rguard.Validate() {
		c.rguard.Restart()
		return false
	}
	c.ancestors = append(c.ancestors, ancestorFrame[K, V]{node: c.current, dir: c.curDir})
	c.current = child
	c.rguard = childGuard
	c.curDir = newDir
	return true
}

// pop discards the current node and restores the parent as current,
// re-acquiring a fresh read guard on it. It fails only at the sentinel.
func (c *cursor[K, V]) pop() bool {
	if len(c.ancestors) == 0 {
		return false
	}
	last := c.ancestors[len(c.ancestors)-1]
	c.ancestors = c.ancestors[:len(c.ancestors)-1]
	c.current = last.node
	c.curDir = last.dir
	c.rguard = c.current.inner.ReadLock()
	return true
}

// find descends from the cursor's current position looking for key. It
// returns orderEqual with the cursor parked on the matching node, or
// orderLess/orderGreater with the cursor parked on the node under which an
// absent key would be inserted (in the direction last examined).
//
// The equal-key case always pushes in dirRight; callers must not rely on
// that direction, since find returns before another descent step can act
// on it (spec's equal-key tie-break is otherwise unobservable).
//
// A child pointer carrying the retired mark means the current node has
// been unlinked by a concurrent cleanup; find then restarts its descent
// from the sentinel.
func (c *cursor[K, V]) find(key K) ordering {
	for {
		ref := c.rguard.Value().child(c.curDir)
		if ref != nil && ref.retired {
			root := c.ancestors[0].node
			c.ancestors = c.ancestors[:0]
			c.current = root
			c.curDir = dirRight
			c.rguard = root.inner.ReadLock()
			continue
		}
		if ref == nil {
			if c.curDir == dirLeft {
				return orderLess
			}
			return orderGreater
		}
		child := ref.node
		childGuard := child.inner.ReadLock()

		switch {
		case child.key == key:
			if !c.push(child, childGuard, dirRight) {
				continue
			}
			return orderEqual
		case key > child.key:
			if !c.push(child, childGuard, dirRight) {
				continue
			}
		default:
			if !c.push(child, childGuard, dirLeft) {
				continue
			}
		}
	}
}

// cleanup opportunistically unlinks the cursor's current node if it is a
// vacant tombstone with fewer than two children, then recurses toward
// the root. It is best-effort: any upgrade failure along the way simply
// aborts, leaving the vacant node for a later delete to collect.
func (c *cursor[K, V]) cleanup(guard *epoch.Guard) {
	for {
		inner := c.rguard.Value()
		if inner.value != nil {
			return
		}
		if c.isRoot() {
			return
		}
		left, right := inner.left, inner.right
		if left != nil && right != nil {
			return
		}

		aWrite, ok := c.rguard.Upgrade()
		if !ok {
			return
		}
		aNode := c.current

		if !c.pop() {
			aWrite.Discard()
			return
		}

		parentChild := c.rguard.Value().child(c.curDir)
		if parentChild == nil || parentChild.node != aNode || parentChild.retired {
			aWrite.Discard()
			return
		}

		parentWrite, ok := c.rguard.Upgrade()
		if !ok {
			aWrite.Discard()
			return
		}

		var newParentInner *nodeInner[K, V]
		var aLeft, aRight *childRef[K, V]
		switch {
		case left == nil && right == nil:
			newParentInner = parentWrite.Base().withChild(c.curDir, nil)
		case left == nil:
			newParentInner = parentWrite.Base().withChild(c.curDir, newChildRef(right.node))
			aRight = retiredChildRef(right)
		default:
			newParentInner = parentWrite.Base().withChild(c.curDir, newChildRef(left.node))
			aLeft = retiredChildRef(left)
		}

		aWrite.Publish(&nodeInner[K, V]{value: nil, left: aLeft, right: aRight})
		parentWrite.Publish(newParentInner)
		aNode.retire(guard)

		c.rguard = c.current.inner.ReadLock()
		// loop: retry cleanup at the (possibly still vacant) parent
	}
}
