package bst

import "cmp"

// Map is the facade spec'd for a concurrent ordered map: insert, delete,
// and lookup, with no iteration or range support. *Tree satisfies it
// structurally; the interface exists so callers can depend on the facade
// without depending on the tree's concrete type.
type Map[K cmp.Ordered, V any] interface {
	Insert(key K, value V) (rejected V, inserted bool)
	Delete(key K) (value V, deleted bool)
	Lookup(key K) (value V, found bool)
}

var _ Map[string, int] = (*Tree[string, int])(nil)
