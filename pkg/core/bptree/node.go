package bptree

import (
	"cmp"
	"slices"
)

// node is implemented by *leafNode and *internalNode only.
type node[K cmp.Ordered, V any] interface {
	keyCount() int
	insertNonFull(key K, value V, degree int) bool
	// split divides a full node in two and returns the key the parent
	// must route on together with the new right sibling.
	split(degree int) (K, node[K, V])
}

// leafNode holds the row payloads. next points at the leaf to its right
// in key order; the same object is owned by some ancestor's children slot.
type leafNode[K cmp.Ordered, V any] struct {
	keys   []K
	values []V
	next   *leafNode[K, V]
}

// internalNode holds separator keys only. Every key under children[i] is
// below keys[i]; every key under children[i+1] is at or above it.
type internalNode[K cmp.Ordered, V any] struct {
	keys     []K
	children []node[K, V]
}

func maxKeys(degree int) int {
	return 2*degree - 1
}

func (n *leafNode[K, V]) keyCount() int {
	return len(n.keys)
}

func (n *leafNode[K, V]) get(key K) (V, bool) {
	pos, found := slices.BinarySearch(n.keys, key)
	if !found {
		var zero V
		return zero, false
	}
	return n.values[pos], true
}

// insertNonFull stores key at its sorted position. An existing key is left
// untouched and false is returned.
func (n *leafNode[K, V]) insertNonFull(key K, value V, _ int) bool {
	pos, found := slices.BinarySearch(n.keys, key)
	if found {
		return false
	}
	n.keys = slices.Insert(n.keys, pos, key)
	n.values = slices.Insert(n.values, pos, value)
	return true
}

// split keeps the first degree entries and moves the remaining degree-1
// into a new leaf linked right after n. The new leaf's first key is copied,
// not moved, into the parent.
func (n *leafNode[K, V]) split(degree int) (K, node[K, V]) {
	right := &leafNode[K, V]{
		keys:   slices.Clone(n.keys[degree:]),
		values: slices.Clone(n.values[degree:]),
		next:   n.next,
	}
	clear(n.values[degree:])
	n.keys = n.keys[:degree]
	n.values = n.values[:degree]
	n.next = right
	return right.keys[0], right
}

func (n *internalNode[K, V]) keyCount() int {
	return len(n.keys)
}

// childIndex picks the child that may hold key. A key equal to a separator
// lives in the right subtree.
func (n *internalNode[K, V]) childIndex(key K) int {
	pos, found := slices.BinarySearch(n.keys, key)
	if found {
		return pos + 1
	}
	return pos
}

func (n *internalNode[K, V]) insertNonFull(key K, value V, degree int) bool {
	i := n.childIndex(key)
	if n.children[i].keyCount() >= maxKeys(degree) {
		n.splitChild(i, degree)
		i = n.childIndex(key)
	}
	return n.children[i].insertNonFull(key, value, degree)
}

// split removes the median key from n and promotes it. n keeps
// keys[:degree-1] and children[:degree]; the new sibling takes the rest.
func (n *internalNode[K, V]) split(degree int) (K, node[K, V]) {
	median := n.keys[degree-1]
	right := &internalNode[K, V]{
		keys:     slices.Clone(n.keys[degree:]),
		children: slices.Clone(n.children[degree:]),
	}
	clear(n.children[degree:])
	n.keys = n.keys[:degree-1]
	n.children = n.children[:degree]
	return median, right
}

// splitChild splits the full child at index and hooks the new sibling in at
// index+1.
func (n *internalNode[K, V]) splitChild(index, degree int) {
	separator, right := n.children[index].split(degree)
	n.keys = slices.Insert(n.keys, index, separator)
	n.children = slices.Insert(n.children, index+1, right)
}
