// Package bptree implements an in-memory B+Tree. Only leaves carry values,
// and leaves are chained left to right so a full scan never re-descends the
// tree.
//
// A Tree is not safe for concurrent use.
package bptree

import (
	"cmp"
	"errors"
	"fmt"
)

// MinDegree is the smallest branching parameter for which a full node can
// be split into two legal halves.
const MinDegree = 2

var ErrInvalidDegree = errors.New("bptree: degree must be at least 2")

// Tree is a B+Tree of branching parameter t: a node holds at most 2t-1 keys
// before it is split on the way down.
type Tree[K cmp.Ordered, V any] struct {
	root   node[K, V]
	degree int
	size   int
}

func New[K cmp.Ordered, V any](degree int) (*Tree[K, V], error) {
	if degree < MinDegree {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidDegree, degree)
	}
	return &Tree[K, V]{degree: degree}, nil
}

// MustNew is like New but panics on an invalid degree.
func MustNew[K cmp.Ordered, V any](degree int) *Tree[K, V] {
	t, err := New[K, V](degree)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Tree[K, V]) Degree() int {
	return t.degree
}

// Len returns the number of distinct keys stored.
func (t *Tree[K, V]) Len() int {
	return t.size
}

// Height returns the number of levels, 0 for an empty tree.
func (t *Tree[K, V]) Height() int {
	h := 0
	for n := t.root; n != nil; h++ {
		in, ok := n.(*internalNode[K, V])
		if !ok {
			return h + 1
		}
		n = in.children[0]
	}
	return h
}

// Insert adds key with value and reports whether the key was new. If key is
// already present the stored value is kept (first write wins).
func (t *Tree[K, V]) Insert(key K, value V) bool {
	if t.root == nil {
		t.root = &leafNode[K, V]{keys: []K{key}, values: []V{value}}
		t.size++
		return true
	}

	// A full root is the only place the tree grows in height.
	if t.root.keyCount() >= maxKeys(t.degree) {
		newRoot := &internalNode[K, V]{children: []node[K, V]{t.root}}
		newRoot.splitChild(0, t.degree)
		t.root = newRoot
	}

	inserted := t.root.insertNonFull(key, value, t.degree)
	if inserted {
		t.size++
	}
	return inserted
}

// Search returns the value stored under key.
func (t *Tree[K, V]) Search(key K) (V, bool) {
	n := t.root
	for n != nil {
		switch cur := n.(type) {
		case *internalNode[K, V]:
			n = cur.children[cur.childIndex(key)]
		case *leafNode[K, V]:
			return cur.get(key)
		}
	}
	var zero V
	return zero, false
}

// Ascend calls fn for every entry in ascending key order by walking the leaf
// chain. Iteration stops early when fn returns false.
func (t *Tree[K, V]) Ascend(fn func(key K, value V) bool) {
	for leaf := t.leftmostLeaf(); leaf != nil; leaf = leaf.next {
		for i, k := range leaf.keys {
			if !fn(k, leaf.values[i]) {
				return
			}
		}
	}
}

// Keys returns all keys in ascending order.
func (t *Tree[K, V]) Keys() []K {
	keys := make([]K, 0, t.size)
	t.Ascend(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

func (t *Tree[K, V]) leftmostLeaf() *leafNode[K, V] {
	n := t.root
	for n != nil {
		switch cur := n.(type) {
		case *internalNode[K, V]:
			n = cur.children[0]
		case *leafNode[K, V]:
			return cur
		}
	}
	return nil
}
