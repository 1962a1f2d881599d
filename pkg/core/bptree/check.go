package bptree

import (
	"cmp"
	"errors"
	"fmt"
)

var ErrCorrupt = errors.New("bptree: invariant violated")

type bound[K any] struct {
	key K
	set bool
}

type checker[K cmp.Ordered, V any] struct {
	degree    int
	leafDepth int
	leaves    []*leafNode[K, V]
	keys      int
}

// Check walks the whole tree and verifies its structural invariants: equal
// leaf depth, children = keys + 1, separator ranges, node capacity, and a
// leaf chain that visits every key exactly once in ascending order.
func (t *Tree[K, V]) Check() error {
	if t.root == nil {
		if t.size != 0 {
			return fmt.Errorf("%w: empty tree reports %d keys", ErrCorrupt, t.size)
		}
		return nil
	}

	c := &checker[K, V]{degree: t.degree, leafDepth: -1}
	if err := checkNode(c, t.root, 0, true, bound[K]{}, bound[K]{}); err != nil {
		return err
	}
	if c.keys != t.size {
		return fmt.Errorf("%w: counted %d keys, tree reports %d", ErrCorrupt, c.keys, t.size)
	}

	// The chain must visit exactly the leaves found by the descent, in order.
	i := 0
	var prev *K
	for leaf := t.leftmostLeaf(); leaf != nil; leaf = leaf.next {
		if i >= len(c.leaves) || c.leaves[i] != leaf {
			return fmt.Errorf("%w: leaf chain diverges from tree shape at leaf %d", ErrCorrupt, i)
		}
		for j := range leaf.keys {
			if prev != nil && !(*prev < leaf.keys[j]) {
				return fmt.Errorf("%w: leaf chain not ascending at %v", ErrCorrupt, leaf.keys[j])
			}
			prev = &leaf.keys[j]
		}
		i++
	}
	if i != len(c.leaves) {
		return fmt.Errorf("%w: leaf chain visits %d of %d leaves", ErrCorrupt, i, len(c.leaves))
	}
	return nil
}

func checkNode[K cmp.Ordered, V any](c *checker[K, V], n node[K, V], depth int, isRoot bool, lo, hi bound[K]) error {
	var keys []K
	switch cur := n.(type) {
	case *leafNode[K, V]:
		keys = cur.keys
	case *internalNode[K, V]:
		keys = cur.keys
	}

	if len(keys) > maxKeys(c.degree) {
		return fmt.Errorf("%w: node at depth %d holds %d keys, max %d", ErrCorrupt, depth, len(keys), maxKeys(c.degree))
	}
	if !isRoot && len(keys) < c.degree-1 {
		return fmt.Errorf("%w: node at depth %d holds %d keys, min %d", ErrCorrupt, depth, len(keys), c.degree-1)
	}
	for i, k := range keys {
		if i > 0 && !(keys[i-1] < k) {
			return fmt.Errorf("%w: keys not strictly ascending at %v", ErrCorrupt, k)
		}
		if lo.set && k < lo.key {
			return fmt.Errorf("%w: key %v below lower bound %v", ErrCorrupt, k, lo.key)
		}
		if hi.set && !(k < hi.key) {
			return fmt.Errorf("%w: key %v not below upper bound %v", ErrCorrupt, k, hi.key)
		}
	}

	switch cur := n.(type) {
	case *leafNode[K, V]:
		if len(cur.values) != len(cur.keys) {
			return fmt.Errorf("%w: leaf has %d keys but %d values", ErrCorrupt, len(cur.keys), len(cur.values))
		}
		if len(cur.keys) == 0 {
			return fmt.Errorf("%w: empty leaf at depth %d", ErrCorrupt, depth)
		}
		if c.leafDepth == -1 {
			c.leafDepth = depth
		} else if c.leafDepth != depth {
			return fmt.Errorf("%w: leaves at depth %d and %d", ErrCorrupt, c.leafDepth, depth)
		}
		c.leaves = append(c.leaves, cur)
		c.keys += len(cur.keys)
	case *internalNode[K, V]:
		if len(cur.keys) == 0 {
			return fmt.Errorf("%w: internal node without separators at depth %d", ErrCorrupt, depth)
		}
		if len(cur.children) != len(cur.keys)+1 {
			return fmt.Errorf("%w: internal node has %d keys but %d children", ErrCorrupt, len(cur.keys), len(cur.children))
		}
		for i, child := range cur.children {
			childLo, childHi := lo, hi
			if i > 0 {
				childLo = bound[K]{key: cur.keys[i-1], set: true}
			}
			if i < len(cur.keys) {
				childHi = bound[K]{key: cur.keys[i], set: true}
			}
			if err := checkNode(c, child, depth+1, false, childLo, childHi); err != nil {
				return err
			}
		}
	}
	return nil
}
