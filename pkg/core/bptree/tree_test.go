package bptree

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsSmallDegree(t *testing.T) {
	for _, d := range []int{-1, 0, 1} {
		_, err := New[int, string](d)
		require.ErrorIs(t, err, ErrInvalidDegree, "degree %d", d)
	}
	tree, err := New[int, string](2)
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Degree())
	assert.Panics(t, func() { MustNew[int, string](1) })
}

func TestEmptyTree(t *testing.T) {
	tree := MustNew[int, string](2)

	_, ok := tree.Search(1)
	assert.False(t, ok)
	assert.Equal(t, 0, tree.Len())
	assert.Equal(t, 0, tree.Height())
	assert.Empty(t, tree.Keys())
	require.NoError(t, tree.Check())
}

func TestScenarioA(t *testing.T) {
	tree := MustNew[int, string](2)
	for i, v := range []string{"A", "B", "C", "D", "E"} {
		require.True(t, tree.Insert((i+1)*10, v))
	}

	v, ok := tree.Search(30)
	require.True(t, ok)
	assert.Equal(t, "C", v)

	_, ok = tree.Search(60)
	assert.False(t, ok)

	assert.Equal(t, []int{10, 20, 30, 40, 50}, tree.Keys())
	require.NoError(t, tree.Check())
}

func TestSplitBoundary(t *testing.T) {
	tree := MustNew[int, string](2)
	tree.Insert(1, "a")
	tree.Insert(2, "b")
	tree.Insert(3, "c")

	root, ok := tree.root.(*leafNode[int, string])
	require.True(t, ok, "three keys must fit in a single leaf root")
	assert.Equal(t, []int{1, 2, 3}, root.keys)
	assert.Equal(t, 1, tree.Height())

	tree.Insert(4, "d")

	in, ok := tree.root.(*internalNode[int, string])
	require.True(t, ok, "fourth key must split the root")
	require.Len(t, in.keys, 1)
	require.Len(t, in.children, 2)
	assert.Equal(t, 3, in.keys[0], "separator is the right leaf's first key")

	left := in.children[0].(*leafNode[int, string])
	right := in.children[1].(*leafNode[int, string])
	assert.Equal(t, []int{1, 2}, left.keys)
	assert.Equal(t, []int{3, 4}, right.keys)
	assert.Same(t, right, left.next)
	assert.Nil(t, right.next)
	assert.Equal(t, 2, tree.Height())
	require.NoError(t, tree.Check())
}

func TestInternalSplitPromotesMedian(t *testing.T) {
	tree := MustNew[int, int](2)
	// Ascending inserts fill the rightmost leaf until the root holds three
	// separators, then the next full root split moves the median up.
	for i := 1; i <= 10; i++ {
		tree.Insert(i, i*i)
		require.NoError(t, tree.Check(), "after inserting %d", i)
	}

	root := tree.root.(*internalNode[int, int])
	assert.Equal(t, 3, tree.Height())
	for _, k := range root.keys {
		for _, child := range root.children {
			in := child.(*internalNode[int, int])
			assert.NotContains(t, in.keys, k, "promoted internal key must not stay in the child")
		}
	}
	for i := 1; i <= 10; i++ {
		v, ok := tree.Search(i)
		require.True(t, ok)
		assert.Equal(t, i*i, v)
	}
}

func TestFirstWriteWins(t *testing.T) {
	tree := MustNew[string, string](2)
	require.True(t, tree.Insert("k", "v1"))
	require.False(t, tree.Insert("k", "v2"))

	v, ok := tree.Search("k")
	require.True(t, ok)
	assert.Equal(t, "v1", v)
	assert.Equal(t, 1, tree.Len())

	// Same once the key sits under a separator.
	for _, k := range []string{"a", "b", "c", "d", "e", "f"} {
		tree.Insert(k, strings.ToUpper(k))
	}
	for _, k := range tree.Keys() {
		assert.False(t, tree.Insert(k, "overwrite"))
	}
	v, _ = tree.Search("k")
	assert.Equal(t, "v1", v)
	v, _ = tree.Search("c")
	assert.Equal(t, "C", v)
	require.NoError(t, tree.Check())
}

func TestSeparatorRoutesRight(t *testing.T) {
	tree := MustNew[int, string](2)
	for i := 1; i <= 4; i++ {
		tree.Insert(i, fmt.Sprint(i))
	}
	// 3 is both the root separator and the first key of the right leaf.
	v, ok := tree.Search(3)
	require.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestAscendStopsEarly(t *testing.T) {
	tree := MustNew[int, int](3)
	for i := 0; i < 50; i++ {
		tree.Insert(i, i)
	}
	var seen []int
	tree.Ascend(func(k, _ int) bool {
		seen = append(seen, k)
		return k < 9
	})
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, seen)
}

func TestLeafChainSharesNodes(t *testing.T) {
	tree := MustNew[int, []string](2)
	for i := 0; i < 20; i++ {
		tree.Insert(i, []string{fmt.Sprint(i)})
	}

	// A value changed through the owning path is visible through the chain.
	v, ok := tree.Search(13)
	require.True(t, ok)
	v[0] = "changed"

	var got string
	tree.Ascend(func(k int, row []string) bool {
		if k == 13 {
			got = row[0]
			return false
		}
		return true
	})
	assert.Equal(t, "changed", got)
	require.NoError(t, tree.Check())
}

func TestRandomPermutations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, degree := range []int{2, 3, 4, 7, 32} {
		for _, n := range []int{1, 2, 3, 10, 100, 1000, 5000} {
			t.Run(fmt.Sprintf("t=%d/n=%d", degree, n), func(t *testing.T) {
				tree := MustNew[int, int](degree)
				perm := rng.Perm(n)
				for _, k := range perm {
					require.True(t, tree.Insert(k, -k))
				}
				require.NoError(t, tree.Check())
				require.Equal(t, n, tree.Len())

				want := make([]int, n)
				for i := range want {
					want[i] = i
				}
				assert.Equal(t, want, tree.Keys())

				for _, k := range perm {
					v, ok := tree.Search(k)
					require.True(t, ok, "key %d", k)
					require.Equal(t, -k, v)
				}
				_, ok := tree.Search(n)
				assert.False(t, ok)
			})
		}
	}
}

func TestHeightIsLogarithmic(t *testing.T) {
	for _, degree := range []int{2, 3, 5} {
		tree := MustNew[int, struct{}](degree)
		n := 20000
		for i := n - 1; i >= 0; i-- {
			tree.Insert(i, struct{}{})
		}
		// Non-root leaves hold at least t-1 keys and non-root internal nodes
		// have at least t children: 2(t-1)t^(h-2) <= n.
		maxH := 2
		for p := 2 * (degree - 1) * degree; p <= n; p *= degree {
			maxH++
		}
		// A node never exceeds 2t children: n <= (2t-1)(2t)^(h-1).
		minH := 1
		for c := 2*degree - 1; c < n; c *= 2 * degree {
			minH++
		}
		require.NoError(t, tree.Check())
		assert.LessOrEqual(t, tree.Height(), maxH, "degree %d", degree)
		assert.GreaterOrEqual(t, tree.Height(), minH, "degree %d", degree)
	}
}

func TestDuplicatesInRandomStream(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tree := MustNew[int, int](2)
	first := map[int]int{}
	for i := 0; i < 3000; i++ {
		k := rng.Intn(500)
		inserted := tree.Insert(k, i)
		_, seen := first[k]
		assert.Equal(t, !seen, inserted)
		if !seen {
			first[k] = i
		}
	}
	require.NoError(t, tree.Check())
	require.Equal(t, len(first), tree.Len())
	for k, v := range first {
		got, ok := tree.Search(k)
		require.True(t, ok)
		require.Equal(t, v, got)
	}
	assert.True(t, slices.IsSorted(tree.Keys()))
}

func TestStringKeysOrderLexically(t *testing.T) {
	tree := MustNew[string, int](2)
	for i, k := range []string{"10", "9", "100", "1", "2"} {
		tree.Insert(k, i)
	}
	assert.Equal(t, []string{"1", "10", "100", "2", "9"}, tree.Keys())
}
