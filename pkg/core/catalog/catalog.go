// Package catalog keeps the name -> table directory of a database in name
// order.
package catalog

import (
	"github.com/google/btree"
)

type entry[T any] struct {
	name  string
	value T
}

func lessEntry[T any](a, b entry[T]) bool {
	return a.name < b.name
}

type Catalog[T any] struct {
	tree *btree.BTreeG[entry[T]]
}

func New[T any](degree int) *Catalog[T] {
	return &Catalog[T]{
		tree: btree.NewG(degree, lessEntry[T]),
	}
}

// Add registers value under name. It returns false, leaving the catalog
// unchanged, if name is already taken.
func (c *Catalog[T]) Add(name string, value T) bool {
	if c.tree.Has(entry[T]{name: name}) {
		return false
	}
	c.tree.ReplaceOrInsert(entry[T]{name: name, value: value})
	return true
}

func (c *Catalog[T]) Get(name string) (T, bool) {
	e, ok := c.tree.Get(entry[T]{name: name})
	return e.value, ok
}

func (c *Catalog[T]) Len() int {
	return c.tree.Len()
}

// Names returns every registered name in ascending order.
func (c *Catalog[T]) Names() []string {
	names := make([]string, 0, c.tree.Len())
	c.tree.Ascend(func(e entry[T]) bool {
		names = append(names, e.name)
		return true
	})
	return names
}

// Each calls fn in name order until fn returns false.
func (c *Catalog[T]) Each(fn func(name string, value T) bool) {
	c.tree.Ascend(func(e entry[T]) bool {
		return fn(e.name, e.value)
	})
}
