package bptree

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/xlab/treeprint"
)

// Render draws the tree shape, one line per node. Internal nodes print their
// separators in brackets, leaves print their keys in parentheses. format may
// be nil, in which case keys are printed with %v.
func (t *Tree[K, V]) Render(format func(K) string) string {
	if format == nil {
		format = func(k K) string { return fmt.Sprintf("%v", k) }
	}

	out := treeprint.New()
	if t.root == nil {
		out.SetValue("(empty)")
		return out.String()
	}
	out.SetValue(label(t.root, format))
	renderChildren(out, t.root, format)
	return out.String()
}

func renderChildren[K cmp.Ordered, V any](branch treeprint.Tree, n node[K, V], format func(K) string) {
	in, ok := n.(*internalNode[K, V])
	if !ok {
		return
	}
	for _, child := range in.children {
		if _, leaf := child.(*leafNode[K, V]); leaf {
			branch.AddNode(label(child, format))
			continue
		}
		renderChildren(branch.AddBranch(label(child, format)), child, format)
	}
}

func label[K cmp.Ordered, V any](n node[K, V], format func(K) string) string {
	switch cur := n.(type) {
	case *internalNode[K, V]:
		return "[" + joinKeys(cur.keys, format, " | ") + "]"
	case *leafNode[K, V]:
		return "(" + joinKeys(cur.keys, format, ", ") + ")"
	}
	return ""
}

func joinKeys[K any](keys []K, format func(K) string, sep string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = format(k)
	}
	return strings.Join(parts, sep)
}
