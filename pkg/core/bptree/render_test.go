package bptree

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderEmpty(t *testing.T) {
	tree := MustNew[int, string](2)
	assert.Contains(t, tree.Render(nil), "(empty)")
}

func TestRenderShape(t *testing.T) {
	tree := MustNew[int, string](2)
	for i := 1; i <= 5; i++ {
		tree.Insert(i*10, "")
	}
	out := tree.Render(func(k int) string { return strconv.Itoa(k) })

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "[30]", lines[0])
	assert.Contains(t, out, "(10, 20)")
	assert.Contains(t, out, "(30, 40, 50)")
}
