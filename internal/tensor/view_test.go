package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestView_AliasesStorage(t *testing.T) {
	x := New[float32](Shape{2, 3, 8})
	v := x.View(4, 1, 2, 3)
	require.Equal(t, 4, v.Len())

	copy(v.Elems(), []float32{1, 2, 3, 4})
	for k := 0; k < 4; k++ {
		assert.Equal(t, float32(k+1), x.At(1, 2, 3+k))
	}
	assert.Zero(t, x.At(1, 2, 2))
	assert.Zero(t, x.At(1, 2, 7))

	x.Set(42, 1, 2, 4)
	assert.Equal(t, float32(42), v.Elems()[1])
}

func TestView_CapacityClipped(t *testing.T) {
	x := New[float64](Shape{1, 16})
	v := x.View(4, 0, 0)
	assert.Equal(t, 4, cap(v.Elems()))
}

func TestView_ContiguityPrecondition(t *testing.T) {
	for _, width := range []int{4, 16} {
		for _, n := range []int{width, 2 * width, width - 1, 2*width - 1, 2*width + 1} {
			x := New[float32](Shape{1, n})
			j := 0
			for ; j+width <= n; j += width {
				assert.NotPanics(t, func() { x.View(width, 0, j) }, "width %d n %d j %d", width, n, j)
			}
			if j < n {
				assert.Panics(t, func() { x.View(width, 0, j) }, "width %d n %d j %d", width, n, j)
			}
		}
	}
}

func TestView_TrailingSingletons(t *testing.T) {
	y := New[float32](Shape{2, 10, 1, 1})
	v := y.View(4, 1, 6)
	copy(v.Elems(), []float32{6, 7, 8, 9})
	for n := 6; n < 10; n++ {
		assert.Equal(t, float32(n), y.At(1, n))
	}
	assert.Panics(t, func() { y.View(4, 1, 7) })
	assert.Equal(t, 3, y.Remaining(1, 7))
}

func TestView_DoesNotCrossRows(t *testing.T) {
	x := New[float32](Shape{2, 6})
	// elements (0,4),(0,5),(1,0),(1,1) are adjacent in memory but not one run
	assert.Panics(t, func() { x.View(4, 0, 4) })
	assert.Panics(t, func() { x.View(0, 0, 0) })
}
