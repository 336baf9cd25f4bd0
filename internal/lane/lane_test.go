package lane

import (
	"testing"

	"github.com/born-ml/simdnn/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exercise runs the same sequence of operations through any target and
// returns the stored row plus the reduction.
func exercise[T tensor.Float, V any, O Ops[T, V]](t *testing.T, n int) ([]T, T) {
	t.Helper()
	var ops O
	require.Equal(t, n, ops.Width())

	x := tensor.New[T](tensor.Shape{1, n})
	y := tensor.New[T](tensor.Shape{1, n})
	for j := 0; j < n; j++ {
		x.Set(T(j+1), 0, j)
	}

	acc := ops.Zero()
	acc = ops.FMA(acc, ops.Broadcast(2), ops.Load(x.View(n, 0, 0)))
	acc = ops.Add(acc, ops.Broadcast(0.5))
	ops.Store(y.View(n, 0, 0), acc)
	return y.Data(), ops.Reduce(acc)
}

func TestOps_NarrowAndWideAgree(t *testing.T) {
	row4, sum4 := exercise[float32, Vec4[float32], X4[float32]](t, 4)
	assert.Equal(t, []float32{2.5, 4.5, 6.5, 8.5}, row4)
	assert.Equal(t, float32(22), sum4)

	row16, sum16 := exercise[float32, Vec16[float32], X16[float32]](t, 16)
	for j, v := range row16 {
		assert.Equal(t, float32(2*(j+1))+0.5, v)
	}
	assert.Equal(t, float32(2*136+8), sum16)
	assert.Equal(t, row4, row16[:4])
}

func TestOps_Float64(t *testing.T) {
	row, sum := exercise[float64, Vec16[float64], X16[float64]](t, 16)
	assert.Equal(t, 2.5, row[0])
	assert.Equal(t, 280.0, sum)
}

func TestOps_StoreIsFullWidthOnly(t *testing.T) {
	var ops X4[float32]
	y := tensor.New[float32](tensor.Shape{1, 8})
	assert.Panics(t, func() { ops.Store(y.View(3, 0, 0), ops.Zero()) })
	assert.Panics(t, func() { ops.Load(y.View(5, 0, 0)) })

	ops.Store(y.View(4, 0, 4), ops.Broadcast(1))
	assert.Equal(t, []float32{0, 0, 0, 0, 1, 1, 1, 1}, y.Data())
}

func TestOps_FMASingleRounding(t *testing.T) {
	var ops X4[float64]
	// 1+2^-30 squared needs more than 53 bits; a fused op keeps the 2^-60 term.
	a := 1 + 1.0/(1<<30)
	acc := ops.FMA(ops.Broadcast(-(1 + 1.0/(1<<29))), ops.Broadcast(a), ops.Broadcast(a))
	assert.Equal(t, 1.0/(1<<60), acc[0])
}

func TestReduce_MatchesScalarSum(t *testing.T) {
	var w X16[float64]
	var v Vec16[float64]
	want := 0.0
	for i := range v {
		v[i] = float64(i) * 0.25
		want += v[i]
	}
	assert.Equal(t, want, w.Reduce(v))
}

func TestNativeTarget(t *testing.T) {
	var native Native[float32]
	var other Other[float32]
	assert.Equal(t, Width, native.Width())
	assert.NotEqual(t, native.Width(), other.Width())
	assert.Contains(t, []string{"narrow", "wide"}, TargetName)
}

func TestFeatures(t *testing.T) {
	f := Host()
	assert.NotEmpty(t, f.Arch)
	assert.Contains(t, f.String(), f.Arch)
	assert.False(t, f.Supports(8))
	assert.Equal(t, f.Supports(Width), NativeSupported())
}
