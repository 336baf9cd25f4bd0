//go:build windows && webgpu

package webgpu

import (
	"math"
	"math/rand"
	"testing"

	"github.com/born-ml/simdnn/internal/backend"
	"github.com/born-ml/simdnn/internal/backend/cpu"
	"github.com/born-ml/simdnn/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireClose(t *testing.T, want, got *tensor.Tensor[float32], what string) {
	t.Helper()
	require.Equal(t, want.Shape(), got.Shape(), what)
	w, g := want.Data(), got.Data()
	for i := range w {
		ref := float64(w[i])
		require.LessOrEqual(t, math.Abs(float64(g[i])-ref), 1e-4*(1+math.Abs(ref)), "%s[%d]", what, i)
	}
}

type pass struct {
	x, w, b, y, gy, gw, gb, gx *tensor.Tensor[float32]
}

func newPass(in, weight, bias, out tensor.Shape, batch int) *pass {
	rng := rand.New(rand.NewSource(1))
	p := &pass{
		x: tensor.New[float32](in), w: tensor.New[float32](weight), b: tensor.New[float32](bias),
		y: tensor.New[float32](out), gy: tensor.New[float32](out),
		gw: tensor.New[float32](weight), gb: tensor.New[float32](bias), gx: tensor.New[float32](in),
	}
	p.x.SetBatch(batch)
	p.gy.SetBatch(batch)
	for _, t := range []*tensor.Tensor[float32]{p.x, p.w, p.b, p.gy} {
		t.InitUniform(rng, -1, 1)
	}
	return p
}

func (p *pass) run(k interface {
	Forward(x, w, b, y *tensor.Tensor[float32])
	Backward(gy, x, w, gw, gb, gx *tensor.Tensor[float32])
}) {
	k.Forward(p.x, p.w, p.b, p.y)
	k.Backward(p.gy, p.x, p.w, p.gw, p.gb, p.gx)
}

func TestConv2D_MatchesBaseline(t *testing.T) {
	if !IsAvailable() {
		t.Skip("WebGPU not available")
	}
	g := backend.Conv2DGeometry{MaxBatch: 3, InChannels: 2, Height: 12, Width: 17, Kernel: 3, OutChannels: 4}
	k, err := NewConv2D(g)
	require.NoError(t, err)
	assert.Equal(t, "webgpu", k.Name())

	ref := newPass(g.InputShape(), g.WeightShape(), g.BiasShape(), g.OutputShape(), 2)
	ref.run(cpu.NewConv2D[float32](g))
	got := newPass(g.InputShape(), g.WeightShape(), g.BiasShape(), g.OutputShape(), 2)
	got.run(k)

	requireClose(t, ref.y, got.y, "y")
	requireClose(t, ref.gw, got.gw, "gw")
	requireClose(t, ref.gb, got.gb, "gb")
	requireClose(t, ref.gx, got.gx, "gx")
}

func TestLinear_MatchesBaseline(t *testing.T) {
	if !IsAvailable() {
		t.Skip("WebGPU not available")
	}
	g := backend.LinearGeometry{MaxBatch: 4, In: tensor.Shape{3, 5}, Out: 7}
	k, err := NewLinear(g)
	require.NoError(t, err)

	ref := newPass(g.InputShape(), g.WeightShape(), g.BiasShape(), g.OutputShape(), 3)
	ref.run(cpu.NewLinear[float32](g))
	got := newPass(g.InputShape(), g.WeightShape(), g.BiasShape(), g.OutputShape(), 3)
	got.run(k)

	requireClose(t, ref.y, got.y, "y")
	requireClose(t, ref.gw, got.gw, "gw")
	requireClose(t, ref.gb, got.gb, "gb")
	requireClose(t, ref.gx, got.gx, "gx")
}

func TestBufferPool_ReusesBuffers(t *testing.T) {
	if !IsAvailable() {
		t.Skip("WebGPU not available")
	}
	dev, err := Shared()
	require.NoError(t, err)

	out := make([]float32, 4)
	params := []uint32{1, 4, 4}
	_, before := dev.pool.stats()
	for range 3 {
		require.NoError(t, dev.dispatch("linear_gb", linearBiasGradShader, params, out, []float32{1, 2, 3, 4}))
	}
	hits, after := dev.pool.stats()
	assert.Equal(t, []float32{1, 2, 3, 4}, out)
	assert.LessOrEqual(t, after-before, uint64(2))
	assert.Positive(t, hits)
}

func TestCheckDispatch(t *testing.T) {
	require.NoError(t, checkDispatch("conv2d", 64*32*26*26, 64*28*28))
	err := checkDispatch("linear", maxWorkgroups*workgroupSize+1)
	require.ErrorIs(t, err, backend.ErrInvalidGeometry)

	_, err = NewLinear(backend.LinearGeometry{MaxBatch: 1 << 16, In: tensor.Shape{1 << 10}, Out: 1})
	require.ErrorIs(t, err, backend.ErrInvalidGeometry)
}
