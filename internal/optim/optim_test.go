package optim_test

import (
	"math"
	"testing"

	"github.com/born-ml/simdnn/internal/optim"
	"github.com/born-ml/simdnn/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func param(t *testing.T, vals ...float32) *tensor.Tensor[float32] {
	t.Helper()
	p, err := tensor.FromSlice(vals, tensor.Shape{len(vals)})
	require.NoError(t, err)
	return p
}

func newOpt(t *testing.T, cfg optim.Config, n int) optim.Optimizer[float32] {
	t.Helper()
	o, err := optim.New[float32](cfg, tensor.Shape{n})
	require.NoError(t, err)
	return o
}

// TestSGD_SimpleUpdate tests SGD without momentum.
func TestSGD_SimpleUpdate(t *testing.T) {
	o := newOpt(t, optim.Config{Kind: optim.SGD, LR: 0.1}, 1)
	w, gw := param(t, 2), param(t, 1)

	o.Update(w, gw)

	// x_new = x_old - lr * grad = 2.0 - 0.1 * 1.0 = 1.9
	assert.InDelta(t, 1.9, w.At(0), 1e-6)
}

// TestSGD_WithMomentum tests SGD with momentum.
func TestSGD_WithMomentum(t *testing.T) {
	o := newOpt(t, optim.Config{Kind: optim.SGD, LR: 0.1, Momentum: 0.9}, 1)
	w, gw := param(t, 1), param(t, 1)

	o.Update(w, gw) // v = 1, w = 0.9
	assert.InDelta(t, 0.9, w.At(0), 1e-6)

	o.Update(w, gw) // v = 1.9, w = 0.71
	assert.InDelta(t, 0.71, w.At(0), 1e-6)
}

// TestAdam_FirstStep checks that bias correction makes the first step lr*sign(g).
func TestAdam_FirstStep(t *testing.T) {
	cfg := optim.DefaultConfig()
	cfg.Kind, cfg.LR, cfg.Eps = optim.Adam, 0.001, 1e-8
	o := newOpt(t, cfg, 2)
	w, gw := param(t, 1, 1), param(t, 0.5, -3)

	o.Update(w, gw)

	assert.InDelta(t, 0.999, w.At(0), 1e-6)
	assert.InDelta(t, 1.001, w.At(1), 1e-6)
}

// TestAdaDelta_FirstStep checks the closed form of the first update.
func TestAdaDelta_FirstStep(t *testing.T) {
	cfg := optim.DefaultConfig()
	o := newOpt(t, cfg, 1)
	w, gw := param(t, 0), param(t, 2)

	o.Update(w, gw)

	g2 := (1 - cfg.Rho) * 4
	want := -math.Sqrt(cfg.Eps) / math.Sqrt(g2+cfg.Eps) * 2
	assert.InDelta(t, want, float64(w.At(0)), 1e-9)
}

// TestOptimizers_MinimizeQuadratic runs f(w) = (w-3)² to convergence.
func TestOptimizers_MinimizeQuadratic(t *testing.T) {
	for _, kind := range []optim.Kind{optim.AdaDelta, optim.SGD, optim.Adam} {
		t.Run(kind.String(), func(t *testing.T) {
			cfg := optim.DefaultConfig()
			cfg.Kind = kind
			switch kind {
			case optim.SGD:
				cfg.LR, cfg.Momentum = 0.1, 0.5
			case optim.Adam:
				cfg.LR = 0.05
			}
			o, err := optim.New[float64](cfg, tensor.Shape{1})
			require.NoError(t, err)

			w := tensor.New[float64](tensor.Shape{1})
			gw := tensor.New[float64](tensor.Shape{1})
			for range 5000 {
				gw.Set(2*(w.At(0)-3), 0)
				o.Update(w, gw)
			}
			assert.InDelta(t, 3.0, w.At(0), 1e-2)
		})
	}
}

func TestOptimizer_SetLR(t *testing.T) {
	o := newOpt(t, optim.DefaultConfig(), 3)
	assert.InDelta(t, 1.0, o.LR(), 0)
	o.SetLR(0.5)
	assert.InDelta(t, 0.5, o.LR(), 0)
}

func TestOptimizer_ShapeMismatchPanics(t *testing.T) {
	o := newOpt(t, optim.DefaultConfig(), 3)
	assert.Panics(t, func() { o.Update(param(t, 1, 2), param(t, 1, 2)) })
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, optim.DefaultConfig().Validate())

	bad := []optim.Config{
		{Kind: optim.SGD, LR: 0},
		{Kind: optim.SGD, LR: 0.1, Momentum: 1},
		{Kind: optim.AdaDelta, LR: 1, Rho: 1, Eps: 1e-6},
		{Kind: optim.Adam, LR: 1, Beta1: 0.9, Beta2: 0.999},
		{Kind: optim.Kind(9), LR: 1},
	}
	for _, cfg := range bad {
		assert.Error(t, cfg.Validate(), "%+v", cfg)
	}

	_, err := optim.New[float32](optim.DefaultConfig(), tensor.Shape{})
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := optim.ParseKind("ADAM")
	require.NoError(t, err)
	assert.Equal(t, optim.Adam, k)

	_, err = optim.ParseKind("lbfgs")
	assert.ErrorIs(t, err, optim.ErrUnknownKind)
	assert.Equal(t, "adadelta", optim.AdaDelta.String())
}
