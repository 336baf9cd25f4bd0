// Package gradcheck verifies a layer's backward pass against finite
// differences of its forward pass, and compares the outputs of two
// implementations.
package gradcheck

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/simdnn/internal/tensor"
)

// ErrZeroDirection is returned when both the numeric and the analytic
// directional derivative vanish, which leaves nothing to compare.
var ErrZeroDirection = errors.New("gradcheck: zero directional derivative")

// Layer is what Check needs from a layer. L is the concrete layer type, so
// gradients and parameters can be exchanged between instances.
type Layer[T tensor.Float, L any] interface {
	Forward(x *tensor.Tensor[T], training bool) *tensor.Tensor[T]
	Backward(gy *tensor.Tensor[T]) *tensor.Tensor[T]
	RandGrad(rng *rand.Rand, p, q T)
	CopyGrad(o L)
	CopyParams(o L)
	AddGrad(alpha T)
	GradDot(o L) float64
}

// Result reports one gradient check.
type Result struct {
	// Numeric is <gy, y(w+dw, x+dx)> - <gy, y(w-dw, x-dx)>.
	Numeric float64
	// Analytic is 2(<gx, dx> + <gw, dw>) from Backward.
	Analytic float64
	// RelErr is |Numeric-Analytic| / max(|Numeric|, |Analytic|).
	RelErr float64
}

// String formats the result like "rel err 1.2e-07 (numeric 0.81, analytic 0.81)".
func (r Result) String() string {
	return fmt.Sprintf("rel err %.3g (numeric %.9g, analytic %.9g)", r.RelErr, r.Numeric, r.Analytic)
}

// Check runs one central-difference check of the layer built by newLayer on
// input x, along a random direction (dx, dw) with components in [-eps, eps).
//
// It builds four instances sharing one set of parameters: one for the
// analytic gradients, one holding the direction dw in its gradient, and the
// two shifted copies w+dw and w-dw.
func Check[T tensor.Float, L Layer[T, L]](newLayer func() (L, error), x *tensor.Tensor[T], rng *rand.Rand, eps T) (Result, error) {
	var layers [4]L
	for i := range layers {
		l, err := newLayer()
		if err != nil {
			return Result{}, err
		}
		layers[i] = l
	}
	base, dir, plus, minus := layers[0], layers[1], layers[2], layers[3]
	for _, l := range layers[1:] {
		l.CopyParams(base)
	}

	dx := tensor.New[T](x.MaxShape())
	dx.SetBatch(x.Batch())
	dx.InitUniform(rng, -eps, eps)
	dir.RandGrad(rng, -eps, eps)

	y := base.Forward(x, true)
	gy := tensor.New[T](y.MaxShape())
	gy.SetBatch(y.Batch())
	gy.InitUniform(rng, -1, 1)
	gx := base.Backward(gy)
	analytic := 2 * (gx.Dot(dx) + base.GradDot(dir))

	xp := x.Clone()
	xp.AddScaled(1, dx)
	plus.CopyGrad(dir)
	plus.AddGrad(1)
	yp := plus.Forward(xp, true)

	xm := x.Clone()
	xm.AddScaled(-1, dx)
	minus.CopyGrad(dir)
	minus.AddGrad(-1)
	ym := minus.Forward(xm, true)

	numeric := gy.Dot(yp) - gy.Dot(ym)
	den := math.Max(math.Abs(numeric), math.Abs(analytic))
	if den == 0 {
		return Result{}, ErrZeroDirection
	}
	return Result{
		Numeric:  numeric,
		Analytic: analytic,
		RelErr:   math.Abs(numeric-analytic) / den,
	}, nil
}
