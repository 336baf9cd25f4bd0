package optim

import (
	"math"

	"github.com/born-ml/simdnn/internal/tensor"
)

// AdaDeltaOptimizer implements AdaDelta.
//
// Update rule:
//
//	g2 = rho * g2 + (1-rho) * gradient²
//	dx = -sqrt(d2 + eps) / sqrt(g2 + eps) * gradient
//	d2 = rho * d2 + (1-rho) * dx²
//	param = param + lr * dx
//
// Reference: "ADADELTA: An Adaptive Learning Rate Method" (Zeiler, 2012)
type AdaDeltaOptimizer[T tensor.Float] struct {
	shape tensor.Shape
	lr    float64
	rho   float64
	eps   float64
	g2    *tensor.Tensor[T] // running average of squared gradients
	d2    *tensor.Tensor[T] // running average of squared updates
}

// NewAdaDelta creates an AdaDelta optimizer for a parameter of the given shape.
func NewAdaDelta[T tensor.Float](cfg Config, shape tensor.Shape) *AdaDeltaOptimizer[T] {
	return &AdaDeltaOptimizer[T]{
		shape: shape.Clone(),
		lr:    cfg.LR,
		rho:   cfg.Rho,
		eps:   cfg.Eps,
		g2:    tensor.New[T](shape),
		d2:    tensor.New[T](shape),
	}
}

// Update performs a single optimization step.
func (a *AdaDeltaOptimizer[T]) Update(w, gw *tensor.Tensor[T]) {
	mustMatch(a.shape, w, gw)
	wd, gd, g2, d2 := w.Data(), gw.Data(), a.g2.Data(), a.d2.Data()
	for i, g := range gd {
		gf := float64(g)
		sg := a.rho*float64(g2[i]) + (1-a.rho)*gf*gf
		dx := -math.Sqrt(float64(d2[i])+a.eps) / math.Sqrt(sg+a.eps) * gf
		g2[i] = T(sg)
		d2[i] = T(a.rho*float64(d2[i]) + (1-a.rho)*dx*dx)
		wd[i] += T(a.lr * dx)
	}
}

// LR returns the learning rate.
func (a *AdaDeltaOptimizer[T]) LR() float64 { return a.lr }

// SetLR sets the learning rate.
func (a *AdaDeltaOptimizer[T]) SetLR(lr float64) { a.lr = lr }
