package optim

import (
	"math"

	"github.com/born-ml/simdnn/internal/tensor"
)

// AdamOptimizer implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)  // Parameter update
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type AdamOptimizer[T tensor.Float] struct {
	shape tensor.Shape
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int               // Timestep for bias correction
	m     *tensor.Tensor[T] // First moment estimates
	v     *tensor.Tensor[T] // Second moment estimates
}

// NewAdam creates an Adam optimizer for a parameter of the given shape.
func NewAdam[T tensor.Float](cfg Config, shape tensor.Shape) *AdamOptimizer[T] {
	return &AdamOptimizer[T]{
		shape: shape.Clone(),
		lr:    cfg.LR,
		beta1: cfg.Beta1,
		beta2: cfg.Beta2,
		eps:   cfg.Eps,
		m:     tensor.New[T](shape),
		v:     tensor.New[T](shape),
	}
}

// Update performs a single optimization step.
func (a *AdamOptimizer[T]) Update(w, gw *tensor.Tensor[T]) {
	mustMatch(a.shape, w, gw)
	a.t++
	bc1 := 1 - math.Pow(a.beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.beta2, float64(a.t))

	wd, gd, md, vd := w.Data(), gw.Data(), a.m.Data(), a.v.Data()
	for i, g := range gd {
		gf := float64(g)
		m := a.beta1*float64(md[i]) + (1-a.beta1)*gf
		v := a.beta2*float64(vd[i]) + (1-a.beta2)*gf*gf
		md[i], vd[i] = T(m), T(v)
		wd[i] -= T(a.lr * (m / bc1) / (math.Sqrt(v/bc2) + a.eps))
	}
}

// LR returns the learning rate.
func (a *AdamOptimizer[T]) LR() float64 { return a.lr }

// SetLR sets the learning rate.
func (a *AdamOptimizer[T]) SetLR(lr float64) { a.lr = lr }
