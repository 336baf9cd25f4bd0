package optim

import "github.com/born-ml/simdnn/internal/tensor"

// SGDOptimizer implements Stochastic Gradient Descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
type SGDOptimizer[T tensor.Float] struct {
	shape    tensor.Shape
	lr       float64
	momentum float64
	velocity *tensor.Tensor[T] // nil without momentum
}

// NewSGD creates an SGD optimizer for a parameter of the given shape.
func NewSGD[T tensor.Float](cfg Config, shape tensor.Shape) *SGDOptimizer[T] {
	s := &SGDOptimizer[T]{shape: shape.Clone(), lr: cfg.LR, momentum: cfg.Momentum}
	if cfg.Momentum != 0 {
		s.velocity = tensor.New[T](shape)
	}
	return s
}

// Update performs a single optimization step.
func (s *SGDOptimizer[T]) Update(w, gw *tensor.Tensor[T]) {
	mustMatch(s.shape, w, gw)
	wd, gd := w.Data(), gw.Data()
	lr := T(s.lr)

	if s.velocity == nil {
		for i, g := range gd {
			wd[i] -= lr * g
		}
		return
	}

	vd := s.velocity.Data()
	mom := T(s.momentum)
	for i, g := range gd {
		vd[i] = mom*vd[i] + g
		wd[i] -= lr * vd[i]
	}
}

// LR returns the learning rate.
func (s *SGDOptimizer[T]) LR() float64 { return s.lr }

// SetLR sets the learning rate.
func (s *SGDOptimizer[T]) SetLR(lr float64) { s.lr = lr }
