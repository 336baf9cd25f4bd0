package nn

import (
	"github.com/born-ml/simdnn/internal/optim"
	"github.com/born-ml/simdnn/internal/tensor"
)

// Parameter is a trainable tensor with its gradient and optimizer state.
//
// Example:
//
//	w := conv.Weight()
//	w.Tensor() // values
//	w.Grad()   // written by Backward
//	w.Update() // applied by the layer's Update
type Parameter[T tensor.Float] struct {
	name  string            // e.g. "conv2d.weight"
	value *tensor.Tensor[T] // parameter values
	grad  *tensor.Tensor[T] // gradient, same shape
	opt   optim.Optimizer[T]
}

func newParameter[T tensor.Float](name string, shape tensor.Shape, cfg optim.Config) (*Parameter[T], error) {
	opt, err := optim.New[T](cfg, shape)
	if err != nil {
		return nil, err
	}
	return &Parameter[T]{
		name:  name,
		value: tensor.New[T](shape),
		grad:  tensor.New[T](shape),
		opt:   opt,
	}, nil
}

// Name returns the parameter name.
func (p *Parameter[T]) Name() string { return p.name }

// Tensor returns the parameter values.
func (p *Parameter[T]) Tensor() *tensor.Tensor[T] { return p.value }

// Grad returns the gradient tensor.
func (p *Parameter[T]) Grad() *tensor.Tensor[T] { return p.grad }

// Optimizer returns the update rule of this parameter.
func (p *Parameter[T]) Optimizer() optim.Optimizer[T] { return p.opt }

// Update applies one optimizer step from the current gradient.
func (p *Parameter[T]) Update() { p.opt.Update(p.value, p.grad) }
