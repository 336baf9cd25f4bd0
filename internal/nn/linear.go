package nn

import (
	"fmt"

	"github.com/born-ml/simdnn/internal/backend"
	"github.com/born-ml/simdnn/internal/tensor"
)

// Linear is a dense layer. The per-sample input may have any number of
// dimensions; they are contracted against the leading weight dimensions.
//
// Input shape:  [batch, in...]
// Weight shape: [in..., out]
// Bias shape:   [out]
// Output shape: [batch, out]
//
// Example:
//
//	g := backend.LinearGeometry{MaxBatch: 64, In: tensor.Shape{32, 13, 13}, Out: 10}
//	fc, err := nn.NewLinear[float32](g, nn.DefaultOptions())
//	y := fc.Forward(x, true) // [64, 10]
type Linear[T tensor.Float] struct {
	*layer[T]
	g backend.LinearGeometry
}

// NewLinear creates a dense layer with weights and bias drawn from
// U(-1/sqrt(fan_in), 1/sqrt(fan_in)), fan_in = prod(in).
func NewLinear[T tensor.Float](g backend.LinearGeometry, opts Options) (*Linear[T], error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("linear: %w", err)
	}
	k, err := newLinearKernel[T](opts.Algo, g)
	if err != nil {
		return nil, fmt.Errorf("linear: algo %v: %w", opts.Algo, err)
	}
	l, err := newLayer[T]("linear", k, layerShapes{
		in:     g.InputShape(),
		weight: g.WeightShape(),
		bias:   g.BiasShape(),
		out:    g.OutputShape(),
		fanIn:  g.Features(),
	}, opts)
	if err != nil {
		return nil, err
	}
	return &Linear[T]{layer: l, g: g}, nil
}

// Geometry returns the layer's fixed extents.
func (l *Linear[T]) Geometry() backend.LinearGeometry { return l.g }

// CopyGrad sets the gradients to those of o.
func (l *Linear[T]) CopyGrad(o *Linear[T]) { l.copyGrad(o.layer) }

// CopyParams sets the weight and bias to those of o.
func (l *Linear[T]) CopyParams(o *Linear[T]) { l.copyParams(o.layer) }

// GradDot returns the inner product of the gradients of l and o.
func (l *Linear[T]) GradDot(o *Linear[T]) float64 { return l.gradDot(o.layer) }
