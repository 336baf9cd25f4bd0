// Package nn provides the Conv2D and Linear layers: parameters, optimizer
// state and the owned output and gradient tensors around a selectable
// forward/backward kernel.
package nn

import (
	"fmt"

	"github.com/born-ml/simdnn/internal/backend"
	"github.com/born-ml/simdnn/internal/tensor"
)

// Conv2D is a stride-1, unpadded 2D convolutional layer.
//
// Input shape:  [batch, in_channels, height, width]
// Weight shape: [out_channels, in_channels, kernel, kernel]
// Bias shape:   [out_channels]
// Output shape: [batch, out_channels, height-kernel+1, width-kernel+1]
//
// Example:
//
//	// 1 channel -> 32 channels, 3x3 kernel, on MNIST-sized images
//	g := backend.Conv2DGeometry{MaxBatch: 64, InChannels: 1, Height: 28, Width: 28, Kernel: 3, OutChannels: 32}
//	conv, err := nn.NewConv2D[float32](g, nn.DefaultOptions())
//
//	y := conv.Forward(x, true) // [64, 32, 26, 26]
//	gx := conv.Backward(gy)
//	conv.Update()
type Conv2D[T tensor.Float] struct {
	*layer[T]
	g backend.Conv2DGeometry
}

// NewConv2D creates a convolution layer with weights and bias drawn from
// U(-1/sqrt(fan_in), 1/sqrt(fan_in)), fan_in = in_channels*kernel*kernel.
//
// Returns an error for an invalid geometry or optimizer configuration, and
// when the selected implementation is not available in this binary.
func NewConv2D[T tensor.Float](g backend.Conv2DGeometry, opts Options) (*Conv2D[T], error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("conv2d: %w", err)
	}
	k, err := newConv2DKernel[T](opts.Algo, g)
	if err != nil {
		return nil, fmt.Errorf("conv2d: algo %v: %w", opts.Algo, err)
	}
	l, err := newLayer[T]("conv2d", k, layerShapes{
		in:     g.InputShape(),
		weight: g.WeightShape(),
		bias:   g.BiasShape(),
		out:    g.OutputShape(),
		fanIn:  g.InChannels * g.Kernel * g.Kernel,
	}, opts)
	if err != nil {
		return nil, err
	}
	return &Conv2D[T]{layer: l, g: g}, nil
}

// Geometry returns the layer's fixed extents.
func (c *Conv2D[T]) Geometry() backend.Conv2DGeometry { return c.g }

// CopyGrad sets the gradients to those of o.
func (c *Conv2D[T]) CopyGrad(o *Conv2D[T]) { c.copyGrad(o.layer) }

// CopyParams sets the weight and bias to those of o.
func (c *Conv2D[T]) CopyParams(o *Conv2D[T]) { c.copyParams(o.layer) }

// GradDot returns the inner product of the gradients of c and o.
func (c *Conv2D[T]) GradDot(o *Conv2D[T]) float64 { return c.gradDot(o.layer) }
