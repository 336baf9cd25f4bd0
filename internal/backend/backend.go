// Package backend defines the contracts every Conv2D and Linear
// implementation satisfies, so a layer can swap the scalar, lane-vectorized
// and accelerator kernels without changing results beyond floating-point
// reassociation.
package backend

import (
	"errors"
	"fmt"

	"github.com/born-ml/simdnn/internal/tensor"
)

// ErrInvalidGeometry is returned when a layer geometry has a non-positive
// extent or a kernel larger than the image.
var ErrInvalidGeometry = errors.New("invalid layer geometry")

// Conv2DGeometry fixes every extent of a stride-1, unpadded 2D convolution.
//
// Input:  [MaxBatch, InChannels, Height, Width]
// Weight: [OutChannels, InChannels, Kernel, Kernel]
// Bias:   [OutChannels]
// Output: [MaxBatch, OutChannels, Height-Kernel+1, Width-Kernel+1]
type Conv2DGeometry struct {
	MaxBatch    int
	InChannels  int
	Height      int
	Width       int
	Kernel      int
	OutChannels int
}

// Validate checks that every extent is positive and the kernel fits.
func (g Conv2DGeometry) Validate() error {
	if g.MaxBatch <= 0 || g.InChannels <= 0 || g.OutChannels <= 0 {
		return fmt.Errorf("%w: batch=%d in=%d out=%d", ErrInvalidGeometry, g.MaxBatch, g.InChannels, g.OutChannels)
	}
	if g.Kernel <= 0 || g.Kernel > g.Height || g.Kernel > g.Width {
		return fmt.Errorf("%w: kernel %d for %dx%d image", ErrInvalidGeometry, g.Kernel, g.Height, g.Width)
	}
	return nil
}

// OutHeight returns Height-Kernel+1.
func (g Conv2DGeometry) OutHeight() int { return g.Height - g.Kernel + 1 }

// OutWidth returns Width-Kernel+1.
func (g Conv2DGeometry) OutWidth() int { return g.Width - g.Kernel + 1 }

// InputShape returns the shape of x and gx.
func (g Conv2DGeometry) InputShape() tensor.Shape {
	return tensor.Shape{g.MaxBatch, g.InChannels, g.Height, g.Width}
}

// WeightShape returns the shape of w and gw.
func (g Conv2DGeometry) WeightShape() tensor.Shape {
	return tensor.Shape{g.OutChannels, g.InChannels, g.Kernel, g.Kernel}
}

// BiasShape returns the shape of b and gb.
func (g Conv2DGeometry) BiasShape() tensor.Shape {
	return tensor.Shape{g.OutChannels}
}

// OutputShape returns the shape of y and gy.
func (g Conv2DGeometry) OutputShape() tensor.Shape {
	return tensor.Shape{g.MaxBatch, g.OutChannels, g.OutHeight(), g.OutWidth()}
}

// LinearGeometry fixes every extent of a dense layer. In holds the
// per-sample input feature dimensions; trailing ones are allowed.
//
// Input:  [MaxBatch, In...]
// Weight: [In..., Out]
// Bias:   [Out]
// Output: [MaxBatch, Out]
type LinearGeometry struct {
	MaxBatch int
	In       tensor.Shape
	Out      int
}

// Validate checks that every extent is positive.
func (g LinearGeometry) Validate() error {
	if g.MaxBatch <= 0 || g.Out <= 0 {
		return fmt.Errorf("%w: batch=%d out=%d", ErrInvalidGeometry, g.MaxBatch, g.Out)
	}
	if err := g.In.Validate(); err != nil {
		return fmt.Errorf("%w: input features: %v", ErrInvalidGeometry, err)
	}
	return nil
}

// Features returns the number of input features per sample.
func (g LinearGeometry) Features() int { return g.In.NumElements() }

// InputShape returns the shape of x and gx.
func (g LinearGeometry) InputShape() tensor.Shape {
	return append(tensor.Shape{g.MaxBatch}, g.In...)
}

// WeightShape returns the shape of w and gw.
func (g LinearGeometry) WeightShape() tensor.Shape {
	return append(g.In.Clone(), g.Out)
}

// BiasShape returns the shape of b and gb.
func (g LinearGeometry) BiasShape() tensor.Shape {
	return tensor.Shape{g.Out}
}

// OutputShape returns the shape of y and gy.
func (g LinearGeometry) OutputShape() tensor.Shape {
	return tensor.Shape{g.MaxBatch, g.Out}
}

// Conv2DKernel computes a convolution layer's passes.
//
// Forward sets y's batch to x's and writes y. Backward sets gx's batch to
// gy's and writes gw, gb and gx from gy and the x of the matching Forward.
type Conv2DKernel[T tensor.Float] interface {
	Forward(x, w, b, y *tensor.Tensor[T])
	Backward(gy, x, w, gw, gb, gx *tensor.Tensor[T])
	Name() string
}

// LinearKernel computes a dense layer's passes, with the same contract as
// Conv2DKernel.
type LinearKernel[T tensor.Float] interface {
	Forward(x, w, b, y *tensor.Tensor[T])
	Backward(gy, x, w, gw, gb, gx *tensor.Tensor[T])
	Name() string
}

// MustShape panics unless t was allocated with the expected shape.
func MustShape[T tensor.Float](op, name string, t *tensor.Tensor[T], want tensor.Shape) {
	if !t.MaxShape().Equal(want) {
		panic(fmt.Sprintf("%s: %s must be %v, got %v", op, name, want, t.MaxShape()))
	}
}

// CheckConv2D panics unless the four tensors of a pass match g. Backward
// passes gb for b and gy for y.
func CheckConv2D[T tensor.Float](g Conv2DGeometry, x, w, b, y *tensor.Tensor[T]) {
	MustShape("conv2d", "x", x, g.InputShape())
	MustShape("conv2d", "w", w, g.WeightShape())
	MustShape("conv2d", "b", b, g.BiasShape())
	MustShape("conv2d", "y", y, g.OutputShape())
}

// CheckLinear is CheckConv2D for dense layers.
func CheckLinear[T tensor.Float](g LinearGeometry, x, w, b, y *tensor.Tensor[T]) {
	MustShape("linear", "x", x, g.InputShape())
	MustShape("linear", "w", w, g.WeightShape())
	MustShape("linear", "b", b, g.BiasShape())
	MustShape("linear", "y", y, g.OutputShape())
}
