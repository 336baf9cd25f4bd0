// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for the Conv2D and Linear layers.
//
// Every layer runs one of several interchangeable implementations selected by
// Options.Algo: the scalar Baseline, the lane-vectorized Vectorized and
// Experimental kernels, and the GPU Accelerator. All of them produce the same
// results up to floating-point reassociation.
//
// Example:
//
//	g := nn.Conv2DGeometry{MaxBatch: 64, InChannels: 1, Height: 28, Width: 28, Kernel: 3, OutChannels: 32}
//	conv, err := nn.NewConv2D[float32](g, nn.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	x := tensor.New[float32](g.InputShape())
//	y := conv.Forward(x, true)
//	gx := conv.Backward(gy)
//	conv.Update()
package nn

import (
	"github.com/born-ml/simdnn/internal/backend"
	"github.com/born-ml/simdnn/internal/backend/webgpu"
	"github.com/born-ml/simdnn/internal/nn"
	"github.com/born-ml/simdnn/tensor"
)

// Errors returned by the layer constructors.
var (
	// ErrUnknownAlgo is returned by ParseAlgo for unrecognized names.
	ErrUnknownAlgo = nn.ErrUnknownAlgo
	// ErrInvalidGeometry wraps geometry validation failures.
	ErrInvalidGeometry = backend.ErrInvalidGeometry
	// ErrAcceleratorUnavailable is returned when Accelerator is selected in
	// a binary without the GPU backend or on a host without an adapter.
	ErrAcceleratorUnavailable = webgpu.ErrAcceleratorUnavailable
	// ErrUnsupportedType is returned when Accelerator is selected for a
	// float64 layer.
	ErrUnsupportedType = webgpu.ErrUnsupportedType
)

// Algo selects the forward/backward implementation of a layer.
type Algo = nn.Algo

// Implementations.
const (
	Baseline     Algo = nn.Baseline
	Vectorized   Algo = nn.Vectorized
	Accelerator  Algo = nn.Accelerator
	Experimental Algo = nn.Experimental
)

// ParseAlgo parses an implementation name such as "vectorized".
func ParseAlgo(s string) (Algo, error) {
	return nn.ParseAlgo(s)
}

// Options configures a layer.
type Options = nn.Options

// DefaultOptions returns the vectorized implementation with AdaDelta.
func DefaultOptions() Options {
	return nn.DefaultOptions()
}

// Parameter is a trainable tensor with its gradient and optimizer state.
type Parameter[T tensor.Float] = nn.Parameter[T]

// Conv2DGeometry fixes the extents of a convolution layer.
type Conv2DGeometry = backend.Conv2DGeometry

// LinearGeometry fixes the extents of a dense layer.
type LinearGeometry = backend.LinearGeometry

// Conv2D is a stride-1, unpadded 2D convolutional layer.
type Conv2D[T tensor.Float] = nn.Conv2D[T]

// NewConv2D creates a convolution layer.
//
// Example:
//
//	g := nn.Conv2DGeometry{MaxBatch: 64, InChannels: 1, Height: 28, Width: 28, Kernel: 3, OutChannels: 32}
//	conv, err := nn.NewConv2D[float32](g, nn.DefaultOptions())
func NewConv2D[T tensor.Float](g Conv2DGeometry, opts Options) (*Conv2D[T], error) {
	return nn.NewConv2D[T](g, opts)
}

// Linear is a dense layer over flattened per-sample inputs.
type Linear[T tensor.Float] = nn.Linear[T]

// NewLinear creates a dense layer.
//
// Example:
//
//	g := nn.LinearGeometry{MaxBatch: 64, In: tensor.Shape{32, 13, 13}, Out: 10}
//	fc, err := nn.NewLinear[float32](g, nn.DefaultOptions())
func NewLinear[T tensor.Float](g LinearGeometry, opts Options) (*Linear[T], error) {
	return nn.NewLinear[T](g, opts)
}
