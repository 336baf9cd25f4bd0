// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the fixed-shape tensors consumed
// and produced by the simdnn layers.
//
// A tensor is allocated once at its maximum shape. The leading dimension is
// the batch; SetBatch shrinks the active batch without reallocating, so the
// same storage serves every batch size up to the maximum.
//
// Example:
//
//	x := tensor.New[float32](tensor.Shape{64, 1, 28, 28})
//	x.SetBatch(10) // active shape is now (10,1,28,28)
//	x.Set(0.5, 3, 0, 14, 14)
package tensor

import (
	"github.com/born-ml/simdnn/internal/tensor"
)

// Float is the constraint for element types the layers compute on.
type Float = tensor.Float

// DataType represents the element type of a tensor at run time.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Tensor is a dense row-major tensor with a fixed maximum shape and a
// variable active batch.
type Tensor[T Float] = tensor.Tensor[T]

// View is a fixed-width window along a tensor's contiguous axis.
type View[T Float] = tensor.View[T]

// New allocates a zero tensor of the given maximum shape, at full batch.
func New[T Float](shape Shape) *Tensor[T] {
	return tensor.New[T](shape)
}

// FromSlice creates a tensor of the given shape backed by a copy of data.
// Returns an error if len(data) does not match the shape.
func FromSlice[T Float](data []T, shape Shape) (*Tensor[T], error) {
	return tensor.FromSlice(data, shape)
}

// TypeOf returns the DataType of T.
func TypeOf[T Float]() DataType {
	return tensor.TypeOf[T]()
}
