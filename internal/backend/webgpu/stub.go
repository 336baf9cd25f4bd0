//go:build !(windows && webgpu)

package webgpu

import (
	"fmt"

	"github.com/born-ml/simdnn/internal/backend"
)

// Compiled reports whether the accelerator is part of this binary.
const Compiled = false

// IsAvailable always reports false in binaries built without the accelerator.
func IsAvailable() bool { return false }

// NewConv2D returns ErrAcceleratorUnavailable.
func NewConv2D(g backend.Conv2DGeometry) (backend.Conv2DKernel[float32], error) {
	return nil, fmt.Errorf("webgpu: conv2d %dx%dk%d: %w (rebuild with -tags webgpu on windows)",
		g.Height, g.Width, g.Kernel, ErrAcceleratorUnavailable)
}

// NewLinear returns ErrAcceleratorUnavailable.
func NewLinear(g backend.LinearGeometry) (backend.LinearKernel[float32], error) {
	return nil, fmt.Errorf("webgpu: linear %v->%d: %w (rebuild with -tags webgpu on windows)",
		g.In, g.Out, ErrAcceleratorUnavailable)
}
