// Package webgpu runs the Conv2D and Linear passes on a GPU through WebGPU
// compute shaders, using go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO
// bindings.
//
// The accelerator is only compiled into binaries built with -tags webgpu on
// Windows, where the bindings load wgpu_native at run time. Elsewhere every
// constructor returns ErrAcceleratorUnavailable. Only float32 is supported.
package webgpu

import "errors"

var (
	// ErrAcceleratorUnavailable is returned when the accelerator is not
	// compiled into the binary or no GPU could be opened.
	ErrAcceleratorUnavailable = errors.New("accelerator not available")

	// ErrUnsupportedType is returned for element types other than float32.
	ErrUnsupportedType = errors.New("accelerator supports float32 only")
)
