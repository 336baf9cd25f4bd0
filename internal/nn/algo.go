package nn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/simdnn/internal/backend"
	"github.com/born-ml/simdnn/internal/backend/cpu"
	"github.com/born-ml/simdnn/internal/backend/webgpu"
	"github.com/born-ml/simdnn/internal/lane"
	"github.com/born-ml/simdnn/internal/tensor"
)

// ErrUnknownAlgo is returned by ParseAlgo for unrecognized names.
var ErrUnknownAlgo = errors.New("unknown algorithm")

// Algo selects the forward/backward implementation pair of a layer. All
// implementations produce the same results up to floating-point
// reassociation.
type Algo int

const (
	// Baseline is the scalar reference.
	Baseline Algo = iota
	// Vectorized uses the lane target compiled into the binary.
	Vectorized
	// Accelerator runs on the GPU. Selecting it in a binary built without
	// the accelerator is a configuration error; there is no fallback.
	Accelerator
	// Experimental uses the lane target not compiled as native, so both
	// widths can be compared in one binary.
	Experimental
)

var algoNames = map[string]Algo{
	"baseline":     Baseline,
	"vectorized":   Vectorized,
	"accelerator":  Accelerator,
	"experimental": Experimental,
	"cpu_base":     Baseline,
	"cpu_simd":     Vectorized,
	"cuda_base":    Accelerator,
	"cpu_test":     Experimental,
}

// String returns the canonical name.
func (a Algo) String() string {
	switch a {
	case Baseline:
		return "baseline"
	case Vectorized:
		return "vectorized"
	case Accelerator:
		return "accelerator"
	case Experimental:
		return "experimental"
	default:
		return fmt.Sprintf("Algo(%d)", int(a))
	}
}

// ParseAlgo parses an implementation name, case-insensitively. The names
// cpu_base, cpu_simd, cuda_base and cpu_test are accepted as aliases.
func ParseAlgo(s string) (Algo, error) {
	if a, ok := algoNames[strings.ToLower(s)]; ok {
		return a, nil
	}
	return 0, fmt.Errorf("%w: %q (want baseline, vectorized, accelerator or experimental)", ErrUnknownAlgo, s)
}

func newConv2DKernel[T tensor.Float](a Algo, g backend.Conv2DGeometry) (backend.Conv2DKernel[T], error) {
	switch a {
	case Baseline:
		return cpu.NewConv2D[T](g), nil
	case Vectorized:
		return cpu.NewConv2DLanes[T, lane.NativeVec[T], lane.Native[T]](g), nil
	case Experimental:
		return cpu.NewConv2DLanes[T, lane.OtherVec[T], lane.Other[T]](g), nil
	case Accelerator:
		k, err := webgpu.NewConv2D(g)
		if err != nil {
			return nil, err
		}
		return asKernel[T, backend.Conv2DKernel[T]](k)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownAlgo, a)
}

func newLinearKernel[T tensor.Float](a Algo, g backend.LinearGeometry) (backend.LinearKernel[T], error) {
	switch a {
	case Baseline:
		return cpu.NewLinear[T](g), nil
	case Vectorized:
		return cpu.NewLinearLanes[T, lane.NativeVec[T], lane.Native[T]](g), nil
	case Experimental:
		return cpu.NewLinearLanes[T, lane.OtherVec[T], lane.Other[T]](g), nil
	case Accelerator:
		k, err := webgpu.NewLinear(g)
		if err != nil {
			return nil, err
		}
		return asKernel[T, backend.LinearKernel[T]](k)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownAlgo, a)
}

// asKernel converts a float32 accelerator kernel to the layer's element type.
func asKernel[T tensor.Float, K any](k any) (K, error) {
	kk, ok := k.(K)
	if !ok {
		var zero K
		return zero, fmt.Errorf("nn: %s: %w", tensor.TypeOf[T](), webgpu.ErrUnsupportedType)
	}
	return kk, nil
}
