// Package lane defines the lane-operations capability set the vectorized
// kernels are written against, and its two targets: 4 lanes (X4) and
// 16 lanes (X16).
//
// A kernel is instantiated once per target:
//
//	k := cpu.NewConv2DLanes[float32, lane.Vec4[float32], lane.X4[float32]](geom)
//
// Native and NativeVec name the target selected for this binary at compile
// time (narrow by default, wide with -tags lanes16). Both targets are always
// compiled so results can be compared inside one binary.
package lane

import (
	"fmt"
	"math"

	"github.com/born-ml/simdnn/internal/tensor"
)

// Ops is the set of primitive lane operations a target supplies.
// V is the target's vector value type.
type Ops[T tensor.Float, V any] interface {
	// Width returns the number of lanes.
	Width() int
	// Zero returns a vector with all lanes set to 0.
	Zero() V
	// Broadcast returns a vector with all lanes set to s.
	Broadcast(s T) V
	// Load reads a full-width vector from a lane view.
	Load(v tensor.View[T]) V
	// Store writes all lanes of x into a lane view.
	Store(v tensor.View[T], x V)
	// FMA returns acc + a*b per lane, fused in float64.
	FMA(acc, a, b V) V
	// Add returns a + b per lane.
	Add(a, b V) V
	// Reduce returns the sum of all lanes.
	Reduce(x V) T
}

// fma computes a*b + c with one float64 rounding, then converts to T.
// For float32 the conversion is a second rounding.
func fma[T tensor.Float](a, b, c T) T {
	return T(math.FMA(float64(a), float64(b), float64(c)))
}

func mustWidth[T tensor.Float](v tensor.View[T], width int) []T {
	if v.Len() != width {
		panic(fmt.Sprintf("lane: view of %d elements used with %d-lane target", v.Len(), width))
	}
	return v.Elems()
}
