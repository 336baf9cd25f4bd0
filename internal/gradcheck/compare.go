package gradcheck

import (
	"fmt"
	"math"

	"github.com/born-ml/simdnn/internal/tensor"
)

// Diff describes the largest disagreement between two tensors.
type Diff struct {
	MaxAbs float64 // largest |a-b|
	MaxRel float64 // largest |a-b| / max(floor, |a|, |b|)
	Index  int     // flat index of MaxRel, -1 if a and b are identical
}

// String formats the diff for reports.
func (d Diff) String() string {
	return fmt.Sprintf("max rel %.3g, max abs %.3g at %d", d.MaxRel, d.MaxAbs, d.Index)
}

// MaxRelErr returns the largest element-wise relative error between a and b.
// Elements smaller than floor in magnitude are compared absolutely against
// floor, so near-zero values do not dominate. Panics if the lengths differ.
func MaxRelErr[T tensor.Float](a, b []T, floor float64) Diff {
	if len(a) != len(b) {
		panic(fmt.Sprintf("gradcheck: length mismatch %d vs %d", len(a), len(b)))
	}
	d := Diff{Index: -1}
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		diff := math.Abs(x - y)
		rel := diff / math.Max(floor, math.Max(math.Abs(x), math.Abs(y)))
		d.MaxAbs = math.Max(d.MaxAbs, diff)
		if rel > d.MaxRel || (math.IsNaN(rel) && !math.IsNaN(d.MaxRel)) {
			d.MaxRel = rel
			d.Index = i
		}
	}
	return d
}

// Compare returns the Diff of the active regions of a and b. Panics if they
// do not have the same current shape.
func Compare[T tensor.Float](a, b *tensor.Tensor[T]) Diff {
	if !a.Shape().Equal(b.Shape()) {
		panic(fmt.Sprintf("gradcheck: shape mismatch %v vs %v", a.Shape(), b.Shape()))
	}
	return MaxRelErr(a.Data(), b.Data(), 1)
}
