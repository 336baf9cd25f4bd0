package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/simdnn/internal/tensor"
)

// initUniform fills t from U(-b, b) with b = 1/sqrt(fanIn).
func initUniform[T tensor.Float](rng *rand.Rand, t *tensor.Tensor[T], fanIn int) {
	bound := T(1 / math.Sqrt(float64(fanIn)))
	t.InitUniform(rng, -bound, bound)
}
