package nn

import (
	"io"
	"log/slog"
	"math/rand"

	"github.com/born-ml/simdnn/internal/optim"
)

// Options configures a layer. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	// Algo selects the forward/backward implementation.
	Algo Algo
	// Optimizer configures the weight and bias update rule.
	Optimizer optim.Config
	// Seed seeds weight initialization when Rand is nil.
	Seed int64
	// Rand, if set, is used for weight initialization instead of Seed.
	// Layers built from one source in sequence get distinct weights.
	Rand *rand.Rand
	// Logger receives debug timing of every pass. Nil discards.
	Logger *slog.Logger
}

// DefaultOptions returns the vectorized implementation with AdaDelta.
func DefaultOptions() Options {
	return Options{
		Algo:      Vectorized,
		Optimizer: optim.DefaultConfig(),
		Seed:      1,
	}
}

func (o Options) rand() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	//nolint:gosec // Using math/rand for weight initialization (not security-critical)
	return rand.New(rand.NewSource(o.Seed))
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
