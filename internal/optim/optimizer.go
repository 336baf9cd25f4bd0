// Package optim implements the per-parameter update rules applied after a
// backward pass.
//
// This package provides:
//   - Optimizer interface: updates one parameter tensor from its gradient
//   - AdaDelta: the default, needs no learning-rate tuning
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//
// Each layer owns one optimizer per parameter tensor. State is allocated once
// with the parameter's shape.
//
// Example usage:
//
//	opt, err := optim.New[float32](optim.DefaultConfig(), w.MaxShape())
//	if err != nil {
//	    return err
//	}
//	layer.Backward(gy)
//	opt.Update(w, gw)
package optim

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/simdnn/internal/tensor"
)

// ErrUnknownKind is returned by ParseKind for unrecognized names.
var ErrUnknownKind = errors.New("unknown optimizer")

// Optimizer updates a parameter tensor in place from its gradient.
type Optimizer[T tensor.Float] interface {
	// Update applies one step to w using gw. Both must have the shape the
	// optimizer was created with.
	Update(w, gw *tensor.Tensor[T])

	// LR returns the current learning rate.
	LR() float64

	// SetLR changes the learning rate, for schedules.
	SetLR(lr float64)
}

// Kind selects an update rule.
type Kind int

const (
	// AdaDelta adapts the step from running averages of squared gradients
	// and squared updates.
	AdaDelta Kind = iota
	// SGD is gradient descent with optional momentum.
	SGD
	// Adam is adaptive moment estimation with bias correction.
	Adam
)

// String returns the lower-case name of the rule.
func (k Kind) String() string {
	switch k {
	case AdaDelta:
		return "adadelta"
	case SGD:
		return "sgd"
	case Adam:
		return "adam"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses a rule name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "adadelta":
		return AdaDelta, nil
	case "sgd":
		return SGD, nil
	case "adam":
		return Adam, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Config holds the hyperparameters of every rule. Fields a rule does not
// use are ignored.
type Config struct {
	Kind     Kind
	LR       float64 // Learning rate
	Momentum float64 // SGD momentum, in [0, 1)
	Rho      float64 // AdaDelta decay
	Eps      float64 // AdaDelta and Adam stabilizer
	Beta1    float64 // Adam first moment decay
	Beta2    float64 // Adam second moment decay
}

// DefaultConfig returns AdaDelta with a unit learning rate.
func DefaultConfig() Config {
	return Config{
		Kind:  AdaDelta,
		LR:    1.0,
		Rho:   0.95,
		Eps:   1e-6,
		Beta1: 0.9,
		Beta2: 0.999,
	}
}

// Validate checks the hyperparameters of the selected rule.
func (c Config) Validate() error {
	if c.LR <= 0 {
		return fmt.Errorf("optim: learning rate must be positive, got %v", c.LR)
	}
	switch c.Kind {
	case AdaDelta:
		if c.Rho <= 0 || c.Rho >= 1 || c.Eps <= 0 {
			return fmt.Errorf("optim: adadelta needs 0 < rho < 1 and eps > 0, got rho=%v eps=%v", c.Rho, c.Eps)
		}
	case SGD:
		if c.Momentum < 0 || c.Momentum >= 1 {
			return fmt.Errorf("optim: momentum must be in [0, 1), got %v", c.Momentum)
		}
	case Adam:
		if c.Beta1 < 0 || c.Beta1 >= 1 || c.Beta2 < 0 || c.Beta2 >= 1 || c.Eps <= 0 {
			return fmt.Errorf("optim: adam needs betas in [0, 1) and eps > 0, got %v %v %v", c.Beta1, c.Beta2, c.Eps)
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnknownKind, c.Kind)
	}
	return nil
}

// New creates an optimizer for a parameter of the given shape.
func New[T tensor.Float](cfg Config, shape tensor.Shape) (Optimizer[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("optim: %w", err)
	}
	switch cfg.Kind {
	case SGD:
		return NewSGD[T](cfg, shape), nil
	case Adam:
		return NewAdam[T](cfg, shape), nil
	default:
		return NewAdaDelta[T](cfg, shape), nil
	}
}

// mustMatch panics unless w and gw have the optimizer's shape.
func mustMatch[T tensor.Float](shape tensor.Shape, w, gw *tensor.Tensor[T]) {
	if !w.MaxShape().Equal(shape) || !gw.MaxShape().Equal(shape) {
		panic(fmt.Sprintf("optim: parameter %v and gradient %v do not match state %v", w.MaxShape(), gw.MaxShape(), shape))
	}
}
