// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the public API for the update rules a layer applies
// to its weight and bias after a backward pass.
//
// Layers create their optimizers from nn.Options.Optimizer; the constructors
// here are for driving a parameter tensor directly.
//
// Example:
//
//	opts := nn.DefaultOptions()
//	opts.Optimizer = optim.Config{Kind: optim.SGD, LR: 0.01, Momentum: 0.9}
//	conv, err := nn.NewConv2D[float32](g, opts)
package optim

import (
	"github.com/born-ml/simdnn/internal/optim"
	"github.com/born-ml/simdnn/tensor"
)

// ErrUnknownKind is returned by ParseKind for unrecognized names.
var ErrUnknownKind = optim.ErrUnknownKind

// Optimizer updates a parameter tensor in place from its gradient.
type Optimizer[T tensor.Float] = optim.Optimizer[T]

// Kind selects an update rule.
type Kind = optim.Kind

// Update rules.
const (
	AdaDelta Kind = optim.AdaDelta
	SGD      Kind = optim.SGD
	Adam     Kind = optim.Adam
)

// ParseKind parses a rule name such as "adam".
func ParseKind(s string) (Kind, error) {
	return optim.ParseKind(s)
}

// Config holds the hyperparameters of every rule.
type Config = optim.Config

// DefaultConfig returns AdaDelta with a unit learning rate.
func DefaultConfig() Config {
	return optim.DefaultConfig()
}

// New creates the optimizer selected by cfg.Kind for a parameter of the
// given shape.
//
// Example:
//
//	opt, err := optim.New[float32](optim.DefaultConfig(), w.MaxShape())
//	opt.Update(w, gw)
func New[T tensor.Float](cfg Config, shape tensor.Shape) (Optimizer[T], error) {
	return optim.New[T](cfg, shape)
}
