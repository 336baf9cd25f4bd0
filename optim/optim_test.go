// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim_test

import (
	"testing"

	"github.com/born-ml/simdnn/optim"
	"github.com/born-ml/simdnn/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicAPI(t *testing.T) {
	k, err := optim.ParseKind("sgd")
	require.NoError(t, err)
	assert.Equal(t, optim.SGD, k)

	_, err = optim.ParseKind("lion")
	require.ErrorIs(t, err, optim.ErrUnknownKind)

	cfg := optim.DefaultConfig()
	assert.Equal(t, optim.AdaDelta, cfg.Kind)

	cfg = optim.Config{Kind: optim.SGD, LR: 0.5}
	opt, err := optim.New[float64](cfg, tensor.Shape{2})
	require.NoError(t, err)

	w, err := tensor.FromSlice([]float64{1, 2}, tensor.Shape{2})
	require.NoError(t, err)
	gw, err := tensor.FromSlice([]float64{2, -2}, tensor.Shape{2})
	require.NoError(t, err)
	opt.Update(w, gw)
	assert.Equal(t, []float64{0, 3}, w.Data())
}
