//go:build !(windows && webgpu)

package webgpu

import (
	"testing"

	"github.com/born-ml/simdnn/internal/backend"
	"github.com/born-ml/simdnn/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStub_Unavailable(t *testing.T) {
	assert.False(t, Compiled)
	assert.False(t, IsAvailable())

	k, err := NewConv2D(backend.Conv2DGeometry{MaxBatch: 1, InChannels: 1, Height: 28, Width: 28, Kernel: 3, OutChannels: 32})
	require.ErrorIs(t, err, ErrAcceleratorUnavailable)
	assert.Nil(t, k)
	assert.Contains(t, err.Error(), "28x28k3")

	l, err := NewLinear(backend.LinearGeometry{MaxBatch: 1, In: tensor.Shape{4}, Out: 2})
	require.ErrorIs(t, err, ErrAcceleratorUnavailable)
	assert.Nil(t, l)
}
