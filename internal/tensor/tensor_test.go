package tensor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTensor_RowMajorLayout(t *testing.T) {
	x := New[float32](Shape{2, 3, 4})
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 4; k++ {
				x.Set(float32(i*100+j*10+k), i, j, k)
			}
		}
	}
	data := x.Data()
	assert.Equal(t, float32(0), data[0])
	assert.Equal(t, float32(1), data[1])
	assert.Equal(t, float32(10), data[4])
	assert.Equal(t, float32(123), data[23])
	assert.Equal(t, float32(112), x.At(1, 1, 2))
}

func TestTensor_SetBatchReusesStorage(t *testing.T) {
	x := New[float64](Shape{8, 3})
	before := &x.data[0]

	x.SetBatch(2)
	assert.Equal(t, 2, x.Batch())
	assert.Equal(t, 8, x.MaxBatch())
	assert.Equal(t, Shape{2, 3}, x.Shape())
	assert.Equal(t, Shape{8, 3}, x.MaxShape())
	assert.Len(t, x.Data(), 6)
	assert.Same(t, before, &x.data[0])

	x.SetBatch(8)
	assert.Len(t, x.Data(), 24)
	assert.Same(t, before, &x.data[0])

	assert.Panics(t, func() { x.SetBatch(9) })
	assert.Panics(t, func() { x.SetBatch(-1) })
}

func TestTensor_OmittedTrailingIndices(t *testing.T) {
	x := New[float32](Shape{4, 6, 1, 1})
	require.Equal(t, 1, x.ContiguousAxis())

	x.Set(5, 2, 3)
	assert.Equal(t, float32(5), x.At(2, 3, 0, 0))
	assert.Equal(t, x.Offset(2, 3, 0, 0), x.Offset(2, 3))

	assert.Panics(t, func() { x.At(2) }, "indices must reach the contiguous axis")
	assert.Panics(t, func() { x.At(0, 0, 0, 0, 0) })
}

func TestTensor_Reshape(t *testing.T) {
	x := New[float32](Shape{3, 2, 2, 1})
	x.SetBatch(2)
	x.Set(7, 1, 1, 0)

	flat := x.Reshape(Shape{3, 4})
	assert.Equal(t, 2, flat.Batch())
	assert.Equal(t, float32(7), flat.At(1, 2))

	flat.Set(9, 0, 3)
	assert.Equal(t, float32(9), x.At(0, 1, 1))

	assert.Panics(t, func() { x.Reshape(Shape{4, 3}) })
	assert.Panics(t, func() { x.Reshape(Shape{3, 5}) })

	w := New[float32](Shape{2, 2, 3})
	w.Set(5, 1, 0, 2)
	m := w.Reshape(Shape{4, 3})
	assert.Equal(t, 4, m.Batch())
	assert.Equal(t, float32(5), m.At(2, 2))
}

func TestTensor_FromSlice(t *testing.T) {
	x, err := FromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	require.NoError(t, err)
	assert.Equal(t, 6.0, x.At(1, 2))

	_, err = FromSlice([]float64{1, 2}, Shape{2, 3})
	require.Error(t, err)
}

func TestTensor_Helpers(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := New[float64](Shape{2, 5})
	a.InitUniform(rng, -1, 1)
	for _, v := range a.Data() {
		assert.GreaterOrEqual(t, v, -1.0)
		assert.Less(t, v, 1.0)
	}

	b := a.Clone()
	assert.Equal(t, a.Data(), b.Data())
	assert.InDelta(t, a.Dot(a), b.Dot(b), 1e-12)

	b.AddScaled(2, a)
	for i, v := range b.Data() {
		assert.InDelta(t, 3*a.Data()[i], v, 1e-12)
	}

	b.Fill(1)
	assert.InDelta(t, 10.0, b.Dot(b), 1e-12)
	b.Zero()
	assert.Zero(t, b.Dot(b))

	c := New[float64](Shape{2, 4})
	assert.Panics(t, func() { c.CopyFrom(a) })
}

func TestDataType(t *testing.T) {
	assert.Equal(t, Float32, TypeOf[float32]())
	assert.Equal(t, Float64, TypeOf[float64]())
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, "float64", Float64.String())
}
