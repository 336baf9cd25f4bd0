package tensor

import (
	"fmt"
	"math/rand"
)

// Fill sets every active element to v.
func (t *Tensor[T]) Fill(v T) {
	data := t.Data()
	for i := range data {
		data[i] = v
	}
}

// Zero sets every active element to 0.
func (t *Tensor[T]) Zero() {
	clear(t.Data())
}

// InitUniform fills the active region with values drawn uniformly from [lo, hi).
func (t *Tensor[T]) InitUniform(rng *rand.Rand, lo, hi T) {
	data := t.Data()
	for i := range data {
		data[i] = lo + (hi-lo)*T(rng.Float64())
	}
}

// CopyFrom copies the active region of o into t and adopts its batch.
// Both tensors must have been allocated with the same shape.
func (t *Tensor[T]) CopyFrom(o *Tensor[T]) {
	t.mustMatch("CopyFrom", o)
	t.SetBatch(o.Batch())
	copy(t.Data(), o.Data())
}

// Clone creates a deep copy of the tensor, including its current batch.
func (t *Tensor[T]) Clone() *Tensor[T] {
	c := New[T](t.maxShape)
	c.CopyFrom(t)
	return c
}

// AddScaled performs t += alpha * o over the active region.
func (t *Tensor[T]) AddScaled(alpha T, o *Tensor[T]) {
	t.mustMatch("AddScaled", o)
	dst, src := t.Data(), o.Data()
	for i := range dst {
		dst[i] += alpha * src[i]
	}
}

// Dot returns the inner product of the active regions, accumulated in float64.
func (t *Tensor[T]) Dot(o *Tensor[T]) float64 {
	t.mustMatch("Dot", o)
	a, b := t.Data(), o.Data()
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func (t *Tensor[T]) mustMatch(op string, o *Tensor[T]) {
	if !t.maxShape.Equal(o.maxShape) {
		panic(fmt.Sprintf("tensor: %s: shape mismatch %v vs %v", op, t.maxShape, o.maxShape))
	}
}
