package lane

import "github.com/born-ml/simdnn/internal/tensor"

// Vec4 is a 4-lane vector value.
type Vec4[T tensor.Float] [4]T

// X4 is the 4-lane target.
type X4[T tensor.Float] struct{}

// Width returns 4.
func (X4[T]) Width() int { return 4 }

// Zero returns a vector of zeros.
func (X4[T]) Zero() Vec4[T] { return Vec4[T]{} }

// Broadcast returns s in every lane.
func (X4[T]) Broadcast(s T) Vec4[T] {
	var r Vec4[T]
	for i := range r {
		r[i] = s
	}
	return r
}

// Load reads 4 elements from v.
func (X4[T]) Load(v tensor.View[T]) Vec4[T] {
	var r Vec4[T]
	copy(r[:], mustWidth(v, 4))
	return r
}

// Store writes all 4 lanes into v.
func (X4[T]) Store(v tensor.View[T], x Vec4[T]) {
	copy(mustWidth(v, 4), x[:])
}

// FMA returns acc + a*b per lane.
func (X4[T]) FMA(acc, a, b Vec4[T]) Vec4[T] {
	for i := range acc {
		acc[i] = fma(a[i], b[i], acc[i])
	}
	return acc
}

// Add returns a + b per lane.
func (X4[T]) Add(a, b Vec4[T]) Vec4[T] {
	for i := range a {
		a[i] += b[i]
	}
	return a
}

// Reduce sums the lanes pairwise, (0+2)+(1+3), the way a two-step
// horizontal add does.
func (X4[T]) Reduce(x Vec4[T]) T {
	return (x[0] + x[2]) + (x[1] + x[3])
}
