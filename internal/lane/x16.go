package lane

import "github.com/born-ml/simdnn/internal/tensor"

// Vec16 is a 16-lane vector value.
type Vec16[T tensor.Float] [16]T

// X16 is the 16-lane target.
type X16[T tensor.Float] struct{}

// Width returns 16.
func (X16[T]) Width() int { return 16 }

// Zero returns a vector of zeros.
func (X16[T]) Zero() Vec16[T] { return Vec16[T]{} }

// Broadcast returns s in every lane.
func (X16[T]) Broadcast(s T) Vec16[T] {
	var r Vec16[T]
	for i := range r {
		r[i] = s
	}
	return r
}

// Load reads 16 elements from v.
func (X16[T]) Load(v tensor.View[T]) Vec16[T] {
	var r Vec16[T]
	copy(r[:], mustWidth(v, 16))
	return r
}

// Store writes all 16 lanes into v.
func (X16[T]) Store(v tensor.View[T], x Vec16[T]) {
	copy(mustWidth(v, 16), x[:])
}

// FMA returns acc + a*b per lane.
func (X16[T]) FMA(acc, a, b Vec16[T]) Vec16[T] {
	for i := range acc {
		acc[i] = fma(a[i], b[i], acc[i])
	}
	return acc
}

// Add returns a + b per lane.
func (X16[T]) Add(a, b Vec16[T]) Vec16[T] {
	for i := range a {
		a[i] += b[i]
	}
	return a
}

// Reduce sums the lanes as a halving tree: 16 -> 8 -> 4 -> 2 -> 1.
func (X16[T]) Reduce(x Vec16[T]) T {
	for n := 8; n >= 1; n /= 2 {
		for i := 0; i < n; i++ {
			x[i] += x[i+n]
		}
	}
	return x[0]
}
