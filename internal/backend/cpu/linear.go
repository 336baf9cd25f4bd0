package cpu

import (
	"github.com/born-ml/simdnn/internal/backend"
	"github.com/born-ml/simdnn/internal/tensor"
)

// Linear is the scalar reference dense layer.
type Linear[T tensor.Float] struct {
	g backend.LinearGeometry
}

// NewLinear creates the scalar dense kernel for g.
func NewLinear[T tensor.Float](g backend.LinearGeometry) *Linear[T] {
	return &Linear[T]{g: g}
}

// Name returns "baseline".
func (l *Linear[T]) Name() string { return "baseline" }

// Forward computes y(s,n) = sum over f of x(s,f)*w(f,n), plus b(n), with the
// input features flattened.
func (l *Linear[T]) Forward(x, w, b, y *tensor.Tensor[T]) {
	backend.CheckLinear(l.g, x, w, b, y)
	y.SetBatch(x.Batch())
	x2, w2 := flatten(l.g, x, w)

	for s := 0; s < x2.Batch(); s++ {
		for n := 0; n < l.g.Out; n++ {
			y.Set(densePixel(x2, w2, b, s, n), s, n)
		}
	}
}

// Backward computes the weight, bias and input gradients.
func (l *Linear[T]) Backward(gy, x, w, gw, gb, gx *tensor.Tensor[T]) {
	backend.CheckLinear(l.g, x, w, gb, gy)
	backend.MustShape("linear", "gw", gw, l.g.WeightShape())
	backend.MustShape("linear", "gx", gx, l.g.InputShape())
	batch := gy.Batch()
	gx.SetBatch(batch)
	x2, w2 := flatten(l.g, x, w)
	gx2, gw2 := flatten(l.g, gx, gw)
	f := l.g.Features()

	for k := 0; k < f; k++ {
		for n := 0; n < l.g.Out; n++ {
			var v T
			for s := 0; s < batch; s++ {
				v += x2.At(s, k) * gy.At(s, n)
			}
			gw2.Set(v, k, n)
		}
	}

	for n := 0; n < l.g.Out; n++ {
		var v T
		for s := 0; s < batch; s++ {
			v += gy.At(s, n)
		}
		gb.Set(v, n)
	}

	for s := 0; s < batch; s++ {
		for k := 0; k < f; k++ {
			gx2.Set(backPixel(l.g, gy, w2, s, k), s, k)
		}
	}
}

// densePixel computes y(s,n) with the scalar algorithm.
func densePixel[T tensor.Float](x2, w2, b *tensor.Tensor[T], s, n int) T {
	var v T
	for k := 0; k < w2.MaxBatch(); k++ {
		v += x2.At(s, k) * w2.At(k, n)
	}
	return v + b.At(n)
}

// backPixel computes gx(s,k) with the scalar algorithm.
func backPixel[T tensor.Float](g backend.LinearGeometry, gy, w2 *tensor.Tensor[T], s, k int) T {
	var v T
	for n := 0; n < g.Out; n++ {
		v += gy.At(s, n) * w2.At(k, n)
	}
	return v
}

// flatten views a batch tensor as [MaxBatch, F] and a weight tensor as
// [F, Out].
func flatten[T tensor.Float](g backend.LinearGeometry, x, w *tensor.Tensor[T]) (*tensor.Tensor[T], *tensor.Tensor[T]) {
	x2 := x.Reshape(tensor.Shape{g.MaxBatch, g.Features()})
	w2 := w.Reshape(tensor.Shape{g.Features(), g.Out})
	return x2, w2
}
