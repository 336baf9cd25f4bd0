package cpu

import (
	"fmt"

	"github.com/born-ml/simdnn/internal/backend"
	"github.com/born-ml/simdnn/internal/lane"
	"github.com/born-ml/simdnn/internal/tensor"
)

// LinearLanes is the lane-vectorized dense layer. Every pass vectorizes the
// output-feature axis, the contiguous axis of w, y and gy.
type LinearLanes[T tensor.Float, V any, O lane.Ops[T, V]] struct {
	g   backend.LinearGeometry
	ops O
	n   int
}

// NewLinearLanes creates a vectorized dense kernel for g.
func NewLinearLanes[T tensor.Float, V any, O lane.Ops[T, V]](g backend.LinearGeometry) *LinearLanes[T, V, O] {
	var ops O
	return &LinearLanes[T, V, O]{g: g, ops: ops, n: ops.Width()}
}

// Name returns "lanes<N>".
func (l *LinearLanes[T, V, O]) Name() string {
	return fmt.Sprintf("lanes%d", l.n)
}

// Forward computes the dense layer output.
func (l *LinearLanes[T, V, O]) Forward(x, w, b, y *tensor.Tensor[T]) {
	backend.CheckLinear(l.g, x, w, b, y)
	y.SetBatch(x.Batch())
	x2, w2 := flatten(l.g, x, w)
	ops, lanes, f := l.ops, l.n, l.g.Features()

	for s := 0; s < x2.Batch(); s++ {
		n := 0
		for ; n+lanes <= l.g.Out; n += lanes {
			acc := ops.Zero()
			for k := 0; k < f; k++ {
				acc = ops.FMA(acc, ops.Broadcast(x2.At(s, k)), ops.Load(w2.View(lanes, k, n)))
			}
			ops.Store(y.View(lanes, s, n), ops.Add(acc, ops.Load(b.View(lanes, n))))
		}
		for ; n < l.g.Out; n++ {
			y.Set(densePixel(x2, w2, b, s, n), s, n)
		}
	}
}

// Backward computes the weight, bias and input gradients.
func (l *LinearLanes[T, V, O]) Backward(gy, x, w, gw, gb, gx *tensor.Tensor[T]) {
	backend.CheckLinear(l.g, x, w, gb, gy)
	backend.MustShape("linear", "gw", gw, l.g.WeightShape())
	backend.MustShape("linear", "gx", gx, l.g.InputShape())
	batch := gy.Batch()
	gx.SetBatch(batch)
	x2, w2 := flatten(l.g, x, w)
	gx2, gw2 := flatten(l.g, gx, gw)
	ops, lanes, f, out := l.ops, l.n, l.g.Features(), l.g.Out

	for k := 0; k < f; k++ {
		n := 0
		for ; n+lanes <= out; n += lanes {
			acc := ops.Zero()
			for s := 0; s < batch; s++ {
				acc = ops.FMA(acc, ops.Broadcast(x2.At(s, k)), ops.Load(gy.View(lanes, s, n)))
			}
			ops.Store(gw2.View(lanes, k, n), acc)
		}
		for ; n < out; n++ {
			var v T
			for s := 0; s < batch; s++ {
				v += x2.At(s, k) * gy.At(s, n)
			}
			gw2.Set(v, k, n)
		}
	}

	n := 0
	for ; n+lanes <= out; n += lanes {
		acc := ops.Zero()
		for s := 0; s < batch; s++ {
			acc = ops.Add(acc, ops.Load(gy.View(lanes, s, n)))
		}
		ops.Store(gb.View(lanes, n), acc)
	}
	for ; n < out; n++ {
		var v T
		for s := 0; s < batch; s++ {
			v += gy.At(s, n)
		}
		gb.Set(v, n)
	}

	for s := 0; s < batch; s++ {
		for k := 0; k < f; k++ {
			acc := ops.Zero()
			var v T
			n := 0
			for ; n+lanes <= out; n += lanes {
				acc = ops.FMA(acc, ops.Load(gy.View(lanes, s, n)), ops.Load(w2.View(lanes, k, n)))
			}
			for ; n < out; n++ {
				v += gy.At(s, n) * w2.At(k, n)
			}
			gx2.Set(ops.Reduce(acc)+v, s, k)
		}
	}
}
