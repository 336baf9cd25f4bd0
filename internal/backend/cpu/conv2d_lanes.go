package cpu

import (
	"fmt"

	"github.com/born-ml/simdnn/internal/backend"
	"github.com/born-ml/simdnn/internal/lane"
	"github.com/born-ml/simdnn/internal/tensor"
)

// Conv2DLanes is the lane-vectorized convolution, generic over a lane target.
//
// The forward pass and the weight gradient vectorize the output-column axis
// when the output is at least as wide as the kernel, and the kernel-column
// axis otherwise. Columns left over after the last full chunk are computed
// with the scalar algorithm.
type Conv2DLanes[T tensor.Float, V any, O lane.Ops[T, V]] struct {
	g    backend.Conv2DGeometry
	ops  O
	n    int
	taps bool
}

// NewConv2DLanes creates a vectorized convolution kernel for g.
func NewConv2DLanes[T tensor.Float, V any, O lane.Ops[T, V]](g backend.Conv2DGeometry) *Conv2DLanes[T, V, O] {
	var ops O
	return &Conv2DLanes[T, V, O]{
		g:    g,
		ops:  ops,
		n:    ops.Width(),
		taps: g.OutWidth() < g.Kernel,
	}
}

// Name returns "lanes<N>/cols" or "lanes<N>/taps".
func (c *Conv2DLanes[T, V, O]) Name() string {
	if c.taps {
		return fmt.Sprintf("lanes%d/taps", c.n)
	}
	return fmt.Sprintf("lanes%d/cols", c.n)
}

// Forward computes the convolution output.
func (c *Conv2DLanes[T, V, O]) Forward(x, w, b, y *tensor.Tensor[T]) {
	backend.CheckConv2D(c.g, x, w, b, y)
	batch := x.Batch()
	y.SetBatch(batch)
	if c.taps {
		c.forwardTaps(x, w, b, y, batch)
		return
	}
	c.forwardCols(x, w, b, y, batch)
}

func (c *Conv2DLanes[T, V, O]) forwardCols(x, w, b, y *tensor.Tensor[T], batch int) {
	g, ops, n := c.g, c.ops, c.n
	oh, ow := g.OutHeight(), g.OutWidth()

	for s := 0; s < batch; s++ {
		for oc := 0; oc < g.OutChannels; oc++ {
			bias := ops.Broadcast(b.At(oc))
			for i := 0; i < oh; i++ {
				j := 0
				for ; j+n <= ow; j += n {
					acc := ops.Zero()
					for ic := 0; ic < g.InChannels; ic++ {
						for di := 0; di < g.Kernel; di++ {
							for dj := 0; dj < g.Kernel; dj++ {
								acc = ops.FMA(acc, ops.Broadcast(w.At(oc, ic, di, dj)), ops.Load(x.View(n, s, ic, i+di, j+dj)))
							}
						}
					}
					ops.Store(y.View(n, s, oc, i, j), ops.Add(acc, bias))
				}
				for ; j < ow; j++ {
					y.Set(convPixel(g, x, w, b, s, oc, i, j), s, oc, i, j)
				}
			}
		}
	}
}

func (c *Conv2DLanes[T, V, O]) forwardTaps(x, w, b, y *tensor.Tensor[T], batch int) {
	g, ops, n := c.g, c.ops, c.n
	oh, ow := g.OutHeight(), g.OutWidth()

	for s := 0; s < batch; s++ {
		for oc := 0; oc < g.OutChannels; oc++ {
			for i := 0; i < oh; i++ {
				for j := 0; j < ow; j++ {
					acc := ops.Zero()
					var v T
					for ic := 0; ic < g.InChannels; ic++ {
						for di := 0; di < g.Kernel; di++ {
							dj := 0
							for ; dj+n <= g.Kernel; dj += n {
								acc = ops.FMA(acc, ops.Load(w.View(n, oc, ic, di, dj)), ops.Load(x.View(n, s, ic, i+di, j+dj)))
							}
							for ; dj < g.Kernel; dj++ {
								v += w.At(oc, ic, di, dj) * x.At(s, ic, i+di, j+dj)
							}
						}
					}
					y.Set(ops.Reduce(acc)+v+b.At(oc), s, oc, i, j)
				}
			}
		}
	}
}

// Backward computes the weight, bias and input gradients.
func (c *Conv2DLanes[T, V, O]) Backward(gy, x, w, gw, gb, gx *tensor.Tensor[T]) {
	backend.CheckConv2D(c.g, x, w, gb, gy)
	backend.MustShape("conv2d", "gw", gw, c.g.WeightShape())
	backend.MustShape("conv2d", "gx", gx, c.g.InputShape())
	batch := gy.Batch()
	gx.SetBatch(batch)

	if c.taps {
		c.weightGradTaps(gy, x, gw, batch)
	} else {
		c.weightGradCols(gy, x, gw, batch)
	}
	c.biasGrad(gy, gb, batch)
	c.inputGrad(gy, w, gx, batch)
}

func (c *Conv2DLanes[T, V, O]) weightGradCols(gy, x, gw *tensor.Tensor[T], batch int) {
	g, ops, n := c.g, c.ops, c.n
	oh, ow := g.OutHeight(), g.OutWidth()

	for oc := 0; oc < g.OutChannels; oc++ {
		for ic := 0; ic < g.InChannels; ic++ {
			for di := 0; di < g.Kernel; di++ {
				for dj := 0; dj < g.Kernel; dj++ {
					acc := ops.Zero()
					var v T
					for s := 0; s < batch; s++ {
						for i := 0; i < oh; i++ {
							j := 0
							for ; j+n <= ow; j += n {
								acc = ops.FMA(acc, ops.Load(gy.View(n, s, oc, i, j)), ops.Load(x.View(n, s, ic, i+di, j+dj)))
							}
							for ; j < ow; j++ {
								v += gy.At(s, oc, i, j) * x.At(s, ic, i+di, j+dj)
							}
						}
					}
					gw.Set(ops.Reduce(acc)+v, oc, ic, di, dj)
				}
			}
		}
	}
}

func (c *Conv2DLanes[T, V, O]) weightGradTaps(gy, x, gw *tensor.Tensor[T], batch int) {
	g, ops, n := c.g, c.ops, c.n
	oh, ow := g.OutHeight(), g.OutWidth()

	for oc := 0; oc < g.OutChannels; oc++ {
		for ic := 0; ic < g.InChannels; ic++ {
			for di := 0; di < g.Kernel; di++ {
				dj := 0
				for ; dj+n <= g.Kernel; dj += n {
					acc := ops.Zero()
					for s := 0; s < batch; s++ {
						for i := 0; i < oh; i++ {
							for j := 0; j < ow; j++ {
								acc = ops.FMA(acc, ops.Broadcast(gy.At(s, oc, i, j)), ops.Load(x.View(n, s, ic, i+di, j+dj)))
							}
						}
					}
					ops.Store(gw.View(n, oc, ic, di, dj), acc)
				}
				for ; dj < g.Kernel; dj++ {
					gw.Set(weightTap(g, gy, x, batch, oc, ic, di, dj), oc, ic, di, dj)
				}
			}
		}
	}
}

func (c *Conv2DLanes[T, V, O]) biasGrad(gy, gb *tensor.Tensor[T], batch int) {
	g, ops, n := c.g, c.ops, c.n
	oh, ow := g.OutHeight(), g.OutWidth()

	for oc := 0; oc < g.OutChannels; oc++ {
		acc := ops.Zero()
		var v T
		for s := 0; s < batch; s++ {
			for i := 0; i < oh; i++ {
				j := 0
				for ; j+n <= ow; j += n {
					acc = ops.Add(acc, ops.Load(gy.View(n, s, oc, i, j)))
				}
				for ; j < ow; j++ {
					v += gy.At(s, oc, i, j)
				}
			}
		}
		gb.Set(ops.Reduce(acc)+v, oc)
	}
}

// inputGrad vectorizes input columns [j, j+n) only where every lane has a
// valid output column for every kernel column: j >= Kernel-1 and
// j+n <= OutWidth. Out-of-range output rows are uniform across the lanes and
// are skipped per term. The left border and the tail use the scalar
// algorithm.
func (c *Conv2DLanes[T, V, O]) inputGrad(gy, w, gx *tensor.Tensor[T], batch int) {
	g, ops, n := c.g, c.ops, c.n
	oh, ow := g.OutHeight(), g.OutWidth()
	lo := g.Kernel - 1

	for s := 0; s < batch; s++ {
		for ic := 0; ic < g.InChannels; ic++ {
			for i := 0; i < g.Height; i++ {
				j := 0
				for ; j < lo && j < g.Width; j++ {
					gx.Set(deconvPixel(g, gy, w, s, ic, i, j), s, ic, i, j)
				}
				for ; j+n <= ow; j += n {
					acc := ops.Zero()
					for oc := 0; oc < g.OutChannels; oc++ {
						for di := 0; di < g.Kernel; di++ {
							if i-di < 0 || i-di >= oh {
								continue
							}
							for dj := 0; dj < g.Kernel; dj++ {
								acc = ops.FMA(acc, ops.Broadcast(w.At(oc, ic, di, dj)), ops.Load(gy.View(n, s, oc, i-di, j-dj)))
							}
						}
					}
					ops.Store(gx.View(n, s, ic, i, j), acc)
				}
				for ; j < g.Width; j++ {
					gx.Set(deconvPixel(g, gy, w, s, ic, i, j), s, ic, i, j)
				}
			}
		}
	}
}
