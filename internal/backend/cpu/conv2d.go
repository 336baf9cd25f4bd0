package cpu

import (
	"github.com/born-ml/simdnn/internal/backend"
	"github.com/born-ml/simdnn/internal/tensor"
)

// Conv2D is the scalar reference convolution. Every other implementation is
// measured against it.
type Conv2D[T tensor.Float] struct {
	g backend.Conv2DGeometry
}

// NewConv2D creates the scalar convolution kernel for g.
func NewConv2D[T tensor.Float](g backend.Conv2DGeometry) *Conv2D[T] {
	return &Conv2D[T]{g: g}
}

// Name returns "baseline".
func (c *Conv2D[T]) Name() string { return "baseline" }

// Forward computes y(s,oc,i,j) = sum over ic,di,dj of w(oc,ic,di,dj)*x(s,ic,i+di,j+dj), plus b(oc).
func (c *Conv2D[T]) Forward(x, w, b, y *tensor.Tensor[T]) {
	backend.CheckConv2D(c.g, x, w, b, y)
	batch := x.Batch()
	y.SetBatch(batch)
	oh, ow := c.g.OutHeight(), c.g.OutWidth()

	for s := 0; s < batch; s++ {
		for oc := 0; oc < c.g.OutChannels; oc++ {
			for i := 0; i < oh; i++ {
				for j := 0; j < ow; j++ {
					y.Set(convPixel(c.g, x, w, b, s, oc, i, j), s, oc, i, j)
				}
			}
		}
	}
}

// convPixel computes a single output pixel with the scalar algorithm. The
// lane kernels use it for remainder columns so those match the baseline
// exactly.
func convPixel[T tensor.Float](g backend.Conv2DGeometry, x, w, b *tensor.Tensor[T], s, oc, i, j int) T {
	var v T
	for ic := 0; ic < g.InChannels; ic++ {
		for di := 0; di < g.Kernel; di++ {
			for dj := 0; dj < g.Kernel; dj++ {
				v += w.At(oc, ic, di, dj) * x.At(s, ic, i+di, j+dj)
			}
		}
	}
	return v + b.At(oc)
}

// Backward computes the weight, bias and input gradients.
func (c *Conv2D[T]) Backward(gy, x, w, gw, gb, gx *tensor.Tensor[T]) {
	backend.CheckConv2D(c.g, x, w, gb, gy)
	backend.MustShape("conv2d", "gw", gw, c.g.WeightShape())
	backend.MustShape("conv2d", "gx", gx, c.g.InputShape())
	batch := gy.Batch()
	gx.SetBatch(batch)
	g := c.g
	oh, ow := g.OutHeight(), g.OutWidth()

	for oc := 0; oc < g.OutChannels; oc++ {
		for ic := 0; ic < g.InChannels; ic++ {
			for di := 0; di < g.Kernel; di++ {
				for dj := 0; dj < g.Kernel; dj++ {
					gw.Set(weightTap(g, gy, x, batch, oc, ic, di, dj), oc, ic, di, dj)
				}
			}
		}
	}

	for oc := 0; oc < g.OutChannels; oc++ {
		var v T
		for s := 0; s < batch; s++ {
			for i := 0; i < oh; i++ {
				for j := 0; j < ow; j++ {
					v += gy.At(s, oc, i, j)
				}
			}
		}
		gb.Set(v, oc)
	}

	for s := 0; s < batch; s++ {
		for ic := 0; ic < g.InChannels; ic++ {
			for i := 0; i < g.Height; i++ {
				for j := 0; j < g.Width; j++ {
					gx.Set(deconvPixel(g, gy, w, s, ic, i, j), s, ic, i, j)
				}
			}
		}
	}
}

// weightTap computes gw(oc,ic,di,dj) with the scalar algorithm.
func weightTap[T tensor.Float](g backend.Conv2DGeometry, gy, x *tensor.Tensor[T], batch, oc, ic, di, dj int) T {
	oh, ow := g.OutHeight(), g.OutWidth()
	var v T
	for s := 0; s < batch; s++ {
		for i := 0; i < oh; i++ {
			for j := 0; j < ow; j++ {
				v += gy.At(s, oc, i, j) * x.At(s, ic, i+di, j+dj)
			}
		}
	}
	return v
}

// deconvPixel computes gx(s,ic,i,j). Terms whose shifted position falls
// outside the output contribute nothing.
func deconvPixel[T tensor.Float](g backend.Conv2DGeometry, gy, w *tensor.Tensor[T], s, ic, i, j int) T {
	oh, ow := g.OutHeight(), g.OutWidth()
	var v T
	for oc := 0; oc < g.OutChannels; oc++ {
		for di := 0; di < g.Kernel; di++ {
			for dj := 0; dj < g.Kernel; dj++ {
				if 0 <= i-di && i-di < oh && 0 <= j-dj && j-dj < ow {
					v += gy.At(s, oc, i-di, j-dj) * w.At(oc, ic, di, dj)
				}
			}
		}
	}
	return v
}
