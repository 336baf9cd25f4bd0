//go:build windows && webgpu

package webgpu

import (
	"fmt"

	"github.com/born-ml/simdnn/internal/backend"
	"github.com/born-ml/simdnn/internal/tensor"
)

// Conv2D runs the convolution passes on the GPU.
type Conv2D struct {
	dev *Device
	g   backend.Conv2DGeometry
}

// NewConv2D opens the shared device and returns a convolution kernel for g.
func NewConv2D(g backend.Conv2DGeometry) (backend.Conv2DKernel[float32], error) {
	if err := checkDispatch("conv2d",
		g.OutputShape().NumElements(),
		g.InputShape().NumElements(),
		g.WeightShape().NumElements(),
	); err != nil {
		return nil, err
	}
	dev, err := Shared()
	if err != nil {
		return nil, err
	}
	return &Conv2D{dev: dev, g: g}, nil
}

// Name returns "webgpu".
func (c *Conv2D) Name() string { return "webgpu" }

//nolint:gosec // G115: geometry extents are validated positive
func (c *Conv2D) params(batch int) []uint32 {
	g := c.g
	return []uint32{
		uint32(batch), uint32(g.InChannels), uint32(g.Height), uint32(g.Width),
		uint32(g.Kernel), uint32(g.OutChannels),
	}
}

// Forward computes the convolution output. Panics if the GPU fails.
func (c *Conv2D) Forward(x, w, b, y *tensor.Tensor[float32]) {
	backend.CheckConv2D(c.g, x, w, b, y)
	batch := x.Batch()
	y.SetBatch(batch)
	must("conv2d forward", c.dev.dispatch("conv2d_forward", conv2dForwardShader,
		c.params(batch), y.Data(), x.Data(), w.Data(), b.Data()))
}

// Backward computes the weight, bias and input gradients. Panics if the GPU
// fails.
func (c *Conv2D) Backward(gy, x, w, gw, gb, gx *tensor.Tensor[float32]) {
	backend.CheckConv2D(c.g, x, w, gb, gy)
	backend.MustShape("conv2d", "gw", gw, c.g.WeightShape())
	backend.MustShape("conv2d", "gx", gx, c.g.InputShape())
	batch := gy.Batch()
	gx.SetBatch(batch)
	params := c.params(batch)

	if batch == 0 {
		gw.Zero()
		gb.Zero()
		return
	}
	must("conv2d weight grad", c.dev.dispatch("conv2d_gw", conv2dWeightGradShader,
		params, gw.Data(), gy.Data(), x.Data()))
	must("conv2d bias grad", c.dev.dispatch("conv2d_gb", conv2dBiasGradShader,
		params, gb.Data(), gy.Data()))
	must("conv2d input grad", c.dev.dispatch("conv2d_gx", conv2dInputGradShader,
		params, gx.Data(), gy.Data(), w.Data()))
}

func must(op string, err error) {
	if err != nil {
		panic(fmt.Sprintf("webgpu: %s: %v", op, err))
	}
}
