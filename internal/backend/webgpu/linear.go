//go:build windows && webgpu

package webgpu

import (
	"github.com/born-ml/simdnn/internal/backend"
	"github.com/born-ml/simdnn/internal/tensor"
)

// Linear runs the dense layer passes on the GPU. Storage is row-major, so
// the input features are flattened without copying.
type Linear struct {
	dev *Device
	g   backend.LinearGeometry
}

// NewLinear opens the shared device and returns a dense kernel for g.
func NewLinear(g backend.LinearGeometry) (backend.LinearKernel[float32], error) {
	if err := checkDispatch("linear",
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
	return &Linear{dev: dev, g: g}, nil
}

// Name returns "webgpu".
func (l *Linear) Name() string { return "webgpu" }

//nolint:gosec // G115: geometry extents are validated positive
func (l *Linear) params(batch int) []uint32 {
	return []uint32{uint32(batch), uint32(l.g.Features()), uint32(l.g.Out)}
}

// Forward computes the dense layer output. Panics if the GPU fails.
func (l *Linear) Forward(x, w, b, y *tensor.Tensor[float32]) {
	backend.CheckLinear(l.g, x, w, b, y)
	batch := x.Batch()
	y.SetBatch(batch)
	must("linear forward", l.dev.dispatch("linear_forward", linearForwardShader,
		l.params(batch), y.Data(), x.Data(), w.Data(), b.Data()))
}

// Backward computes the weight, bias and input gradients. Panics if the GPU
// fails.
func (l *Linear) Backward(gy, x, w, gw, gb, gx *tensor.Tensor[float32]) {
	backend.CheckLinear(l.g, x, w, gb, gy)
	backend.MustShape("linear", "gw", gw, l.g.WeightShape())
	backend.MustShape("linear", "gx", gx, l.g.InputShape())
	batch := gy.Batch()
	gx.SetBatch(batch)
	params := l.params(batch)

	if batch == 0 {
		gw.Zero()
		gb.Zero()
		return
	}
	must("linear weight grad", l.dev.dispatch("linear_gw", linearWeightGradShader,
		params, gw.Data(), gy.Data(), x.Data()))
	must("linear bias grad", l.dev.dispatch("linear_gb", linearBiasGradShader,
		params, gb.Data(), gy.Data()))
	must("linear input grad", l.dev.dispatch("linear_gx", linearInputGradShader,
		params, gx.Data(), gy.Data(), w.Data()))
}
