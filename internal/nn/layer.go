package nn

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/born-ml/simdnn/internal/serialization"
	"github.com/born-ml/simdnn/internal/tensor"
)

// kernel is the pass pair shared by the convolution and dense kernels.
type kernel[T tensor.Float] interface {
	Forward(x, w, b, y *tensor.Tensor[T])
	Backward(gy, x, w, gw, gb, gx *tensor.Tensor[T])
	Name() string
}

// layer holds what Conv2D and Linear have in common: the parameters, the
// output and input-gradient tensors it owns, and the input of the most
// recent Forward, which it does not own.
type layer[T tensor.Float] struct {
	op       string
	algo     Algo
	kernel   kernel[T]
	weight   *Parameter[T]
	bias     *Parameter[T]
	inShape  tensor.Shape
	outShape tensor.Shape
	y        *tensor.Tensor[T]
	gx       *tensor.Tensor[T]
	x        *tensor.Tensor[T]
	training bool
	log      *slog.Logger
}

type layerShapes struct {
	in, weight, bias, out tensor.Shape
	fanIn                 int
}

func newLayer[T tensor.Float](op string, k kernel[T], s layerShapes, opts Options) (*layer[T], error) {
	w, err := newParameter[T](op+".weight", s.weight, opts.Optimizer)
	if err != nil {
		return nil, fmt.Errorf("%s: weight optimizer: %w", op, err)
	}
	b, err := newParameter[T](op+".bias", s.bias, opts.Optimizer)
	if err != nil {
		return nil, fmt.Errorf("%s: bias optimizer: %w", op, err)
	}
	rng := opts.rand()
	initUniform(rng, w.value, s.fanIn)
	initUniform(rng, b.value, s.fanIn)

	return &layer[T]{
		op:       op,
		algo:     opts.Algo,
		kernel:   k,
		weight:   w,
		bias:     b,
		inShape:  s.in.Clone(),
		outShape: s.out.Clone(),
		y:        tensor.New[T](s.out),
		gx:       tensor.New[T](s.in),
		log:      opts.logger().With("layer", op, "algo", opts.Algo.String(), "kernel", k.Name()),
	}, nil
}

// Forward computes the output for x and remembers x for Backward. The
// returned tensor is owned by the layer and overwritten by the next call.
// Panics if x was not allocated with the layer's input shape.
func (l *layer[T]) Forward(x *tensor.Tensor[T], training bool) *tensor.Tensor[T] {
	if !x.MaxShape().Equal(l.inShape) {
		panic(fmt.Sprintf("%s: input must be %v, got %v", l.op, l.inShape, x.MaxShape()))
	}
	start := time.Now()
	l.log.Debug("forward: start", "batch", x.Batch(), "training", training)

	l.x = x
	l.training = training
	l.kernel.Forward(x, l.weight.value, l.bias.value, l.y)

	l.log.Debug("forward: end", "elapsed", time.Since(start))
	return l.y
}

// Backward computes the weight, bias and input gradients from gy and the
// input of the most recent Forward. Panics if Forward was never called.
func (l *layer[T]) Backward(gy *tensor.Tensor[T]) *tensor.Tensor[T] {
	if l.x == nil {
		panic(l.op + ": Backward called before Forward")
	}
	if !gy.MaxShape().Equal(l.outShape) {
		panic(fmt.Sprintf("%s: output gradient must be %v, got %v", l.op, l.outShape, gy.MaxShape()))
	}
	if gy.Batch() != l.x.Batch() {
		panic(fmt.Sprintf("%s: output gradient batch %d, input batch %d", l.op, gy.Batch(), l.x.Batch()))
	}
	start := time.Now()
	l.log.Debug("backward: start", "batch", gy.Batch())

	l.kernel.Backward(gy, l.x, l.weight.value, l.weight.grad, l.bias.grad, l.gx)

	l.log.Debug("backward: end", "elapsed", time.Since(start))
	return l.gx
}

// Update applies the optimizer to the weight and bias.
func (l *layer[T]) Update() {
	start := time.Now()
	l.weight.Update()
	l.bias.Update()
	l.log.Debug("update", "elapsed", time.Since(start))
}

// Weight returns the weight parameter.
func (l *layer[T]) Weight() *Parameter[T] { return l.weight }

// Bias returns the bias parameter.
func (l *layer[T]) Bias() *Parameter[T] { return l.bias }

// WeightGrad returns the weight gradient of the last Backward.
func (l *layer[T]) WeightGrad() *tensor.Tensor[T] { return l.weight.grad }

// BiasGrad returns the bias gradient of the last Backward.
func (l *layer[T]) BiasGrad() *tensor.Tensor[T] { return l.bias.grad }

// Output returns the output tensor of the last Forward.
func (l *layer[T]) Output() *tensor.Tensor[T] { return l.y }

// InputGrad returns the input gradient of the last Backward.
func (l *layer[T]) InputGrad() *tensor.Tensor[T] { return l.gx }

// Algo returns the selected implementation.
func (l *layer[T]) Algo() Algo { return l.algo }

// KernelName names the kernel actually running, e.g. "lanes4/cols".
func (l *layer[T]) KernelName() string { return l.kernel.Name() }

// Training reports the flag passed to the last Forward.
func (l *layer[T]) Training() bool { return l.training }

// Parameters returns the weight and bias.
func (l *layer[T]) Parameters() []*Parameter[T] {
	return []*Parameter[T]{l.weight, l.bias}
}

// RandGrad sets every gradient component to a value drawn from U(p, q).
func (l *layer[T]) RandGrad(rng *rand.Rand, p, q T) {
	l.weight.grad.InitUniform(rng, p, q)
	l.bias.grad.InitUniform(rng, p, q)
}

// AddGrad performs w += alpha*gw and b += alpha*gb.
func (l *layer[T]) AddGrad(alpha T) {
	l.weight.value.AddScaled(alpha, l.weight.grad)
	l.bias.value.AddScaled(alpha, l.bias.grad)
}

func (l *layer[T]) copyGrad(o *layer[T]) {
	l.weight.grad.CopyFrom(o.weight.grad)
	l.bias.grad.CopyFrom(o.bias.grad)
}

func (l *layer[T]) copyParams(o *layer[T]) {
	l.weight.value.CopyFrom(o.weight.value)
	l.bias.value.CopyFrom(o.bias.value)
}

func (l *layer[T]) gradDot(o *layer[T]) float64 {
	return l.weight.grad.Dot(o.weight.grad) + l.bias.grad.Dot(o.bias.grad)
}

// StateDict returns the weight and bias keyed by parameter name. The tensors
// are the layer's own, not copies.
func (l *layer[T]) StateDict() map[string]*tensor.Tensor[T] {
	return map[string]*tensor.Tensor[T]{
		l.weight.name: l.weight.value,
		l.bias.name:   l.bias.value,
	}
}

// LoadStateDict copies the weight and bias from state. Returns an error,
// leaving the parameters unchanged, if either is missing or has the wrong
// shape.
func (l *layer[T]) LoadStateDict(state map[string]*tensor.Tensor[T]) error {
	for _, p := range l.Parameters() {
		t, ok := state[p.name]
		if !ok {
			return fmt.Errorf("%s: %w: %s", l.op, serialization.ErrMissingTensor, p.name)
		}
		if !t.Shape().Equal(p.value.MaxShape()) {
			return fmt.Errorf("%s: %w: %s is %v, want %v", l.op, serialization.ErrShapeMismatch, p.name, t.Shape(), p.value.MaxShape())
		}
	}
	for _, p := range l.Parameters() {
		p.value.CopyFrom(state[p.name])
	}
	return nil
}

// Save writes the weight and bias to a SafeTensors file.
func (l *layer[T]) Save(path string) error {
	meta := map[string]string{
		"layer":  l.op,
		"algo":   l.algo.String(),
		"kernel": l.kernel.Name(),
	}
	if err := serialization.Save(path, l.StateDict(), meta); err != nil {
		return fmt.Errorf("%s: save: %w", l.op, err)
	}
	l.log.Debug("saved parameters", "path", path)
	return nil
}

// Load reads the weight and bias from a file written by Save. The file may
// come from a layer with a different algorithm.
func (l *layer[T]) Load(path string) error {
	state, _, err := serialization.Load[T](path)
	if err != nil {
		return fmt.Errorf("%s: load: %w", l.op, err)
	}
	if err := l.LoadStateDict(state); err != nil {
		return err
	}
	l.log.Debug("loaded parameters", "path", path)
	return nil
}
