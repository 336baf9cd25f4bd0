package tensor

import "fmt"

// Tensor is a dense row-major array whose shape is fixed at construction.
//
// Only the leading ("batch") extent may change after construction, and only
// up to the size the tensor was allocated with: SetBatch reuses the backing
// storage and never reallocates.
//
// Element access is not bounds checked beyond what Go slices do; the shape
// never changes, so the caller owns the access pattern. Indices past the
// contiguous axis may be omitted and default to 0:
//
//	b := tensor.New[float32](tensor.Shape{64, 10, 1, 1})
//	b.Set(1, 3, 7)     // same element as b.Set(1, 3, 7, 0, 0)
//	v := b.View(4, 3, 4) // elements (3,4..7,0,0)
type Tensor[T Float] struct {
	maxShape Shape
	shape    Shape // current extent, shape[0] == batch
	strides  []int
	axis     int // contiguous axis, fixed by maxShape
	data     []T // backing storage sized for maxShape
}

// New allocates a zeroed tensor of the given shape. The leading dimension is
// the maximal batch extent. Panics if the shape is invalid.
func New[T Float](shape Shape) *Tensor[T] {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor: %v", err))
	}
	return &Tensor[T]{
		maxShape: shape.Clone(),
		shape:    shape.Clone(),
		strides:  shape.ComputeStrides(),
		axis:     shape.ContiguousAxis(),
		data:     make([]T, shape.NumElements()),
	}
}

// FromSlice creates a tensor holding a copy of data.
func FromSlice[T Float](data []T, shape Shape) (*Tensor[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t := New[T](shape)
	copy(t.data, data)
	return t, nil
}

// Shape returns the current shape (leading extent == Batch()).
func (t *Tensor[T]) Shape() Shape {
	return t.shape
}

// MaxShape returns the shape the tensor was allocated with.
func (t *Tensor[T]) MaxShape() Shape {
	return t.maxShape
}

// Strides returns the row-major strides of the tensor.
func (t *Tensor[T]) Strides() []int {
	return t.strides
}

// ContiguousAxis returns the axis lane views are extracted along.
func (t *Tensor[T]) ContiguousAxis() int {
	return t.axis
}

// Batch returns the current leading extent.
func (t *Tensor[T]) Batch() int {
	return t.shape[0]
}

// MaxBatch returns the leading extent the storage was sized for.
func (t *Tensor[T]) MaxBatch() int {
	return t.maxShape[0]
}

// SetBatch sets the leading extent. The backing storage is reused.
func (t *Tensor[T]) SetBatch(n int) {
	if n < 0 || n > t.maxShape[0] {
		panic(fmt.Sprintf("tensor: batch %d out of range [0, %d]", n, t.maxShape[0]))
	}
	t.shape[0] = n
}

// Len returns the number of elements in the active region.
func (t *Tensor[T]) Len() int {
	return t.shape[0] * t.strides[0]
}

// Data returns the active region of the backing storage (zero-copy).
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor[T]) Data() []T {
	return t.data[:t.Len()]
}

// DType returns the runtime element type.
func (t *Tensor[T]) DType() DataType {
	return TypeOf[T]()
}

// Offset returns the flat storage offset of the addressed element.
// Between ContiguousAxis()+1 and len(Shape()) indices are accepted.
func (t *Tensor[T]) Offset(idx ...int) int {
	if len(idx) <= t.axis || len(idx) > len(t.strides) {
		panic(fmt.Sprintf("tensor: expected %d to %d indices for shape %v, got %d",
			t.axis+1, len(t.strides), t.maxShape, len(idx)))
	}
	off := 0
	for i, v := range idx {
		off += v * t.strides[i]
	}
	return off
}

// At returns the addressed element.
func (t *Tensor[T]) At(idx ...int) T {
	return t.data[t.Offset(idx...)]
}

// Set stores v at the addressed element.
func (t *Tensor[T]) Set(v T, idx ...int) {
	t.data[t.Offset(idx...)] = v
}

// Reshape returns a tensor sharing storage with t under another shape.
//
// The element counts must match. When the leading extent is kept the result
// snapshots the current batch; call Reshape again after SetBatch on t. A
// different leading extent is only allowed while t is at its full batch, as
// for parameter tensors.
func (t *Tensor[T]) Reshape(shape Shape) *Tensor[T] {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor: reshape: %v", err))
	}
	if shape.NumElements() != t.maxShape.NumElements() {
		panic(fmt.Sprintf("tensor: cannot reshape %v to %v", t.maxShape, shape))
	}
	if shape[0] != t.maxShape[0] && t.shape[0] != t.maxShape[0] {
		panic(fmt.Sprintf("tensor: cannot reshape %v at batch %d to %v", t.maxShape, t.shape[0], shape))
	}
	r := &Tensor[T]{
		maxShape: shape.Clone(),
		shape:    shape.Clone(),
		strides:  shape.ComputeStrides(),
		axis:     shape.ContiguousAxis(),
		data:     t.data,
	}
	if shape[0] == t.maxShape[0] {
		r.shape[0] = t.shape[0]
	}
	return r
}

// String returns a human-readable description of the tensor.
func (t *Tensor[T]) String() string {
	return fmt.Sprintf("Tensor[%s]%v (max %v)", t.DType(), t.shape, t.maxShape)
}
