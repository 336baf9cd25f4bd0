package tensor

import "fmt"

// View is a non-owning window over width physically contiguous elements of a
// tensor, the unit a lane vector is loaded from and stored to.
//
// A View is only created through Tensor.View, which checks that the window
// stays inside the contiguous run it starts in. The underlying slice has its
// capacity clipped to the window, so writes through it can never reach
// neighbouring elements. Reads and writes alias the tensor storage: a Store
// followed by At observes the stored values.
type View[T Float] struct {
	run []T
}

// Len returns the number of elements in the view.
func (v View[T]) Len() int {
	return len(v.run)
}

// Elems returns the viewed elements.
func (v View[T]) Elems() []T {
	return v.run
}

// Remaining returns how many contiguous elements are addressable from the
// given index along the contiguous axis, the element itself included.
func (t *Tensor[T]) Remaining(idx ...int) int {
	return t.shape[t.axis] - idx[t.axis]
}

// View returns a lane view of width elements anchored at the addressed
// element. Indices after the contiguous axis may be omitted and default to 0.
//
// Panics if fewer than width elements remain along the contiguous axis;
// callers handle remainders with scalar code.
func (t *Tensor[T]) View(width int, idx ...int) View[T] {
	off := t.Offset(idx...)
	if width <= 0 || width > t.Remaining(idx...) {
		panic(fmt.Sprintf("tensor: lane view of %d at %v exceeds contiguous run %d of axis %d in %v",
			width, idx, t.Remaining(idx...), t.axis, t.shape))
	}
	return View[T]{run: t.data[off : off+width : off+width]}
}
