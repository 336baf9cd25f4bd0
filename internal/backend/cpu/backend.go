// Package cpu implements the Conv2D and Linear kernels on the CPU: a scalar
// baseline and lane-vectorized variants generic over a lane.Ops target.
//
// Kernels are stateless apart from their geometry; tensors are passed on
// every call. A kernel value may be shared by layers with the same geometry
// but a single call must not run concurrently with another call writing the
// same tensors.
package cpu
