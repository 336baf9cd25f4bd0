// Package serialization saves and loads layer parameters in the SafeTensors
// format:
//
//	[8 bytes: header size (uint64 LE)]
//	[header: JSON, tensor name -> dtype, shape, data offsets]
//	[tensor data: raw little-endian bytes]
//
// Tensors are written in alphabetical order by name. The header metadata
// carries a SHA-256 checksum of the data section, verified on read.
//
// Example usage:
//
//	state := map[string]*tensor.Tensor[float32]{"conv2d.weight": w, "conv2d.bias": b}
//	if err := serialization.Save("conv.safetensors", state, nil); err != nil {
//	    log.Fatal(err)
//	}
//
//	loaded, err := serialization.Load[float32]("conv.safetensors")
package serialization
