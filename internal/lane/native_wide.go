//go:build lanes16

package lane

import "github.com/born-ml/simdnn/internal/tensor"

// Width is the lane count of the target compiled into this binary.
const Width = 16

// TargetName names the compiled target.
const TargetName = "wide"

// Native is the compiled lane target.
type Native[T tensor.Float] = X16[T]

// NativeVec is the vector type of Native.
type NativeVec[T tensor.Float] = Vec16[T]

// Other is the target not selected for this binary.
type Other[T tensor.Float] = X4[T]

// OtherVec is the vector type of Other.
type OtherVec[T tensor.Float] = Vec4[T]
