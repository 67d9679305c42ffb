package common

import (
	"cmp"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// ClipZeroToOne remaps OpenGL clip-space depth [-1, 1] to the WebGPU convention [0, 1].
// Pre-multiply a projection built with mgl32.Perspective/Ortho by this matrix for the wgpu backend.
var ClipZeroToOne = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)*len(data))
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}

// ComposeTRS builds a model matrix from translation, rotation and scale in T * R * S order.
//
// Parameters:
//   - t: translation
//   - r: rotation quaternion
//   - s: scale
//
// Returns:
//   - mgl32.Mat4: the composed matrix
func ComposeTRS(t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(r.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// NormalMatrix returns the inverse transpose of the upper 3x3 of m, widened back to a Mat4
// so it can be uploaded with 16-byte column alignment.
//
// Parameters:
//   - m: model matrix
//
// Returns:
//   - mgl32.Mat4: the normal matrix, or identity when m is singular
func NormalMatrix(m mgl32.Mat4) mgl32.Mat4 {
	m3 := m.Mat3()
	if math.Abs(float64(m3.Det())) < 1e-12 {
		return mgl32.Ident4()
	}
	return m3.Inv().Transpose().Mat4()
}

// Clamp limits v to the closed range [lo, hi].
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	return max(lo, min(v, hi))
}

// Color3 is a linear RGB color with components nominally in [0, 1].
type Color3 = mgl32.Vec3

// Hex converts a 0xRRGGBB integer to a Color3.
func Hex(rgb uint32) Color3 {
	return Color3{
		float32((rgb>>16)&0xFF) / 255,
		float32((rgb>>8)&0xFF) / 255,
		float32(rgb&0xFF) / 255,
	}
}

// LinearToSRGB gamma-encodes a linear channel value with the same 1/2.2 curve the shaders use.
func LinearToSRGB(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Pow(v, 1/2.2)
}
