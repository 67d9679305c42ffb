package camera

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-viewer/common"
)

// GPUCameraUniformSize is the byte size of GPUCameraUniform once marshaled.
const GPUCameraUniformSize = 80

// GPUCameraUniform is the GPU-aligned camera state at the head of the lit pipelines' Frame block.
//
// Layout:
//
//	mat4x4<f32> view_proj   (offset 0)
//	vec4<f32>   camera_pos  (xyz = eye position, w = 1, offset 64)
type GPUCameraUniform struct {
	ViewProj       [16]float32
	CameraPosition [4]float32
}

// NewGPUCameraUniform captures a camera's current matrices.
//
// Parameters:
//   - c: the camera; its matrices must be up to date
//   - zeroToOne: true to remap depth into the WebGPU clip-space convention
//
// Returns:
//   - GPUCameraUniform: the marshal-ready uniform
func NewGPUCameraUniform(c Camera, zeroToOne bool) GPUCameraUniform {
	vp := c.ViewProjectionMatrix()
	if zeroToOne {
		vp = common.ClipZeroToOne.Mul4(vp)
	}
	pos := c.Position()
	return GPUCameraUniform{
		ViewProj:       vp,
		CameraPosition: [4]float32{pos[0], pos[1], pos[2], 1},
	}
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: GPUCameraUniformSize bytes, little endian
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, GPUCameraUniformSize)
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.CameraPosition[i]))
	}
	return buf
}
