package light

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-viewer/common"
)

// GPULightBlockSize is the byte size of GPULightBlock once marshaled.
const GPULightBlockSize = 4*16 + ShadowFaces*64

// GPULightBlock is the GPU-aligned light state shared by the lit pipelines of both backends.
// Every member is a vec4 or mat4 so the layout is identical under WGSL uniform rules and GLSL
// std140.
//
// Layout:
//
//	vec4<f32>       ambient        (rgb = color × intensity, offset 0)
//	vec4<f32>       point_position (xyz = world position, w = distance, offset 16)
//	vec4<f32>       point_color    (rgb = color × intensity, w = decay, offset 32)
//	vec4<f32>       shadow_params  (x = enabled, y = bias, z = normal bias, w = PCF texel step or 0 for one tap, offset 48)
//	mat4x4<f32>[6]  shadow_vp      (offset 64)
type GPULightBlock struct {
	Ambient       [4]float32
	PointPosition [4]float32
	PointColor    [4]float32
	ShadowParams  [4]float32
	ShadowVP      [ShadowFaces]mgl32.Mat4
}

// Marshal serializes the block into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: GPULightBlockSize bytes, little endian
func (b *GPULightBlock) Marshal() []byte {
	buf := make([]byte, GPULightBlockSize)
	off := 0
	put := func(v float32) {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
		off += 4
	}
	for _, vec := range [][4]float32{b.Ambient, b.PointPosition, b.PointColor, b.ShadowParams} {
		for _, v := range vec {
			put(v)
		}
	}
	for _, m := range b.ShadowVP {
		for _, v := range m {
			put(v)
		}
	}
	return buf
}

// ShadowEnabled reports whether the block carries an active shadow map.
func (b *GPULightBlock) ShadowEnabled() bool {
	return b.ShadowParams[0] > 0
}

// BuildLightBlock summarizes the lights of a scene into a GPULightBlock. Ambient lights are
// summed; only the first point light is shaded. Shadows are active when shadowsEnabled is set
// and the point light casts shadows.
//
// Parameters:
//   - ambients: ambient lights
//   - points: point lights
//   - shadowsEnabled: whether the renderer has shadow mapping enabled
//   - zeroToOne: clip-space depth convention of the backend
//
// Returns:
//   - GPULightBlock: the marshal-ready block
//   - *Point: the shaded point light, or nil
func BuildLightBlock(ambients []*Ambient, points []*Point, shadowsEnabled, zeroToOne bool) (GPULightBlock, *Point) {
	var b GPULightBlock
	var amb common.Color3
	for _, a := range ambients {
		amb = amb.Add(a.Radiance())
	}
	b.Ambient = [4]float32{amb[0], amb[1], amb[2], 0}
	for i := range b.ShadowVP {
		b.ShadowVP[i] = mgl32.Ident4()
	}
	if len(points) == 0 {
		return b, nil
	}

	p := points[0]
	pos := p.WorldMatrix().Col(3).Vec3()
	c := p.Color().Mul(p.Intensity())
	b.PointPosition = [4]float32{pos[0], pos[1], pos[2], p.Distance()}
	b.PointColor = [4]float32{c[0], c[1], c[2], p.Decay()}

	if shadowsEnabled && p.CastShadow() {
		s := p.Shadow()
		s.Far = ShadowFar(p)
		size := max(s.MapSize, 1)
		b.ShadowParams = [4]float32{1, s.Bias, s.NormalBias, 1 / float32(size)}
		b.ShadowVP = FaceViewProjections(pos, s, zeroToOne)
	}
	return b, p
}
