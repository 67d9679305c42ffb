package renderer

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/camera"
	"github.com/Carmen-Shannon/oxy-viewer/engine/light"
	"github.com/Carmen-Shannon/oxy-viewer/engine/material"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

const (
	// FrameBlockSize is the byte size of the lit pipelines' Frame uniform block.
	FrameBlockSize = camera.GPUCameraUniformSize + 3*16 + 9*16 + 16

	// ObjectBlockSize is the byte size of the per-mesh Object uniform block.
	ObjectBlockSize = 2*64 + 3*16

	// SkyBlockSize is the byte size of the sky pipeline's uniform block.
	SkyBlockSize = 2*64 + 16

	// OverlayBlockSize is the byte size of the overlay pipeline's uniform block.
	OverlayBlockSize = 16
)

// frameBlock is the per-frame state shared by every lit draw. All members are vec4 or mat4 so the
// layout is identical under WGSL uniform rules and GLSL std140.
//
// Layout:
//
//	GPUCameraUniform   camera     (offset 0)
//	vec4<f32>          fog_color  (rgb, w = enabled, offset 80)
//	vec4<f32>          fog_range  (x = near, y = far, offset 96)
//	vec4<f32>          tone       (x = ACES, y = exposure, z = encode sRGB in shader, offset 112)
//	vec4<f32>[9]       sh         (offset 128)
//	vec4<f32>          env        (x = intensity, offset 272)
type frameBlock struct {
	Camera   camera.GPUCameraUniform
	FogColor [4]float32
	FogRange [4]float32
	Tone     [4]float32
	SH       [9][4]float32
	Env      [4]float32
}

// buildFrameBlock gathers the global render state of a scene.
//
// Parameters:
//   - sc: the scene
//   - cam: the camera
//   - zeroToOne: clip-space depth convention of the backend
//   - encodeSRGB: true when the color target is linear and the shader must gamma-encode
//
// Returns:
//   - frameBlock: the marshal-ready block
func buildFrameBlock(sc scene.Scene, cam camera.Camera, zeroToOne, encodeSRGB bool) frameBlock {
	f := frameBlock{Camera: camera.NewGPUCameraUniform(cam, zeroToOne)}
	if fog := sc.Fog(); fog != nil {
		f.FogColor = [4]float32{fog.Color[0], fog.Color[1], fog.Color[2], 1}
		f.FogRange = [4]float32{fog.Near, fog.Far, 0, 0}
	}
	f.Tone = toneParams(sc, encodeSRGB)
	if env := sc.Environment(); env != nil {
		for i, c := range env.Irradiance {
			f.SH[i] = [4]float32{c[0], c[1], c[2], 0}
		}
		f.Env[0] = env.Intensity
	}
	return f
}

func toneParams(sc scene.Scene, encodeSRGB bool) [4]float32 {
	var t [4]float32
	if sc.ToneMapping() == scene.ToneMappingACES {
		t[0] = 1
	}
	t[1] = sc.Exposure()
	if t[1] <= 0 {
		t[1] = 1
	}
	if encodeSRGB {
		t[2] = 1
	}
	return t
}

// Marshal serializes the block into FrameBlockSize bytes.
func (f *frameBlock) Marshal() []byte {
	w := newBlockWriter(FrameBlockSize)
	w.bytes(f.Camera.Marshal())
	w.vec4(f.FogColor)
	w.vec4(f.FogRange)
	w.vec4(f.Tone)
	for _, c := range f.SH {
		w.vec4(c)
	}
	w.vec4(f.Env)
	return w.buf
}

// objectBlock is the per-mesh uniform block of the lit pipelines.
//
// Layout:
//
//	mat4x4<f32> model     (offset 0)
//	mat4x4<f32> normal    (offset 64)
//	vec4<f32>   color     (rgb, a = opacity, offset 128)
//	vec4<f32>   emissive  (rgb × intensity, offset 144)
//	vec4<f32>   params    (x = metalness, y = roughness, z = receives shadow, offset 160)
type objectBlock struct {
	Model    mgl32.Mat4
	Normal   mgl32.Mat4
	Color    [4]float32
	Emissive [4]float32
	Params   [4]float32
}

// buildObjectBlock captures a mesh's transform and, for standard materials, its surface
// parameters. Shader materials only contribute the transform.
func buildObjectBlock(m *scene.Mesh, world mgl32.Mat4, shadowsEnabled bool) objectBlock {
	b := objectBlock{
		Model:  world,
		Normal: common.NormalMatrix(world),
		Color:  [4]float32{1, 1, 1, 1},
		Params: [4]float32{0, 1, 0, 0},
	}
	if std, ok := m.Material().(*material.Standard); ok {
		c := std.Color()
		b.Color = [4]float32{c[0], c[1], c[2], std.Opacity()}
		e := std.Emissive().Mul(std.EmissiveIntensity())
		b.Emissive = [4]float32{e[0], e[1], e[2], 0}
		b.Params[0] = std.Metalness()
		b.Params[1] = std.Roughness()
	}
	if shadowsEnabled && m.ReceiveShadow() {
		b.Params[2] = 1
	}
	return b
}

// Marshal serializes the block into ObjectBlockSize bytes.
func (o *objectBlock) Marshal() []byte {
	w := newBlockWriter(ObjectBlockSize)
	w.mat4(o.Model)
	w.mat4(o.Normal)
	w.vec4(o.Color)
	w.vec4(o.Emissive)
	w.vec4(o.Params)
	return w.buf
}

// skyBlock is the uniform block of the sky pipeline.
type skyBlock struct {
	ProjInv mgl32.Mat4
	View    mgl32.Mat4
	Tone    [4]float32
}

func buildSkyBlock(sc scene.Scene, cam camera.Camera, zeroToOne, encodeSRGB bool) skyBlock {
	proj := cam.ProjectionMatrix()
	if zeroToOne {
		proj = common.ClipZeroToOne.Mul4(proj)
	}
	return skyBlock{
		ProjInv: proj.Inv(),
		View:    cam.ViewMatrix(),
		Tone:    toneParams(sc, encodeSRGB),
	}
}

// Marshal serializes the block into SkyBlockSize bytes.
func (s *skyBlock) Marshal() []byte {
	w := newBlockWriter(SkyBlockSize)
	w.mat4(s.ProjInv)
	w.mat4(s.View)
	w.vec4(s.Tone)
	return w.buf
}

// blockWriter appends little-endian float32 values to a fixed-size buffer.
type blockWriter struct {
	buf []byte
	off int
}

func newBlockWriter(size int) *blockWriter {
	return &blockWriter{buf: make([]byte, size)}
}

func (w *blockWriter) f32(v float32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], math.Float32bits(v))
	w.off += 4
}

func (w *blockWriter) vec4(v [4]float32) {
	for _, f := range v {
		w.f32(f)
	}
}

func (w *blockWriter) mat4(m mgl32.Mat4) {
	for _, f := range m {
		w.f32(f)
	}
}

func (w *blockWriter) bytes(b []byte) {
	w.off += copy(w.buf[w.off:], b)
}

// drawItem is one visible mesh with its world transform.
type drawItem struct {
	mesh  *scene.Mesh
	world mgl32.Mat4
}

// collectDraws walks the visible part of the graph. Meshes outside the frustum are dropped from
// the color list but kept as shadow casters, since they may still shadow visible receivers.
//
// Parameters:
//   - root: the scene root
//   - frustum: the camera frustum, or nil to keep every mesh
//
// Returns:
//   - []drawItem: meshes to shade
//   - []drawItem: meshes that cast shadows
func collectDraws(root scene.Node, frustum *common.Frustum) (color, casters []drawItem) {
	var walk func(n scene.Node)
	walk = func(n scene.Node) {
		if !n.Visible() {
			return
		}
		if m, ok := n.(*scene.Mesh); ok && m.Geometry() != nil && m.Material() != nil && m.Geometry().VertexCount() > 0 {
			item := drawItem{mesh: m, world: m.WorldMatrix()}
			if m.CastShadow() {
				casters = append(casters, item)
			}
			if frustum == nil || m.InFrustum(*frustum) {
				color = append(color, item)
			}
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(root)
	return color, casters
}

// sortForBlending orders opaque draws first and translucent standard materials last, keeping the
// traversal order otherwise.
func sortForBlending(items []drawItem) []drawItem {
	out := make([]drawItem, 0, len(items))
	var translucent []drawItem
	for _, it := range items {
		if std, ok := it.mesh.Material().(*material.Standard); ok && std.Opacity() < 1 {
			translucent = append(translucent, it)
			continue
		}
		out = append(out, it)
	}
	return append(out, translucent...)
}

// buildLightBlock summarizes the scene's lights for the lit pass. ShadowPCF collapses the filter
// kernel to a single comparison by zeroing the texel step.
func buildLightBlock(sc scene.Scene, shadowsOn, zeroToOne bool, cfg ShadowConfig) (light.GPULightBlock, *light.Point) {
	ambients, points := light.Collect(sc.Root())
	b, p := light.BuildLightBlock(ambients, points, shadowsOn, zeroToOne)
	if b.ShadowEnabled() && cfg.Type == ShadowPCF {
		b.ShadowParams[3] = 0
	}
	return b, p
}
