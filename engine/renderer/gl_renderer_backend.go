package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/camera"
	"github.com/Carmen-Shannon/oxy-viewer/engine/geometry"
	"github.com/Carmen-Shannon/oxy-viewer/engine/light"
	"github.com/Carmen-Shannon/oxy-viewer/engine/material"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

// Uniform block binding points shared by the lit programs.
const (
	glFrameBinding  = 0
	glLightsBinding = 1
	glObjectBinding = 2
)

// Texture units.
const (
	glBaseMapUnit = 0
	glShadowUnit  = 1
	glSkyUnit     = 2
	glOverlayUnit = 3
)

// glMesh is a geometry uploaded into a vertex array object.
type glMesh struct {
	vao, vbo, ebo uint32
	count         int32
	used          uint64
}

func (m *glMesh) release() {
	gl.DeleteVertexArrays(1, &m.vao)
	gl.DeleteBuffers(1, &m.vbo)
	gl.DeleteBuffers(1, &m.ebo)
}

type glTexture struct {
	id   uint32
	used uint64
}

// glRenderer is the OpenGL 4.1 core implementation of Renderer.
type glRenderer struct {
	logger  *zap.Logger
	surface Surface
	msaa    bool

	width, height int
	pixelRatio    float64

	lit, shadow, sky, overlay *glProgram
	frameUBO, lightsUBO       uint32
	objectUBO                 uint32
	emptyVAO                  uint32

	shadowsOn  bool
	shadowCfg  ShadowConfig
	shadowFBO  uint32
	shadowTex  uint32
	shadowSize int

	white      uint32
	textures   map[*common.TextureStagingData]*glTexture
	meshes     map[*geometry.Geometry]*glMesh
	custom     map[uint64]*glProgram
	customErr  map[uint64]error
	frameCount uint64

	skyCube *scene.CubeTexture
	skyTex  uint32

	overlayMu      sync.Mutex
	overlayPending *common.TextureStagingData
	overlayDirty   bool
	overlayImage   *common.TextureStagingData
	overlayTex     uint32

	closed bool
}

var _ Renderer = &glRenderer{}

// NewGLRenderer creates an OpenGL renderer on a surface whose OpenGL context has already been
// created (see Surface.UseOpenGL). The context is made current on the calling thread.
//
// Parameters:
//   - surface: the drawing target
//   - cfg: present mode, MSAA and logger
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if the GL functions cannot be loaded or a built-in program fails to link
func NewGLRenderer(surface Surface, cfg BackendConfig) (Renderer, error) {
	runtime.LockOSThread()

	r := &glRenderer{
		logger:     cfg.Logger,
		surface:    surface,
		msaa:       cfg.MSAA > MSAAOff,
		pixelRatio: 1,
		textures:   make(map[*common.TextureStagingData]*glTexture),
		meshes:     make(map[*geometry.Geometry]*glMesh),
		custom:     make(map[uint64]*glProgram),
		customErr:  make(map[uint64]error),
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}

	surface.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gl: init: %w", err)
	}
	if cfg.PresentMode == PresentModeVSync {
		surface.SwapInterval(1)
	} else {
		surface.SwapInterval(0)
	}

	if err := r.init(); err != nil {
		r.Close()
		return nil, err
	}
	r.width, r.height = surface.Width(), surface.Height()
	r.logger.Debug("gl renderer created",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)
	return r, nil
}

func (r *glRenderer) init() error {
	var err error
	if r.lit, err = loadGLProgram(shader.GLSLLit); err != nil {
		return err
	}
	r.lit.bindBlock("Frame", glFrameBinding)
	r.lit.bindBlock("Lights", glLightsBinding)
	r.lit.bindBlock("Object", glObjectBinding)
	r.lit.bindSampler("u_base_map", glBaseMapUnit)
	r.lit.bindSampler("u_shadow_map", glShadowUnit)

	if r.shadow, err = loadGLProgram(shader.GLSLShadow); err != nil {
		return err
	}
	if r.sky, err = loadGLProgram(shader.GLSLSky); err != nil {
		return err
	}
	r.sky.bindSampler("u_sky", glSkyUnit)
	if r.overlay, err = loadGLProgram(shader.GLSLOverlay); err != nil {
		return err
	}
	r.overlay.bindSampler("u_overlay", glOverlayUnit)

	r.frameUBO = newUniformBuffer(FrameBlockSize, glFrameBinding)
	r.lightsUBO = newUniformBuffer(light.GPULightBlockSize, glLightsBinding)
	r.objectUBO = newUniformBuffer(ObjectBlockSize, glObjectBinding)
	gl.GenVertexArrays(1, &r.emptyVAO)

	r.white = uploadGLTexture(&common.TextureStagingData{Pixels: []byte{0xFF, 0xFF, 0xFF, 0xFF}, Width: 1, Height: 1}, gl.SRGB8_ALPHA8)
	if err := r.ensureShadowMap(1); err != nil {
		return err
	}

	gl.Enable(gl.TEXTURE_CUBE_MAP_SEAMLESS)
	if r.msaa {
		gl.Enable(gl.MULTISAMPLE)
	}
	return nil
}

func newUniformBuffer(size int, binding uint32) uint32 {
	var ubo uint32
	gl.GenBuffers(1, &ubo)
	gl.BindBuffer(gl.UNIFORM_BUFFER, ubo)
	gl.BufferData(gl.UNIFORM_BUFFER, size, nil, gl.DYNAMIC_DRAW)
	gl.BindBufferBase(gl.UNIFORM_BUFFER, binding, ubo)
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	return ubo
}

func writeUniformBuffer(ubo uint32, data []byte) {
	gl.BindBuffer(gl.UNIFORM_BUFFER, ubo)
	gl.BufferSubData(gl.UNIFORM_BUFFER, 0, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
}

// uploadGLTexture creates a mipmapped, repeating 2D texture from RGBA staging data.
func uploadGLTexture(data *common.TextureStagingData, internalFormat int32) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internalFormat, int32(data.Width), int32(data.Height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(data.Pixels))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex
}

func validStaging(data *common.TextureStagingData) bool {
	return data.Width > 0 && data.Height > 0 && len(data.Pixels) >= int(data.Width*data.Height*4)
}

// ensureShadowMap (re)creates the depth array and its framebuffer at the given size. The
// texture compares against the reference depth so the lit program samples it through a
// sampler2DArrayShadow.
func (r *glRenderer) ensureShadowMap(size int) error {
	if r.shadowTex != 0 && r.shadowSize == size {
		return nil
	}
	if r.shadowTex != 0 {
		gl.DeleteTextures(1, &r.shadowTex)
	}
	if r.shadowFBO == 0 {
		gl.GenFramebuffers(1, &r.shadowFBO)
	}

	gl.GenTextures(1, &r.shadowTex)
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, r.shadowTex)
	gl.TexImage3D(gl.TEXTURE_2D_ARRAY, 0, gl.DEPTH_COMPONENT32F, int32(size), int32(size), light.ShadowFaces, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_COMPARE_FUNC, gl.LEQUAL)
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, 0)

	gl.BindFramebuffer(gl.FRAMEBUFFER, r.shadowFBO)
	gl.FramebufferTextureLayer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, r.shadowTex, 0, 0)
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("gl: shadow framebuffer incomplete: 0x%x", status)
	}
	r.shadowSize = size
	return nil
}

func (r *glRenderer) Kind() Kind {
	return KindGL
}

func (r *glRenderer) SetViewport(width, height int) {
	r.width, r.height = width, height
}

func (r *glRenderer) SetPixelRatio(ratio float64) {
	if ratio > 0 {
		r.pixelRatio = ratio
	}
}

func (r *glRenderer) PixelRatio() float64 {
	return r.pixelRatio
}

func (r *glRenderer) EnableShadows(cfg ShadowConfig) {
	r.shadowsOn = true
	r.shadowCfg = cfg
	r.logger.Debug("shadows enabled", zap.Int("type", int(cfg.Type)), zap.Int("mapSize", cfg.MapSize))
}

func (r *glRenderer) Compile(m material.Material) error {
	switch mat := m.(type) {
	case *material.Shader:
		_, err := r.customProgram(mat)
		return err
	case *material.Standard:
		if mat.BaseColorMap() != nil {
			_, err := r.texture(mat.BaseColorMap())
			return err
		}
		return nil
	default:
		return ErrUnsupportedMaterial
	}
}

// customProgram compiles a shader material once; failures are remembered so a broken material
// is not recompiled every frame.
func (r *glRenderer) customProgram(m *material.Shader) (*glProgram, error) {
	if p, ok := r.custom[m.ID()]; ok {
		return p, nil
	}
	if err, ok := r.customErr[m.ID()]; ok {
		return nil, err
	}
	p, err := newGLProgram(m.VertexSource(), m.FragmentSource())
	if err != nil {
		err = fmt.Errorf("material %q: %w", m.Name(), err)
		r.customErr[m.ID()] = err
		return nil, err
	}
	r.custom[m.ID()] = p
	return p, nil
}

func (r *glRenderer) texture(data *common.TextureStagingData) (uint32, error) {
	if t, ok := r.textures[data]; ok {
		t.used = r.frameCount
		return t.id, nil
	}
	if !validStaging(data) {
		return 0, fmt.Errorf("gl: invalid %dx%d texture", data.Width, data.Height)
	}
	t := &glTexture{id: uploadGLTexture(data, gl.SRGB8_ALPHA8), used: r.frameCount}
	r.textures[data] = t
	return t.id, nil
}

func (r *glRenderer) mesh(g *geometry.Geometry) (*glMesh, error) {
	if m, ok := r.meshes[g]; ok {
		m.used = r.frameCount
		return m, nil
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	indices := g.Indices
	if len(indices) == 0 {
		indices = make([]uint32, g.VertexCount())
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	vertices := g.Interleaved()

	m := &glMesh{count: int32(len(indices)), used: r.frameCount}
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)
	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)
	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, geometry.VertexStride, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, geometry.VertexStride, geometry.NormalOffset)
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, geometry.VertexStride, geometry.UVOffset)
	gl.BindVertexArray(0)

	r.meshes[g] = m
	return m, nil
}

func (r *glRenderer) SetOverlay(img *common.TextureStagingData) {
	r.overlayMu.Lock()
	defer r.overlayMu.Unlock()
	r.overlayPending = img
	r.overlayDirty = true
}

func (r *glRenderer) syncOverlay() {
	r.overlayMu.Lock()
	img, dirty := r.overlayPending, r.overlayDirty
	r.overlayDirty = false
	r.overlayMu.Unlock()
	if !dirty {
		return
	}
	if r.overlayTex != 0 {
		gl.DeleteTextures(1, &r.overlayTex)
		r.overlayTex = 0
	}
	r.overlayImage = nil
	if img == nil || !validStaging(img) {
		return
	}
	// the badge is already gamma-encoded and the default framebuffer is not sRGB, so it is
	// stored and sampled as plain RGBA
	r.overlayTex = uploadGLTexture(img, gl.RGBA8)
	gl.BindTexture(gl.TEXTURE_2D, r.overlayTex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	r.overlayImage = img
}

func (r *glRenderer) ensureSky(cube *scene.CubeTexture) error {
	if cube == r.skyCube && r.skyTex != 0 {
		return nil
	}
	edge := cube.Size()
	if edge == 0 {
		return errors.New("gl: empty cube texture")
	}
	for i := range cube.Faces {
		f := &cube.Faces[i]
		if f.Width != edge || f.Height != edge || !validStaging(f) {
			return fmt.Errorf("gl: cube face %s is %dx%d, want %dx%d", scene.CubeFaceNames[i], f.Width, f.Height, edge, edge)
		}
	}
	if r.skyTex != 0 {
		gl.DeleteTextures(1, &r.skyTex)
	}
	gl.GenTextures(1, &r.skyTex)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, r.skyTex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	for i, f := range cube.Faces {
		gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(i), 0, gl.SRGB8_ALPHA8, int32(edge), int32(edge), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(f.Pixels))
	}
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, 0)
	r.skyCube = cube
	return nil
}

func (r *glRenderer) Render(sc scene.Scene, cam camera.Camera) error {
	if r.closed {
		return errors.New("gl: renderer closed")
	}
	if r.width <= 0 || r.height <= 0 {
		return nil
	}
	r.frameCount++
	r.syncOverlay()

	lights, shaded := buildLightBlock(sc, r.shadowsOn, false, r.shadowCfg)
	if lights.ShadowEnabled() {
		size := common.Coalesce(shaded.Shadow().MapSize, r.shadowCfg.MapSize, light.DefaultShadowMapSize)
		if err := r.ensureShadowMap(size); err != nil {
			return err
		}
	}

	frustum := common.FrustumFromMatrix(cam.ViewProjectionMatrix())
	draws, casters := collectDraws(sc.Root(), &frustum)
	draws = sortForBlending(draws)

	frame := buildFrameBlock(sc, cam, false, true)
	writeUniformBuffer(r.frameUBO, frame.Marshal())
	writeUniformBuffer(r.lightsUBO, lights.Marshal())

	if lights.ShadowEnabled() {
		r.renderShadows(lights.ShadowVP, casters)
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(r.width), int32(r.height))
	gl.DepthMask(true)
	gl.ColorMask(true, true, true, true)
	bg := sc.Background()
	c := clearColor(bg.Color, true)
	gl.ClearColor(float32(c.R), float32(c.G), float32(c.B), 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	if bg.Cube != nil {
		if err := r.ensureSky(bg.Cube); err != nil {
			r.logger.Warn("failed to upload sky", zap.Error(err))
		} else {
			r.drawSky(sc, cam)
		}
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.ActiveTexture(gl.TEXTURE0 + glShadowUnit)
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, r.shadowTex)
	for _, it := range draws {
		if err := r.drawMesh(it, cam, lights.ShadowEnabled()); err != nil {
			r.logger.Warn("skipping mesh", zap.String("mesh", it.mesh.Name()), zap.Error(err))
		}
	}
	gl.Disable(gl.BLEND)
	gl.DepthMask(true)

	if r.overlayTex != 0 {
		r.drawOverlay()
	}

	r.surface.SwapBuffers()
	r.prune()
	return nil
}

// renderShadows renders the casters into the six layers of the shadow map.
func (r *glRenderer) renderShadows(faces [light.ShadowFaces]mgl32.Mat4, casters []drawItem) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, r.shadowFBO)
	gl.Viewport(0, 0, int32(r.shadowSize), int32(r.shadowSize))
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.DepthMask(true)
	gl.Disable(gl.CULL_FACE)
	gl.Disable(gl.BLEND)
	gl.Enable(gl.POLYGON_OFFSET_FILL)
	gl.PolygonOffset(2, 2)
	gl.UseProgram(r.shadow.id)
	for face := range light.ShadowFaces {
		gl.FramebufferTextureLayer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, r.shadowTex, 0, int32(face))
		gl.Clear(gl.DEPTH_BUFFER_BIT)
		vp := faces[face]
		gl.UniformMatrix4fv(r.shadow.uniform("u_face_view_proj"), 1, false, &vp[0])
		for _, it := range casters {
			m, err := r.mesh(it.mesh.Geometry())
			if err != nil {
				continue
			}
			world := it.world
			gl.UniformMatrix4fv(r.shadow.uniform("u_model"), 1, false, &world[0])
			gl.BindVertexArray(m.vao)
			gl.DrawElements(gl.TRIANGLES, m.count, gl.UNSIGNED_INT, nil)
		}
	}
	gl.BindVertexArray(0)
	gl.Disable(gl.POLYGON_OFFSET_FILL)
}

func (r *glRenderer) drawSky(sc scene.Scene, cam camera.Camera) {
	sky := buildSkyBlock(sc, cam, false, true)
	gl.Disable(gl.DEPTH_TEST)
	gl.DepthMask(false)
	gl.Disable(gl.CULL_FACE)
	gl.UseProgram(r.sky.id)
	gl.UniformMatrix4fv(r.sky.uniform("u_proj_inv"), 1, false, &sky.ProjInv[0])
	gl.UniformMatrix4fv(r.sky.uniform("u_view"), 1, false, &sky.View[0])
	gl.Uniform4fv(r.sky.uniform("u_tone"), 1, &sky.Tone[0])
	gl.ActiveTexture(gl.TEXTURE0 + glSkyUnit)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, r.skyTex)
	gl.BindVertexArray(r.emptyVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
	gl.DepthMask(true)
}

func (r *glRenderer) drawMesh(it drawItem, cam camera.Camera, shadowsActive bool) error {
	m, err := r.mesh(it.mesh.Geometry())
	if err != nil {
		return err
	}
	mat := it.mesh.Material()
	if mat.Side() == material.DoubleSide {
		gl.Disable(gl.CULL_FACE)
	} else {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}

	switch mt := mat.(type) {
	case *material.Standard:
		translucent := mt.Opacity() < 1
		if translucent {
			gl.Enable(gl.BLEND)
			gl.BlendFuncSeparate(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
		} else {
			gl.Disable(gl.BLEND)
		}
		gl.DepthMask(!translucent)
		tex := r.white
		if mt.BaseColorMap() != nil {
			if tex, err = r.texture(mt.BaseColorMap()); err != nil {
				return err
			}
		}
		block := buildObjectBlock(it.mesh, it.world, shadowsActive)
		writeUniformBuffer(r.objectUBO, block.Marshal())
		gl.UseProgram(r.lit.id)
		gl.ActiveTexture(gl.TEXTURE0 + glBaseMapUnit)
		gl.BindTexture(gl.TEXTURE_2D, tex)
	case *material.Shader:
		p, err := r.customProgram(mt)
		if err != nil {
			return err
		}
		gl.Disable(gl.BLEND)
		gl.DepthMask(true)
		gl.UseProgram(p.id)
		p.setBuiltins(it.world, cam)
		for _, name := range mt.UniformNames() {
			v, _ := mt.Uniform(name)
			p.set(name, v)
		}
	default:
		return ErrUnsupportedMaterial
	}

	gl.BindVertexArray(m.vao)
	gl.DrawElements(gl.TRIANGLES, m.count, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
	return nil
}

func (r *glRenderer) drawOverlay() {
	rect := overlayRect(r.overlayImage.Width, r.overlayImage.Height, r.width, r.height, overlayMargin*r.pixelRatio)
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)
	gl.Enable(gl.BLEND)
	gl.BlendFuncSeparate(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	gl.UseProgram(r.overlay.id)
	gl.Uniform4fv(r.overlay.uniform("u_rect"), 1, &rect[0])
	gl.ActiveTexture(gl.TEXTURE0 + glOverlayUnit)
	gl.BindTexture(gl.TEXTURE_2D, r.overlayTex)
	gl.BindVertexArray(r.emptyVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
	gl.Disable(gl.BLEND)
}

func (r *glRenderer) prune() {
	if r.frameCount%pruneInterval != 0 || r.frameCount < pruneAfter {
		return
	}
	stale := r.frameCount - pruneAfter
	for g, m := range r.meshes {
		if m.used < stale {
			m.release()
			delete(r.meshes, g)
		}
	}
	for k, t := range r.textures {
		if t.used < stale {
			gl.DeleteTextures(1, &t.id)
			delete(r.textures, k)
		}
	}
}

func (r *glRenderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	for _, m := range r.meshes {
		m.release()
	}
	for _, t := range r.textures {
		gl.DeleteTextures(1, &t.id)
	}
	for _, p := range r.custom {
		p.release()
	}
	for _, p := range []*glProgram{r.lit, r.shadow, r.sky, r.overlay} {
		if p != nil {
			p.release()
		}
	}
	for _, tex := range []*uint32{&r.white, &r.shadowTex, &r.skyTex, &r.overlayTex} {
		if *tex != 0 {
			gl.DeleteTextures(1, tex)
		}
	}
	for _, buf := range []*uint32{&r.frameUBO, &r.lightsUBO, &r.objectUBO} {
		if *buf != 0 {
			gl.DeleteBuffers(1, buf)
		}
	}
	if r.emptyVAO != 0 {
		gl.DeleteVertexArrays(1, &r.emptyVAO)
	}
	if r.shadowFBO != 0 {
		gl.DeleteFramebuffers(1, &r.shadowFBO)
	}
	r.meshes, r.textures, r.custom = nil, nil, nil
}
