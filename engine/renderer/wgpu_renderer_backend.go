package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/camera"
	"github.com/Carmen-Shannon/oxy-viewer/engine/geometry"
	"github.com/Carmen-Shannon/oxy-viewer/engine/light"
	"github.com/Carmen-Shannon/oxy-viewer/engine/material"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

// overlayMargin is the distance in logical pixels between the overlay and the viewport corner.
const overlayMargin = 12.0

// wgpuProgram is one built-in WGSL program: its reflected stages, the GPU shader module, and the
// bind group and pipeline layouts shared by every pipeline variant built from it.
type wgpuProgram struct {
	vs, fs   shader.Shader
	module   *wgpu.ShaderModule
	groups   []*wgpu.BindGroupLayout
	layout   *wgpu.PipelineLayout
	variants map[string]pipeline.Pipeline
}

func (p *wgpuProgram) release() {
	for _, v := range p.variants {
		v.Release()
	}
	if p.layout != nil {
		p.layout.Release()
	}
	for _, g := range p.groups {
		if g != nil {
			g.Release()
		}
	}
	if p.module != nil {
		p.module.Release()
	}
}

// wgpuRenderer is the WebGPU implementation of Renderer.
type wgpuRenderer struct {
	logger *zap.Logger

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	alphaMode     wgpu.CompositeAlphaMode
	presentMode   wgpu.PresentMode
	sampleCount   uint32
	// encodeSRGB is set when the swapchain format is linear and the shaders must gamma-encode.
	encodeSRGB bool

	width, height int
	pixelRatio    float64

	msaaTexture, depthTexture   *wgpu.Texture
	msaaView, depthView         *wgpu.TextureView
	renderPassDescriptor        *wgpu.RenderPassDescriptor
	lit, shadow, sky, overlay   *wgpuProgram
	linearSampler, clampSampler *wgpu.Sampler
	shadowSampler               *wgpu.Sampler

	frameGroup  bind_group_provider.BindGroupProvider
	shadowFaces [light.ShadowFaces]bind_group_provider.BindGroupProvider
	shadowMap   *wgpuShadowTarget
	shadowsOn   bool
	shadowCfg   ShadowConfig

	white      *wgpuTexture
	textures   map[*common.TextureStagingData]*wgpuTexture
	geometries map[*geometry.Geometry]*cacheEntry[bind_group_provider.BindGroupProvider]
	meshes     map[*scene.Mesh]*cacheEntry[*wgpuMeshBinding]
	frameCount uint64

	skyGroup   bind_group_provider.BindGroupProvider
	skyCube    *scene.CubeTexture
	skyTexture *wgpuTexture

	overlayMu      sync.Mutex
	overlayPending *common.TextureStagingData
	overlayDirty   bool
	overlayImage   *common.TextureStagingData
	overlayTexture *wgpuTexture
	overlayGroup   bind_group_provider.BindGroupProvider

	warnShaderOnce sync.Once
	closed         bool
}

var _ Renderer = &wgpuRenderer{}

// NewWGPURenderer creates a WebGPU renderer presenting to the surface. It requests a
// high-performance adapter compatible with the surface, builds the built-in pipelines and
// configures the swapchain at the surface's current size.
//
// Parameters:
//   - surface: the drawing target
//   - cfg: present mode, MSAA and logger
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if no adapter or device could be obtained, or a pipeline fails to build
func NewWGPURenderer(surface Surface, cfg BackendConfig) (Renderer, error) {
	runtime.LockOSThread()

	r := &wgpuRenderer{
		logger:      cfg.Logger,
		sampleCount: uint32(common.Coalesce(cfg.MSAA, MSAAOff)),
		presentMode: wgpu.PresentModeFifo,
		pixelRatio:  1,
		textures:    make(map[*common.TextureStagingData]*wgpuTexture),
		geometries:  make(map[*geometry.Geometry]*cacheEntry[bind_group_provider.BindGroupProvider]),
		meshes:      make(map[*scene.Mesh]*cacheEntry[*wgpuMeshBinding]),
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if cfg.PresentMode == PresentModeUncapped {
		r.presentMode = wgpu.PresentModeImmediate
	}

	if err := r.init(surface); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *wgpuRenderer) init(surface Surface) error {
	r.instance = wgpu.CreateInstance(nil)
	if r.instance == nil {
		return errors.New("wgpu: failed to create instance")
	}
	r.surface = r.instance.CreateSurface(surface.SurfaceDescriptor())
	if r.surface == nil {
		return errors.New("wgpu: failed to create surface")
	}

	adapter, err := r.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
		CompatibleSurface: r.surface,
	})
	if err != nil {
		return fmt.Errorf("wgpu: request adapter: %w", err)
	}
	r.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		return fmt.Errorf("wgpu: request device: %w", err)
	}
	r.device = device
	r.queue = device.GetQueue()

	capabilities := r.surface.GetCapabilities(r.adapter)
	if len(capabilities.Formats) == 0 {
		return errors.New("wgpu: surface reports no formats")
	}
	r.surfaceFormat = capabilities.Formats[0]
	for _, f := range capabilities.Formats {
		if isSRGBFormat(f) {
			r.surfaceFormat = f
			break
		}
	}
	r.encodeSRGB = !isSRGBFormat(r.surfaceFormat)
	if len(capabilities.AlphaModes) > 0 {
		r.alphaMode = capabilities.AlphaModes[0]
	}

	if err := r.createSamplers(); err != nil {
		return err
	}
	if err := r.createPrograms(); err != nil {
		return err
	}
	if err := r.createFrameResources(); err != nil {
		return err
	}
	if err := r.configureSurface(surface.Width(), surface.Height()); err != nil {
		return err
	}
	r.logger.Debug("wgpu renderer created",
		zap.Int("format", int(r.surfaceFormat)),
		zap.Uint32("samples", r.sampleCount),
		zap.Bool("encodeSRGB", r.encodeSRGB),
	)
	return nil
}

func isSRGBFormat(f wgpu.TextureFormat) bool {
	return f == wgpu.TextureFormatBGRA8UnormSrgb || f == wgpu.TextureFormatRGBA8UnormSrgb
}

// configureSurface (re)creates the swapchain and the MSAA and depth targets at the given size.
// A zero size leaves the surface unconfigured; Render skips frames until it is resized.
func (r *wgpuRenderer) configureSurface(width, height int) error {
	r.releaseTargets()
	r.width, r.height = width, height
	if width <= 0 || height <= 0 {
		return nil
	}

	r.surface.Configure(r.adapter, r.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      r.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: r.presentMode,
		AlphaMode:   r.alphaMode,
	})

	msaaEnabled := r.sampleCount > 1
	size := wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}
	var err error
	if msaaEnabled {
		r.msaaTexture, err = r.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         "MSAA Texture",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   r.sampleCount,
			Dimension:     wgpu.TextureDimension2D,
			Format:        r.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("wgpu: msaa texture: %w", err)
		}
		if r.msaaView, err = r.msaaTexture.CreateView(nil); err != nil {
			return fmt.Errorf("wgpu: msaa view: %w", err)
		}
	}

	// Depth texture sample count must match the color attachment.
	r.depthTexture, err = r.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Depth Texture",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   r.sampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("wgpu: depth texture: %w", err)
	}
	if r.depthView, err = r.depthTexture.CreateView(nil); err != nil {
		return fmt.Errorf("wgpu: depth view: %w", err)
	}

	// With MSAA the pass draws into the MSAA view and resolves into the swapchain view, which is
	// set per frame. Without it the swapchain view is the color attachment itself.
	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard
	}
	r.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    r.msaaView,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: storeOp,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
	return nil
}

func (r *wgpuRenderer) releaseTargets() {
	if r.msaaView != nil {
		r.msaaView.Release()
		r.msaaView = nil
	}
	if r.msaaTexture != nil {
		r.msaaTexture.Release()
		r.msaaTexture = nil
	}
	if r.depthView != nil {
		r.depthView.Release()
		r.depthView = nil
	}
	if r.depthTexture != nil {
		r.depthTexture.Release()
		r.depthTexture = nil
	}
	r.renderPassDescriptor = nil
}

func (r *wgpuRenderer) createSamplers() error {
	var err error
	r.linearSampler, err = r.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Linear Repeat Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("wgpu: sampler: %w", err)
	}
	r.clampSampler, err = r.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Linear Clamp Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("wgpu: sampler: %w", err)
	}
	r.shadowSampler, err = r.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Shadow Comparison Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		Compare:       wgpu.CompareFunctionLess,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("wgpu: comparison sampler: %w", err)
	}
	return nil
}

// createPrograms builds the lit, shadow, sky and overlay programs and every pipeline variant
// the renderer draws with.
func (r *wgpuRenderer) createPrograms() error {
	var err error
	if r.lit, err = r.loadProgram(shader.WGSLLit); err != nil {
		return err
	}
	for _, side := range []material.Side{material.FrontSide, material.DoubleSide} {
		for _, translucent := range []bool{false, true} {
			cull := wgpu.CullModeBack
			if side == material.DoubleSide {
				cull = wgpu.CullModeNone
			}
			p := pipeline.NewPipeline(litKey(side, translucent),
				pipeline.WithVertexShader(r.lit.vs),
				pipeline.WithFragmentShader(r.lit.fs),
				pipeline.WithCullMode(cull),
				pipeline.WithBlendEnabled(translucent),
				pipeline.WithDepthWriteEnabled(!translucent),
			)
			if err := r.createPipeline(r.lit, p); err != nil {
				return err
			}
		}
	}

	if r.shadow, err = r.loadProgram(shader.WGSLShadow); err != nil {
		return err
	}
	if err := r.createPipeline(r.shadow, pipeline.NewPipeline("shadow",
		pipeline.WithVertexShader(r.shadow.vs),
		pipeline.WithDepthFormat(wgpu.TextureFormatDepth32Float),
		pipeline.WithDepthBias(2, 2.0),
		pipeline.WithSampleCount(1),
	)); err != nil {
		return err
	}

	if r.sky, err = r.loadProgram(shader.WGSLSky); err != nil {
		return err
	}
	if err := r.createPipeline(r.sky, pipeline.NewPipeline("sky",
		pipeline.WithVertexShader(r.sky.vs),
		pipeline.WithFragmentShader(r.sky.fs),
		pipeline.WithDepthTestEnabled(false),
		pipeline.WithDepthWriteEnabled(false),
	)); err != nil {
		return err
	}

	if r.overlay, err = r.loadProgram(shader.WGSLOverlay); err != nil {
		return err
	}
	return r.createPipeline(r.overlay, pipeline.NewPipeline("overlay",
		pipeline.WithVertexShader(r.overlay.vs),
		pipeline.WithFragmentShader(r.overlay.fs),
		pipeline.WithDepthTestEnabled(false),
		pipeline.WithDepthWriteEnabled(false),
		pipeline.WithBlendEnabled(true),
	))
}

func litKey(side material.Side, translucent bool) string {
	key := "lit/front"
	if side == material.DoubleSide {
		key = "lit/double"
	}
	if translucent {
		key += "/blend"
	}
	return key
}

// loadProgram reflects a built-in program and creates its module and layouts.
func (r *wgpuRenderer) loadProgram(path string) (*wgpuProgram, error) {
	vs, fs, err := shader.LoadBuiltin(path)
	if err != nil {
		return nil, err
	}
	prog := &wgpuProgram{vs: vs, fs: fs, variants: make(map[string]pipeline.Pipeline)}

	prog.module, err = r.device.CreateShaderModule(vs.Module())
	if err != nil {
		return nil, fmt.Errorf("wgpu: shader module %s: %w", path, err)
	}

	merged, groupCount := shader.MergeBindGroupLayouts(vs, fs)
	prog.groups = make([]*wgpu.BindGroupLayout, groupCount)
	for g := range groupCount {
		desc := merged[g]
		layout, err := r.device.CreateBindGroupLayout(&desc)
		if err != nil {
			prog.release()
			return nil, fmt.Errorf("wgpu: %s bind group layout %d: %w", path, g, err)
		}
		prog.groups[g] = layout
	}

	prog.layout, err = r.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            path,
		BindGroupLayouts: prog.groups,
	})
	if err != nil {
		prog.release()
		return nil, fmt.Errorf("wgpu: %s pipeline layout: %w", path, err)
	}
	return prog, nil
}

// createPipeline builds the GPU pipeline described by p against the program's layout and
// registers it as a variant of the program.
func (r *wgpuRenderer) createPipeline(prog *wgpuProgram, p pipeline.Pipeline) error {
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	if vertexShader == nil {
		return errors.New("vertex shader must be set to create a render pipeline")
	}

	count := p.SampleCount()
	if count == 0 {
		count = r.sampleCount
	}

	var fragment *wgpu.FragmentState
	if fragmentShader := p.Shader(shader.ShaderTypeFragment); fragmentShader != nil {
		target := wgpu.ColorTargetState{
			Format:    r.surfaceFormat,
			WriteMask: p.WriteMask(),
		}
		if p.BlendEnabled() {
			target.Blend = p.BlendState()
		}
		fragment = &wgpu.FragmentState{
			Module:     prog.module,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		}
	}

	created, err := r.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: prog.layout,
		Vertex: wgpu.VertexState{
			Module:     prog.module,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    vertexShader.VertexLayouts(),
		},
		Fragment: fragment,
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: count,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:              p.DepthFormat(),
			DepthWriteEnabled:   p.DepthWriteEnabled(),
			DepthCompare:        p.DepthCompare(),
			DepthBias:           p.DepthBias(),
			DepthBiasSlopeScale: p.DepthBiasSlopeScale(),
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: pipeline %s: %w", p.PipelineKey(), err)
	}
	p.SetRenderPipeline(created)
	prog.variants[p.PipelineKey()] = p
	return nil
}

func (r *wgpuRenderer) Kind() Kind {
	return KindWGPU
}

func (r *wgpuRenderer) SetViewport(width, height int) {
	if r.closed || width == r.width && height == r.height {
		return
	}
	if err := r.configureSurface(width, height); err != nil {
		r.logger.Error("failed to resize surface", zap.Int("width", width), zap.Int("height", height), zap.Error(err))
	}
}

func (r *wgpuRenderer) SetPixelRatio(ratio float64) {
	if ratio > 0 {
		r.pixelRatio = ratio
	}
}

func (r *wgpuRenderer) PixelRatio() float64 {
	return r.pixelRatio
}

func (r *wgpuRenderer) EnableShadows(cfg ShadowConfig) {
	r.shadowsOn = true
	r.shadowCfg = cfg
	r.logger.Debug("shadows enabled", zap.Int("type", int(cfg.Type)), zap.Int("mapSize", cfg.MapSize))
}

func (r *wgpuRenderer) Compile(m material.Material) error {
	switch m.Kind() {
	case material.KindStandard:
		if std, ok := m.(*material.Standard); ok && std.BaseColorMap() != nil {
			_, err := r.texture(std.BaseColorMap())
			return err
		}
		return nil
	default:
		return ErrUnsupportedMaterial
	}
}

func (r *wgpuRenderer) SetOverlay(img *common.TextureStagingData) {
	r.overlayMu.Lock()
	defer r.overlayMu.Unlock()
	r.overlayPending = img
	r.overlayDirty = true
}

func (r *wgpuRenderer) Render(sc scene.Scene, cam camera.Camera) error {
	if r.closed {
		return errors.New("wgpu: renderer closed")
	}
	if r.renderPassDescriptor == nil {
		return nil
	}
	r.frameCount++
	if err := r.syncOverlay(); err != nil {
		r.logger.Warn("failed to upload overlay", zap.Error(err))
	}

	lights, shaded := buildLightBlock(sc, r.shadowsOn, true, r.shadowCfg)
	if lights.ShadowEnabled() {
		size := common.Coalesce(shaded.Shadow().MapSize, r.shadowCfg.MapSize, light.DefaultShadowMapSize)
		if err := r.ensureShadowMap(size); err != nil {
			return err
		}
	}

	frustum := common.FrustumFromMatrix(cam.ViewProjectionMatrix())
	draws, casters := collectDraws(sc.Root(), &frustum)
	draws = sortForBlending(draws)
	if !lights.ShadowEnabled() {
		casters = nil
	}

	frame := buildFrameBlock(sc, cam, true, r.encodeSRGB)
	writes := []bind_group_provider.BufferWrite{
		{Provider: r.frameGroup, Binding: 0, Data: frame.Marshal()},
		{Provider: r.frameGroup, Binding: 1, Data: lights.Marshal()},
	}
	if lights.ShadowEnabled() {
		for i, vp := range lights.ShadowVP {
			writes = append(writes, bind_group_provider.BufferWrite{
				Provider: r.shadowFaces[i], Binding: 0, Data: common.SliceToBytes(vp[:]),
			})
		}
	}

	bindings := make(map[*scene.Mesh]*wgpuMeshBinding, len(draws)+len(casters))
	for _, list := range [][]drawItem{draws, casters} {
		for _, it := range list {
			if _, ok := bindings[it.mesh]; ok {
				continue
			}
			b, err := r.meshBinding(it.mesh)
			if err != nil {
				r.logger.Warn("skipping mesh", zap.String("mesh", it.mesh.Name()), zap.Error(err))
				continue
			}
			block := buildObjectBlock(it.mesh, it.world, lights.ShadowEnabled())
			writes = append(writes, bind_group_provider.BufferWrite{Provider: b.object, Binding: 0, Data: block.Marshal()})
			bindings[it.mesh] = b
		}
	}

	background := sc.Background()
	drawSky := false
	if background.Cube != nil {
		if err := r.ensureSky(background.Cube); err != nil {
			r.logger.Warn("failed to upload sky", zap.Error(err))
		} else {
			sky := buildSkyBlock(sc, cam, true, r.encodeSRGB)
			writes = append(writes, bind_group_provider.BufferWrite{Provider: r.skyGroup, Binding: 0, Data: sky.Marshal()})
			drawSky = true
		}
	}
	if r.overlayGroup != nil {
		rect := overlayRect(r.overlayImage.Width, r.overlayImage.Height, r.width, r.height, overlayMargin*r.pixelRatio)
		writes = append(writes, bind_group_provider.BufferWrite{Provider: r.overlayGroup, Binding: 0, Data: common.SliceToBytes(rect[:])})
	}
	r.writeBuffers(writes)

	encoder, err := r.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("wgpu: command encoder: %w", err)
	}
	defer encoder.Release()

	if len(casters) > 0 {
		r.encodeShadowPasses(encoder, casters, bindings)
	}

	surfaceTexture, err := r.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("wgpu: acquire frame: %w", err)
	}
	defer surfaceTexture.Release()
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("wgpu: frame view: %w", err)
	}
	defer view.Release()

	attachment := &r.renderPassDescriptor.ColorAttachments[0]
	if r.sampleCount > 1 {
		attachment.ResolveTarget = view
	} else {
		attachment.View = view
	}
	attachment.ClearValue = clearColor(background.Color, r.encodeSRGB)

	pass := encoder.BeginRenderPass(r.renderPassDescriptor)
	if drawSky {
		pass.SetPipeline(r.sky.variants["sky"].RenderPipeline())
		pass.SetBindGroup(0, r.skyGroup.BindGroup(), nil)
		pass.Draw(3, 1, 0, 0)
	}

	pass.SetBindGroup(0, r.frameGroup.BindGroup(), nil)
	for _, it := range draws {
		b, ok := bindings[it.mesh]
		if !ok {
			continue
		}
		mat := it.mesh.Material()
		if mat.Kind() != material.KindStandard {
			r.warnShaderOnce.Do(func() {
				r.logger.Warn("shader materials are not drawn by the WebGPU renderer", zap.String("material", mat.Name()))
			})
			continue
		}
		translucent := false
		if std, ok := mat.(*material.Standard); ok {
			translucent = std.Opacity() < 1
		}
		pass.SetPipeline(r.lit.variants[litKey(mat.Side(), translucent)].RenderPipeline())
		pass.SetBindGroup(1, b.object.BindGroup(), nil)
		pass.SetVertexBuffer(0, b.geometry.VertexBuffer(), 0, wgpu.WholeSize)
		pass.SetIndexBuffer(b.geometry.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(uint32(b.geometry.IndexCount()), 1, 0, 0, 0)
	}

	if r.overlayGroup != nil {
		pass.SetPipeline(r.overlay.variants["overlay"].RenderPipeline())
		pass.SetBindGroup(0, r.overlayGroup.BindGroup(), nil)
		pass.Draw(6, 1, 0, 0)
	}
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("wgpu: finish frame: %w", err)
	}
	r.queue.Submit(commandBuffer)
	commandBuffer.Release()
	r.surface.Present()

	r.prune()
	return nil
}

// encodeShadowPasses renders the casters into each face of the shadow map.
func (r *wgpuRenderer) encodeShadowPasses(encoder *wgpu.CommandEncoder, casters []drawItem, bindings map[*scene.Mesh]*wgpuMeshBinding) {
	shadowPipeline := r.shadow.variants["shadow"].RenderPipeline()
	for face := range light.ShadowFaces {
		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
				View:            r.shadowMap.faces[face],
				DepthLoadOp:     wgpu.LoadOpClear,
				DepthStoreOp:    wgpu.StoreOpStore,
				DepthClearValue: 1.0,
			},
		})
		pass.SetPipeline(shadowPipeline)
		pass.SetBindGroup(0, r.shadowFaces[face].BindGroup(), nil)
		for _, it := range casters {
			b, ok := bindings[it.mesh]
			if !ok {
				continue
			}
			pass.SetBindGroup(1, b.shadow.BindGroup(), nil)
			pass.SetVertexBuffer(0, b.geometry.VertexBuffer(), 0, wgpu.WholeSize)
			pass.SetIndexBuffer(b.geometry.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
			pass.DrawIndexed(uint32(b.geometry.IndexCount()), 1, 0, 0, 0)
		}
		pass.End()
	}
}

func (r *wgpuRenderer) writeBuffers(writes []bind_group_provider.BufferWrite) {
	for _, w := range writes {
		if !w.Valid() {
			continue
		}
		r.queue.WriteBuffer(w.Provider.Buffer(w.Binding), w.Offset, w.Data)
	}
}

// clearColor converts a linear background color into the clear value of the color target.
func clearColor(c common.Color3, encodeSRGB bool) wgpu.Color {
	out := [3]float64{float64(c[0]), float64(c[1]), float64(c[2])}
	if encodeSRGB {
		for i := range out {
			out[i] = common.LinearToSRGB(out[i])
		}
	}
	return wgpu.Color{R: out[0], G: out[1], B: out[2], A: 1}
}

func (r *wgpuRenderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.overlayMu.Lock()
	r.overlayPending = nil
	r.overlayMu.Unlock()

	for _, e := range r.meshes {
		e.value.release()
	}
	r.meshes = nil
	for _, e := range r.geometries {
		e.value.Release()
	}
	r.geometries = nil
	for _, t := range r.textures {
		t.Release()
	}
	r.textures = nil
	for _, t := range []*wgpuTexture{r.white, r.skyTexture, r.overlayTexture} {
		t.Release()
	}
	for _, g := range []bind_group_provider.BindGroupProvider{r.frameGroup, r.skyGroup, r.overlayGroup} {
		if g != nil {
			g.Release()
		}
	}
	for _, g := range r.shadowFaces {
		if g != nil {
			g.Release()
		}
	}
	r.shadowMap.Release()
	for _, p := range []*wgpuProgram{r.lit, r.shadow, r.sky, r.overlay} {
		if p != nil {
			p.release()
		}
	}
	for _, s := range []*wgpu.Sampler{r.linearSampler, r.clampSampler, r.shadowSampler} {
		if s != nil {
			s.Release()
		}
	}
	r.releaseTargets()
	if r.queue != nil {
		r.queue.Release()
	}
	if r.device != nil {
		r.device.Release()
	}
	if r.adapter != nil {
		r.adapter.Release()
	}
	if r.surface != nil {
		r.surface.Release()
	}
	if r.instance != nil {
		r.instance.Release()
	}
}
