package renderer

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/geometry"
	"github.com/Carmen-Shannon/oxy-viewer/engine/light"
	"github.com/Carmen-Shannon/oxy-viewer/engine/material"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

const (
	// pruneInterval is how often, in frames, unused GPU resources are looked for.
	pruneInterval = 60

	// pruneAfter is how many frames a cached resource may go unused before it is released.
	pruneAfter = 600

	shadowFaceBlockSize = 64
)

// cacheEntry is a cached GPU resource and the last frame it was used in.
type cacheEntry[T any] struct {
	value T
	used  uint64
}

// wgpuTexture is an uploaded texture and its default view.
type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	used    uint64
}

// Release is safe on a nil texture.
func (t *wgpuTexture) Release() {
	if t == nil {
		return
	}
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// wgpuShadowTarget is a point light's shadow map: a 2D depth array with one layer per cube face.
type wgpuShadowTarget struct {
	size    int
	texture *wgpu.Texture
	faces   [light.ShadowFaces]*wgpu.TextureView
	array   *wgpu.TextureView
}

// Release is safe on a nil target.
func (s *wgpuShadowTarget) Release() {
	if s == nil {
		return
	}
	for i, v := range s.faces {
		if v != nil {
			v.Release()
			s.faces[i] = nil
		}
	}
	if s.array != nil {
		s.array.Release()
		s.array = nil
	}
	if s.texture != nil {
		s.texture.Release()
		s.texture = nil
	}
}

// wgpuMeshBinding holds the per-mesh bind groups. The geometry buffers and the texture are
// shared cache entries and are not released with the binding.
type wgpuMeshBinding struct {
	geom      *geometry.Geometry
	baseMap   *common.TextureStagingData
	geometry  bind_group_provider.BindGroupProvider
	geomEntry *cacheEntry[bind_group_provider.BindGroupProvider]
	tex       *wgpuTexture
	object    bind_group_provider.BindGroupProvider
	shadow    bind_group_provider.BindGroupProvider
}

func (b *wgpuMeshBinding) release() {
	// the shadow group references the object buffer, so it goes first
	if b.shadow != nil {
		b.shadow.Release()
	}
	if b.object != nil {
		b.object.Release()
	}
}

func (r *wgpuRenderer) uniformBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	buf, err := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: %s buffer: %w", label, err)
	}
	return buf, nil
}

func (r *wgpuRenderer) bindGroup(label string, layout *wgpu.BindGroupLayout, entries ...wgpu.BindGroupEntry) (*wgpu.BindGroup, error) {
	bg, err := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: %s bind group: %w", label, err)
	}
	return bg, nil
}

// createFrameResources creates the per-frame uniform buffers, the shadow face groups, the white
// fallback texture and a 1×1 placeholder shadow map so the lit group is always complete.
func (r *wgpuRenderer) createFrameResources() error {
	frameBuf, err := r.uniformBuffer("Frame", FrameBlockSize)
	if err != nil {
		return err
	}
	lightsBuf, err := r.uniformBuffer("Lights", light.GPULightBlockSize)
	if err != nil {
		frameBuf.Release()
		return err
	}
	r.frameGroup = bind_group_provider.NewBindGroupProvider("Frame",
		bind_group_provider.WithBuffer(0, frameBuf),
		bind_group_provider.WithBuffer(1, lightsBuf),
	)

	for i := range r.shadowFaces {
		label := fmt.Sprintf("Shadow Face %d", i)
		buf, err := r.uniformBuffer(label, shadowFaceBlockSize)
		if err != nil {
			return err
		}
		r.shadowFaces[i] = bind_group_provider.NewBindGroupProvider(label, bind_group_provider.WithBuffer(0, buf))
		bg, err := r.bindGroup(label, r.shadow.groups[0], wgpu.BindGroupEntry{
			Binding: 0,
			Buffer:  buf,
			Size:    wgpu.WholeSize,
		})
		if err != nil {
			return err
		}
		r.shadowFaces[i].SetBindGroup(bg)
	}

	r.white, err = r.uploadTexture("White", &common.TextureStagingData{
		Pixels: []byte{0xFF, 0xFF, 0xFF, 0xFF},
		Width:  1,
		Height: 1,
	}, wgpu.TextureFormatRGBA8UnormSrgb)
	if err != nil {
		return err
	}
	return r.ensureShadowMap(1)
}

// ensureShadowMap resizes the shadow map and rebinds the frame group when the size changes.
func (r *wgpuRenderer) ensureShadowMap(size int) error {
	if r.shadowMap != nil && r.shadowMap.size == size {
		return nil
	}
	target := &wgpuShadowTarget{size: size}
	var err error
	target.texture, err = r.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Shadow Map",
		Size: wgpu.Extent3D{
			Width:              uint32(size),
			Height:             uint32(size),
			DepthOrArrayLayers: light.ShadowFaces,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("wgpu: shadow map: %w", err)
	}
	for i := range target.faces {
		target.faces[i], err = target.texture.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("Shadow Map Face %d", i),
			Format:          wgpu.TextureFormatDepth32Float,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    0,
			MipLevelCount:   1,
			BaseArrayLayer:  uint32(i),
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectDepthOnly,
		})
		if err != nil {
			target.Release()
			return fmt.Errorf("wgpu: shadow map face view: %w", err)
		}
	}
	target.array, err = target.texture.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Shadow Map Array",
		Format:          wgpu.TextureFormatDepth32Float,
		Dimension:       wgpu.TextureViewDimension2DArray,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: light.ShadowFaces,
		Aspect:          wgpu.TextureAspectDepthOnly,
	})
	if err != nil {
		target.Release()
		return fmt.Errorf("wgpu: shadow map view: %w", err)
	}

	bg, err := r.bindGroup("Frame", r.lit.groups[0],
		wgpu.BindGroupEntry{Binding: 0, Buffer: r.frameGroup.Buffer(0), Size: wgpu.WholeSize},
		wgpu.BindGroupEntry{Binding: 1, Buffer: r.frameGroup.Buffer(1), Size: wgpu.WholeSize},
		wgpu.BindGroupEntry{Binding: 2, TextureView: target.array},
		wgpu.BindGroupEntry{Binding: 3, Sampler: r.shadowSampler},
	)
	if err != nil {
		target.Release()
		return err
	}
	r.frameGroup.SetBindGroup(bg)
	r.shadowMap.Release()
	r.shadowMap = target
	return nil
}

// uploadTexture creates a sampled 2D texture from RGBA staging data.
func (r *wgpuRenderer) uploadTexture(label string, data *common.TextureStagingData, format wgpu.TextureFormat) (*wgpuTexture, error) {
	if data.Width == 0 || data.Height == 0 || len(data.Pixels) < int(data.Width*data.Height*4) {
		return nil, fmt.Errorf("wgpu: texture %s: invalid %dx%d staging data", label, data.Width, data.Height)
	}
	size := wgpu.Extent3D{Width: data.Width, Height: data.Height, DepthOrArrayLayers: 1}
	tex, err := r.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label + " Texture",
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: texture %s: %w", label, err)
	}
	r.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&size,
	)
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("wgpu: texture %s view: %w", label, err)
	}
	return &wgpuTexture{texture: tex, view: view, used: r.frameCount}, nil
}

// texture returns the cached GPU texture of a base color map, uploading it on first use.
func (r *wgpuRenderer) texture(data *common.TextureStagingData) (*wgpuTexture, error) {
	if t, ok := r.textures[data]; ok {
		t.used = r.frameCount
		return t, nil
	}
	t, err := r.uploadTexture("Base Color", data, wgpu.TextureFormatRGBA8UnormSrgb)
	if err != nil {
		return nil, err
	}
	r.textures[data] = t
	return t, nil
}

// uploadCube creates a cube texture from six equally sized square faces.
func (r *wgpuRenderer) uploadCube(cube *scene.CubeTexture) (*wgpuTexture, error) {
	edge := cube.Size()
	if edge == 0 {
		return nil, errors.New("wgpu: empty cube texture")
	}
	for i, f := range cube.Faces {
		if f.Width != edge || f.Height != edge || len(f.Pixels) < int(edge*edge*4) {
			return nil, fmt.Errorf("wgpu: cube face %s is %dx%d, want %dx%d", scene.CubeFaceNames[i], f.Width, f.Height, edge, edge)
		}
	}
	tex, err := r.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Sky Cube Texture",
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          wgpu.Extent3D{Width: edge, Height: edge, DepthOrArrayLayers: 6},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: cube texture: %w", err)
	}
	for i, f := range cube.Faces {
		r.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{Z: uint32(i)},
				Aspect:   wgpu.TextureAspectAll,
			},
			f.Pixels,
			&wgpu.TextureDataLayout{
				BytesPerRow:  edge * 4,
				RowsPerImage: edge,
			},
			&wgpu.Extent3D{Width: edge, Height: edge, DepthOrArrayLayers: 1},
		)
	}
	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Sky Cube View",
		Format:          wgpu.TextureFormatRGBA8UnormSrgb,
		Dimension:       wgpu.TextureViewDimensionCube,
		MipLevelCount:   1,
		ArrayLayerCount: 6,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("wgpu: cube view: %w", err)
	}
	return &wgpuTexture{texture: tex, view: view}, nil
}

// ensureSky uploads the background cube and binds it, once per distinct cube.
func (r *wgpuRenderer) ensureSky(cube *scene.CubeTexture) error {
	if cube == r.skyCube && r.skyGroup != nil {
		return nil
	}
	tex, err := r.uploadCube(cube)
	if err != nil {
		return err
	}
	if r.skyGroup == nil {
		buf, err := r.uniformBuffer("Sky", SkyBlockSize)
		if err != nil {
			tex.Release()
			return err
		}
		r.skyGroup = bind_group_provider.NewBindGroupProvider("Sky", bind_group_provider.WithBuffer(0, buf))
	}
	bg, err := r.bindGroup("Sky", r.sky.groups[0],
		wgpu.BindGroupEntry{Binding: 0, Buffer: r.skyGroup.Buffer(0), Size: wgpu.WholeSize},
		wgpu.BindGroupEntry{Binding: 1, TextureView: tex.view},
		wgpu.BindGroupEntry{Binding: 2, Sampler: r.clampSampler},
	)
	if err != nil {
		tex.Release()
		return err
	}
	r.skyGroup.SetBindGroup(bg)
	r.skyTexture.Release()
	r.skyTexture = tex
	r.skyCube = cube
	return nil
}

// syncOverlay applies the latest SetOverlay call on the render thread.
func (r *wgpuRenderer) syncOverlay() error {
	r.overlayMu.Lock()
	img, dirty := r.overlayPending, r.overlayDirty
	r.overlayDirty = false
	r.overlayMu.Unlock()
	if !dirty {
		return nil
	}

	if r.overlayGroup != nil {
		r.overlayGroup.Release()
		r.overlayGroup = nil
	}
	r.overlayTexture.Release()
	r.overlayTexture = nil
	r.overlayImage = nil
	if img == nil {
		return nil
	}

	// the badge is already gamma-encoded; sample it back unchanged onto either target kind
	format := wgpu.TextureFormatRGBA8Unorm
	if !r.encodeSRGB {
		format = wgpu.TextureFormatRGBA8UnormSrgb
	}
	tex, err := r.uploadTexture("Overlay", img, format)
	if err != nil {
		return err
	}
	buf, err := r.uniformBuffer("Overlay", OverlayBlockSize)
	if err != nil {
		tex.Release()
		return err
	}
	group := bind_group_provider.NewBindGroupProvider("Overlay", bind_group_provider.WithBuffer(0, buf))
	bg, err := r.bindGroup("Overlay", r.overlay.groups[0],
		wgpu.BindGroupEntry{Binding: 0, Buffer: buf, Size: wgpu.WholeSize},
		wgpu.BindGroupEntry{Binding: 1, TextureView: tex.view},
		wgpu.BindGroupEntry{Binding: 2, Sampler: r.clampSampler},
	)
	if err != nil {
		group.Release()
		tex.Release()
		return err
	}
	group.SetBindGroup(bg)
	r.overlayGroup = group
	r.overlayTexture = tex
	r.overlayImage = img
	return nil
}

// geometryBuffers returns the cached vertex and index buffers of a geometry.
func (r *wgpuRenderer) geometryBuffers(g *geometry.Geometry) (*cacheEntry[bind_group_provider.BindGroupProvider], error) {
	if e, ok := r.geometries[g]; ok {
		e.used = r.frameCount
		return e, nil
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
	vertexData := common.SliceToBytes(g.Interleaved())
	indexData := common.SliceToBytes(indices)

	vb, err := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: g.Name + " Vertex Buffer",
		Size:  uint64(len(vertexData)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: vertex buffer: %w", err)
	}
	r.queue.WriteBuffer(vb, 0, vertexData)

	ib, err := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: g.Name + " Index Buffer",
		Size:  uint64(len(indexData)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		vb.Release()
		return nil, fmt.Errorf("wgpu: index buffer: %w", err)
	}
	r.queue.WriteBuffer(ib, 0, indexData)

	e := &cacheEntry[bind_group_provider.BindGroupProvider]{
		value: bind_group_provider.NewBindGroupProvider(g.Name, bind_group_provider.WithMeshBuffers(vb, ib, len(indices))),
		used:  r.frameCount,
	}
	r.geometries[g] = e
	return e, nil
}

// meshBinding returns the bind groups of a mesh, rebuilding them when its geometry or base color
// map changed since the last frame.
func (r *wgpuRenderer) meshBinding(m *scene.Mesh) (*wgpuMeshBinding, error) {
	var baseMap *common.TextureStagingData
	if std, ok := m.Material().(*material.Standard); ok {
		baseMap = std.BaseColorMap()
	}
	if e, ok := r.meshes[m]; ok {
		if e.value.geom == m.Geometry() && e.value.baseMap == baseMap {
			e.used = r.frameCount
			e.value.geomEntry.used = r.frameCount
			if e.value.tex != nil {
				e.value.tex.used = r.frameCount
			}
			return e.value, nil
		}
		e.value.release()
		delete(r.meshes, m)
	}

	geomEntry, err := r.geometryBuffers(m.Geometry())
	if err != nil {
		return nil, err
	}
	view := r.white.view
	var tex *wgpuTexture
	if baseMap != nil {
		if tex, err = r.texture(baseMap); err != nil {
			return nil, err
		}
		view = tex.view
	}

	label := m.Name()
	buf, err := r.uniformBuffer(label+" Object", ObjectBlockSize)
	if err != nil {
		return nil, err
	}
	b := &wgpuMeshBinding{
		geom:      m.Geometry(),
		baseMap:   baseMap,
		geometry:  geomEntry.value,
		geomEntry: geomEntry,
		tex:       tex,
		object:    bind_group_provider.NewBindGroupProvider(label, bind_group_provider.WithBuffer(0, buf)),
		shadow:    bind_group_provider.NewBindGroupProvider(label + " Shadow"),
	}

	bg, err := r.bindGroup(label+" Object", r.lit.groups[1],
		wgpu.BindGroupEntry{Binding: 0, Buffer: buf, Size: ObjectBlockSize},
		wgpu.BindGroupEntry{Binding: 1, TextureView: view},
		wgpu.BindGroupEntry{Binding: 2, Sampler: r.linearSampler},
	)
	if err != nil {
		b.release()
		return nil, err
	}
	b.object.SetBindGroup(bg)

	// the shadow program only reads the model matrix at the head of the object block
	sbg, err := r.bindGroup(label+" Shadow", r.shadow.groups[1],
		wgpu.BindGroupEntry{Binding: 0, Buffer: buf, Size: 64},
	)
	if err != nil {
		b.release()
		return nil, err
	}
	b.shadow.SetBindGroup(sbg)

	r.meshes[m] = &cacheEntry[*wgpuMeshBinding]{value: b, used: r.frameCount}
	return b, nil
}

// prune releases meshes, geometries and textures that have not been drawn for pruneAfter frames.
func (r *wgpuRenderer) prune() {
	if r.frameCount%pruneInterval != 0 || r.frameCount < pruneAfter {
		return
	}
	stale := r.frameCount - pruneAfter
	for m, e := range r.meshes {
		if e.used < stale {
			e.value.release()
			delete(r.meshes, m)
		}
	}
	for g, e := range r.geometries {
		if e.used < stale {
			e.value.Release()
			delete(r.geometries, g)
		}
	}
	for k, t := range r.textures {
		if t.used < stale {
			t.Release()
			delete(r.textures, k)
		}
	}
}
