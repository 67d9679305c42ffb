package shader

import (
	"fmt"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga/ir"
)

// vertexFormatInfo pairs a wgpu vertex format with its byte size
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// vertexFormats maps a scalar kind and component count to a vertex format
var vertexFormats = map[ir.ScalarKind][5]vertexFormatInfo{
	ir.ScalarFloat: {
		1: {wgpu.VertexFormatFloat32, 4},
		2: {wgpu.VertexFormatFloat32x2, 8},
		3: {wgpu.VertexFormatFloat32x3, 12},
		4: {wgpu.VertexFormatFloat32x4, 16},
	},
	ir.ScalarSint: {
		1: {wgpu.VertexFormatSint32, 4},
		2: {wgpu.VertexFormatSint32x2, 8},
		3: {wgpu.VertexFormatSint32x3, 12},
		4: {wgpu.VertexFormatSint32x4, 16},
	},
	ir.ScalarUint: {
		1: {wgpu.VertexFormatUint32, 4},
		2: {wgpu.VertexFormatUint32x2, 8},
		3: {wgpu.VertexFormatUint32x3, 12},
		4: {wgpu.VertexFormatUint32x4, 16},
	},
}

// reflectBindGroups walks the module's resource globals and builds one layout descriptor per
// bind group, the binding-to-name lookup and the byte size of every buffer binding.
func reflectBindGroups(m *ir.Module, key string, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string, map[int]map[int]uint64) {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	varNames := make(map[int]map[int]string)
	sizes := make(map[int]map[int]uint64)

	for _, gv := range m.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		group, binding := int(gv.Binding.Group), int(gv.Binding.Binding)
		entry, ok := classifyResource(m, gv, visibility)
		if !ok {
			continue
		}
		if varNames[group] == nil {
			varNames[group] = make(map[int]string)
			sizes[group] = make(map[int]uint64)
		}
		if _, dup := varNames[group][binding]; dup {
			// the same slot may be declared twice for alternative entry points; keep the first
			continue
		}
		varNames[group][binding] = gv.Name
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			sizes[group][binding] = entry.Buffer.MinBindingSize
		}
		groups[group] = append(groups[group], entry)
	}

	descs := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for group, entries := range groups {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
		descs[group] = wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s.group%d", key, group),
			Entries: entries,
		}
	}
	return descs, varNames, sizes
}

// classifyResource creates a wgpu.BindGroupLayoutEntry from a resource global. It determines the
// resource category from the address space and the IR type.
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: a fully populated layout entry for the resource
//   - bool: false if the global is not a bindable resource
func classifyResource(m *ir.Module, gv ir.GlobalVariable, visibility wgpu.ShaderStage) (wgpu.BindGroupLayoutEntry, bool) {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    gv.Binding.Binding,
		Visibility: visibility,
	}

	switch gv.Space {
	case ir.SpaceUniform:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.MinBindingSize = uint64(typeSize(m, gv.Type))
		return entry, true
	case ir.SpaceStorage:
		if visibility&wgpu.ShaderStageCompute != 0 {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		} else {
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		}
		entry.Buffer.MinBindingSize = uint64(typeSize(m, gv.Type))
		return entry, true
	case ir.SpaceHandle:
	default:
		return entry, false
	}

	if int(gv.Type) >= len(m.Types) {
		return entry, false
	}
	switch t := m.Types[gv.Type].Inner.(type) {
	case ir.SamplerType:
		if t.Comparison {
			entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
		} else {
			entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		}
	case ir.ImageType:
		dim := viewDimension(t)
		switch t.Class {
		case ir.ImageClassDepth:
			entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
			entry.Texture.ViewDimension = dim
			entry.Texture.Multisampled = t.Multisampled
		case ir.ImageClassStorage:
			entry.StorageTexture.Access = wgpu.StorageTextureAccessWriteOnly
			entry.StorageTexture.ViewDimension = dim
		default:
			entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
			entry.Texture.ViewDimension = dim
			entry.Texture.Multisampled = t.Multisampled
		}
	default:
		return entry, false
	}
	return entry, true
}

func viewDimension(t ir.ImageType) wgpu.TextureViewDimension {
	switch t.Dim {
	case ir.Dim1D:
		return wgpu.TextureViewDimension1D
	case ir.Dim3D:
		return wgpu.TextureViewDimension3D
	case ir.DimCube:
		if t.Arrayed {
			return wgpu.TextureViewDimensionCubeArray
		}
		return wgpu.TextureViewDimensionCube
	default:
		if t.Arrayed {
			return wgpu.TextureViewDimension2DArray
		}
		return wgpu.TextureViewDimension2D
	}
}

// vertexInput is one @location input of a vertex entry point
type vertexInput struct {
	location uint32
	info     vertexFormatInfo
}

// reflectVertexLayouts converts the @location inputs of a vertex entry point into a single
// interleaved wgpu.VertexBufferLayout. Inputs may be direct arguments or members of struct
// arguments; builtins are skipped. Attributes are packed in location order with sequential
// byte offsets.
func reflectVertexLayouts(m *ir.Module, ep ir.EntryPoint) ([]wgpu.VertexBufferLayout, error) {
	fn := &ep.Function

	var inputs []vertexInput
	add := func(name string, th ir.TypeHandle, b *ir.Binding) error {
		if b == nil {
			return nil
		}
		loc, ok := (*b).(ir.LocationBinding)
		if !ok {
			return nil
		}
		info, ok := vertexFormat(m, th)
		if !ok {
			return fmt.Errorf("vertex input %s has no vertex format", name)
		}
		inputs = append(inputs, vertexInput{location: loc.Location, info: info})
		return nil
	}

	for _, arg := range fn.Arguments {
		if arg.Binding != nil {
			if err := add(arg.Name, arg.Type, arg.Binding); err != nil {
				return nil, err
			}
			continue
		}
		if int(arg.Type) >= len(m.Types) {
			continue
		}
		st, ok := m.Types[arg.Type].Inner.(ir.StructType)
		if !ok {
			continue
		}
		for _, member := range st.Members {
			if err := add(member.Name, member.Type, member.Binding); err != nil {
				return nil, err
			}
		}
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	sort.Slice(inputs, func(i, j int) bool { return inputs[i].location < inputs[j].location })
	attrs := make([]wgpu.VertexAttribute, 0, len(inputs))
	var offset uint64
	for _, in := range inputs {
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         in.info.format,
			Offset:         offset,
			ShaderLocation: in.location,
		})
		offset += in.info.size
	}
	return []wgpu.VertexBufferLayout{{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}}, nil
}

func vertexFormat(m *ir.Module, th ir.TypeHandle) (vertexFormatInfo, bool) {
	if int(th) >= len(m.Types) {
		return vertexFormatInfo{}, false
	}
	var kind ir.ScalarKind
	var count int
	switch t := m.Types[th].Inner.(type) {
	case ir.ScalarType:
		kind, count = t.Kind, 1
	case ir.VectorType:
		kind, count = t.Scalar.Kind, int(t.Size)
	default:
		return vertexFormatInfo{}, false
	}
	formats, ok := vertexFormats[kind]
	if !ok || count < 1 || count > 4 {
		return vertexFormatInfo{}, false
	}
	return formats[count], true
}

// typeSize returns the byte size of a type under WGSL host-shareable layout rules.
func typeSize(m *ir.Module, th ir.TypeHandle) uint32 {
	_, size := typeLayout(m, th)
	return size
}

func typeLayout(m *ir.Module, th ir.TypeHandle) (align, size uint32) {
	if int(th) >= len(m.Types) {
		return 4, 0
	}
	switch t := m.Types[th].Inner.(type) {
	case ir.ScalarType:
		w := uint32(max(t.Width, 4))
		return w, w
	case ir.AtomicType:
		return 4, 4
	case ir.VectorType:
		return vectorLayout(t.Size, t.Scalar)
	case ir.MatrixType:
		colAlign, colSize := vectorLayout(t.Rows, t.Scalar)
		stride := roundUp(colSize, colAlign)
		return colAlign, stride * uint32(t.Columns)
	case ir.ArrayType:
		elemAlign, elemSize := typeLayout(m, t.Base)
		stride := t.Stride
		if stride == 0 {
			stride = roundUp(elemSize, elemAlign)
		}
		if t.Size.Constant == nil {
			// runtime-sized: one element is the minimum binding size
			return elemAlign, stride
		}
		return elemAlign, stride * *t.Size.Constant
	case ir.StructType:
		var maxAlign uint32 = 1
		for _, member := range t.Members {
			a, _ := typeLayout(m, member.Type)
			maxAlign = max(maxAlign, a)
		}
		if t.Span > 0 {
			return maxAlign, t.Span
		}
		var offset uint32
		for _, member := range t.Members {
			a, s := typeLayout(m, member.Type)
			offset = roundUp(offset, a) + s
		}
		return maxAlign, roundUp(offset, maxAlign)
	default:
		return 4, 0
	}
}

func vectorLayout(size ir.VectorSize, scalar ir.ScalarType) (align, bytes uint32) {
	w := uint32(max(scalar.Width, 4))
	switch size {
	case ir.Vec2:
		return 2 * w, 2 * w
	case ir.Vec3:
		return 4 * w, 3 * w
	default:
		return 4 * w, 4 * w
	}
}

func roundUp(v, align uint32) uint32 {
	if align == 0 {
		return v
	}
	return (v + align - 1) / align * align
}
