package shader

import (
	"fmt"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ShaderType identifies whether a shader is a render shader or a compute shader.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

func (t ShaderType) stage() ir.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return ir.StageVertex
	case ShaderTypeFragment:
		return ir.StageFragment
	default:
		return ir.StageCompute
	}
}

func (t ShaderType) visibility() wgpu.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		return wgpu.ShaderStageFragment
	case ShaderTypeCompute:
		return wgpu.ShaderStageCompute
	default:
		return wgpu.ShaderStageNone
	}
}

// shader is the implementation of the Shader interface.
// It holds all of the persistent shader data required for pipeline creation and material binding.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	uniformSizes               map[int]map[int]uint64
	vertexLayouts              []wgpu.VertexBufferLayout
	workGroupSize              [3]uint32
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor
}

// Shader defines the interface for a parsed WGSL shader stage. The bind group layouts, vertex
// buffer layouts and entry point are reflected from the module's IR rather than declared by hand,
// so the descriptors handed to the pipeline always agree with the source.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a group index.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty descriptor if the group is unused
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all reflected bind group layout descriptors.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name for a given group and binding index, if it exists.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName retrieves the binding index for a given group and variable name, if it exists.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - int: the binding index associated with the variable name, or -1 if not found
	//   - bool: true if the variable name was found, false otherwise
	BindGroupFromVarName(group int, varName string) (int, bool)

	// UniformSize returns the byte size of a buffer binding's type, as laid out by WGSL
	// uniform rules.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - uint64: the size in bytes, or 0 when the binding is not a buffer
	UniformSize(group, binding int) uint64

	// VertexLayouts retrieves the vertex buffer layout reflected from the vertex entry point's
	// @location inputs. Empty for fragment and compute shaders and for vertex shaders that only
	// read builtins.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the vertex buffer layouts
	VertexLayouts() []wgpu.VertexBufferLayout

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// WorkgroupSize returns the workgroup size dimensions for compute shaders.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Module returns the wgpu.ShaderModuleDescriptor for this shader.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// ShaderType returns the type of the shader (vertex, fragment, or compute).
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex, ShaderTypeFragment, or ShaderTypeCompute
	ShaderType() ShaderType
}

var _ Shader = &shader{}

// NewShader parses WGSL source with naga and reflects the stage's resource interface.
// When the module declares several entry points of the requested stage the first one is used.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the stage to reflect
//   - source: WGSL source code
//
// Returns:
//   - Shader: the reflected shader
//   - error: an error if the source fails to parse or has no entry point of the stage
func NewShader(key string, shaderType ShaderType, source string) (Shader, error) {
	if source == "" {
		return nil, fmt.Errorf("shader %s: empty source", key)
	}
	module, err := lower(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	return newFromModule(key, shaderType, source, module)
}

// NewShaderPair reflects the vertex and fragment stages of a single WGSL module.
//
// Parameters:
//   - key: base key; ".vs" and ".fs" are appended per stage
//   - source: WGSL source code holding both entry points
//
// Returns:
//   - Shader: the vertex stage
//   - Shader: the fragment stage
//   - error: an error if the source fails to parse or either stage is missing
func NewShaderPair(key, source string) (Shader, Shader, error) {
	module, err := lower(source)
	if err != nil {
		return nil, nil, fmt.Errorf("shader %s: %w", key, err)
	}
	vs, err := newFromModule(key+".vs", ShaderTypeVertex, source, module)
	if err != nil {
		return nil, nil, err
	}
	fs, err := newFromModule(key+".fs", ShaderTypeFragment, source, module)
	if err != nil {
		return nil, nil, err
	}
	return vs, fs, nil
}

// Validate runs naga's IR validator over WGSL source and returns its findings as strings.
//
// Parameters:
//   - source: WGSL source code
//
// Returns:
//   - []string: validation messages; empty when the module is valid
//   - error: an error if the source fails to parse or lower
func Validate(source string) ([]string, error) {
	module, err := lower(source)
	if err != nil {
		return nil, err
	}
	findings, err := naga.Validate(module)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Error())
	}
	return out, nil
}

func lower(source string) (*ir.Module, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, err
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("lower error: %w", err)
	}
	return module, nil
}

func newFromModule(key string, shaderType ShaderType, source string, module *ir.Module) (*shader, error) {
	ep, ok := findEntryPoint(module, shaderType.stage())
	if !ok {
		return nil, fmt.Errorf("shader %s: no %s entry point", key, shaderType)
	}
	s := &shader{
		key:        key,
		source:     source,
		shaderType: shaderType,
		entryPoint: ep.Name,
		module: &wgpu.ShaderModuleDescriptor{
			Label: key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: source,
			},
		},
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames, s.uniformSizes = reflectBindGroups(module, key, shaderType.visibility())
	switch shaderType {
	case ShaderTypeVertex:
		layouts, err := reflectVertexLayouts(module, ep)
		if err != nil {
			return nil, fmt.Errorf("shader %s: %w", key, err)
		}
		s.vertexLayouts = layouts
	case ShaderTypeCompute:
		s.workGroupSize = ep.Workgroup
		if s.workGroupSize == ([3]uint32{}) {
			s.workGroupSize = [3]uint32{1, 1, 1}
		}
	}
	return s, nil
}

func findEntryPoint(module *ir.Module, stage ir.ShaderStage) (ir.EntryPoint, bool) {
	for _, ep := range module.EntryPoints {
		if ep.Stage == stage {
			return ep, true
		}
	}
	return ir.EntryPoint{}, false
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	if s.bindingVarNames[group] == nil {
		return -1, false
	}
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) UniformSize(group, binding int) uint64 {
	return s.uniformSizes[group][binding]
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

// MergeBindGroupLayouts combines the bind group layouts of several stages of one pipeline.
// Entries that share a group and binding are merged by OR-ing their visibility; entries are
// sorted by binding so the result is deterministic.
//
// Parameters:
//   - shaders: the pipeline's stages
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: merged descriptors keyed by group index
//   - int: the number of groups the pipeline layout needs (highest group index + 1)
func MergeBindGroupLayouts(shaders ...Shader) (map[int]wgpu.BindGroupLayoutDescriptor, int) {
	merged := make(map[int]map[uint32]wgpu.BindGroupLayoutEntry)
	labels := make(map[int]string)
	groupCount := 0
	for _, s := range shaders {
		if s == nil {
			continue
		}
		for group, desc := range s.BindGroupLayoutDescriptors() {
			groupCount = max(groupCount, group+1)
			if merged[group] == nil {
				merged[group] = make(map[uint32]wgpu.BindGroupLayoutEntry)
				labels[group] = desc.Label
			}
			for _, e := range desc.Entries {
				if existing, ok := merged[group][e.Binding]; ok {
					existing.Visibility |= e.Visibility
					merged[group][e.Binding] = existing
					continue
				}
				merged[group][e.Binding] = e
			}
		}
	}

	out := make(map[int]wgpu.BindGroupLayoutDescriptor, len(merged))
	for group, entries := range merged {
		list := make([]wgpu.BindGroupLayoutEntry, 0, len(entries))
		for _, e := range entries {
			list = append(list, e)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Binding < list[j].Binding })
		out[group] = wgpu.BindGroupLayoutDescriptor{Label: labels[group], Entries: list}
	}
	return out, groupCount
}
