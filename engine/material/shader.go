package material

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Shader is a material backed by a user-supplied vertex/fragment program. Its inputs are named
// uniforms; backends upload every uniform each frame after the built-in matrices.
type Shader struct {
	id             uint64
	name           string
	side           Side
	vertexSource   string
	fragmentSource string
	uniforms       map[string]any
}

var _ Material = &Shader{}

// ShaderBuilderOption is a function that configures a Shader material during construction.
type ShaderBuilderOption func(*Shader)

// NewShader creates a Shader material from program sources.
//
// Parameters:
//   - vertexSource: vertex stage source
//   - fragmentSource: fragment stage source
//   - options: functional options applied in order
//
// Returns:
//   - *Shader: the new material
//   - error: an error if either source is empty or an initial uniform has an unsupported type
func NewShader(vertexSource, fragmentSource string, options ...ShaderBuilderOption) (*Shader, error) {
	if vertexSource == "" || fragmentSource == "" {
		return nil, fmt.Errorf("shader material requires both vertex and fragment sources")
	}
	m := &Shader{
		id:             materialCount.Add(1),
		name:           "shader",
		vertexSource:   vertexSource,
		fragmentSource: fragmentSource,
		uniforms:       make(map[string]any),
	}
	for _, opt := range options {
		opt(m)
	}
	for name, v := range m.uniforms {
		if err := checkUniform(name, v); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// WithShaderName sets the name of the shader material.
func WithShaderName(name string) ShaderBuilderOption {
	return func(m *Shader) {
		m.name = name
	}
}

// WithShaderSide selects which faces are rendered.
func WithShaderSide(side Side) ShaderBuilderOption {
	return func(m *Shader) {
		m.side = side
	}
}

// WithUniform is an option builder that declares a uniform with its initial value.
// Supported value types are float32, int32, mgl32.Vec2, mgl32.Vec3, mgl32.Vec4 and mgl32.Mat4.
//
// Parameters:
//   - name: the uniform name as declared in the program
//   - value: the initial value
//
// Returns:
//   - ShaderBuilderOption: a function that applies the uniform option
func WithUniform(name string, value any) ShaderBuilderOption {
	return func(m *Shader) {
		m.uniforms[name] = value
	}
}

func (m *Shader) ID() uint64 {
	return m.id
}

func (m *Shader) Name() string {
	return m.name
}

func (m *Shader) Kind() Kind {
	return KindShader
}

func (m *Shader) Side() Side {
	return m.side
}

// VertexSource returns the vertex stage source.
func (m *Shader) VertexSource() string {
	return m.vertexSource
}

// FragmentSource returns the fragment stage source.
func (m *Shader) FragmentSource() string {
	return m.fragmentSource
}

// SetUniform assigns a value to a uniform. The value's type must be supported and, for an
// existing uniform, must match the type it was declared with.
//
// Parameters:
//   - name: the uniform name
//   - value: the new value
//
// Returns:
//   - error: an error if the type is unsupported or differs from the declared type
func (m *Shader) SetUniform(name string, value any) error {
	if err := checkUniform(name, value); err != nil {
		return err
	}
	if prev, ok := m.uniforms[name]; ok && fmt.Sprintf("%T", prev) != fmt.Sprintf("%T", value) {
		return fmt.Errorf("uniform %q is %T, cannot assign %T", name, prev, value)
	}
	m.uniforms[name] = value
	return nil
}

// Uniform returns the current value of a uniform.
func (m *Shader) Uniform(name string) (any, bool) {
	v, ok := m.uniforms[name]
	return v, ok
}

// UniformNames returns the declared uniform names in sorted order.
func (m *Shader) UniformNames() []string {
	names := make([]string, 0, len(m.uniforms))
	for name := range m.uniforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkUniform(name string, v any) error {
	switch v.(type) {
	case float32, int32, mgl32.Vec2, mgl32.Vec3, mgl32.Vec4, mgl32.Mat4:
		return nil
	default:
		return fmt.Errorf("uniform %q has unsupported type %T", name, v)
	}
}
