package renderer

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-viewer/engine/camera"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer/shader"
)

// Vertex attribute names bound to locations 0, 1 and 2 before linking, matching the interleaved
// geometry layout.
var glAttributes = [...]string{"position", "normal", "uv"}

// glProgram is a linked GLSL program with a lazily filled uniform location cache.
type glProgram struct {
	id        uint32
	locations map[string]int32
}

// loadGLProgram compiles one of the embedded vertex/fragment pairs.
func loadGLProgram(paths [2]string) (*glProgram, error) {
	vs, err := shader.Source(paths[0])
	if err != nil {
		return nil, err
	}
	fs, err := shader.Source(paths[1])
	if err != nil {
		return nil, err
	}
	p, err := newGLProgram(vs, fs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", paths[0], err)
	}
	return p, nil
}

// newGLProgram compiles and links a program.
//
// Parameters:
//   - vertexSource: GLSL vertex stage
//   - fragmentSource: GLSL fragment stage
//
// Returns:
//   - *glProgram: the linked program
//   - error: the compiler or linker log on failure
func newGLProgram(vertexSource, fragmentSource string) (*glProgram, error) {
	vs, err := compileGLShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vs)
	fs, err := compileGLShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(fs)

	id := gl.CreateProgram()
	gl.AttachShader(id, vs)
	gl.AttachShader(id, fs)
	for i, name := range glAttributes {
		gl.BindAttribLocation(id, uint32(i), gl.Str(name+"\x00"))
	}
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(log))
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("link: %s", strings.TrimRight(log, "\x00"))
	}
	gl.DetachShader(id, vs)
	gl.DetachShader(id, fs)
	return &glProgram{id: id, locations: make(map[string]int32)}, nil
}

func compileGLShader(source string, shaderType uint32) (uint32, error) {
	s := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(s, 1, csources, nil)
	free()
	gl.CompileShader(s)

	var status int32
	gl.GetShaderiv(s, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(s, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(s, logLength, nil, gl.Str(log))
		gl.DeleteShader(s)
		return 0, fmt.Errorf("compile: %s", strings.TrimRight(log, "\x00"))
	}
	return s, nil
}

// uniform returns the location of a uniform, or -1 if the program does not use it.
func (p *glProgram) uniform(name string) int32 {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.locations[name] = loc
	return loc
}

func (p *glProgram) bindBlock(name string, binding uint32) {
	idx := gl.GetUniformBlockIndex(p.id, gl.Str(name+"\x00"))
	if idx != gl.INVALID_INDEX {
		gl.UniformBlockBinding(p.id, idx, binding)
	}
}

func (p *glProgram) bindSampler(name string, unit int32) {
	if loc := p.uniform(name); loc >= 0 {
		gl.UseProgram(p.id)
		gl.Uniform1i(loc, unit)
		gl.UseProgram(0)
	}
}

// setBuiltins uploads the transform uniforms every custom program may declare.
func (p *glProgram) setBuiltins(world mgl32.Mat4, cam camera.Camera) {
	view := cam.ViewMatrix()
	proj := cam.ProjectionMatrix()
	modelView := view.Mul4(world)
	normal := modelView.Mat3().Inv().Transpose()
	pos := cam.Position()

	p.set("modelMatrix", world)
	p.set("viewMatrix", view)
	p.set("projectionMatrix", proj)
	p.set("modelViewMatrix", modelView)
	if loc := p.uniform("normalMatrix"); loc >= 0 {
		gl.UniformMatrix3fv(loc, 1, false, &normal[0])
	}
	p.set("cameraPosition", pos)
}

// set uploads a uniform value of any type a shader material accepts. Unknown names are ignored.
func (p *glProgram) set(name string, v any) {
	loc := p.uniform(name)
	if loc < 0 {
		return
	}
	switch val := v.(type) {
	case float32:
		gl.Uniform1f(loc, val)
	case int32:
		gl.Uniform1i(loc, val)
	case mgl32.Vec2:
		gl.Uniform2f(loc, val[0], val[1])
	case mgl32.Vec3:
		gl.Uniform3f(loc, val[0], val[1], val[2])
	case mgl32.Vec4:
		gl.Uniform4f(loc, val[0], val[1], val[2], val[3])
	case mgl32.Mat4:
		gl.UniformMatrix4fv(loc, 1, false, &val[0])
	}
}

func (p *glProgram) release() {
	gl.DeleteProgram(p.id)
}
