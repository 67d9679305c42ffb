package shader

import (
	"embed"
	"fmt"
)

//go:embed wgsl/*.wgsl glsl/*.vert glsl/*.frag
var sources embed.FS

// Built-in WGSL programs. Each holds a vs_main and, except the shadow program, an fs_main.
const (
	WGSLLit     = "wgsl/lit.wgsl"
	WGSLShadow  = "wgsl/shadow.wgsl"
	WGSLSky     = "wgsl/sky.wgsl"
	WGSLOverlay = "wgsl/overlay.wgsl"
)

// Built-in GLSL 410 programs, as vertex/fragment path pairs.
var (
	GLSLLit     = [2]string{"glsl/lit.vert", "glsl/lit.frag"}
	GLSLShadow  = [2]string{"glsl/shadow.vert", "glsl/shadow.frag"}
	GLSLSky     = [2]string{"glsl/sky.vert", "glsl/sky.frag"}
	GLSLOverlay = [2]string{"glsl/overlay.vert", "glsl/overlay.frag"}
)

// Source returns an embedded shader source by path.
//
// Parameters:
//   - path: one of the WGSL* or GLSL* paths
//
// Returns:
//   - string: the shader source
//   - error: an error if the path is not embedded
func Source(path string) (string, error) {
	data, err := sources.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("shader source %q: %w", path, err)
	}
	return string(data), nil
}

// LoadBuiltin reflects one of the embedded WGSL programs into its vertex and fragment stages.
// The fragment stage is nil for depth-only programs.
//
// Parameters:
//   - path: one of the WGSL* paths
//
// Returns:
//   - Shader: the vertex stage
//   - Shader: the fragment stage, or nil
//   - error: an error if the source is missing or fails to reflect
func LoadBuiltin(path string) (Shader, Shader, error) {
	src, err := Source(path)
	if err != nil {
		return nil, nil, err
	}
	module, err := lower(src)
	if err != nil {
		return nil, nil, fmt.Errorf("shader %s: %w", path, err)
	}
	vs, err := newFromModule(path+".vs", ShaderTypeVertex, src, module)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := findEntryPoint(module, ShaderTypeFragment.stage()); !ok {
		return vs, nil, nil
	}
	fs, err := newFromModule(path+".fs", ShaderTypeFragment, src, module)
	if err != nil {
		return nil, nil, err
	}
	return vs, fs, nil
}
