package shader

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

const testProgram = `
struct Globals {
    view_proj: mat4x4<f32>,
    tint: vec3<f32>,
    scale: f32,
}

@group(0) @binding(0)
var<uniform> u_globals: Globals;
@group(1) @binding(0)
var t_color: texture_2d<f32>;
@group(1) @binding(1)
var s_color: sampler;
@group(1) @binding(2)
var t_depth: texture_depth_2d_array;
@group(1) @binding(3)
var s_depth: sampler_comparison;

struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(2) uv: vec2<f32>,
    @location(1) normal: vec3<f32>,
}

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(in: VertexInput, @builtin(vertex_index) index: u32) -> VertexOutput {
    var out: VertexOutput;
    out.position = u_globals.view_proj * vec4<f32>(in.position * u_globals.scale, 1.0);
    out.uv = in.uv;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let c = textureSample(t_color, s_color, in.uv);
    return vec4<f32>(c.xyz * u_globals.tint, 1.0);
}
`

func TestNewShaderPairReflectsBindGroups(t *testing.T) {
	vs, fs, err := NewShaderPair("test", testProgram)
	if err != nil {
		t.Fatalf("NewShaderPair: %v", err)
	}
	if vs.EntryPoint() != "vs_main" || fs.EntryPoint() != "fs_main" {
		t.Fatalf("entry points = %q, %q", vs.EntryPoint(), fs.EntryPoint())
	}
	if vs.Key() != "test.vs" || fs.ShaderType() != ShaderTypeFragment {
		t.Fatalf("unexpected key/type %q %v", vs.Key(), fs.ShaderType())
	}

	g0 := fs.BindGroupLayoutDescriptor(0)
	if len(g0.Entries) != 1 || g0.Entries[0].Buffer.Type != wgpu.BufferBindingTypeUniform {
		t.Fatalf("group 0 = %+v", g0)
	}
	// mat4 (64) + vec3 (12) + f32 (4)
	if got := fs.UniformSize(0, 0); got != 80 {
		t.Fatalf("uniform size = %d, want 80", got)
	}
	if g0.Entries[0].Visibility != wgpu.ShaderStageFragment {
		t.Fatalf("visibility = %v", g0.Entries[0].Visibility)
	}

	g1 := fs.BindGroupLayoutDescriptor(1)
	if len(g1.Entries) != 4 {
		t.Fatalf("group 1 has %d entries", len(g1.Entries))
	}
	if e := g1.Entries[0]; e.Texture.SampleType != wgpu.TextureSampleTypeFloat || e.Texture.ViewDimension != wgpu.TextureViewDimension2D {
		t.Fatalf("color texture entry = %+v", e.Texture)
	}
	if e := g1.Entries[1]; e.Sampler.Type != wgpu.SamplerBindingTypeFiltering {
		t.Fatalf("sampler entry = %+v", e.Sampler)
	}
	if e := g1.Entries[2]; e.Texture.SampleType != wgpu.TextureSampleTypeDepth || e.Texture.ViewDimension != wgpu.TextureViewDimension2DArray {
		t.Fatalf("depth texture entry = %+v", e.Texture)
	}
	if e := g1.Entries[3]; e.Sampler.Type != wgpu.SamplerBindingTypeComparison {
		t.Fatalf("comparison sampler entry = %+v", e.Sampler)
	}

	if name := fs.BindGroupVarName(1, 0); name != "t_color" {
		t.Fatalf("BindGroupVarName = %q", name)
	}
	if b, ok := fs.BindGroupFromVarName(1, "s_depth"); !ok || b != 3 {
		t.Fatalf("BindGroupFromVarName = %d, %v", b, ok)
	}
	if _, ok := fs.BindGroupFromVarName(2, "missing"); ok {
		t.Fatal("unexpected lookup hit")
	}
}

func TestVertexLayoutFromStructInput(t *testing.T) {
	vs, _, err := NewShaderPair("test", testProgram)
	if err != nil {
		t.Fatalf("NewShaderPair: %v", err)
	}
	layouts := vs.VertexLayouts()
	if len(layouts) != 1 {
		t.Fatalf("got %d layouts", len(layouts))
	}
	l := layouts[0]
	if l.ArrayStride != 32 || len(l.Attributes) != 3 {
		t.Fatalf("layout = %+v", l)
	}
	want := []struct {
		loc    uint32
		offset uint64
		format wgpu.VertexFormat
	}{
		{0, 0, wgpu.VertexFormatFloat32x3},
		{1, 12, wgpu.VertexFormatFloat32x3},
		{2, 24, wgpu.VertexFormatFloat32x2},
	}
	for i, w := range want {
		a := l.Attributes[i]
		if a.ShaderLocation != w.loc || a.Offset != w.offset || a.Format != w.format {
			t.Fatalf("attribute %d = %+v, want %+v", i, a, w)
		}
	}
}

func TestMergeBindGroupLayouts(t *testing.T) {
	vs, fs, err := NewShaderPair("test", testProgram)
	if err != nil {
		t.Fatalf("NewShaderPair: %v", err)
	}
	merged, count := MergeBindGroupLayouts(vs, fs, nil)
	if count != 2 {
		t.Fatalf("group count = %d", count)
	}
	vis := merged[0].Entries[0].Visibility
	if vis != wgpu.ShaderStageVertex|wgpu.ShaderStageFragment {
		t.Fatalf("merged visibility = %v", vis)
	}
	for i := 1; i < len(merged[1].Entries); i++ {
		if merged[1].Entries[i-1].Binding >= merged[1].Entries[i].Binding {
			t.Fatal("merged entries are not sorted by binding")
		}
	}
}

func TestNewShaderErrors(t *testing.T) {
	if _, err := NewShader("empty", ShaderTypeVertex, ""); err == nil {
		t.Fatal("expected an error for empty source")
	}
	if _, err := NewShader("broken", ShaderTypeVertex, "fn main( {"); err == nil {
		t.Fatal("expected a parse error")
	}
	computeOnly := "@compute @workgroup_size(8, 4, 1)\nfn main() {}\n"
	if _, err := NewShader("compute", ShaderTypeVertex, computeOnly); err == nil || !strings.Contains(err.Error(), "vertex") {
		t.Fatalf("expected a missing entry point error, got %v", err)
	}
	cs, err := NewShader("compute", ShaderTypeCompute, computeOnly)
	if err != nil {
		t.Fatalf("NewShader compute: %v", err)
	}
	if cs.WorkgroupSize() != [3]uint32{8, 4, 1} {
		t.Fatalf("workgroup size = %v", cs.WorkgroupSize())
	}
}

func TestBuiltinPrograms(t *testing.T) {
	vs, fs, err := LoadBuiltin(WGSLLit)
	if err != nil {
		t.Fatalf("lit: %v", err)
	}
	if got := vs.UniformSize(0, 0); got != 288 {
		t.Fatalf("frame uniform size = %d, want 288", got)
	}
	if got := fs.UniformSize(0, 1); got != 448 {
		t.Fatalf("light uniform size = %d, want 448", got)
	}
	if got := fs.UniformSize(1, 0); got != 176 {
		t.Fatalf("object uniform size = %d, want 176", got)
	}
	if l := vs.VertexLayouts(); len(l) != 1 || l[0].ArrayStride != 32 {
		t.Fatalf("lit vertex layout = %+v", l)
	}

	svs, sfs, err := LoadBuiltin(WGSLShadow)
	if err != nil {
		t.Fatalf("shadow: %v", err)
	}
	if sfs != nil {
		t.Fatal("shadow program should be depth only")
	}
	if svs.UniformSize(1, 0) != 64 {
		t.Fatalf("shadow object size = %d", svs.UniformSize(1, 0))
	}

	for _, path := range []string{WGSLSky, WGSLOverlay} {
		vs, fs, err := LoadBuiltin(path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if fs == nil || len(vs.VertexLayouts()) != 0 {
			t.Fatalf("%s: expected a fragment stage and no vertex buffers", path)
		}
	}

	for _, pair := range [][2]string{GLSLLit, GLSLShadow, GLSLSky, GLSLOverlay} {
		for _, p := range pair {
			src, err := Source(p)
			if err != nil || !strings.HasPrefix(src, "#version 410 core") {
				t.Fatalf("%s: %v", p, err)
			}
		}
	}
}
