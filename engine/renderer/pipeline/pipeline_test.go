package pipeline

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer/shader"
)

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("lit/front")
	if p.PipelineKey() != "lit/front" {
		t.Errorf("key = %q", p.PipelineKey())
	}
	if !p.DepthTestEnabled() || !p.DepthWriteEnabled() {
		t.Error("depth test and write should default on")
	}
	if p.DepthCompare() != wgpu.CompareFunctionLess || p.DepthFormat() != wgpu.TextureFormatDepth24Plus {
		t.Errorf("depth = %v/%v", p.DepthCompare(), p.DepthFormat())
	}
	if p.CullMode() != wgpu.CullModeNone || p.FrontFace() != wgpu.FrontFaceCCW {
		t.Errorf("raster = %v/%v", p.CullMode(), p.FrontFace())
	}
	if p.BlendEnabled() || p.BlendState() == nil {
		t.Error("blending should be off with an alpha blend state ready")
	}
	if p.SampleCount() != 0 {
		t.Errorf("sample count = %d, want 0 (target's)", p.SampleCount())
	}
	if !p.DepthOnly() {
		t.Error("pipeline without a fragment shader should be depth only")
	}
	if p.Shader(shader.ShaderTypeVertex) != nil || p.RenderPipeline() != nil {
		t.Error("unexpected shader or render pipeline")
	}
}

func TestPipelineOptions(t *testing.T) {
	p := NewPipeline("shadow",
		WithDepthFormat(wgpu.TextureFormatDepth32Float),
		WithDepthBias(2, 2.0),
		WithCullMode(wgpu.CullModeBack),
		WithBlendEnabled(true),
		WithSampleCount(1),
		WithDepthWriteEnabled(false),
	)
	if p.DepthFormat() != wgpu.TextureFormatDepth32Float {
		t.Errorf("depth format = %v", p.DepthFormat())
	}
	if p.DepthBias() != 2 || p.DepthBiasSlopeScale() != 2.0 {
		t.Errorf("bias = %d/%v", p.DepthBias(), p.DepthBiasSlopeScale())
	}
	if p.CullMode() != wgpu.CullModeBack || !p.BlendEnabled() || p.SampleCount() != 1 || p.DepthWriteEnabled() {
		t.Error("options not applied")
	}
}

func TestDepthCompareWithoutTest(t *testing.T) {
	p := NewPipeline("sky", WithDepthTestEnabled(false), WithDepthCompare(wgpu.CompareFunctionGreater))
	if p.DepthCompare() != wgpu.CompareFunctionAlways {
		t.Errorf("compare = %v, want Always when the depth test is off", p.DepthCompare())
	}
}
