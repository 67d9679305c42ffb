package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestNewBindGroupProvider(t *testing.T) {
	buf := &wgpu.Buffer{}
	vb, ib := &wgpu.Buffer{}, &wgpu.Buffer{}
	p := NewBindGroupProvider("frame", WithBuffer(1, buf), WithMeshBuffers(vb, ib, 36))
	if p.Label() != "frame" {
		t.Errorf("label = %q", p.Label())
	}
	if p.Buffer(1) != buf || p.Buffer(0) != nil {
		t.Error("buffer bindings not applied")
	}
	if p.VertexBuffer() != vb || p.IndexBuffer() != ib || p.IndexCount() != 36 {
		t.Error("mesh buffers not applied")
	}
	if p.BindGroup() != nil {
		t.Error("bind group should be unset")
	}
}

func TestBufferWriteValid(t *testing.T) {
	p := NewBindGroupProvider("object", WithBuffer(0, &wgpu.Buffer{}))
	tests := []struct {
		name  string
		write BufferWrite
		want  bool
	}{
		{name: "ok", write: BufferWrite{Provider: p, Binding: 0, Data: []byte{1}}, want: true},
		{name: "no provider", write: BufferWrite{Binding: 0, Data: []byte{1}}},
		{name: "missing binding", write: BufferWrite{Provider: p, Binding: 3, Data: []byte{1}}},
		{name: "empty data", write: BufferWrite{Provider: p, Binding: 0}},
	}
	for _, tt := range tests {
		if got := tt.write.Valid(); got != tt.want {
			t.Errorf("%s: Valid = %v, want %v", tt.name, got, tt.want)
		}
	}
}
