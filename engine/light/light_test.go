package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

func TestNewPointOptions(t *testing.T) {
	p := NewPoint(
		WithPosition(2, 2, 0),
		WithIntensity(1.5),
		WithDistance(50),
		WithCastShadow(true),
		WithShadow(Shadow{MapSize: 512, Bias: -0.0005, NormalBias: 0.02}),
	)
	if p.Kind() != scene.KindPointLight {
		t.Fatalf("kind = %v", p.Kind())
	}
	if p.Position() != (mgl32.Vec3{2, 2, 0}) || p.Intensity() != 1.5 || p.Distance() != 50 {
		t.Fatalf("options not applied: pos %v intensity %v distance %v", p.Position(), p.Intensity(), p.Distance())
	}
	if !p.CastShadow() || p.Shadow().MapSize != 512 || p.Shadow().Bias != -0.0005 {
		t.Fatalf("shadow options not applied: %+v", p.Shadow())
	}
	if ShadowFar(p) != 50 {
		t.Fatalf("ShadowFar = %v", ShadowFar(p))
	}
}

func TestAttenuation(t *testing.T) {
	p := NewPoint(WithDistance(10))
	if a := p.Attenuation(1); math.Abs(float64(a)-0.9998) > 1e-3 {
		t.Fatalf("Attenuation(1) = %v", a)
	}
	if p.Attenuation(10) != 0 || p.Attenuation(20) != 0 {
		t.Fatal("attenuation should reach zero at the range")
	}
	unlimited := NewPoint()
	if a := unlimited.Attenuation(2); math.Abs(float64(a)-0.25) > 1e-6 {
		t.Fatalf("inverse square at 2 = %v", a)
	}
}

func TestCollect(t *testing.T) {
	root := scene.NewGroup("root")
	amb := NewAmbient(common.Color3{1, 1, 1}, 0.4)
	p := NewPoint()
	hidden := NewPoint()
	hidden.SetVisible(false)
	root.Add(amb, p, hidden)

	ambients, points := Collect(root)
	if len(ambients) != 1 || ambients[0] != amb {
		t.Fatalf("ambients = %v", ambients)
	}
	if len(points) != 1 || points[0] != p {
		t.Fatalf("points = %v", points)
	}
}

func TestFaceIndexMatchesViewProjection(t *testing.T) {
	pos := mgl32.Vec3{1, 2, 3}
	vps := FaceViewProjections(pos, DefaultShadow(), true)
	dirs := []mgl32.Vec3{{5, 1, -1}, {-5, 1, 1}, {0.5, 4, 1}, {1, -3, 0}, {0, 1, 2}, {1, 0, -2}}
	for want, d := range dirs {
		face := FaceIndex(d)
		if face != want {
			t.Fatalf("FaceIndex(%v) = %d, want %d", d, face, want)
		}
		clip := vps[face].Mul4x1(pos.Add(d).Vec4(1))
		ndc := clip.Vec3().Mul(1 / clip.W())
		if clip.W() <= 0 || abs(ndc[0]) > 1 || abs(ndc[1]) > 1 || ndc[2] < 0 || ndc[2] > 1 {
			t.Fatalf("point along %v falls outside face %d: ndc %v", d, face, ndc)
		}
	}
}

func TestBuildLightBlock(t *testing.T) {
	amb := NewAmbient(common.Color3{1, 1, 1}, 0.4)
	p := NewPoint(WithPosition(2, 2, 0), WithIntensity(1.5), WithCastShadow(true),
		WithShadow(Shadow{MapSize: 512, Bias: -0.001}))

	b, shaded := BuildLightBlock([]*Ambient{amb}, []*Point{p}, false, false)
	if shaded != p {
		t.Fatal("first point light should be shaded")
	}
	if b.ShadowEnabled() {
		t.Fatal("shadows must stay off when the renderer disables them")
	}
	if b.Ambient[0] != 0.4 || b.PointColor[0] != 1.5 || b.PointPosition[0] != 2 {
		t.Fatalf("unexpected block %+v", b)
	}

	b, _ = BuildLightBlock(nil, []*Point{p}, true, false)
	if !b.ShadowEnabled() || b.ShadowParams[1] != -0.001 || b.ShadowParams[3] != 1.0/512 {
		t.Fatalf("shadow params = %v", b.ShadowParams)
	}

	buf := b.Marshal()
	if len(buf) != GPULightBlockSize {
		t.Fatalf("marshaled %d bytes", len(buf))
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[16:20])); got != 2 {
		t.Fatalf("point position x at offset 16 = %v", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[48:52])); got != 1 {
		t.Fatalf("shadow enabled at offset 48 = %v", got)
	}

	empty, none := BuildLightBlock(nil, nil, true, true)
	if none != nil || empty.ShadowEnabled() || empty.ShadowVP[0] != mgl32.Ident4() {
		t.Fatal("empty light list should produce a neutral block")
	}
}
