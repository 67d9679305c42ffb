package renderer

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/camera"
	"github.com/Carmen-Shannon/oxy-viewer/engine/geometry"
	"github.com/Carmen-Shannon/oxy-viewer/engine/light"
	"github.com/Carmen-Shannon/oxy-viewer/engine/material"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

func floatAt(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func testCamera() camera.Camera {
	cam := camera.NewCamera(
		camera.WithAspect(1),
		camera.WithController(camera.NewCameraController(
			camera.WithRadius(5),
			camera.WithAzimuth(0),
			camera.WithElevation(0),
			camera.WithTarget(mgl32.Vec3{}),
		)),
	)
	cam.Update()
	return cam
}

func TestBlockSizes(t *testing.T) {
	if FrameBlockSize != 288 {
		t.Errorf("FrameBlockSize = %d, want 288", FrameBlockSize)
	}
	if ObjectBlockSize != 176 {
		t.Errorf("ObjectBlockSize = %d, want 176", ObjectBlockSize)
	}
	if SkyBlockSize != 144 {
		t.Errorf("SkyBlockSize = %d, want 144", SkyBlockSize)
	}
}

func TestFrameBlockMarshal(t *testing.T) {
	sc := scene.NewScene(
		scene.WithFog(scene.Fog{Color: common.Color3{0.1, 0.2, 0.3}, Near: 10, Far: 50}),
		scene.WithToneMapping(scene.ToneMappingACES, 1.2),
	)
	sc.SetEnvironment(&scene.Environment{Intensity: 0.5})
	f := buildFrameBlock(sc, testCamera(), true, true)
	buf := f.Marshal()
	if len(buf) != FrameBlockSize {
		t.Fatalf("len = %d", len(buf))
	}
	checks := []struct {
		name string
		off  int
		want float32
	}{
		{"fog red", 80, 0.1},
		{"fog enabled", 92, 1},
		{"fog near", 96, 10},
		{"fog far", 100, 50},
		{"aces", 112, 1},
		{"exposure", 116, 1.2},
		{"encode srgb", 120, 1},
		{"env intensity", 272, 0.5},
	}
	for _, c := range checks {
		if got := floatAt(buf, c.off); got != c.want {
			t.Errorf("%s at %d = %v, want %v", c.name, c.off, got, c.want)
		}
	}
}

func TestToneParamsDefaults(t *testing.T) {
	sc := scene.NewScene(scene.WithToneMapping(scene.ToneMappingLinear, 0))
	tone := toneParams(sc, false)
	if tone[0] != 0 || tone[1] != 1 || tone[2] != 0 {
		t.Errorf("tone = %v", tone)
	}
}

func TestObjectBlock(t *testing.T) {
	std := material.NewStandard(
		material.WithColor(common.Color3{1, 0.5, 0.25}),
		material.WithOpacity(0.5),
		material.WithEmissive(common.Color3{1, 1, 1}, 2),
		material.WithMetalness(0.3),
		material.WithRoughness(0.7),
	)
	m := scene.NewMesh("box", geometry.NewBox(1, 1, 1), std)
	m.SetReceiveShadow(true)
	world := mgl32.Translate3D(1, 2, 3)

	b := buildObjectBlock(m, world, true)
	if b.Color != [4]float32{1, 0.5, 0.25, 0.5} {
		t.Errorf("color = %v", b.Color)
	}
	if b.Emissive != [4]float32{2, 2, 2, 0} {
		t.Errorf("emissive = %v", b.Emissive)
	}
	if b.Params != [4]float32{0.3, 0.7, 1, 0} {
		t.Errorf("params = %v", b.Params)
	}
	buf := b.Marshal()
	if len(buf) != ObjectBlockSize {
		t.Fatalf("len = %d", len(buf))
	}
	if got := floatAt(buf, 12*4); got != 1 {
		t.Errorf("model translation x = %v", got)
	}

	if b := buildObjectBlock(m, world, false); b.Params[2] != 0 {
		t.Error("receive flag set with shadows disabled")
	}
}

func TestCollectDraws(t *testing.T) {
	mat := material.NewStandard()
	box := geometry.NewBox(1, 1, 1)

	inView := scene.NewMesh("in-view", box, mat)
	inView.SetCastShadow(true)
	behind := scene.NewMesh("behind", box, mat)
	behind.SetPosition(mgl32.Vec3{0, 0, 50})
	behind.SetCastShadow(true)
	hidden := scene.NewMesh("hidden", box, mat)
	hidden.SetVisible(false)
	hiddenChild := scene.NewMesh("hidden-child", box, mat)
	hidden.Add(hiddenChild)
	empty := scene.NewMesh("empty", &geometry.Geometry{}, mat)

	sc := scene.NewScene(scene.WithNodes(inView, behind, hidden, empty))
	frustum := testCamera().Frustum()

	color, casters := collectDraws(sc.Root(), &frustum)
	if len(color) != 1 || color[0].mesh != inView {
		t.Errorf("color draws = %v", names(color))
	}
	if len(casters) != 2 {
		t.Errorf("casters = %v", names(casters))
	}

	all, _ := collectDraws(sc.Root(), nil)
	if len(all) != 2 {
		t.Errorf("unculled draws = %v", names(all))
	}
}

func TestSortForBlending(t *testing.T) {
	box := geometry.NewBox(1, 1, 1)
	glass := scene.NewMesh("glass", box, material.NewStandard(material.WithOpacity(0.4)))
	a := scene.NewMesh("a", box, material.NewStandard())
	b := scene.NewMesh("b", box, material.NewStandard())

	items := []drawItem{{mesh: glass}, {mesh: a}, {mesh: b}}
	got := names(sortForBlending(items))
	want := []string{"a", "b", "glass"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestOverlayRect(t *testing.T) {
	r := overlayRect(100, 50, 1000, 500, 10)
	want := [4]float32{0.78, 0.76, 0.98, 0.96}
	for i := range want {
		if math.Abs(float64(r[i]-want[i])) > 1e-5 {
			t.Fatalf("rect = %v, want %v", r, want)
		}
	}
	if overlayRect(10, 10, 0, 100, 0) != ([4]float32{}) {
		t.Error("zero viewport should give an empty rect")
	}
}

func names(items []drawItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.mesh.Name()
	}
	return out
}

func TestBuildLightBlockShadowFilter(t *testing.T) {
	shadow := light.DefaultShadow()
	shadow.MapSize = 512
	sc := scene.NewScene()
	sc.Add(light.NewPoint(light.WithCastShadow(true), light.WithShadow(shadow)))

	tests := []struct {
		name  string
		cfg   ShadowConfig
		texel float32
	}{
		{name: "pcf single tap", cfg: ShadowConfig{Type: ShadowPCF, MapSize: 512}, texel: 0},
		{name: "pcf soft kernel", cfg: ShadowConfig{Type: ShadowPCFSoft, MapSize: 512}, texel: 1.0 / 512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, p := buildLightBlock(sc, true, true, tt.cfg)
			if p == nil || !b.ShadowEnabled() {
				t.Fatal("expected a shadowed point light")
			}
			if b.ShadowParams[3] != tt.texel {
				t.Fatalf("texel step = %v, want %v", b.ShadowParams[3], tt.texel)
			}
		})
	}

	b, _ := buildLightBlock(sc, false, true, ShadowConfig{Type: ShadowPCF})
	if b.ShadowEnabled() {
		t.Fatal("shadows reported without EnableShadows")
	}
}
