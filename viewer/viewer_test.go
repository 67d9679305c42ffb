package viewer

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/camera"
	"github.com/Carmen-Shannon/oxy-viewer/engine/host"
	"github.com/Carmen-Shannon/oxy-viewer/engine/loader"
	"github.com/Carmen-Shannon/oxy-viewer/engine/material"
	"github.com/Carmen-Shannon/oxy-viewer/engine/probe"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
	"github.com/Carmen-Shannon/oxy-viewer/engine/window"
)

type fakeRenderer struct {
	kind       renderer.Kind
	compileErr error
	renderErr  error

	compiled []material.Material
	renders  int
	width    int
	height   int
}

var _ renderer.Renderer = &fakeRenderer{}

func (f *fakeRenderer) Kind() renderer.Kind { return f.kind }
func (f *fakeRenderer) SetViewport(width, height int) { f.width, f.height = width, height }
func (f *fakeRenderer) SetPixelRatio(ratio float64) {}
func (f *fakeRenderer) PixelRatio() float64 { return 1 }
func (f *fakeRenderer) EnableShadows(cfg renderer.ShadowConfig) {}
func (f *fakeRenderer) SetOverlay(img *common.TextureStagingData) {}
func (f *fakeRenderer) Close() {}

func (f *fakeRenderer) Compile(m material.Material) error {
	f.compiled = append(f.compiled, m)
	return f.compileErr
}

func (f *fakeRenderer) Render(sc scene.Scene, cam camera.Camera) error {
	f.renders++
	return f.renderErr
}

type syncPoster struct {
	mu    sync.Mutex
	posts int
}

func (p *syncPoster) Post(fn func()) {
	p.mu.Lock()
	p.posts++
	p.mu.Unlock()
	fn()
}

func newTestLoader() loader.Loader {
	return loader.NewLoader(loader.WithPoster(&syncPoster{}), loader.WithWorkers(1))
}

// compose builds a State over an empty asset directory and waits for every load to settle.
func compose(t *testing.T, r renderer.Renderer, profile probe.PerformanceProfile, dir string) *State {
	t.Helper()
	s, err := Compose(r, profile, AssetsIn(dir), newTestLoader(), zap.NewNop())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, h := range s.Loads.All() {
		if err := h.Wait(ctx); errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("load %s did not settle", h.Name())
		}
	}
	return s
}

// writeModel saves a one-triangle binary glTF at path.
func writeModel(t *testing.T, path string) {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	doc.Meshes = []*gltf.Mesh{{
		Name: "triangle",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]int{gltf.POSITION: pos},
			Indices:    gltf.Index(idx),
		}},
	}}
	doc.Nodes = []*gltf.Node{{Name: "body", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Name = ""
	doc.Scenes[0].Nodes = []int{0}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatalf("SaveBinary: %v", err)
	}
}

func TestComposeGraph(t *testing.T) {
	r := &fakeRenderer{kind: renderer.KindGL}
	s := compose(t, r, probe.DefaultProfile(), t.TempDir())

	root := s.Scene.Root()
	counts := map[scene.NodeKind]int{
		scene.KindAmbientLight: 1,
		scene.KindPointLight:   1,
		scene.KindMesh:         2,
	}
	for kind, want := range counts {
		if got := scene.CountKind(root, kind); got != want {
			t.Errorf("%s count = %d, want %d", kind, got, want)
		}
	}
	if s.Scene.NodeCount() != 4 {
		t.Errorf("node count = %d, want 4", s.Scene.NodeCount())
	}
	if s.Ambient.Intensity() != AmbientIntensity {
		t.Errorf("ambient intensity = %v", s.Ambient.Intensity())
	}
	if s.Light.Intensity() != LightIntensity || s.Light.Distance() != LightDistance {
		t.Errorf("point light = %v at %v", s.Light.Intensity(), s.Light.Distance())
	}
	if !s.Light.CastShadow() || s.Light.Shadow().MapSize != 2048 {
		t.Errorf("light shadow = %v, %+v", s.Light.CastShadow(), s.Light.Shadow())
	}
	if sh := s.Light.Shadow(); sh.Bias != -0.001 || sh.NormalBias != 0 {
		t.Errorf("GL shadow bias = %v / %v", sh.Bias, sh.NormalBias)
	}
	if s.Ground.CastShadow() || !s.Ground.ReceiveShadow() {
		t.Error("ground should receive but not cast shadows")
	}
	if !s.Cube.CastShadow() || !s.Cube.ReceiveShadow() {
		t.Error("cube should cast and receive shadows")
	}
	up := s.Ground.WorldMatrix().Mul4x1(mgl32.Vec4{0, 0, 1, 0}).Vec3()
	if !vecNear(up, mgl32.Vec3{0, 1, 0}) {
		t.Errorf("ground normal = %v, want +Y", up)
	}
	if s.Scene.Fog() == nil || s.Scene.Fog().Near != FogNear || s.Scene.Fog().Far != FogFar {
		t.Errorf("fog = %+v", s.Scene.Fog())
	}
	if s.Scene.Fog().Color != s.Scene.Background().Color {
		t.Error("fog color does not match the background")
	}
	if s.Scene.ToneMapping() != scene.ToneMappingACES || s.Scene.Exposure() != 1 {
		t.Errorf("tone mapping = %s × %v", s.Scene.ToneMapping(), s.Scene.Exposure())
	}

	// nothing in the empty asset directory loads, and nothing is substituted
	if s.Model != nil {
		t.Error("model attached although the load failed")
	}
	for _, h := range s.Loads.All() {
		if h.Err() == nil {
			t.Errorf("load %s succeeded from an empty directory", h.Name())
		}
	}
	if s.Scene.Background().Cube != nil || s.Scene.Environment() != nil {
		t.Error("background or environment set after failed loads")
	}
}

func TestComposeLowEnd(t *testing.T) {
	r := &fakeRenderer{kind: renderer.KindWGPU}
	s := compose(t, r, probe.LowEndProfile(), t.TempDir())

	if s.Light.CastShadow() || s.Cube.CastShadow() || s.Cube.ReceiveShadow() || s.Ground.ReceiveShadow() {
		t.Error("shadow flags set on a low-end profile")
	}
	if sh := s.Light.Shadow(); sh.MapSize != 512 || sh.Bias != -0.0005 || sh.NormalBias != 0.02 {
		t.Errorf("WebGPU shadow = %+v", sh)
	}
	if s.Scene.Fog() == nil {
		t.Error("low-end profile keeps fog")
	}
	if s.Scene.ToneMapping() != scene.ToneMappingLinear {
		t.Errorf("tone mapping = %s, want linear", s.Scene.ToneMapping())
	}
}

func TestComposeCubeMaterial(t *testing.T) {
	tests := []struct {
		name         string
		renderer     *fakeRenderer
		wantMode     material.AnimationMode
		wantCompiles int
	}{
		{name: "gl", renderer: &fakeRenderer{kind: renderer.KindGL}, wantMode: material.ModeShaderDriven, wantCompiles: 1},
		{name: "gl compile failure", renderer: &fakeRenderer{kind: renderer.KindGL, compileErr: errors.New("driver says no")}, wantMode: material.ModeNativePulse, wantCompiles: 1},
		{name: "wgpu", renderer: &fakeRenderer{kind: renderer.KindWGPU}, wantMode: material.ModeNativePulse, wantCompiles: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := compose(t, tt.renderer, probe.DefaultProfile(), t.TempDir())
			if s.Animated.Mode() != tt.wantMode {
				t.Errorf("mode = %s, want %s", s.Animated.Mode(), tt.wantMode)
			}
			if len(tt.renderer.compiled) != tt.wantCompiles {
				t.Errorf("compiles = %d, want %d", len(tt.renderer.compiled), tt.wantCompiles)
			}
			if s.Cube.Material() != s.Animated.Material() {
				t.Error("cube does not use the animated material")
			}
		})
	}
}

func TestComposeShaderUniforms(t *testing.T) {
	s := compose(t, &fakeRenderer{kind: renderer.KindGL}, probe.DefaultProfile(), t.TempDir())
	sh := s.Animated.(*material.ShaderDriven).Shader()
	if v, ok := sh.Uniform("time"); !ok || v != float32(0) {
		t.Errorf("time uniform = %v, %v", v, ok)
	}
	if v, _ := sh.Uniform("color"); v != (mgl32.Vec3{0.2, 0.6, 1.0}) {
		t.Errorf("color uniform = %v", v)
	}
}

func TestComposeModel(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, AssetsIn(dir).Model)

	s := compose(t, &fakeRenderer{kind: renderer.KindGL}, probe.DefaultProfile(), dir)
	if err := s.Loads.Model.Err(); err != nil {
		t.Fatalf("model load: %v", err)
	}
	if s.Model == nil || s.Model.Parent() != s.Scene.Root() {
		t.Fatal("model root not attached to the scene")
	}
	body := scene.FindByName(s.Model, "body")
	if body == nil || !body.CastShadow() || !body.ReceiveShadow() {
		t.Errorf("model mesh shadows not applied: %v", body)
	}
	if got := scene.CountKind(s.Scene.Root(), scene.KindMesh); got != 3 {
		t.Errorf("mesh count = %d, want 3", got)
	}
}

func TestComposeRequiresCollaborators(t *testing.T) {
	if _, err := Compose(nil, probe.DefaultProfile(), AssetsIn(""), newTestLoader(), nil); err == nil {
		t.Error("nil renderer accepted")
	}
	if _, err := Compose(&fakeRenderer{}, probe.DefaultProfile(), AssetsIn(""), nil, nil); err == nil {
		t.Error("nil loader accepted")
	}
}

// seconds converts fractional seconds to a Duration, truncating to nanoseconds.
func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func vecNear(a, b mgl32.Vec3) bool {
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-5 {
			return false
		}
	}
	return true
}

func TestLightPosition(t *testing.T) {
	tests := []struct {
		t    float64
		want mgl32.Vec3
	}{
		{t: 0, want: mgl32.Vec3{2, 2, 0}},
		{t: math.Pi / 2, want: mgl32.Vec3{0, 2, 2}},
		{t: math.Pi, want: mgl32.Vec3{-2, 2, 0}},
	}
	for _, tt := range tests {
		if got := LightPosition(tt.t); !vecNear(got, tt.want) {
			t.Errorf("LightPosition(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestTick(t *testing.T) {
	r := &fakeRenderer{kind: renderer.KindGL}
	s := compose(t, r, probe.DefaultProfile(), t.TempDir())

	if err := Tick(s, 0); err != nil {
		t.Fatal(err)
	}
	if s.Light.Position() != (mgl32.Vec3{2, 2, 0}) {
		t.Errorf("light at t=0 = %v", s.Light.Position())
	}
	if err := Tick(s, seconds(math.Pi/2)); err != nil {
		t.Fatal(err)
	}
	if !vecNear(s.Light.Position(), mgl32.Vec3{0, 2, 2}) {
		t.Errorf("light at t=π/2 = %v", s.Light.Position())
	}
	if r.renders != 2 {
		t.Errorf("renders = %d, want one per tick", r.renders)
	}

	sh := s.Animated.(*material.ShaderDriven).Shader()
	if err := Tick(s, 1500*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if v, _ := sh.Uniform(material.TimeUniform); v != float32(1.5) {
		t.Errorf("time uniform = %v, want 1.5", v)
	}

	r.renderErr = errors.New("surface lost")
	if err := Tick(s, 2*time.Second); !errors.Is(err, r.renderErr) {
		t.Errorf("Tick err = %v", err)
	}
}

func TestTickNativePulse(t *testing.T) {
	s := compose(t, &fakeRenderer{kind: renderer.KindWGPU}, probe.DefaultProfile(), t.TempDir())
	std := s.Animated.(*material.NativePulse).Standard()

	for _, sec := range []float64{0, 0.4, 2.5} {
		if err := Tick(s, seconds(sec)); err != nil {
			t.Fatal(err)
		}
		if got, want := std.EmissiveIntensity(), float32(0.5+0.5*math.Sin(2*sec)); math.Abs(float64(got-want)) > 1e-6 {
			t.Errorf("t=%v emissive intensity = %v, want %v", sec, got, want)
		}
		c := std.Color()
		if got, want := c[1], float32(0.6+0.4*math.Sin(3*sec)); math.Abs(float64(got-want)) > 1e-6 {
			t.Errorf("t=%v green = %v, want %v", sec, got, want)
		}
		if c[0] != PulseColor[0] || c[2] != PulseColor[2] {
			t.Errorf("t=%v red/blue changed: %v", sec, c)
		}
		if std.Emissive() != PulseColor {
			t.Errorf("emissive color changed: %v", std.Emissive())
		}
	}
}

func TestTickDeterministic(t *testing.T) {
	for _, kind := range []renderer.Kind{renderer.KindGL, renderer.KindWGPU} {
		t.Run(kind.String(), func(t *testing.T) {
			s := compose(t, &fakeRenderer{kind: kind}, probe.DefaultProfile(), t.TempDir())
			at := 3700 * time.Millisecond

			snapshot := func() []any {
				out := []any{s.Light.Position()}
				switch a := s.Animated.(type) {
				case *material.ShaderDriven:
					v, _ := a.Shader().Uniform(material.TimeUniform)
					out = append(out, v)
				case *material.NativePulse:
					out = append(out, a.Standard().Color(), a.Standard().EmissiveIntensity())
				}
				return out
			}

			_ = Tick(s, at)
			first := snapshot()
			_ = Tick(s, 9*time.Second)
			_ = Tick(s, at)
			second := snapshot()
			for i := range first {
				if first[i] != second[i] {
					t.Errorf("field %d: %v then %v", i, first[i], second[i])
				}
			}
		})
	}
}

func TestResize(t *testing.T) {
	r := &fakeRenderer{kind: renderer.KindGL}
	s := compose(t, r, probe.DefaultProfile(), t.TempDir())

	s.Resize(1600, 800)
	if s.Camera.Aspect() != 2 || r.width != 1600 || r.height != 800 {
		t.Errorf("aspect %v viewport %dx%d", s.Camera.Aspect(), r.width, r.height)
	}
	s.Resize(0, 0)
	if s.Camera.Aspect() != 2 || r.width != 1600 {
		t.Error("zero-sized framebuffer applied")
	}
}

func TestNewMissingSurface(t *testing.T) {
	var out bytes.Buffer
	core, logs := observer.New(zap.ErrorLevel)
	h := host.NewHost(host.WithOutput(&out), host.WithLogger(zap.NewNop()))

	v, err := New(DefaultConfig(), h, WithLogger(zap.New(core)))
	if !errors.Is(err, ErrSurfaceNotFound) {
		t.Fatalf("err = %v, want ErrSurfaceNotFound", err)
	}
	if v != nil {
		t.Error("viewer returned on failure")
	}
	want := `Failed to start the 3D viewer: drawing surface "viewer-canvas" was not found.`
	if h.Body() != want {
		t.Errorf("body = %q", h.Body())
	}
	if strings.TrimSpace(out.String()) != want {
		t.Errorf("output = %q", out.String())
	}
	if logs.FilterMessage("viewer startup failed").Len() != 1 {
		t.Error("startup failure not logged")
	}
	if err := Run(DefaultConfig(), h); !errors.Is(err, ErrSurfaceNotFound) {
		t.Errorf("Run err = %v", err)
	}
}

func TestNotice(t *testing.T) {
	if got := Notice(errors.New("boom")); got != "Failed to start the 3D viewer: boom" {
		t.Errorf("Notice = %q", got)
	}
}

func TestOrbitInput(t *testing.T) {
	controls := camera.NewCameraController(camera.WithDamping(0))
	quits := 0
	in := newOrbitInput(controls, func() { quits++ })

	az := controls.Azimuth()
	in.button(window.MouseButtonLeft, true, 100, 100)
	in.move(140, 100)
	in.button(window.MouseButtonLeft, false, 140, 100)
	in.move(400, 400)
	controls.Update(time.Second)
	if controls.Azimuth() == az {
		t.Error("left drag did not orbit")
	}

	az = controls.Azimuth()
	in.key(common.KeyLeft)
	controls.Update(time.Second)
	if controls.Azimuth() >= az {
		t.Errorf("orbit left: azimuth %v -> %v", az, controls.Azimuth())
	}

	radius := controls.Radius()
	in.scroll(1)
	controls.Update(time.Second)
	if controls.Radius() >= radius {
		t.Errorf("zoom in: radius %v -> %v", radius, controls.Radius())
	}

	in.key(common.KeyEsc)
	if quits != 1 {
		t.Errorf("quits = %d", quits)
	}
}

func TestAssetsIn(t *testing.T) {
	a := AssetsIn("data")
	if a.Model != filepath.Join("data", "models", "model.glb") ||
		a.Skybox != filepath.Join("data", "skybox") ||
		a.Environment != filepath.Join("data", "hdr", "environment.hdr") {
		t.Errorf("assets = %+v", a)
	}
}
