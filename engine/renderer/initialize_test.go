package renderer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/camera"
	"github.com/Carmen-Shannon/oxy-viewer/engine/material"
	"github.com/Carmen-Shannon/oxy-viewer/engine/probe"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

type fakeSurface struct {
	width, height int
	scale         float32
	openGLErr     error
	openGLCalls   int
}

func (s *fakeSurface) Width() int                                 { return s.width }
func (s *fakeSurface) Height() int                                { return s.height }
func (s *fakeSurface) ContentScale() float32                      { return s.scale }
func (s *fakeSurface) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (s *fakeSurface) MakeContextCurrent()                        {}
func (s *fakeSurface) SwapBuffers()                               {}
func (s *fakeSurface) SwapInterval(int)                           {}

func (s *fakeSurface) UseOpenGL() error {
	s.openGLCalls++
	return s.openGLErr
}

type fakeRenderer struct {
	mu         sync.Mutex
	kind       Kind
	width      int
	height     int
	pixelRatio float64
	shadows    *ShadowConfig
	overlay    *common.TextureStagingData
}

func (f *fakeRenderer) Kind() Kind                   { return f.kind }
func (f *fakeRenderer) SetViewport(w, h int)         { f.width, f.height = w, h }
func (f *fakeRenderer) SetPixelRatio(ratio float64)  { f.pixelRatio = ratio }
func (f *fakeRenderer) PixelRatio() float64          { return f.pixelRatio }
func (f *fakeRenderer) EnableShadows(c ShadowConfig) { f.shadows = &c }
func (f *fakeRenderer) Compile(material.Material) error {
	return nil
}
func (f *fakeRenderer) Render(scene.Scene, camera.Camera) error { return nil }
func (f *fakeRenderer) Close()                                  {}

func (f *fakeRenderer) SetOverlay(img *common.TextureStagingData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overlay = img
}

func (f *fakeRenderer) currentOverlay() *common.TextureStagingData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlay
}

func factoryFor(r *fakeRenderer, calls *int) Factory {
	return func(Surface, BackendConfig) (Renderer, error) {
		*calls++
		return r, nil
	}
}

func failingFactory(calls *int) Factory {
	return func(Surface, BackendConfig) (Renderer, error) {
		*calls++
		return nil, errors.New("no device")
	}
}

type recordingScheduler struct {
	delay time.Duration
	fn    func()
}

func (s *recordingScheduler) After(d time.Duration, fn func()) {
	s.delay = d
	s.fn = fn
}

func TestInitializeSelection(t *testing.T) {
	tests := []struct {
		name      string
		available bool
		pref      Preference
		wgpuFails bool
		wgpuPanic bool
		want      Kind
		wantWGPU  int
		wantGL    int
	}{
		{name: "available", available: true, want: KindWGPU, wantWGPU: 1},
		{name: "unavailable", available: false, want: KindGL, wantGL: 1},
		{name: "factory error", available: true, wgpuFails: true, want: KindGL, wantWGPU: 1, wantGL: 1},
		{name: "factory panic", available: true, wgpuPanic: true, want: KindGL, wantWGPU: 1, wantGL: 1},
		{name: "forced gl", available: true, pref: PreferGL, want: KindGL, wantGL: 1},
		{name: "forced wgpu", available: false, pref: PreferWGPU, want: KindWGPU, wantWGPU: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var wgpuCalls, glCalls int
			wgpuFactory := factoryFor(&fakeRenderer{kind: KindWGPU}, &wgpuCalls)
			if tt.wgpuFails {
				wgpuFactory = failingFactory(&wgpuCalls)
			}
			if tt.wgpuPanic {
				wgpuFactory = func(Surface, BackendConfig) (Renderer, error) {
					wgpuCalls++
					panic("adapter lost")
				}
			}
			surface := &fakeSurface{width: 800, height: 600, scale: 1}

			r := Initialize(context.Background(), surface, probe.DefaultProfile(),
				WithLogger(zap.NewNop()),
				WithAvailability(func(context.Context) bool { return tt.available }),
				WithBackend(tt.pref),
				WithWGPUFactory(wgpuFactory),
				WithGLFactory(factoryFor(&fakeRenderer{kind: KindGL}, &glCalls)),
				WithIndicator(false),
			)
			if r.Kind() != tt.want {
				t.Errorf("Kind = %v, want %v", r.Kind(), tt.want)
			}
			if wgpuCalls != tt.wantWGPU || glCalls != tt.wantGL {
				t.Errorf("factory calls wgpu=%d gl=%d, want %d/%d", wgpuCalls, glCalls, tt.wantWGPU, tt.wantGL)
			}
			if glCalls > 0 && surface.openGLCalls != 1 {
				t.Errorf("UseOpenGL calls = %d, want 1", surface.openGLCalls)
			}
		})
	}
}

func TestInitializeNullFallback(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	var wgpuCalls, glCalls int
	r := Initialize(context.Background(), &fakeSurface{width: 10, height: 10, scale: 1}, probe.DefaultProfile(),
		WithLogger(zap.New(core)),
		WithAvailability(func(context.Context) bool { return true }),
		WithWGPUFactory(failingFactory(&wgpuCalls)),
		WithGLFactory(failingFactory(&glCalls)),
		WithIndicator(false),
	)
	if _, ok := r.(*nullRenderer); !ok {
		t.Fatalf("renderer = %T, want *nullRenderer", r)
	}
	if r.Kind() != KindGL {
		t.Errorf("null renderer Kind = %v, want KindGL", r.Kind())
	}
	if err := r.Render(nil, nil); err != nil {
		t.Errorf("null Render = %v", err)
	}
	if logs.FilterMessage("OpenGL renderer failed, nothing will be drawn").Len() != 1 {
		t.Errorf("missing OpenGL failure log, got %v", logs.All())
	}
}

func TestInitializeUseOpenGLFailure(t *testing.T) {
	var glCalls int
	surface := &fakeSurface{width: 10, height: 10, scale: 1, openGLErr: errors.New("no context")}
	r := Initialize(context.Background(), surface, probe.DefaultProfile(),
		WithLogger(zap.NewNop()),
		WithBackend(PreferGL),
		WithGLFactory(factoryFor(&fakeRenderer{kind: KindGL}, &glCalls)),
		WithIndicator(false),
	)
	if _, ok := r.(*nullRenderer); !ok {
		t.Fatalf("renderer = %T, want *nullRenderer", r)
	}
	if glCalls != 0 {
		t.Errorf("gl factory called %d times after UseOpenGL failed", glCalls)
	}
}

func TestInitializeConfiguresRenderer(t *testing.T) {
	tests := []struct {
		name        string
		profile     probe.PerformanceProfile
		scale       float32
		wantShadows bool
		wantRatio   float64
		wantMSAA    MSAASampleCount
	}{
		{name: "default", profile: probe.DefaultProfile(), scale: 3, wantShadows: true, wantRatio: 2, wantMSAA: MSAA4x},
		{name: "low end", profile: probe.LowEndProfile(), scale: 3, wantShadows: false, wantRatio: 1.5, wantMSAA: MSAAOff},
		{name: "low dpi", profile: probe.DefaultProfile(), scale: 1, wantShadows: true, wantRatio: 1, wantMSAA: MSAA4x},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeRenderer{kind: KindWGPU}
			var got BackendConfig
			r := Initialize(context.Background(), &fakeSurface{width: 1280, height: 720, scale: tt.scale}, tt.profile,
				WithLogger(zap.NewNop()),
				WithBackend(PreferWGPU),
				WithVSync(false),
				WithWGPUFactory(func(_ Surface, cfg BackendConfig) (Renderer, error) {
					got = cfg
					return fake, nil
				}),
				WithIndicator(false),
			)
			if r != fake {
				t.Fatalf("unexpected renderer %T", r)
			}
			if fake.width != 1280 || fake.height != 720 {
				t.Errorf("viewport = %dx%d", fake.width, fake.height)
			}
			if fake.pixelRatio != tt.wantRatio {
				t.Errorf("pixel ratio = %v, want %v", fake.pixelRatio, tt.wantRatio)
			}
			if (fake.shadows != nil) != tt.wantShadows {
				t.Fatalf("shadows enabled = %v, want %v", fake.shadows != nil, tt.wantShadows)
			}
			if fake.shadows != nil && (fake.shadows.Type != ShadowPCFSoft || fake.shadows.MapSize != tt.profile.ShadowMapSize) {
				t.Errorf("shadow config = %+v", *fake.shadows)
			}
			if got.MSAA != tt.wantMSAA || got.PresentMode != PresentModeUncapped {
				t.Errorf("backend config = %+v", got)
			}
		})
	}
}

func TestInitializeIndicator(t *testing.T) {
	if _, err := RenderIndicator(KindWGPU, 1); err != nil {
		t.Skipf("indicator cannot be rasterised here: %v", err)
	}
	fake := &fakeRenderer{kind: KindWGPU}
	sched := &recordingScheduler{}
	Initialize(context.Background(), &fakeSurface{width: 640, height: 480, scale: 1}, probe.DefaultProfile(),
		WithLogger(zap.NewNop()),
		WithBackend(PreferWGPU),
		WithWGPUFactory(func(Surface, BackendConfig) (Renderer, error) { return fake, nil }),
		WithScheduler(sched),
	)
	if fake.currentOverlay() == nil {
		t.Fatal("indicator not shown")
	}
	if sched.delay != IndicatorDuration || sched.fn == nil {
		t.Fatalf("removal scheduled after %v", sched.delay)
	}
	sched.fn()
	if fake.currentOverlay() != nil {
		t.Error("indicator still shown after removal")
	}
}

func TestConstruct(t *testing.T) {
	if _, err := construct(func() (Renderer, error) { return nil, nil }); err == nil {
		t.Error("nil renderer accepted")
	}
	_, err := construct(func() (Renderer, error) { panic("boom") })
	if !errors.Is(err, errPanicked) {
		t.Errorf("panic error = %v", err)
	}
}

func TestParsePreference(t *testing.T) {
	tests := []struct {
		in      string
		want    Preference
		wantErr bool
	}{
		{in: "", want: PreferAuto},
		{in: "auto", want: PreferAuto},
		{in: "WebGPU", want: PreferWGPU},
		{in: " wgpu ", want: PreferWGPU},
		{in: "opengl", want: PreferGL},
		{in: "gl", want: PreferGL},
		{in: "vulkan", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePreference(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePreference(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePreference(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAwaitAvailability(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	tests := []struct {
		name    string
		timeout time.Duration
		check   func() bool
		want    bool
	}{
		{name: "adapter found", timeout: time.Second, check: func() bool { return true }, want: true},
		{name: "no adapter", timeout: time.Second, check: func() bool { return false }, want: false},
		{name: "check panics", timeout: time.Second, check: func() bool { panic("driver crashed") }, want: false},
		{name: "request never answers", timeout: 20 * time.Millisecond, check: func() bool {
			<-release
			return true
		}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), tt.timeout)
			defer cancel()
			start := time.Now()
			if got := awaitAvailability(ctx, tt.check); got != tt.want {
				t.Fatalf("awaitAvailability = %v, want %v", got, tt.want)
			}
			if elapsed := time.Since(start); elapsed > tt.timeout+time.Second {
				t.Fatalf("returned after %v, past the deadline", elapsed)
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	if awaitAvailability(ctx, func() bool { called = true; return true }) || called {
		t.Fatal("cancelled context should report unavailable without checking")
	}
}

func TestKindString(t *testing.T) {
	for kind, want := range map[Kind]string{KindWGPU: "WebGPU", KindGL: "OpenGL", Kind(99): "unknown"} {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(kind), got, want)
		}
	}
}
