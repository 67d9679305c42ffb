package renderer

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-viewer/engine/logger"
	"github.com/Carmen-Shannon/oxy-viewer/engine/probe"
)

// errPanicked wraps a panic recovered from a backend constructor.
var errPanicked = errors.New("backend constructor panicked")

// Initialize selects, constructs and configures the process's single Renderer. It never fails:
// WebGPU is used when available and constructs cleanly, OpenGL otherwise, and a renderer that
// draws nothing if OpenGL cannot be brought up either.
//
// After selection the renderer is sized to the surface, given the profile-capped pixel ratio,
// has soft shadows enabled when the profile allows them, and shows a badge naming the backend
// for IndicatorDuration.
//
// Parameters:
//   - ctx: bounds the availability check
//   - surface: the drawing surface
//   - profile: the device performance profile
//   - options: functional options applied in order
//
// Returns:
//   - Renderer: the configured renderer
func Initialize(ctx context.Context, surface Surface, profile probe.PerformanceProfile, options ...InitializeOption) Renderer {
	in := &initializer{
		logger:      logger.Log,
		scheduler:   timerScheduler{},
		wgpuFactory: NewWGPURenderer,
		glFactory:   NewGLRenderer,
		available:   WGPUAvailable,
		preference:  PreferAuto,
		presentMode: PresentModeVSync,
		indicator:   true,
	}
	for _, opt := range options {
		opt(in)
	}

	cfg := BackendConfig{
		Logger:      in.logger,
		PresentMode: in.presentMode,
		MSAA:        MSAAOff,
	}
	if profile.Antialias {
		cfg.MSAA = MSAA4x
	}

	r := in.selectBackend(ctx, surface, cfg)

	r.SetViewport(surface.Width(), surface.Height())
	r.SetPixelRatio(profile.PixelRatio(float64(surface.ContentScale())))
	if profile.ShadowsEnabled {
		r.EnableShadows(ShadowConfig{Type: ShadowPCFSoft, MapSize: profile.ShadowMapSize})
	}
	in.logger.Info("renderer ready",
		zap.Stringer("backend", r.Kind()),
		zap.Float64("pixelRatio", r.PixelRatio()),
		zap.Bool("shadows", profile.ShadowsEnabled),
		zap.Uint32("msaa", uint32(cfg.MSAA)),
	)

	if in.indicator {
		in.showIndicator(r)
	}
	return r
}

func (in *initializer) selectBackend(ctx context.Context, surface Surface, cfg BackendConfig) Renderer {
	tryWGPU := false
	switch in.preference {
	case PreferWGPU:
		tryWGPU = true
	case PreferAuto:
		tryWGPU = in.available(ctx)
		if !tryWGPU {
			in.logger.Info("WebGPU unavailable, using OpenGL")
		}
	}

	if tryWGPU {
		r, err := construct(func() (Renderer, error) { return in.wgpuFactory(surface, cfg) })
		if err == nil {
			return r
		}
		in.logger.Warn("WebGPU renderer failed, falling back to OpenGL", zap.Error(err))
	}

	r, err := construct(func() (Renderer, error) {
		if err := surface.UseOpenGL(); err != nil {
			return nil, fmt.Errorf("prepare surface for OpenGL: %w", err)
		}
		return in.glFactory(surface, cfg)
	})
	if err == nil {
		return r
	}
	in.logger.Error("OpenGL renderer failed, nothing will be drawn", zap.Error(err))
	return newNullRenderer(in.logger)
}

// construct calls a backend constructor, turning a panic or a nil renderer into an error.
func construct(build func() (Renderer, error)) (r Renderer, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = fmt.Errorf("%w: %v\n%s", errPanicked, rec, debug.Stack())
		}
	}()
	r, err = build()
	if err == nil && r == nil {
		err = errors.New("backend constructor returned no renderer")
	}
	return r, err
}

// showIndicator shows the backend badge and schedules its removal.
func (in *initializer) showIndicator(r Renderer) {
	badge, err := RenderIndicator(r.Kind(), r.PixelRatio())
	if err != nil {
		in.logger.Warn("backend indicator", zap.Error(err))
		return
	}
	r.SetOverlay(badge)
	in.scheduler.After(IndicatorDuration, func() {
		r.SetOverlay(nil)
	})
}
