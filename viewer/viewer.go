package viewer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-viewer/engine"
	"github.com/Carmen-Shannon/oxy-viewer/engine/host"
	"github.com/Carmen-Shannon/oxy-viewer/engine/loader"
	"github.com/Carmen-Shannon/oxy-viewer/engine/logger"
	"github.com/Carmen-Shannon/oxy-viewer/engine/probe"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-viewer/engine/window"
)

// SurfaceID is the identifier the viewer looks its drawing surface up under.
const SurfaceID = "viewer-canvas"

// ErrSurfaceNotFound is returned by New when no surface is registered under SurfaceID.
var ErrSurfaceNotFound = host.ErrSurfaceNotFound

var errStartupPanic = errors.New("startup panicked")

const noticePrefix = "Failed to start the 3D viewer"

// availabilityTimeout bounds the WebGPU adapter request during startup.
const availabilityTimeout = 5 * time.Second

// Notice returns the plain-text message that replaces the surfaces after a fatal startup error.
func Notice(err error) string {
	if errors.Is(err, ErrSurfaceNotFound) {
		return fmt.Sprintf("%s: drawing surface %q was not found.", noticePrefix, SurfaceID)
	}
	return fmt.Sprintf("%s: %v", noticePrefix, err)
}

// Viewer wires a surface, the engine loop, the renderer, the loader and the composed scene.
type Viewer struct {
	cfg     Config
	logger  *zap.Logger
	host    host.Host
	surface window.Window

	engine   engine.Engine
	renderer renderer.Renderer
	loader   loader.Loader
	profile  probe.PerformanceProfile
	state    *State

	probeOptions      []probe.CollectorOption
	initializeOptions []renderer.InitializeOption

	renderFailing bool
}

// ViewerOption is a functional option for configuring a Viewer.
type ViewerOption func(*Viewer)

// WithLogger sets the logger handed to every component. Defaults to logger.Log.
func WithLogger(l *zap.Logger) ViewerOption {
	return func(v *Viewer) {
		v.logger = l
	}
}

// WithProbeOptions overrides the device signal sources.
func WithProbeOptions(options ...probe.CollectorOption) ViewerOption {
	return func(v *Viewer) {
		v.probeOptions = append(v.probeOptions, options...)
	}
}

// WithInitializeOptions appends options to the renderer initialization, after the ones derived
// from Config.
func WithInitializeOptions(options ...renderer.InitializeOption) ViewerOption {
	return func(v *Viewer) {
		v.initializeOptions = append(v.initializeOptions, options...)
	}
}

// New performs the synchronous startup: it looks up the surface, probes the device, initializes
// the renderer, composes the scene and binds input. Any error or panic replaces the host's
// surfaces with Notice(err).
//
// Parameters:
//   - cfg: the viewer configuration
//   - h: the host holding the surface registered under SurfaceID
//   - options: functional options applied in order
//
// Returns:
//   - *Viewer: the viewer, ready to Run
//   - error: ErrSurfaceNotFound (wrapped) when the surface is missing, or the startup failure
func New(cfg Config, h host.Host, options ...ViewerOption) (*Viewer, error) {
	v := &Viewer{cfg: cfg, host: h, logger: logger.Log}
	for _, opt := range options {
		opt(v)
	}
	if err := v.start(); err != nil {
		v.logger.Error("viewer startup failed", zap.Error(err))
		h.ReplaceBody(Notice(err))
		return nil, err
	}
	return v, nil
}

// start runs the startup steps, turning a panic into an error.
func (v *Viewer) start() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", errStartupPanic, rec)
		}
	}()
	cfg := v.cfg

	v.surface, err = v.host.Surface(SurfaceID)
	if err != nil {
		return err
	}

	v.profile = v.classify()

	v.engine = engine.NewEngine(
		engine.WithWindow(v.surface),
		engine.WithLogger(v.logger),
		engine.WithProfiling(cfg.Profile),
	)

	ctx, cancel := context.WithTimeout(context.Background(), availabilityTimeout)
	defer cancel()
	initOptions := append([]renderer.InitializeOption{
		renderer.WithLogger(v.logger),
		renderer.WithScheduler(v.engine),
		renderer.WithBackend(cfg.Backend),
		renderer.WithVSync(cfg.VSync),
	}, v.initializeOptions...)
	v.renderer = renderer.Initialize(ctx, v.surface, v.profile, initOptions...)

	v.loader = loader.NewLoader(
		loader.WithPoster(v.engine),
		loader.WithLogger(v.logger),
	)

	v.state, err = Compose(v.renderer, v.profile, AssetsIn(cfg.AssetsDir), v.loader, v.logger)
	if err != nil {
		v.renderer.Close()
		return fmt.Errorf("compose scene: %w", err)
	}
	v.state.Resize(v.surface.Width(), v.surface.Height())

	newOrbitInput(v.state.Controls, v.engine.Quit).bind(v.surface)
	v.engine.SetResizeCallback(v.state.Resize)
	v.engine.SetFrameCallback(v.frame)
	v.showBackendInTitle()
	return nil
}

// classify probes the device, or applies the low-end profile when forced.
func (v *Viewer) classify() probe.PerformanceProfile {
	options := append([]probe.CollectorOption{
		probe.WithScreen(func() (int, int, float64) {
			w, h := v.surface.MonitorSize()
			return w, h, float64(v.surface.ContentScale())
		}),
	}, v.probeOptions...)
	signals := probe.Collect(options...)
	profile := probe.Classify(signals)
	if v.cfg.ForceLowEnd {
		profile = probe.LowEndProfile()
	}
	probe.Log(v.logger, signals, profile)
	return profile
}

// showBackendInTitle appends the backend name to the window title while the badge is visible.
func (v *Viewer) showBackendInTitle() {
	title := v.cfg.Title
	if title == "" {
		title = v.surface.Title()
	}
	v.surface.SetTitle(fmt.Sprintf("%s (%s)", title, v.renderer.Kind()))
	v.engine.After(renderer.IndicatorDuration, func() {
		v.surface.SetTitle(title)
	})
}

func (v *Viewer) frame(elapsed, _ time.Duration) {
	err := Tick(v.state, elapsed)
	if err != nil && !v.renderFailing {
		v.logger.Warn("frame failed", zap.Error(err))
	}
	if err == nil && v.renderFailing {
		v.logger.Info("frames recovered")
	}
	v.renderFailing = err != nil
}

// State returns the frame driver state.
func (v *Viewer) State() *State {
	return v.state
}

// Renderer returns the active renderer.
func (v *Viewer) Renderer() renderer.Renderer {
	return v.renderer
}

// Run drives frames until the window closes or Escape is pressed, then releases the renderer
// and the surfaces. It must be called from the OS-locked main thread.
func (v *Viewer) Run() {
	defer v.Close()
	v.logger.Info("viewer running", zap.Stringer("backend", v.renderer.Kind()))
	v.engine.Run()
}

// Close releases the renderer and the host's surfaces.
func (v *Viewer) Close() {
	v.engine.Quit()
	v.renderer.Close()
	if err := v.host.Close(); err != nil {
		v.logger.Warn("closing surfaces", zap.Error(err))
	}
}

// Run starts the viewer on the surface registered in h and blocks until it exits.
//
// Parameters:
//   - cfg: the viewer configuration
//   - h: the host holding the surface
//   - options: functional options passed to New
//
// Returns:
//   - error: the fatal startup error, after the notice has replaced the surfaces
func Run(cfg Config, h host.Host, options ...ViewerOption) error {
	v, err := New(cfg, h, options...)
	if err != nil {
		return err
	}
	v.Run()
	return nil
}
