package renderer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs a function after a delay. engine.Engine satisfies it by posting the function
// back to the main loop.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// timerScheduler runs fn on a timer goroutine.
type timerScheduler struct{}

func (timerScheduler) After(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// initializer collects the collaborators of Initialize.
type initializer struct {
	logger      *zap.Logger
	scheduler   Scheduler
	wgpuFactory Factory
	glFactory   Factory
	available   func(ctx context.Context) bool
	preference  Preference
	presentMode PresentMode
	indicator   bool
}

// InitializeOption is a functional option applied to Initialize.
type InitializeOption func(*initializer)

// WithLogger sets the logger passed to the backends and used for fallback diagnostics.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - InitializeOption: option function to apply
func WithLogger(l *zap.Logger) InitializeOption {
	return func(in *initializer) {
		in.logger = l
	}
}

// WithScheduler sets what removes the backend indicator after IndicatorDuration.
// Defaults to a timer goroutine.
//
// Parameters:
//   - s: the scheduler
//
// Returns:
//   - InitializeOption: option function to apply
func WithScheduler(s Scheduler) InitializeOption {
	return func(in *initializer) {
		in.scheduler = s
	}
}

// WithWGPUFactory replaces the WebGPU backend constructor.
func WithWGPUFactory(f Factory) InitializeOption {
	return func(in *initializer) {
		in.wgpuFactory = f
	}
}

// WithGLFactory replaces the OpenGL backend constructor.
func WithGLFactory(f Factory) InitializeOption {
	return func(in *initializer) {
		in.glFactory = f
	}
}

// WithAvailability replaces the WebGPU availability check.
//
// Parameters:
//   - fn: reports whether a WebGPU adapter can be obtained
//
// Returns:
//   - InitializeOption: option function to apply
func WithAvailability(fn func(ctx context.Context) bool) InitializeOption {
	return func(in *initializer) {
		in.available = fn
	}
}

// WithBackend overrides automatic backend selection.
//
// Parameters:
//   - p: PreferAuto, PreferWGPU or PreferGL
//
// Returns:
//   - InitializeOption: option function to apply
func WithBackend(p Preference) InitializeOption {
	return func(in *initializer) {
		in.preference = p
	}
}

// WithVSync selects vertical-blank synchronised presentation (the default) or uncapped presentation.
//
// Parameters:
//   - enabled: true for PresentModeVSync
//
// Returns:
//   - InitializeOption: option function to apply
func WithVSync(enabled bool) InitializeOption {
	return func(in *initializer) {
		in.presentMode = PresentModeUncapped
		if enabled {
			in.presentMode = PresentModeVSync
		}
	}
}

// WithIndicator toggles the on-screen backend badge. Enabled by default.
func WithIndicator(enabled bool) InitializeOption {
	return func(in *initializer) {
		in.indicator = enabled
	}
}
