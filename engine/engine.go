package engine

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-viewer/engine/logger"
	"github.com/Carmen-Shannon/oxy-viewer/engine/profiler"
	"github.com/Carmen-Shannon/oxy-viewer/engine/window"
)

// EventSource is what the loop pumps once per frame. window.Window satisfies it.
type EventSource interface {
	// IsRunning reports whether the loop should keep going.
	IsRunning() bool

	// PollEvents dispatches pending input and window events.
	PollEvents()
}

// engine implements the Engine interface.
// Everything it runs executes on the goroutine that called Run, which must be the OS-locked
// main thread when a window is attached.
type engine struct {
	logger *zap.Logger
	now    func() time.Time

	source EventSource
	window window.Window

	mu      sync.Mutex
	pending []func()
	timers  map[*time.Timer]struct{}

	running     bool
	quitChannel chan struct{}
	quitOnce    sync.Once

	profiler         *profiler.Profiler
	profilingEnabled bool

	frameCallback  func(elapsed, dt time.Duration)
	resizeCallback func(width, height int)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main loop of the viewer. It pumps window events, runs work posted from other
// goroutines, and invokes the frame callback once per iteration. Presentation pacing comes from
// the renderer (swap interval 1 / FIFO), so the loop itself never skips or repeats a frame.
type Engine interface {
	// Window returns the attached window, or nil when the event source is not a window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetFrameCallback registers the function called once per loop iteration.
	//
	// Parameters:
	//   - callback: receives the time since Run started and since the previous frame
	SetFrameCallback(callback func(elapsed, dt time.Duration))

	// SetResizeCallback registers the function called after the window's framebuffer is resized.
	// Resizes are delivered synchronously from event polling, without debouncing.
	//
	// Parameters:
	//   - callback: receives the framebuffer size in pixels
	SetResizeCallback(callback func(width, height int))

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Post queues fn to run on the loop goroutine before the next frame. Safe to call from any
	// goroutine, including before Run starts.
	//
	// Parameters:
	//   - fn: the work to run
	Post(fn func())

	// After posts fn to the loop once d has elapsed. Pending timers are cancelled by Quit.
	//
	// Parameters:
	//   - d: the delay
	//   - fn: the work to run
	After(d time.Duration, fn func())

	// RunPending runs every queued function on the calling goroutine. A panicking function is
	// logged and does not stop the others.
	//
	// Returns:
	//   - int: the number of functions run
	RunPending() int

	// Run starts the main loop and blocks until the event source stops or Quit is called.
	Run()

	// Quit stops the loop after the current iteration and cancels pending timers.
	// Safe to call multiple times and from any goroutine.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine with the provided options. An event source (usually the window)
// is required.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		logger:      logger.Log,
		now:         time.Now,
		timers:      make(map[*time.Timer]struct{}),
		quitChannel: make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.source == nil {
		panic("engine: an event source is required")
	}
	e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger), profiler.WithClock(e.now))

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if e.resizeCallback != nil {
				e.resizeCallback(width, height)
			}
		})
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetFrameCallback(callback func(elapsed, dt time.Duration)) {
	e.frameCallback = callback
}

func (e *engine) SetResizeCallback(callback func(width, height int)) {
	e.resizeCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) Post(fn func()) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	e.pending = append(e.pending, fn)
	e.mu.Unlock()
}

func (e *engine) After(d time.Duration, fn func()) {
	if fn == nil || e.quitting() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		e.mu.Lock()
		delete(e.timers, t)
		e.mu.Unlock()
		e.Post(fn)
	})
	e.timers[t] = struct{}{}
}

func (e *engine) RunPending() int {
	e.mu.Lock()
	batch := e.pending
	e.pending = nil
	e.mu.Unlock()

	for _, fn := range batch {
		e.runSafely(fn)
	}
	return len(batch)
}

// runSafely runs a posted function, logging instead of propagating a panic.
func (e *engine) runSafely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("posted task panicked", zap.Error(fmt.Errorf("%v", r)))
		}
	}()
	fn()
}

func (e *engine) Run() {
	e.running = true
	defer func() { e.running = false }()

	start := e.now()
	lastFrame := start
	for !e.quitting() && e.source.IsRunning() {
		frameStart := e.now()
		e.source.PollEvents()
		e.RunPending()

		now := e.now()
		if e.frameCallback != nil {
			e.frameCallback(now.Sub(start), now.Sub(lastFrame))
		}
		lastFrame = now

		if e.profilingEnabled {
			e.profiler.Tick()
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - e.now().Sub(frameStart); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
		e.mu.Lock()
		for t := range e.timers {
			t.Stop()
		}
		e.timers = make(map[*time.Timer]struct{})
		e.mu.Unlock()
	})
}

func (e *engine) quitting() bool {
	select {
	case <-e.quitChannel:
		return true
	default:
		return false
	}
}
