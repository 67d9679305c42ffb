package window

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// MouseButton identifies a pointer button.
type MouseButton int

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

// ClientAPI selects the graphics API the native window is created for.
type ClientAPI int

const (
	// ClientAPINone creates a window without a GL context, for WebGPU surfaces.
	ClientAPINone ClientAPI = iota
	// ClientAPIOpenGL creates a window with an OpenGL 4.1 core context.
	ClientAPIOpenGL
)

// Window defines the interface for a native window: input callbacks, the drawing surface for
// either graphics API, and event pumping. All methods must be called from the main thread.
type Window interface {
	// SetResizeCallback sets the function invoked with the new framebuffer size after a resize.
	//
	// Parameters:
	//   - callback: receives the framebuffer width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the function invoked on vertical scroll.
	//
	// Parameters:
	//   - callback: receives the scroll delta; positive scrolls away from the user
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the function invoked when a key is pressed or repeats.
	//
	// Parameters:
	//   - callback: receives the key code (see common/key_codes.go)
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the function invoked when a key is released.
	//
	// Parameters:
	//   - callback: receives the key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetMouseButtonCallback sets the function invoked when a mouse button changes state.
	//
	// Parameters:
	//   - callback: receives the button, whether it is now pressed, and the cursor position
	SetMouseButtonCallback(callback func(button MouseButton, pressed bool, x, y float64))

	// SetMouseMoveCallback sets the function invoked when the cursor moves.
	//
	// Parameters:
	//   - callback: receives the cursor position in screen coordinates
	SetMouseMoveCallback(callback func(x, y float64))

	// SurfaceDescriptor returns the WebGPU surface descriptor of the native window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil when the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// UseOpenGL recreates the native window with an OpenGL 4.1 core context and makes the
	// context current. Registered callbacks carry over. It is a no-op if the window already
	// has a GL context.
	//
	// Returns:
	//   - error: an error if the context could not be created
	UseOpenGL() error

	// ClientAPI reports which graphics API the native window was created for.
	ClientAPI() ClientAPI

	// MakeContextCurrent binds the window's GL context to the calling thread.
	MakeContextCurrent()

	// SwapBuffers presents the GL back buffer.
	SwapBuffers()

	// SwapInterval sets the number of display refreshes to wait between buffer swaps.
	SwapInterval(interval int)

	// IsRunning reports whether the window is open and has not been asked to close.
	IsRunning() bool

	// PollEvents processes pending window events once and dispatches callbacks.
	PollEvents()

	// Close destroys the native window. Closing twice is a no-op.
	//
	// Returns:
	//   - error: an error if the window was never initialized
	Close() error

	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int

	// ContentScale returns the ratio of framebuffer pixels to screen coordinates.
	ContentScale() float32

	// SetTitle replaces the window title.
	SetTitle(title string)

	// Title returns the current window title.
	Title() string

	// MonitorSize returns the video mode size of the monitor the window is on, or of the
	// primary monitor.
	MonitorSize() (width, height int)
}

// engineWindow is the platform-independent half of the Window implementation.
type engineWindow struct {
	title string

	minWidth  int
	minHeight int
	maxWidth  int
	maxHeight int

	width  int
	height int

	samples   int
	clientAPI ClientAPI
	closed    bool

	internalWindow any

	onResize      func(width, height int)
	onScroll      func(delta float32)
	onKeyDown     func(keyCode uint32)
	onKeyUp       func(keyCode uint32)
	onMouseButton func(button MouseButton, pressed bool, x, y float64)
	onMouseMove   func(x, y float64)
}

var _ Window = &engineWindow{}

// NewWindow creates and opens a native window with all specified options applied.
// The calling goroutine is locked to its OS thread, which becomes the main thread for every
// later window call.
//
// Parameters:
//   - options: functional options applied in order
//
// Returns:
//   - Window: the open window
//   - error: an error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxy-viewer",
		minWidth:  320,
		minHeight: 240,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMouseButtonCallback(callback func(button MouseButton, pressed bool, x, y float64)) {
	w.onMouseButton = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y float64)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) UseOpenGL() error {
	if w.clientAPI == ClientAPIOpenGL {
		platformMakeContextCurrent(w)
		return nil
	}
	if err := platformRecreate(w, ClientAPIOpenGL); err != nil {
		return err
	}
	w.clientAPI = ClientAPIOpenGL
	platformMakeContextCurrent(w)
	return nil
}

func (w *engineWindow) ClientAPI() ClientAPI {
	return w.clientAPI
}

func (w *engineWindow) MakeContextCurrent() {
	platformMakeContextCurrent(w)
}

func (w *engineWindow) SwapBuffers() {
	platformSwapBuffers(w)
}

func (w *engineWindow) SwapInterval(interval int) {
	platformSwapInterval(w, interval)
}

func (w *engineWindow) IsRunning() bool {
	return !w.closed && platformIsRunningCheck(w)
}

func (w *engineWindow) PollEvents() {
	if w.closed {
		return
	}
	platformProcessMessages(w)
}

func (w *engineWindow) Close() error {
	if w.closed {
		return nil
	}
	if err := platformCloseWindow(w); err != nil {
		return err
	}
	w.closed = true
	return nil
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

func (w *engineWindow) ContentScale() float32 {
	return platformContentScale(w)
}

func (w *engineWindow) SetTitle(title string) {
	w.title = title
	platformSetTitle(w, title)
}

func (w *engineWindow) Title() string {
	return w.title
}

func (w *engineWindow) MonitorSize() (int, int) {
	return platformMonitorSize(w)
}

// resized records a framebuffer size change and notifies the resize callback.
func (w *engineWindow) resized(width, height int) {
	if width == w.width && height == w.height {
		return
	}
	w.width = width
	w.height = height
	if w.onResize != nil && width > 0 && height > 0 {
		w.onResize(width, height)
	}
}
