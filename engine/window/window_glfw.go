package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

type glfwWindow struct {
	parent  *engineWindow
	window  *glfw.Window
	running bool
}

// glfwButtons maps GLFW mouse buttons to MouseButton
var glfwButtons = map[glfw.MouseButton]MouseButton{
	glfw.MouseButtonLeft:   MouseButtonLeft,
	glfw.MouseButtonRight:  MouseButtonRight,
	glfw.MouseButtonMiddle: MouseButtonMiddle,
}

func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	gw, err := createGLFWWindow(w, w.clientAPI)
	if err != nil {
		glfw.Terminate()
		return err
	}
	w.internalWindow = gw
	return nil
}

// createGLFWWindow opens a native window for the given client API and wires its callbacks to
// the parent's handlers.
func createGLFWWindow(w *engineWindow, api ClientAPI) (*glfwWindow, error) {
	glfw.DefaultWindowHints()
	switch api {
	case ClientAPIOpenGL:
		glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLAPI)
		glfw.WindowHint(glfw.ContextVersionMajor, 4)
		glfw.WindowHint(glfw.ContextVersionMinor, 1)
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
		if w.samples > 1 {
			glfw.WindowHint(glfw.Samples, w.samples)
		}
	default:
		glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	}

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, orDontCare(w.maxWidth), orDontCare(w.maxHeight))

	gw := &glfwWindow{
		parent:  w,
		window:  win,
		running: true,
	}

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			gw.running = false
			win.SetShouldClose(true)
			return
		}
		switch action {
		case glfw.Press, glfw.Repeat:
			if w.onKeyDown != nil {
				w.onKeyDown(uint32(key))
			}
		case glfw.Release:
			if w.onKeyUp != nil {
				w.onKeyUp(uint32(key))
			}
		}
	})

	win.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		if w.onScroll != nil {
			w.onScroll(float32(yoff))
		}
	})

	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		b, ok := glfwButtons[button]
		if !ok || w.onMouseButton == nil || action == glfw.Repeat {
			return
		}
		xpos, ypos := win.GetCursorPos()
		w.onMouseButton(b, action == glfw.Press, xpos, ypos)
	})

	win.SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		if w.onMouseMove != nil {
			w.onMouseMove(xpos, ypos)
		}
	})

	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resized(width, height)
	})

	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width = fbWidth
	w.height = fbHeight

	return gw, nil
}

func orDontCare(v int) int {
	if v <= 0 {
		return glfw.DontCare
	}
	return v
}

func platformRecreate(w *engineWindow, api ClientAPI) error {
	old, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return fmt.Errorf("window is not initialized")
	}
	x, y := old.window.GetPos()
	gw, err := createGLFWWindow(w, api)
	if err != nil {
		return err
	}
	gw.window.SetPos(x, y)
	old.window.Destroy()
	w.internalWindow = gw
	return nil
}

func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok || w.closed {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

func platformMakeContextCurrent(w *engineWindow) {
	if gw, ok := w.internalWindow.(*glfwWindow); ok && w.clientAPI == ClientAPIOpenGL {
		gw.window.MakeContextCurrent()
	}
}

func platformSwapBuffers(w *engineWindow) {
	if gw, ok := w.internalWindow.(*glfwWindow); ok && w.clientAPI == ClientAPIOpenGL {
		gw.window.SwapBuffers()
	}
}

func platformSwapInterval(w *engineWindow, interval int) {
	if w.clientAPI == ClientAPIOpenGL {
		glfw.SwapInterval(interval)
	}
}

func platformIsRunningCheck(w *engineWindow) bool {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return false
	}
	return gw.running && !gw.window.ShouldClose()
}

func platformCloseWindow(w *engineWindow) error {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return fmt.Errorf("window is not initialized")
	}
	gw.running = false
	gw.window.SetShouldClose(true)
	gw.window.Destroy()
	glfw.Terminate()
	return nil
}

func platformProcessMessages(w *engineWindow) {
	glfw.PollEvents()
}

func platformContentScale(w *engineWindow) float32 {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok || w.closed {
		return 1
	}
	// framebuffer pixels per screen coordinate; matches the browser's devicePixelRatio
	winWidth, _ := gw.window.GetSize()
	if winWidth > 0 && w.width > 0 {
		return float32(w.width) / float32(winWidth)
	}
	sx, _ := gw.window.GetContentScale()
	return max(sx, 1)
}

func platformSetTitle(w *engineWindow, title string) {
	if gw, ok := w.internalWindow.(*glfwWindow); ok && !w.closed {
		gw.window.SetTitle(title)
	}
}

func platformMonitorSize(w *engineWindow) (int, int) {
	var monitor *glfw.Monitor
	if gw, ok := w.internalWindow.(*glfwWindow); ok && !w.closed {
		monitor = gw.window.GetMonitor()
	}
	if monitor == nil {
		monitor = glfw.GetPrimaryMonitor()
	}
	if monitor == nil {
		return 0, 0
	}
	mode := monitor.GetVideoMode()
	if mode == nil {
		return 0, 0
	}
	return mode.Width, mode.Height
}
