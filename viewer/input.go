package viewer

import (
	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/camera"
	"github.com/Carmen-Shannon/oxy-viewer/engine/window"
)

// orbitInput translates window input into orbit controller motion: left drag orbits, right or
// middle drag pans, the wheel zooms, arrow keys orbit in steps and Escape quits.
type orbitInput struct {
	controls camera.CameraController
	quit     func()

	rotating bool
	panning  bool
	lastX    float64
	lastY    float64
}

func newOrbitInput(controls camera.CameraController, quit func()) *orbitInput {
	return &orbitInput{controls: controls, quit: quit}
}

// bind registers the input callbacks on w.
func (in *orbitInput) bind(w window.Window) {
	w.SetMouseButtonCallback(in.button)
	w.SetMouseMoveCallback(in.move)
	w.SetScrollCallback(in.scroll)
	w.SetKeyDownCallback(in.key)
}

func (in *orbitInput) button(b window.MouseButton, pressed bool, x, y float64) {
	switch b {
	case window.MouseButtonLeft:
		in.rotating = pressed
	case window.MouseButtonRight, window.MouseButtonMiddle:
		in.panning = pressed
	}
	in.lastX, in.lastY = x, y
}

func (in *orbitInput) move(x, y float64) {
	dx, dy := float32(x-in.lastX), float32(y-in.lastY)
	in.lastX, in.lastY = x, y
	switch {
	case in.rotating:
		in.controls.Rotate(dx, dy)
	case in.panning:
		in.controls.Pan(dx, dy)
	}
}

func (in *orbitInput) scroll(delta float32) {
	in.controls.Zoom(delta)
}

func (in *orbitInput) key(code uint32) {
	switch code {
	case common.KeyLeft, common.KeyA:
		in.controls.OrbitLeft()
	case common.KeyRight, common.KeyD:
		in.controls.OrbitRight()
	case common.KeyUp, common.KeyW:
		in.controls.OrbitUp()
	case common.KeyDown, common.KeyS:
		in.controls.OrbitDown()
	case common.KeyEsc:
		if in.quit != nil {
			in.quit()
		}
	}
}
