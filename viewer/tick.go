package viewer

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Light orbit parameters.
const (
	OrbitRadius float32 = 2
	OrbitHeight float32 = 2

	// OrbitSpeed is the light's angular speed in radians per second.
	OrbitSpeed = 1.0
)

// LightPosition returns where the point light is t seconds into the animation:
// (R·cos θ, H, R·sin θ) with θ = t·OrbitSpeed.
func LightPosition(t float64) mgl32.Vec3 {
	theta := t * OrbitSpeed
	return mgl32.Vec3{
		OrbitRadius * float32(math.Cos(theta)),
		OrbitHeight,
		OrbitRadius * float32(math.Sin(theta)),
	}
}

// Tick advances the frame driver to elapsed and renders one frame. The light position and the
// cube material are pure functions of elapsed; only the camera carries state across frames.
//
// Parameters:
//   - s: the state returned by Compose
//   - elapsed: time since the loop started
//
// Returns:
//   - error: the renderer's error for this frame, if any
func Tick(s *State, elapsed time.Duration) error {
	t := elapsed.Seconds()

	s.Light.SetPosition(LightPosition(t))
	s.Animated.Update(elapsed)

	dt := time.Duration((t - s.lastElapsed) * float64(time.Second))
	s.lastElapsed = t
	if dt < 0 {
		dt = 0
	}
	s.Controls.Update(dt)
	s.Camera.Update()

	return s.Renderer.Render(s.Scene, s.Camera)
}

// Resize applies a framebuffer size to the camera aspect and the renderer viewport. Zero-sized
// framebuffers (minimised windows) are ignored.
func (s *State) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.Camera.SetAspect(float32(width) / float32(height))
	s.Renderer.SetViewport(width, height)
}
