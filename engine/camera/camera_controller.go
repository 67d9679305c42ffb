package camera

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraController defines the interface for orbit camera controls. Controllers own the
// positional state (position, target); Camera reads from the controller and computes the
// view/projection matrices.
//
// Input methods (Rotate, Zoom, Pan and the Orbit* key steps) only queue motion. The queued
// motion is applied by Update, which eases it in over several frames when damping is enabled.
type CameraController interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: world-space camera position
	Position() mgl32.Vec3

	// Target returns the look-at point.
	//
	// Returns:
	//   - mgl32.Vec3: world-space target position
	Target() mgl32.Vec3

	// SetTarget sets the look-at/pivot point and recomputes position from spherical coordinates.
	//
	// Parameters:
	//   - target: world-space coordinates
	SetTarget(target mgl32.Vec3)

	// Rotate queues an orbit from a pointer drag.
	//
	// Parameters:
	//   - dx: horizontal drag in pixels; positive orbits right
	//   - dy: vertical drag in pixels; positive tilts up
	Rotate(dx, dy float32)

	// Zoom queues a change of orbit radius. Positive delta zooms in (closer to target).
	//
	// Parameters:
	//   - delta: zoom amount scaled by ZoomSpeed
	Zoom(delta float32)

	// Pan queues a translation of the target in the view plane.
	//
	// Parameters:
	//   - dx: horizontal drag in pixels
	//   - dy: vertical drag in pixels
	Pan(dx, dy float32)

	// OrbitLeft queues a rotation left around the target by one orbit speed step.
	OrbitLeft()

	// OrbitRight queues a rotation right around the target by one orbit speed step.
	OrbitRight()

	// OrbitUp queues an upward tilt by one orbit speed step.
	OrbitUp()

	// OrbitDown queues a downward tilt by one orbit speed step.
	OrbitDown()

	// Update applies queued motion.
	//
	// Parameters:
	//   - dt: time since the previous update
	//
	// Returns:
	//   - bool: true if the camera moved
	Update(dt time.Duration) bool

	// Radius returns the current orbit radius (distance from target).
	Radius() float32

	// SetRadius sets the orbit radius, clamped to the radius bounds.
	SetRadius(radius float32)

	// Azimuth returns the horizontal angle around the Y axis in radians (0 = +Z axis).
	Azimuth() float32

	// SetAzimuth sets the horizontal angle.
	SetAzimuth(azimuth float32)

	// Elevation returns the vertical angle from the horizontal plane in radians.
	Elevation() float32

	// SetElevation sets the vertical angle, clamped to the elevation bounds.
	SetElevation(elevation float32)

	// Damping returns the damping factor in [0, 1); 0 applies queued motion at once.
	Damping() float32
}
