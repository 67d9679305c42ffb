package camera

import (
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-viewer/common"
)

// settleEpsilon is the magnitude below which queued motion is dropped.
const settleEpsilon = 1e-5

// referenceFrame is the frame time damping factors are expressed against.
const referenceFrame = time.Second / 60

type cameraControllerImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3

	radius    float32
	azimuth   float32 // Horizontal angle around Y axis
	elevation float32 // Vertical angle from horizontal plane

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed       float32
	mouseSensitivity float32
	zoomSpeed        float32
	panSpeed         float32
	damping          float32

	// queued motion
	azimuthDelta   float32
	elevationDelta float32
	radiusDelta    float32
	panDelta       mgl32.Vec3
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates an orbit controller with all specified options applied.
// Defaults: radius 10 in [1, 100], azimuth 0, elevation 30° in [-85°, 85°], damping 0.05.
//
// Parameters:
//   - options: functional options applied in order
//
// Returns:
//   - CameraController: the new controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu: &sync.Mutex{},

		radius:    10.0,
		azimuth:   0.0,
		elevation: float32(math.Pi / 6),

		minRadius:    1.0,
		maxRadius:    100.0,
		minElevation: -mgl32.DegToRad(85),
		maxElevation: mgl32.DegToRad(85),

		orbitSpeed:       0.03,
		mouseSensitivity: 0.005,
		zoomSpeed:        1.0,
		panSpeed:         0.01,
		damping:          0.05,
	}

	for _, option := range options {
		option(cc)
	}

	cc.radius = common.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = common.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
	return cc
}

// updatePosition recomputes the eye position from the spherical coordinates. Callers hold mu.
func (cc *cameraControllerImpl) updatePosition() {
	cosElev := float32(math.Cos(float64(cc.elevation)))
	sinElev := float32(math.Sin(float64(cc.elevation)))
	cosAzim := float32(math.Cos(float64(cc.azimuth)))
	sinAzim := float32(math.Sin(float64(cc.azimuth)))

	cc.position = cc.target.Add(mgl32.Vec3{
		cc.radius * cosElev * sinAzim,
		cc.radius * sinElev,
		cc.radius * cosElev * cosAzim,
	})
}

// localAxes returns the camera's right and up vectors. The right vector is always horizontal.
func (cc *cameraControllerImpl) localAxes() (right, up mgl32.Vec3) {
	back := cc.position.Sub(cc.target)
	if back.Len() < 1e-8 {
		return mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}
	}
	back = back.Normalize()
	right = mgl32.Vec3{back[2], 0, -back[0]}
	if right.Len() < 1e-8 {
		return mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}
	}
	right = right.Normalize()
	up = back.Cross(right)
	return right, up
}

func (cc *cameraControllerImpl) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *cameraControllerImpl) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *cameraControllerImpl) SetTarget(target mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Rotate(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuthDelta -= dx * cc.mouseSensitivity
	cc.elevationDelta += dy * cc.mouseSensitivity
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radiusDelta -= delta * cc.zoomSpeed
}

func (cc *cameraControllerImpl) Pan(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	right, up := cc.localAxes()
	scale := cc.panSpeed * cc.radius * 0.1
	cc.panDelta = cc.panDelta.Add(right.Mul(-dx * scale)).Add(up.Mul(dy * scale))
}

func (cc *cameraControllerImpl) OrbitLeft() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuthDelta -= cc.orbitSpeed
}

func (cc *cameraControllerImpl) OrbitRight() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuthDelta += cc.orbitSpeed
}

func (cc *cameraControllerImpl) OrbitUp() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.elevationDelta += cc.orbitSpeed
}

func (cc *cameraControllerImpl) OrbitDown() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.elevationDelta -= cc.orbitSpeed
}

func (cc *cameraControllerImpl) Update(dt time.Duration) bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if cc.azimuthDelta == 0 && cc.elevationDelta == 0 && cc.radiusDelta == 0 && cc.panDelta == (mgl32.Vec3{}) {
		return false
	}

	// fraction of the queued motion applied this update
	step := float32(1)
	if cc.damping > 0 && dt > 0 {
		frames := float64(dt) / float64(referenceFrame)
		step = float32(1 - math.Pow(1-float64(cc.damping), frames))
	}

	cc.azimuth += cc.azimuthDelta * step
	cc.elevation = common.Clamp(cc.elevation+cc.elevationDelta*step, cc.minElevation, cc.maxElevation)
	cc.radius = common.Clamp(cc.radius+cc.radiusDelta*step, cc.minRadius, cc.maxRadius)
	cc.target = cc.target.Add(cc.panDelta.Mul(step))

	remain := 1 - step
	cc.azimuthDelta = settle(cc.azimuthDelta * remain)
	cc.elevationDelta = settle(cc.elevationDelta * remain)
	cc.radiusDelta = settle(cc.radiusDelta * remain)
	cc.panDelta = cc.panDelta.Mul(remain)
	if cc.panDelta.Len() < settleEpsilon {
		cc.panDelta = mgl32.Vec3{}
	}

	cc.updatePosition()
	return true
}

func settle(v float32) float32 {
	if v > -settleEpsilon && v < settleEpsilon {
		return 0
	}
	return v
}

func (cc *cameraControllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *cameraControllerImpl) SetRadius(radius float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = common.Clamp(radius, cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *cameraControllerImpl) SetAzimuth(azimuth float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth = azimuth
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}

func (cc *cameraControllerImpl) SetElevation(elevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.elevation = common.Clamp(elevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Damping() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.damping
}
