package camera

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

func near(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

func vecNear(a, b mgl32.Vec3, eps float32) bool {
	return near(a[0], b[0], eps) && near(a[1], b[1], eps) && near(a[2], b[2], eps)
}

func TestControllerSphericalPosition(t *testing.T) {
	cc := NewCameraController(
		WithRadius(5),
		WithAzimuth(0),
		WithElevation(0),
		WithTarget(mgl32.Vec3{0, 1, 0}),
	)
	if p := cc.Position(); !vecNear(p, mgl32.Vec3{0, 1, 5}, 1e-5) {
		t.Fatalf("position = %v", p)
	}
	cc.SetAzimuth(math.Pi / 2)
	if p := cc.Position(); !vecNear(p, mgl32.Vec3{5, 1, 0}, 1e-5) {
		t.Fatalf("position after azimuth = %v", p)
	}
}

func TestControllerClampsBounds(t *testing.T) {
	cc := NewCameraController(WithRadiusBounds(2, 20), WithElevationBounds(0, 1), WithRadius(50))
	if cc.Radius() != 20 {
		t.Fatalf("radius = %v, want clamp to 20", cc.Radius())
	}
	cc.SetElevation(3)
	if cc.Elevation() != 1 {
		t.Fatalf("elevation = %v, want 1", cc.Elevation())
	}
	cc.SetRadius(0.5)
	if cc.Radius() != 2 {
		t.Fatalf("radius = %v, want 2", cc.Radius())
	}
}

func TestUpdateWithoutDampingAppliesAtOnce(t *testing.T) {
	cc := NewCameraController(WithDamping(0), WithAzimuth(0), WithOrbitSpeed(0.1))
	if cc.Update(time.Second / 60) {
		t.Fatal("update without input should report no motion")
	}
	cc.OrbitRight()
	if !cc.Update(time.Second / 60) {
		t.Fatal("update should report motion")
	}
	if !near(cc.Azimuth(), 0.1, 1e-6) {
		t.Fatalf("azimuth = %v", cc.Azimuth())
	}
	if cc.Update(time.Second / 60) {
		t.Fatal("queued motion should be consumed")
	}
}

func TestUpdateWithDampingEasesIn(t *testing.T) {
	cc := NewCameraController(WithDamping(0.1), WithAzimuth(0), WithMouseSensitivity(0.01))
	cc.Rotate(-100, 0) // drag left orbits left: +1 rad queued

	cc.Update(time.Second / 60)
	first := cc.Azimuth()
	if !near(first, 0.1, 1e-4) {
		t.Fatalf("first damped step = %v, want 0.1", first)
	}
	for i := 0; i < 600; i++ {
		cc.Update(time.Second / 60)
	}
	if !near(cc.Azimuth(), 1, 1e-3) {
		t.Fatalf("azimuth after settling = %v, want 1", cc.Azimuth())
	}
	if cc.Update(time.Second / 60) {
		t.Fatal("motion should have settled")
	}
}

func TestDampingIsFrameRateIndependent(t *testing.T) {
	a := NewCameraController(WithDamping(0.2), WithAzimuth(0))
	b := NewCameraController(WithDamping(0.2), WithAzimuth(0))
	a.OrbitRight()
	b.OrbitRight()

	a.Update(time.Second / 30)
	b.Update(time.Second / 60)
	b.Update(time.Second / 60)
	if !near(a.Azimuth(), b.Azimuth(), 1e-5) {
		t.Fatalf("one 30 Hz step %v != two 60 Hz steps %v", a.Azimuth(), b.Azimuth())
	}
}

func TestZoomAndPan(t *testing.T) {
	cc := NewCameraController(WithDamping(0), WithRadius(10), WithZoomSpeed(2))
	cc.Zoom(1)
	cc.Update(time.Millisecond)
	if cc.Radius() != 8 {
		t.Fatalf("radius after zoom = %v", cc.Radius())
	}

	before := cc.Position().Sub(cc.Target())
	cc.Pan(10, 0)
	cc.Update(time.Millisecond)
	if cc.Target() == (mgl32.Vec3{}) {
		t.Fatal("pan should move the target")
	}
	if after := cc.Position().Sub(cc.Target()); !vecNear(after, before, 1e-4) {
		t.Fatalf("pan should preserve the eye offset: %v vs %v", after, before)
	}
}

func TestCameraMatrices(t *testing.T) {
	cc := NewCameraController(WithRadius(5), WithElevation(0), WithAzimuth(0))
	cam := NewCamera(WithController(cc), WithAspect(2))
	if cam.Position() != cc.Position() {
		t.Fatalf("camera position %v != controller %v", cam.Position(), cc.Position())
	}

	clip := cam.ViewProjectionMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	ndc := clip.Vec3().Mul(1 / clip.W())
	if !near(ndc[0], 0, 1e-5) || !near(ndc[1], 0, 1e-5) {
		t.Fatalf("target should project to the center, got %v", ndc)
	}
	if !cam.Frustum().IntersectsSphere(mgl32.Vec3{}, 0.1) {
		t.Fatal("target should be inside the frustum")
	}

	cam.SetAspect(0)
	if cam.Aspect() != 2 {
		t.Fatal("non-positive aspect should be ignored")
	}
	inv := cam.InverseProjectionMatrix().Mul4(cam.ProjectionMatrix())
	ident := mgl32.Ident4()
	for i := range inv {
		if !near(inv[i], ident[i], 1e-4) {
			t.Fatalf("inverse projection mismatch: %v", inv)
		}
	}
}
