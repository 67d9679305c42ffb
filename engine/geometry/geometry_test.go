package geometry

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// windingNormal returns the (unnormalized) normal implied by a triangle's counter-clockwise winding.
func windingNormal(g *Geometry, tri int) mgl32.Vec3 {
	a := mgl32.Vec3(g.Positions[g.Indices[tri*3]])
	b := mgl32.Vec3(g.Positions[g.Indices[tri*3+1]])
	c := mgl32.Vec3(g.Positions[g.Indices[tri*3+2]])
	return b.Sub(a).Cross(c.Sub(a))
}

func vecNear(a, b mgl32.Vec3) bool {
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-5 {
			return false
		}
	}
	return true
}

func TestNewBox(t *testing.T) {
	g := NewBox(2, 4, 6)
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if g.VertexCount() != 24 || len(g.Indices) != 36 {
		t.Fatalf("box has %d vertices, %d indices", g.VertexCount(), len(g.Indices))
	}
	for _, p := range g.Positions {
		if math.Abs(float64(p[0])) != 1 || math.Abs(float64(p[1])) != 2 || math.Abs(float64(p[2])) != 3 {
			t.Fatalf("vertex %v is not on the box corners", p)
		}
	}
	for tri := 0; tri < len(g.Indices)/3; tri++ {
		wn := windingNormal(g, tri)
		n := mgl32.Vec3(g.Normals[g.Indices[tri*3]])
		if wn.Dot(n) <= 0 {
			t.Fatalf("triangle %d winds against its normal %v", tri, n)
		}
	}
}

func TestNewDisk(t *testing.T) {
	g := NewDisk(10, 64)
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if g.VertexCount() != 66 || len(g.Indices) != 64*3 {
		t.Fatalf("disk has %d vertices, %d indices", g.VertexCount(), len(g.Indices))
	}
	for tri := 0; tri < len(g.Indices)/3; tri++ {
		if windingNormal(g, tri).Z() <= 0 {
			t.Fatalf("triangle %d does not face +Z", tri)
		}
	}
	_, r := g.BoundingSphere()
	if math.Abs(float64(r-10)) > 1e-3 {
		t.Fatalf("disk bounding radius = %v", r)
	}

	if small := NewDisk(1, 1); len(small.Indices) != 9 {
		t.Fatalf("segment count should be raised to 3, got %d triangles", len(small.Indices)/3)
	}
}

func TestNewPlane(t *testing.T) {
	g := NewPlane(2, 2)
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if windingNormal(g, 0).Z() <= 0 || windingNormal(g, 1).Z() <= 0 {
		t.Fatal("plane triangles should face +Z")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		g    *Geometry
	}{
		{"empty", &Geometry{}},
		{"normals mismatch", &Geometry{Positions: [][3]float32{{}, {}, {}}, Normals: [][3]float32{{}}}},
		{"uvs mismatch", &Geometry{Positions: [][3]float32{{}, {}, {}}, UVs: [][2]float32{{}}}},
		{"partial triangle", &Geometry{Positions: [][3]float32{{}, {}, {}}, Indices: []uint32{0, 1}}},
		{"index out of range", &Geometry{Positions: [][3]float32{{}, {}, {}}, Indices: []uint32{0, 1, 3}}},
	}
	for _, tt := range tests {
		if err := tt.g.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestComputeNormalsAndInterleave(t *testing.T) {
	g := &Geometry{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 0, -1}},
	}
	g.ComputeNormals()
	if len(g.Indices) != 3 {
		t.Fatalf("EnsureIndices produced %v", g.Indices)
	}
	for _, n := range g.Normals {
		if !vecNear(mgl32.Vec3(n), mgl32.Vec3{0, 1, 0}) {
			t.Fatalf("normal = %v, want +Y", n)
		}
	}

	data := g.Interleaved()
	if len(data) != 3*FloatsPerVertex {
		t.Fatalf("interleaved length = %d", len(data))
	}
	if data[FloatsPerVertex] != 1 || data[4] != 1 {
		t.Fatalf("unexpected interleaved layout %v", data)
	}
}

func TestBoundingSphereOffset(t *testing.T) {
	g := &Geometry{Positions: [][3]float32{{2, 0, 0}, {4, 0, 0}}}
	c, r := g.BoundingSphere()
	if !vecNear(c, mgl32.Vec3{3, 0, 0}) || r != 1 {
		t.Fatalf("BoundingSphere = %v, %v", c, r)
	}
}
