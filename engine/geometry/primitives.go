package geometry

import (
	"math"
)

// boxFace describes one box face by its outward normal and the in-plane axes, chosen so that
// u × v = normal and the generated quads wind counter-clockwise seen from outside.
type boxFace struct {
	normal, u, v [3]float32
}

var boxFaces = [6]boxFace{
	{normal: [3]float32{1, 0, 0}, u: [3]float32{0, 0, -1}, v: [3]float32{0, 1, 0}},
	{normal: [3]float32{-1, 0, 0}, u: [3]float32{0, 0, 1}, v: [3]float32{0, 1, 0}},
	{normal: [3]float32{0, 1, 0}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 0, -1}},
	{normal: [3]float32{0, -1, 0}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 0, 1}},
	{normal: [3]float32{0, 0, 1}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 1, 0}},
	{normal: [3]float32{0, 0, -1}, u: [3]float32{-1, 0, 0}, v: [3]float32{0, 1, 0}},
}

// NewBox creates an axis-aligned box centered on the origin with 4 vertices per face so each face
// has flat normals.
//
// Parameters:
//   - width: extent along X
//   - height: extent along Y
//   - depth: extent along Z
//
// Returns:
//   - *Geometry: 24 vertices and 36 indices
func NewBox(width, height, depth float32) *Geometry {
	half := [3]float32{width / 2, height / 2, depth / 2}
	g := &Geometry{
		Name:      "box",
		Positions: make([][3]float32, 0, 24),
		Normals:   make([][3]float32, 0, 24),
		UVs:       make([][2]float32, 0, 24),
		Indices:   make([]uint32, 0, 36),
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, f := range boxFaces {
		base := uint32(len(g.Positions))
		for _, c := range corners {
			var p [3]float32
			for k := 0; k < 3; k++ {
				p[k] = f.normal[k]*half[k] + c[0]*f.u[k]*half[k] + c[1]*f.v[k]*half[k]
			}
			g.Positions = append(g.Positions, p)
			g.Normals = append(g.Normals, f.normal)
			g.UVs = append(g.UVs, [2]float32{(c[0] + 1) / 2, (1 - c[1]) / 2})
		}
		g.Indices = append(g.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return g
}

// NewDisk creates a flat circle in the XY plane facing +Z, built as a triangle fan around the center.
// Rotate it by -90° around X to lay it on the ground.
//
// Parameters:
//   - radius: circle radius
//   - segments: number of triangles; values below 3 are raised to 3
//
// Returns:
//   - *Geometry: segments+2 vertices and 3*segments indices
func NewDisk(radius float32, segments int) *Geometry {
	segments = max(segments, 3)
	g := &Geometry{
		Name:      "disk",
		Positions: [][3]float32{{0, 0, 0}},
		Normals:   [][3]float32{{0, 0, 1}},
		UVs:       [][2]float32{{0.5, 0.5}},
	}
	for i := 0; i <= segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		c, s := float32(math.Cos(theta)), float32(math.Sin(theta))
		g.Positions = append(g.Positions, [3]float32{radius * c, radius * s, 0})
		g.Normals = append(g.Normals, [3]float32{0, 0, 1})
		g.UVs = append(g.UVs, [2]float32{(c + 1) / 2, (1 - s) / 2})
	}
	for i := 1; i <= segments; i++ {
		g.Indices = append(g.Indices, 0, uint32(i), uint32(i+1))
	}
	return g
}

// NewPlane creates a single quad in the XY plane facing +Z.
//
// Parameters:
//   - width: extent along X
//   - height: extent along Y
//
// Returns:
//   - *Geometry: 4 vertices and 6 indices
func NewPlane(width, height float32) *Geometry {
	w, h := width/2, height/2
	return &Geometry{
		Name:      "plane",
		Positions: [][3]float32{{-w, -h, 0}, {w, -h, 0}, {w, h, 0}, {-w, h, 0}},
		Normals:   [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		UVs:       [][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}
