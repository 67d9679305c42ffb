package geometry

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// FloatsPerVertex is the number of float32 values per interleaved vertex: position(3), normal(3), uv(2).
	FloatsPerVertex = 8

	// VertexStride is the byte stride of one interleaved vertex.
	VertexStride = FloatsPerVertex * 4

	// NormalOffset is the byte offset of the normal within an interleaved vertex.
	NormalOffset = 3 * 4

	// UVOffset is the byte offset of the texture coordinate within an interleaved vertex.
	UVOffset = 6 * 4
)

// Geometry holds indexed triangle-list vertex data. Geometry is treated as immutable once it
// has been attached to a mesh; backends cache GPU buffers by pointer identity.
type Geometry struct {
	Name      string
	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32
	Indices   []uint32
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	return len(g.Positions)
}

// Validate checks that attribute lengths agree and that every index is in range.
//
// Returns:
//   - error: a description of the first inconsistency found, or nil
func (g *Geometry) Validate() error {
	n := len(g.Positions)
	if n == 0 {
		return fmt.Errorf("geometry %q has no positions", g.Name)
	}
	if len(g.Normals) != 0 && len(g.Normals) != n {
		return fmt.Errorf("geometry %q has %d normals for %d positions", g.Name, len(g.Normals), n)
	}
	if len(g.UVs) != 0 && len(g.UVs) != n {
		return fmt.Errorf("geometry %q has %d uvs for %d positions", g.Name, len(g.UVs), n)
	}
	if len(g.Indices)%3 != 0 {
		return fmt.Errorf("geometry %q index count %d is not a multiple of 3", g.Name, len(g.Indices))
	}
	for i, idx := range g.Indices {
		if int(idx) >= n {
			return fmt.Errorf("geometry %q index %d at %d out of range", g.Name, idx, i)
		}
	}
	return nil
}

// EnsureIndices generates a trivial index buffer for non-indexed geometry.
func (g *Geometry) EnsureIndices() {
	if len(g.Indices) > 0 {
		return
	}
	g.Indices = make([]uint32, len(g.Positions))
	for i := range g.Indices {
		g.Indices[i] = uint32(i)
	}
}

// ComputeNormals replaces Normals with area-weighted vertex normals derived from the triangles.
func (g *Geometry) ComputeNormals() {
	g.EnsureIndices()
	acc := make([]mgl32.Vec3, len(g.Positions))
	for i := 0; i+2 < len(g.Indices); i += 3 {
		a, b, c := g.Indices[i], g.Indices[i+1], g.Indices[i+2]
		pa, pb, pc := mgl32.Vec3(g.Positions[a]), mgl32.Vec3(g.Positions[b]), mgl32.Vec3(g.Positions[c])
		n := pb.Sub(pa).Cross(pc.Sub(pa))
		acc[a] = acc[a].Add(n)
		acc[b] = acc[b].Add(n)
		acc[c] = acc[c].Add(n)
	}
	g.Normals = make([][3]float32, len(acc))
	for i, n := range acc {
		if n.Len() > 0 {
			n = n.Normalize()
		} else {
			n = mgl32.Vec3{0, 1, 0}
		}
		g.Normals[i] = n
	}
}

// Interleaved packs the vertex attributes as position, normal, uv per vertex.
// Missing normals default to +Y and missing uvs to zero.
//
// Returns:
//   - []float32: FloatsPerVertex values per vertex
func (g *Geometry) Interleaved() []float32 {
	out := make([]float32, 0, len(g.Positions)*FloatsPerVertex)
	for i, p := range g.Positions {
		n := [3]float32{0, 1, 0}
		if i < len(g.Normals) {
			n = g.Normals[i]
		}
		var uv [2]float32
		if i < len(g.UVs) {
			uv = g.UVs[i]
		}
		out = append(out, p[0], p[1], p[2], n[0], n[1], n[2], uv[0], uv[1])
	}
	return out
}

// BoundingSphere returns a sphere enclosing all positions, centered on the bounding box center.
//
// Returns:
//   - mgl32.Vec3: sphere center in local space
//   - float32: sphere radius
func (g *Geometry) BoundingSphere() (mgl32.Vec3, float32) {
	if len(g.Positions) == 0 {
		return mgl32.Vec3{}, 0
	}
	lo, hi := mgl32.Vec3(g.Positions[0]), mgl32.Vec3(g.Positions[0])
	for _, p := range g.Positions[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], p[k])
			hi[k] = max(hi[k], p[k])
		}
	}
	center := lo.Add(hi).Mul(0.5)
	var radius float32
	for _, p := range g.Positions {
		radius = max(radius, mgl32.Vec3(p).Sub(center).Len())
	}
	return center, radius
}
