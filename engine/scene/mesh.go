package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/geometry"
	"github.com/Carmen-Shannon/oxy-viewer/engine/material"
)

// Mesh is a drawable node: a geometry shaded by a material.
type Mesh struct {
	*Object
	geometry *geometry.Geometry
	material material.Material
}

var _ Node = &Mesh{}

// NewMesh creates a mesh node.
//
// Parameters:
//   - name: the mesh name
//   - g: the vertex data; treated as immutable once attached
//   - m: the material
//
// Returns:
//   - *Mesh: the new mesh
func NewMesh(name string, g *geometry.Geometry, m material.Material) *Mesh {
	mesh := &Mesh{geometry: g, material: m}
	mesh.Object = NewObject(KindMesh, mesh)
	mesh.SetName(name)
	return mesh
}

// Geometry returns the mesh's vertex data.
func (m *Mesh) Geometry() *geometry.Geometry {
	return m.geometry
}

// Material returns the mesh's material.
func (m *Mesh) Material() material.Material {
	return m.material
}

// SetMaterial replaces the mesh's material.
func (m *Mesh) SetMaterial(mat material.Material) {
	m.material = mat
}

// WorldBoundingSphere returns the geometry's bounding sphere transformed to world space.
// The radius is scaled by the largest axis scale of the world matrix.
//
// Returns:
//   - mgl32.Vec3: world-space center
//   - float32: world-space radius
func (m *Mesh) WorldBoundingSphere() (mgl32.Vec3, float32) {
	c, r := m.geometry.BoundingSphere()
	w := m.WorldMatrix()
	center := w.Mul4x1(c.Vec4(1)).Vec3()
	sx := w.Col(0).Vec3().Len()
	sy := w.Col(1).Vec3().Len()
	sz := w.Col(2).Vec3().Len()
	return center, r * max(sx, sy, sz)
}

// InFrustum reports whether the mesh's world bounding sphere intersects the frustum.
func (m *Mesh) InFrustum(f common.Frustum) bool {
	c, r := m.WorldBoundingSphere()
	return f.IntersectsSphere(c, r)
}
