package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/geometry"
	"github.com/Carmen-Shannon/oxy-viewer/engine/material"
)

func vecNear(a, b mgl32.Vec3) bool {
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-5 {
			return false
		}
	}
	return true
}

func TestGraphParenting(t *testing.T) {
	a := NewGroup("a")
	b := NewGroup("b")
	m := NewMesh("cube", geometry.NewBox(1, 1, 1), material.NewStandard())

	a.Add(m)
	if m.Parent() != a {
		t.Fatal("mesh parent should be a")
	}
	b.Add(m)
	if m.Parent() != b || len(a.Children()) != 0 {
		t.Fatal("re-adding should move the mesh to b")
	}
	if !b.Remove(m) || m.Parent() != nil {
		t.Fatal("Remove should detach the mesh")
	}
	if b.Remove(m) {
		t.Fatal("second Remove should report false")
	}
}

func TestTraverseYieldsOuterTypes(t *testing.T) {
	root := NewGroup("root")
	m := NewMesh("cube", geometry.NewBox(1, 1, 1), material.NewStandard())
	root.Add(m)

	var found *Mesh
	root.Traverse(func(n Node) {
		if mesh, ok := n.(*Mesh); ok {
			found = mesh
		}
	})
	if found != m {
		t.Fatal("Traverse should yield the *Mesh value")
	}
	if FindByName(root, "cube") != Node(m) {
		t.Fatal("FindByName did not find the mesh")
	}
}

func TestWorldMatrix(t *testing.T) {
	parent := NewGroup("parent")
	parent.SetPosition(mgl32.Vec3{1, 0, 0})
	parent.SetRotation(mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 1, 0}))

	child := NewGroup("child")
	child.SetPosition(mgl32.Vec3{0, 0, 1})
	parent.Add(child)

	got := child.WorldMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	if !vecNear(got, mgl32.Vec3{2, 0, 0}) {
		t.Fatalf("child world origin = %v", got)
	}

	child.SetMatrix(mgl32.Translate3D(0, 5, 0))
	got = child.WorldMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	if !vecNear(got, mgl32.Vec3{1, 5, 0}) {
		t.Fatalf("explicit matrix world origin = %v", got)
	}
}

func TestShadowsRecursive(t *testing.T) {
	root := NewGroup("model")
	inner := NewGroup("inner")
	m1 := NewMesh("m1", geometry.NewBox(1, 1, 1), material.NewStandard())
	m2 := NewMesh("m2", geometry.NewPlane(1, 1), material.NewStandard())
	root.Add(m1, inner)
	inner.Add(m2)

	SetShadowsRecursive(root, true, true)
	for _, m := range []*Mesh{m1, m2} {
		if !m.CastShadow() || !m.ReceiveShadow() {
			t.Fatalf("%s flags not set", m.Name())
		}
	}
	if inner.CastShadow() {
		t.Fatal("groups should not receive shadow flags")
	}
	if CountKind(root, KindMesh) != 2 || CountKind(root, KindGroup) != 2 {
		t.Fatal("unexpected node counts")
	}
}

func TestMeshWorldBoundingSphere(t *testing.T) {
	m := NewMesh("box", geometry.NewBox(2, 2, 2), material.NewStandard())
	m.SetPosition(mgl32.Vec3{0, 3, 0})
	m.SetScale(mgl32.Vec3{2, 1, 1})
	c, r := m.WorldBoundingSphere()
	if !vecNear(c, mgl32.Vec3{0, 3, 0}) {
		t.Fatalf("center = %v", c)
	}
	if math.Abs(float64(r)-2*math.Sqrt(3)) > 1e-4 {
		t.Fatalf("radius = %v", r)
	}

	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 3, 10}, mgl32.Vec3{0, 3, 0}, mgl32.Vec3{0, 1, 0})
	if !m.InFrustum(common.FrustumFromMatrix(proj.Mul4(view))) {
		t.Fatal("mesh in front of the camera should be visible")
	}
	m.SetPosition(mgl32.Vec3{0, 3, 50})
	if m.InFrustum(common.FrustumFromMatrix(proj.Mul4(view))) {
		t.Fatal("mesh behind the camera should be culled")
	}
}

func TestSceneState(t *testing.T) {
	s := NewScene(WithName("viewer"), WithFog(Fog{Near: 10, Far: 40}), WithToneMapping(ToneMappingACES, 1))
	if s.Name() != "viewer" || s.Fog() == nil || s.ToneMapping() != ToneMappingACES {
		t.Fatal("options not applied")
	}
	if s.NodeCount() != 0 {
		t.Fatalf("NodeCount = %d", s.NodeCount())
	}
	g := NewGroup("g")
	g.Add(NewGroup("h"))
	s.Add(g)
	if s.NodeCount() != 2 {
		t.Fatalf("NodeCount = %d", s.NodeCount())
	}
	if !s.Remove(g) || s.NodeCount() != 0 {
		t.Fatal("Remove failed")
	}

	f := *s.Fog()
	if f.Factor(5) != 0 || f.Factor(25) != 0.5 || f.Factor(100) != 1 {
		t.Fatalf("fog factors wrong: %v %v %v", f.Factor(5), f.Factor(25), f.Factor(100))
	}
}
