package scene

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/go-gl/mathgl/mgl32"
)

// NodeKind identifies what a scene node represents.
type NodeKind int

const (
	// KindGroup is a transform-only node used to organise children.
	KindGroup NodeKind = iota

	// KindMesh is a drawable node with geometry and a material.
	KindMesh

	// KindAmbientLight is a light that contributes uniformly to every surface.
	KindAmbientLight

	// KindPointLight is a positional light emitting in all directions.
	KindPointLight
)

// String returns the lower-case name of the kind.
func (k NodeKind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindMesh:
		return "mesh"
	case KindAmbientLight:
		return "ambientLight"
	case KindPointLight:
		return "pointLight"
	default:
		return "unknown"
	}
}

// nodeCount is an atomic counter used to generate unique node IDs.
var nodeCount atomic.Uint64

// Node is a member of the scene graph. Every node carries a local transform, visibility and
// shadow flags, and an ordered list of children.
//
// Nodes are not safe for concurrent mutation: the graph is owned by the main loop and asset
// completions are posted back to it before they touch the graph.
type Node interface {
	// ID returns the unique, process-wide node identifier.
	ID() uint64

	// Name returns the node's name. Names are not required to be unique.
	Name() string

	// SetName sets the node's name.
	SetName(name string)

	// Kind returns what the node represents.
	Kind() NodeKind

	// Parent returns the node this node is attached to, or nil for a root or detached node.
	Parent() Node

	// Children returns the node's direct children in insertion order.
	// The returned slice must not be modified.
	Children() []Node

	// Add attaches children to this node. A child that already has a parent is detached from
	// it first. Nil children and attaching a node to itself are ignored.
	//
	// Parameters:
	//   - children: nodes to attach
	Add(children ...Node)

	// Remove detaches a direct child.
	//
	// Parameters:
	//   - child: the node to detach
	//
	// Returns:
	//   - bool: true if child was a direct child and has been removed
	Remove(child Node) bool

	// Traverse calls fn for this node and every descendant, depth first in child order.
	//
	// Parameters:
	//   - fn: visitor called once per node
	Traverse(fn func(Node))

	// Position returns the local translation.
	Position() mgl32.Vec3

	// SetPosition sets the local translation.
	SetPosition(p mgl32.Vec3)

	// Rotation returns the local rotation.
	Rotation() mgl32.Quat

	// SetRotation sets the local rotation.
	SetRotation(q mgl32.Quat)

	// Scale returns the local scale.
	Scale() mgl32.Vec3

	// SetScale sets the local scale.
	SetScale(s mgl32.Vec3)

	// SetMatrix overrides the TRS transform with an explicit local matrix, as used by glTF nodes
	// that specify a matrix. Calling SetPosition, SetRotation, or SetScale clears the override.
	//
	// Parameters:
	//   - m: the local matrix
	SetMatrix(m mgl32.Mat4)

	// LocalMatrix returns the local transform.
	LocalMatrix() mgl32.Mat4

	// WorldMatrix returns the transform from local to world space, composed through all parents.
	WorldMatrix() mgl32.Mat4

	// Visible reports whether the node and its subtree are drawn.
	Visible() bool

	// SetVisible shows or hides the node and its subtree.
	SetVisible(visible bool)

	// CastShadow reports whether the node is rendered into shadow maps.
	CastShadow() bool

	// SetCastShadow toggles shadow casting for this node only.
	SetCastShadow(cast bool)

	// ReceiveShadow reports whether the node samples shadow maps when shaded.
	ReceiveShadow() bool

	// SetReceiveShadow toggles shadow receiving for this node only.
	SetReceiveShadow(receive bool)

	object() *Object
}

// Object is the reusable base for scene nodes. Types in other packages embed *Object to become
// Nodes; NewObject must be given the embedding value so parent links point at the outer type.
type Object struct {
	id       uint64
	name     string
	kind     NodeKind
	self     Node
	parent   Node
	children []Node

	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3
	matrix   *mgl32.Mat4

	visible       bool
	castShadow    bool
	receiveShadow bool
}

var _ Node = &Object{}

// NewObject creates a base object of the given kind.
//
// Parameters:
//   - kind: what the node represents
//   - self: the outer value embedding this Object, or nil when the Object is used directly
//
// Returns:
//   - *Object: the new base object with identity transform, visible, and no shadow flags
func NewObject(kind NodeKind, self Node) *Object {
	o := &Object{
		id:       nodeCount.Add(1),
		kind:     kind,
		rotation: mgl32.QuatIdent(),
		scale:    mgl32.Vec3{1, 1, 1},
		visible:  true,
	}
	o.self = self
	if o.self == nil {
		o.self = o
	}
	return o
}

// NewGroup creates an empty transform node.
//
// Parameters:
//   - name: the group's name
//
// Returns:
//   - Node: the new group
func NewGroup(name string) Node {
	g := NewObject(KindGroup, nil)
	g.name = name
	return g
}

func (o *Object) object() *Object {
	return o
}

func (o *Object) ID() uint64 {
	return o.id
}

func (o *Object) Name() string {
	return o.name
}

func (o *Object) SetName(name string) {
	o.name = name
}

func (o *Object) Kind() NodeKind {
	return o.kind
}

func (o *Object) Parent() Node {
	return o.parent
}

func (o *Object) Children() []Node {
	return o.children
}

func (o *Object) Add(children ...Node) {
	for _, c := range children {
		if c == nil {
			continue
		}
		co := c.object()
		if co == o {
			continue
		}
		if co.parent != nil {
			co.parent.Remove(c)
		}
		co.parent = o.self
		o.children = append(o.children, c)
	}
}

func (o *Object) Remove(child Node) bool {
	if child == nil {
		return false
	}
	target := child.object()
	for i, c := range o.children {
		if c.object() == target {
			o.children = append(o.children[:i], o.children[i+1:]...)
			target.parent = nil
			return true
		}
	}
	return false
}

func (o *Object) Traverse(fn func(Node)) {
	fn(o.self)
	for _, c := range o.children {
		c.Traverse(fn)
	}
}

func (o *Object) Position() mgl32.Vec3 {
	return o.position
}

func (o *Object) SetPosition(p mgl32.Vec3) {
	o.position = p
	o.matrix = nil
}

func (o *Object) Rotation() mgl32.Quat {
	return o.rotation
}

func (o *Object) SetRotation(q mgl32.Quat) {
	o.rotation = q
	o.matrix = nil
}

func (o *Object) Scale() mgl32.Vec3 {
	return o.scale
}

func (o *Object) SetScale(s mgl32.Vec3) {
	o.scale = s
	o.matrix = nil
}

func (o *Object) SetMatrix(m mgl32.Mat4) {
	o.matrix = &m
}

func (o *Object) LocalMatrix() mgl32.Mat4 {
	if o.matrix != nil {
		return *o.matrix
	}
	return common.ComposeTRS(o.position, o.rotation, o.scale)
}

func (o *Object) WorldMatrix() mgl32.Mat4 {
	local := o.LocalMatrix()
	if o.parent == nil {
		return local
	}
	return o.parent.WorldMatrix().Mul4(local)
}

func (o *Object) Visible() bool {
	return o.visible
}

func (o *Object) SetVisible(visible bool) {
	o.visible = visible
}

func (o *Object) CastShadow() bool {
	return o.castShadow
}

func (o *Object) SetCastShadow(cast bool) {
	o.castShadow = cast
}

func (o *Object) ReceiveShadow() bool {
	return o.receiveShadow
}

func (o *Object) SetReceiveShadow(receive bool) {
	o.receiveShadow = receive
}

// SetShadowsRecursive sets cast and receive shadow flags on every mesh in the subtree rooted at n.
//
// Parameters:
//   - n: subtree root
//   - cast: the cast-shadow flag to apply
//   - receive: the receive-shadow flag to apply
func SetShadowsRecursive(n Node, cast, receive bool) {
	n.Traverse(func(c Node) {
		if c.Kind() == KindMesh {
			c.SetCastShadow(cast)
			c.SetReceiveShadow(receive)
		}
	})
}

// CountKind returns how many nodes of the given kind exist in the subtree rooted at n.
func CountKind(n Node, kind NodeKind) int {
	count := 0
	n.Traverse(func(c Node) {
		if c.Kind() == kind {
			count++
		}
	})
	return count
}

// FindByName returns the first node in depth-first order with the given name, or nil.
func FindByName(n Node, name string) Node {
	var found Node
	n.Traverse(func(c Node) {
		if found == nil && c.Name() == name {
			found = c
		}
	})
	return found
}
