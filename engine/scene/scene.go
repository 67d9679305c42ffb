package scene

import (
	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/environment"
)

// CubeFace indexes the six faces of a cube texture in +X, -X, +Y, -Y, +Z, -Z order.
type CubeFace int

const (
	FacePX CubeFace = iota
	FaceNX
	FacePY
	FaceNY
	FacePZ
	FaceNZ
)

// CubeFaceNames are the conventional file stems for the faces, in CubeFace order.
var CubeFaceNames = [6]string{"px", "nx", "py", "ny", "pz", "nz"}

// CubeTexture holds six decoded square faces of equal size.
type CubeTexture struct {
	Faces [6]common.TextureStagingData
}

// Size returns the edge length of the faces.
func (c *CubeTexture) Size() uint32 {
	return c.Faces[0].Width
}

// Background describes what is drawn behind the scene: a cube texture if set, else a flat color.
type Background struct {
	Color common.Color3
	Cube  *CubeTexture
}

// Environment is diffuse image-based lighting derived from a panorama.
type Environment struct {
	Irradiance environment.SH9
	Intensity  float32
}

// Fog is linear distance fog blending toward Color between Near and Far.
type Fog struct {
	Color common.Color3
	Near  float32
	Far   float32
}

// Factor returns the fog blend weight at a view distance, 0 at Near and 1 at Far.
func (f Fog) Factor(distance float32) float32 {
	if f.Far <= f.Near {
		return 0
	}
	return common.Clamp((distance-f.Near)/(f.Far-f.Near), 0, 1)
}

// ToneMapping selects the operator applied to linear HDR output.
type ToneMapping int

const (
	// ToneMappingLinear applies exposure only.
	ToneMappingLinear ToneMapping = iota

	// ToneMappingACES applies the ACES filmic curve after exposure.
	ToneMappingACES
)

func (t ToneMapping) String() string {
	if t == ToneMappingACES {
		return "aces"
	}
	return "linear"
}

// scene implements the Scene interface.
type scene struct {
	name        string
	root        Node
	background  Background
	environment *Environment
	fog         *Fog
	toneMapping ToneMapping
	exposure    float32
}

// Scene is the root of the node graph plus the global render state shared by every node:
// background, environment lighting, fog and tone mapping.
// A Scene is not safe for concurrent use; mutate it from the main thread only.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Root returns the root group. Every node reachable from it is rendered.
	Root() Node

	// Add attaches nodes to the root.
	//
	// Parameters:
	//   - nodes: the nodes to attach
	Add(nodes ...Node)

	// Remove detaches a direct child of the root.
	//
	// Parameters:
	//   - node: the node to detach
	//
	// Returns:
	//   - bool: true if the node was a child of the root
	Remove(node Node) bool

	// Traverse visits every node depth-first, root first.
	Traverse(fn func(Node))

	// NodeCount returns the number of nodes below the root, excluding the root itself.
	NodeCount() int

	// Background returns what is drawn behind the scene.
	Background() Background

	// SetBackground replaces the background.
	SetBackground(b Background)

	// Environment returns the environment lighting, or nil if none is set.
	Environment() *Environment

	// SetEnvironment sets or clears (nil) the environment lighting.
	SetEnvironment(env *Environment)

	// Fog returns the fog settings, or nil if fog is disabled.
	Fog() *Fog

	// SetFog enables (non-nil) or disables (nil) fog.
	SetFog(f *Fog)

	// ToneMapping returns the tone mapping operator.
	ToneMapping() ToneMapping

	// Exposure returns the exposure multiplier applied before tone mapping.
	Exposure() float32

	// SetToneMapping sets the tone mapping operator and exposure.
	//
	// Parameters:
	//   - t: the operator
	//   - exposure: the linear exposure multiplier
	SetToneMapping(t ToneMapping, exposure float32)
}

var _ Scene = &scene{}

// NewScene creates an empty scene with a black background, no fog, and linear tone mapping.
//
// Parameters:
//   - options: functional options for scene configuration
//
// Returns:
//   - Scene: the new scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		name:     "scene",
		root:     NewGroup("root"),
		exposure: 1,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Root() Node {
	return s.root
}

func (s *scene) Add(nodes ...Node) {
	s.root.Add(nodes...)
}

func (s *scene) Remove(node Node) bool {
	return s.root.Remove(node)
}

func (s *scene) Traverse(fn func(Node)) {
	s.root.Traverse(fn)
}

func (s *scene) NodeCount() int {
	count := -1
	s.root.Traverse(func(Node) { count++ })
	return count
}

func (s *scene) Background() Background {
	return s.background
}

func (s *scene) SetBackground(b Background) {
	s.background = b
}

func (s *scene) Environment() *Environment {
	return s.environment
}

func (s *scene) SetEnvironment(env *Environment) {
	s.environment = env
}

func (s *scene) Fog() *Fog {
	return s.fog
}

func (s *scene) SetFog(f *Fog) {
	s.fog = f
}

func (s *scene) ToneMapping() ToneMapping {
	return s.toneMapping
}

func (s *scene) Exposure() float32 {
	return s.exposure
}

func (s *scene) SetToneMapping(t ToneMapping, exposure float32) {
	s.toneMapping = t
	s.exposure = exposure
}
