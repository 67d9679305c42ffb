package light

import (
	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

// Light defines the interface shared by light nodes.
//
// Lights are scene nodes: they are attached to the graph like any other node and take their
// world position from it. Renderers collect them during traversal and marshal them into the
// per-frame light block (see gpu_types.go).
type Light interface {
	scene.Node

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - common.Color3: linear color
	Color() common.Color3

	// SetColor sets the RGB color of the light.
	//
	// Parameters:
	//   - c: linear color
	SetColor(c common.Color3)

	// Intensity returns the scalar intensity multiplier for the light.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// SetIntensity sets the scalar intensity multiplier.
	//
	// Parameters:
	//   - intensity: the intensity value
	SetIntensity(intensity float32)
}

// Ambient lights every surface equally from all directions.
type Ambient struct {
	*scene.Object
	color     common.Color3
	intensity float32
}

var _ Light = &Ambient{}

// NewAmbient creates an ambient light.
//
// Parameters:
//   - color: linear RGB color
//   - intensity: scalar multiplier
//
// Returns:
//   - *Ambient: the new light
func NewAmbient(color common.Color3, intensity float32) *Ambient {
	a := &Ambient{color: color, intensity: intensity}
	a.Object = scene.NewObject(scene.KindAmbientLight, a)
	a.SetName("ambient")
	return a
}

func (a *Ambient) Color() common.Color3 {
	return a.color
}

func (a *Ambient) SetColor(c common.Color3) {
	a.color = c
}

func (a *Ambient) Intensity() float32 {
	return a.intensity
}

func (a *Ambient) SetIntensity(intensity float32) {
	a.intensity = intensity
}

// Radiance returns color multiplied by intensity.
func (a *Ambient) Radiance() common.Color3 {
	return a.color.Mul(a.intensity)
}

// Point emits in all directions from its world position and attenuates with distance.
type Point struct {
	*scene.Object
	color     common.Color3
	intensity float32
	distance  float32
	decay     float32
	shadow    Shadow
}

var _ Light = &Point{}

// NewPoint creates a point light. Defaults: white, intensity 1, distance 0 (infinite range),
// decay 2, no shadow casting, default shadow parameters.
//
// Parameters:
//   - options: functional options applied in order
//
// Returns:
//   - *Point: the new light
func NewPoint(options ...PointBuilderOption) *Point {
	p := &Point{
		color:     common.Color3{1, 1, 1},
		intensity: 1,
		decay:     2,
		shadow:    DefaultShadow(),
	}
	p.Object = scene.NewObject(scene.KindPointLight, p)
	p.SetName("point")
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *Point) Color() common.Color3 {
	return p.color
}

func (p *Point) SetColor(c common.Color3) {
	p.color = c
}

func (p *Point) Intensity() float32 {
	return p.intensity
}

func (p *Point) SetIntensity(intensity float32) {
	p.intensity = intensity
}

// Distance returns the range beyond which the light contributes nothing; 0 means unlimited.
func (p *Point) Distance() float32 {
	return p.distance
}

// Decay returns the attenuation exponent.
func (p *Point) Decay() float32 {
	return p.decay
}

// Shadow returns the shadow parameters.
func (p *Point) Shadow() Shadow {
	return p.shadow
}

// SetShadow replaces the shadow parameters.
func (p *Point) SetShadow(s Shadow) {
	p.shadow = s
}

// Attenuation returns the distance falloff factor at d world units from the light:
// an inverse power law windowed smoothly to zero at Distance.
func (p *Point) Attenuation(d float32) float32 {
	falloff := 1 / max(pow(d, p.decay), 0.01)
	if p.distance <= 0 {
		return falloff
	}
	ratio := common.Clamp(1-pow(d/p.distance, 4), 0, 1)
	return falloff * ratio * ratio
}

// Collect walks a subtree and returns the ambient and point lights that are visible.
//
// Parameters:
//   - root: subtree root
//
// Returns:
//   - []*Ambient: visible ambient lights in traversal order
//   - []*Point: visible point lights in traversal order
func Collect(root scene.Node) ([]*Ambient, []*Point) {
	var ambients []*Ambient
	var points []*Point
	root.Traverse(func(n scene.Node) {
		if !n.Visible() {
			return
		}
		switch l := n.(type) {
		case *Ambient:
			ambients = append(ambients, l)
		case *Point:
			points = append(points, l)
		}
	})
	return ambients, points
}
