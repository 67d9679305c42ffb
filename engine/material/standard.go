package material

import (
	"github.com/Carmen-Shannon/oxy-viewer/common"
)

// Standard is the engine-native metallic/roughness material. Every backend shades it with its
// built-in lit pipeline, including ambient, environment, point light, fog and shadows.
type Standard struct {
	id                uint64
	name              string
	side              Side
	color             common.Color3
	opacity           float32
	emissive          common.Color3
	emissiveIntensity float32
	metalness         float32
	roughness         float32
	baseColorMap      *common.TextureStagingData
}

var _ Material = &Standard{}

// StandardBuilderOption is a function that configures a Standard material during construction.
type StandardBuilderOption func(*Standard)

// NewStandard creates a Standard material. Defaults: white, opaque, non-emissive, dielectric,
// roughness 1.
//
// Parameters:
//   - options: functional options applied in order
//
// Returns:
//   - *Standard: the new material
func NewStandard(options ...StandardBuilderOption) *Standard {
	m := &Standard{
		id:                materialCount.Add(1),
		name:              "standard",
		color:             common.Color3{1, 1, 1},
		opacity:           1,
		emissiveIntensity: 1,
		roughness:         1,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - StandardBuilderOption: a function that applies the name option
func WithName(name string) StandardBuilderOption {
	return func(m *Standard) {
		m.name = name
	}
}

// WithColor is an option builder that sets the diffuse base color.
//
// Parameters:
//   - c: linear RGB color
//
// Returns:
//   - StandardBuilderOption: a function that applies the color option
func WithColor(c common.Color3) StandardBuilderOption {
	return func(m *Standard) {
		m.color = c
	}
}

// WithOpacity sets the alpha multiplier.
func WithOpacity(opacity float32) StandardBuilderOption {
	return func(m *Standard) {
		m.opacity = common.Clamp(opacity, 0, 1)
	}
}

// WithEmissive is an option builder that sets the emissive color and intensity.
//
// Parameters:
//   - c: linear RGB emissive color
//   - intensity: scalar multiplier for the emissive color
//
// Returns:
//   - StandardBuilderOption: a function that applies the emissive option
func WithEmissive(c common.Color3, intensity float32) StandardBuilderOption {
	return func(m *Standard) {
		m.emissive = c
		m.emissiveIntensity = intensity
	}
}

// WithMetalness sets the metallic factor (0.0 = dielectric, 1.0 = metal).
func WithMetalness(metalness float32) StandardBuilderOption {
	return func(m *Standard) {
		m.metalness = common.Clamp(metalness, 0, 1)
	}
}

// WithRoughness sets the roughness factor (0.0 = smooth, 1.0 = fully rough).
func WithRoughness(roughness float32) StandardBuilderOption {
	return func(m *Standard) {
		m.roughness = common.Clamp(roughness, 0, 1)
	}
}

// WithSide selects which faces are rendered.
func WithSide(side Side) StandardBuilderOption {
	return func(m *Standard) {
		m.side = side
	}
}

// WithBaseColorMap sets a decoded RGBA texture multiplied into the base color.
//
// Parameters:
//   - tex: decoded sRGB texture data
//
// Returns:
//   - StandardBuilderOption: a function that applies the texture option
func WithBaseColorMap(tex *common.TextureStagingData) StandardBuilderOption {
	return func(m *Standard) {
		m.baseColorMap = tex
	}
}

func (m *Standard) ID() uint64 {
	return m.id
}

func (m *Standard) Name() string {
	return m.name
}

func (m *Standard) Kind() Kind {
	return KindStandard
}

func (m *Standard) Side() Side {
	return m.side
}

// Color returns the base color.
func (m *Standard) Color() common.Color3 {
	return m.color
}

// SetColor sets the base color.
func (m *Standard) SetColor(c common.Color3) {
	m.color = c
}

// Opacity returns the alpha multiplier.
func (m *Standard) Opacity() float32 {
	return m.opacity
}

// Emissive returns the emissive color.
func (m *Standard) Emissive() common.Color3 {
	return m.emissive
}

// SetEmissive sets the emissive color.
func (m *Standard) SetEmissive(c common.Color3) {
	m.emissive = c
}

// EmissiveIntensity returns the emissive multiplier.
func (m *Standard) EmissiveIntensity() float32 {
	return m.emissiveIntensity
}

// SetEmissiveIntensity sets the emissive multiplier.
func (m *Standard) SetEmissiveIntensity(intensity float32) {
	m.emissiveIntensity = intensity
}

// Metalness returns the metallic factor.
func (m *Standard) Metalness() float32 {
	return m.metalness
}

// Roughness returns the roughness factor.
func (m *Standard) Roughness() float32 {
	return m.roughness
}

// BaseColorMap returns the base color texture, or nil.
func (m *Standard) BaseColorMap() *common.TextureStagingData {
	return m.baseColorMap
}
