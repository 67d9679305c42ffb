package light

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-viewer/common"
)

// PointBuilderOption is a function that configures a Point light during construction.
type PointBuilderOption func(*Point)

// WithPosition is an option builder that sets the local position of the light.
//
// Parameters:
//   - x: the x position component
//   - y: the y position component
//   - z: the z position component
//
// Returns:
//   - PointBuilderOption: a function that applies the position option to a Point
func WithPosition(x, y, z float32) PointBuilderOption {
	return func(p *Point) {
		p.SetPosition(mgl32.Vec3{x, y, z})
	}
}

// WithColor is an option builder that sets the RGB color of the light.
//
// Parameters:
//   - c: linear RGB color
//
// Returns:
//   - PointBuilderOption: a function that applies the color option to a Point
func WithColor(c common.Color3) PointBuilderOption {
	return func(p *Point) {
		p.color = c
	}
}

// WithIntensity is an option builder that sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the intensity value
//
// Returns:
//   - PointBuilderOption: a function that applies the intensity option to a Point
func WithIntensity(intensity float32) PointBuilderOption {
	return func(p *Point) {
		p.intensity = intensity
	}
}

// WithDistance is an option builder that sets the maximum range of the light.
// Beyond this distance the light contributes zero energy; 0 means unlimited.
//
// Parameters:
//   - distance: the range value
//
// Returns:
//   - PointBuilderOption: a function that applies the distance option to a Point
func WithDistance(distance float32) PointBuilderOption {
	return func(p *Point) {
		p.distance = max(distance, 0)
	}
}

// WithDecay sets the attenuation exponent (2 is physically based).
func WithDecay(decay float32) PointBuilderOption {
	return func(p *Point) {
		p.decay = decay
	}
}

// WithCastShadow is an option builder that sets whether the light renders a shadow map.
//
// Parameters:
//   - cast: true if the light casts shadows
//
// Returns:
//   - PointBuilderOption: a function that applies the shadow option to a Point
func WithCastShadow(cast bool) PointBuilderOption {
	return func(p *Point) {
		p.SetCastShadow(cast)
	}
}

// WithShadow replaces the shadow parameters.
func WithShadow(s Shadow) PointBuilderOption {
	return func(p *Point) {
		p.shadow = s
	}
}

func pow(x, y float32) float32 {
	return float32(math.Pow(float64(x), float64(y)))
}
