package material

import (
	"math"
	"time"

	"github.com/Carmen-Shannon/oxy-viewer/common"
)

// AnimationMode identifies how an Animated material derives its per-frame state.
type AnimationMode int

const (
	// ModeShaderDriven assigns elapsed time to a shader uniform.
	ModeShaderDriven AnimationMode = iota

	// ModeNativePulse derives native material fields from sine waves of elapsed time.
	ModeNativePulse
)

func (m AnimationMode) String() string {
	switch m {
	case ModeShaderDriven:
		return "shader-driven"
	case ModeNativePulse:
		return "native-pulse"
	default:
		return "unknown"
	}
}

// TimeUniform is the uniform name a ShaderDriven material writes elapsed seconds to.
const TimeUniform = "time"

// Animated is a material whose parameters are a pure function of elapsed time.
// The variant is fixed at construction; Update only mutates fields of the wrapped material.
type Animated interface {
	// Material returns the wrapped material attached to the mesh.
	Material() Material

	// Mode reports which update path the material uses.
	Mode() AnimationMode

	// Update sets the time-dependent parameters for the given elapsed time.
	// Calling Update twice with the same elapsed value yields identical state.
	//
	// Parameters:
	//   - elapsed: time since the animation started
	Update(elapsed time.Duration)
}

// ShaderDriven animates a Shader material by assigning elapsed seconds to its time uniform.
type ShaderDriven struct {
	shader *Shader
}

var _ Animated = &ShaderDriven{}

// NewShaderDriven wraps a Shader material. The time uniform is declared if missing.
func NewShaderDriven(s *Shader) *ShaderDriven {
	if _, ok := s.Uniform(TimeUniform); !ok {
		s.uniforms[TimeUniform] = float32(0)
	}
	return &ShaderDriven{shader: s}
}

func (a *ShaderDriven) Material() Material {
	return a.shader
}

// Shader returns the wrapped shader material.
func (a *ShaderDriven) Shader() *Shader {
	return a.shader
}

func (a *ShaderDriven) Mode() AnimationMode {
	return ModeShaderDriven
}

func (a *ShaderDriven) Update(elapsed time.Duration) {
	a.shader.uniforms[TimeUniform] = float32(elapsed.Seconds())
}

// NativePulse approximates the pulse shader on a Standard material: emissive intensity and the
// green channel follow two independent sine waves, everything else stays at its base value.
type NativePulse struct {
	standard *Standard
	base     common.Color3
}

var _ Animated = &NativePulse{}

// NewNativePulse wraps a Standard material; its current color becomes the pulse base color.
func NewNativePulse(s *Standard) *NativePulse {
	return &NativePulse{standard: s, base: s.Color()}
}

func (a *NativePulse) Material() Material {
	return a.standard
}

// Standard returns the wrapped standard material.
func (a *NativePulse) Standard() *Standard {
	return a.standard
}

func (a *NativePulse) Mode() AnimationMode {
	return ModeNativePulse
}

func (a *NativePulse) Update(elapsed time.Duration) {
	t := elapsed.Seconds()
	a.standard.SetEmissiveIntensity(PulseIntensity(t))
	c := a.base
	c[1] = PulseGreen(t)
	a.standard.SetColor(c)
}

// PulseIntensity is the emissive intensity of the native pulse at t seconds: 0.5 + 0.5·sin(2t).
func PulseIntensity(t float64) float32 {
	return float32(0.5 + 0.5*math.Sin(2*t))
}

// PulseGreen is the green channel of the native pulse at t seconds: 0.6 + 0.4·sin(3t).
func PulseGreen(t float64) float32 {
	return float32(0.6 + 0.4*math.Sin(3*t))
}
