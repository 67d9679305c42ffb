package renderer

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4
)

// Preference selects which backend Initialize tries.
type Preference int

const (
	// PreferAuto uses WebGPU when available and falls back to OpenGL.
	PreferAuto Preference = iota

	// PreferWGPU skips the availability check and tries WebGPU first; failures still fall back.
	PreferWGPU

	// PreferGL goes straight to OpenGL.
	PreferGL
)

func (p Preference) String() string {
	switch p {
	case PreferWGPU:
		return "wgpu"
	case PreferGL:
		return "gl"
	default:
		return "auto"
	}
}

// ParsePreference parses "auto", "wgpu" (or "webgpu") and "gl" (or "opengl", "webgl").
func ParsePreference(s string) (Preference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return PreferAuto, nil
	case "wgpu", "webgpu":
		return PreferWGPU, nil
	case "gl", "opengl", "webgl":
		return PreferGL, nil
	default:
		return PreferAuto, fmt.Errorf("unknown renderer backend %q", s)
	}
}

// BackendConfig is what Initialize passes to a backend Factory.
type BackendConfig struct {
	Logger      *zap.Logger
	PresentMode PresentMode
	MSAA        MSAASampleCount
}

// Factory constructs one backend on a surface. Factories may panic; Initialize recovers.
type Factory func(surface Surface, cfg BackendConfig) (Renderer, error)
