package probe

import (
	"regexp"

	"go.uber.org/zap"
)

// mobilePattern matches user agents of handheld devices, which are treated as low-end regardless of
// their reported processor count or memory.
var mobilePattern = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

const (
	lowEndMaxProcessors = 2
	lowEndMaxMemoryGB   = 2.0
)

// Signals are the runtime-exposed device characteristics the profile is derived from.
type Signals struct {
	// LogicalProcessors is the number of logical CPUs available to the process.
	LogicalProcessors int

	// MemoryGB is the approximate installed memory in GiB. Zero means unknown.
	MemoryGB float64

	// UserAgent identifies the platform, e.g. "oxy-viewer/1 (linux; amd64)".
	UserAgent string

	// ScreenWidth and ScreenHeight are the primary monitor's video mode in pixels.
	ScreenWidth, ScreenHeight int

	// PixelRatio is the ratio of framebuffer pixels to window coordinates.
	PixelRatio float64
}

// PerformanceProfile captures the rendering parameters chosen for a device.
// It is computed once at startup and never mutated afterwards.
type PerformanceProfile struct {
	LowEnd                bool
	PixelRatioCap         float64
	ShadowMapSize         int
	Antialias             bool
	ShadowsEnabled        bool
	FogEnabled            bool
	PostProcessingEnabled bool
}

// IsMobile reports whether the user agent names a mobile or handheld platform.
func IsMobile(userAgent string) bool {
	return mobilePattern.MatchString(userAgent)
}

// IsLowEnd applies the low-end classification thresholds to a set of signals.
// Unknown (zero) processor counts and memory sizes never classify a device as low-end.
//
// Parameters:
//   - s: the collected device signals
//
// Returns:
//   - bool: true when the device should use the reduced profile
func IsLowEnd(s Signals) bool {
	if s.LogicalProcessors > 0 && s.LogicalProcessors <= lowEndMaxProcessors {
		return true
	}
	if s.MemoryGB > 0 && s.MemoryGB <= lowEndMaxMemoryGB {
		return true
	}
	return IsMobile(s.UserAgent)
}

// Classify maps device signals to a PerformanceProfile. It is a pure function.
//
// Parameters:
//   - s: the collected device signals
//
// Returns:
//   - PerformanceProfile: the reduced profile for low-end/mobile devices, the full profile otherwise
func Classify(s Signals) PerformanceProfile {
	if IsLowEnd(s) {
		return LowEndProfile()
	}
	return DefaultProfile()
}

// LowEndProfile is the reduced profile: capped pixel ratio, small shadow map, and no antialiasing,
// shadows, or post-processing. Fog stays on since it hides the shortened draw distance cheaply.
func LowEndProfile() PerformanceProfile {
	return PerformanceProfile{
		LowEnd:                true,
		PixelRatioCap:         1.5,
		ShadowMapSize:         512,
		Antialias:             false,
		ShadowsEnabled:        false,
		FogEnabled:            true,
		PostProcessingEnabled: false,
	}
}

// DefaultProfile enables every visual feature.
func DefaultProfile() PerformanceProfile {
	return PerformanceProfile{
		LowEnd:                false,
		PixelRatioCap:         2,
		ShadowMapSize:         2048,
		Antialias:             true,
		ShadowsEnabled:        true,
		FogEnabled:            true,
		PostProcessingEnabled: true,
	}
}

// PixelRatio clamps the device pixel ratio to the profile's cap. Non-positive ratios are treated as 1.
//
// Parameters:
//   - device: the device pixel ratio reported by the surface
//
// Returns:
//   - float64: the ratio to render at
func (p PerformanceProfile) PixelRatio(device float64) float64 {
	if device <= 0 {
		device = 1
	}
	return min(device, p.PixelRatioCap)
}

// Log writes a single diagnostic line describing the signals and the chosen profile.
func Log(l *zap.Logger, s Signals, p PerformanceProfile) {
	l.Info("device capability probe",
		zap.Int("logicalProcessors", s.LogicalProcessors),
		zap.Float64("memoryGB", s.MemoryGB),
		zap.String("userAgent", s.UserAgent),
		zap.Int("screenWidth", s.ScreenWidth),
		zap.Int("screenHeight", s.ScreenHeight),
		zap.Float64("pixelRatio", s.PixelRatio),
		zap.Bool("lowEnd", p.LowEnd),
		zap.Float64("pixelRatioCap", p.PixelRatioCap),
		zap.Int("shadowMapSize", p.ShadowMapSize),
		zap.Bool("antialias", p.Antialias),
		zap.Bool("shadows", p.ShadowsEnabled),
		zap.Bool("fog", p.FogEnabled),
		zap.Bool("postProcessing", p.PostProcessingEnabled),
	)
}
