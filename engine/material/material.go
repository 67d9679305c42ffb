package material

import (
	"sync/atomic"
)

// Kind identifies how a material is shaded.
type Kind int

const (
	// KindStandard is the engine-native physically based material shaded by the backend's lit pipeline.
	KindStandard Kind = iota

	// KindShader is a user-supplied shader program driven by named uniforms.
	KindShader
)

// Side selects which triangle faces are rendered.
type Side int

const (
	// FrontSide renders counter-clockwise (front) faces only.
	FrontSide Side = iota

	// DoubleSide renders both faces and disables culling.
	DoubleSide
)

// materialCount is an atomic counter used to generate unique material IDs.
var materialCount atomic.Uint64

// Material is the common surface description shared by every material kind.
// Backends switch on Kind to pick a pipeline; the concrete type carries the parameters.
type Material interface {
	// ID returns the unique, process-wide material identifier. Backends key compiled programs by it.
	ID() uint64

	// Name returns the material's name.
	Name() string

	// Kind returns how the material is shaded.
	Kind() Kind

	// Side returns which faces are rendered.
	Side() Side
}
