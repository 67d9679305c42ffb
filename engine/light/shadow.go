package light

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-viewer/common"
)

// DefaultShadowMapSize is the default width and height in texels of each shadow map face.
const DefaultShadowMapSize = 1024

// DefaultShadowNear is the default near plane of the point light's shadow projection.
const DefaultShadowNear float32 = 0.1

// DefaultShadowFar is the far plane used when the light has unlimited range.
const DefaultShadowFar float32 = 100.0

// ShadowFaces is the number of depth layers rendered for an omnidirectional point light shadow.
const ShadowFaces = 6

// Shadow holds the depth-map parameters of a shadow-casting light.
type Shadow struct {
	// MapSize is the width and height in texels of each face.
	MapSize int
	// Bias is added to the receiver's depth before comparison; negative values push shadows away
	// from the caster to reduce acne.
	Bias float32
	// NormalBias offsets the lookup position along the surface normal in world units.
	NormalBias float32
	Near       float32
	Far        float32
}

// DefaultShadow returns shadow parameters with no bias and the default map size.
func DefaultShadow() Shadow {
	return Shadow{
		MapSize: DefaultShadowMapSize,
		Near:    DefaultShadowNear,
		Far:     DefaultShadowFar,
	}
}

// faceDirections are the look directions and up vectors of the six shadow faces, indexed so that
// face = 2*axis + (negative ? 1 : 0) for the dominant axis of the light-to-fragment vector.
var faceDirections = [ShadowFaces][2]mgl32.Vec3{
	{{1, 0, 0}, {0, -1, 0}},
	{{-1, 0, 0}, {0, -1, 0}},
	{{0, 1, 0}, {0, 0, 1}},
	{{0, -1, 0}, {0, 0, -1}},
	{{0, 0, 1}, {0, -1, 0}},
	{{0, 0, -1}, {0, -1, 0}},
}

// FaceIndex returns the shadow face covering a light-to-point direction. It mirrors the face
// selection done in the lit fragment shaders.
func FaceIndex(dir mgl32.Vec3) int {
	ax, ay, az := abs(dir[0]), abs(dir[1]), abs(dir[2])
	switch {
	case ax >= ay && ax >= az:
		if dir[0] < 0 {
			return 1
		}
		return 0
	case ay >= az:
		if dir[1] < 0 {
			return 3
		}
		return 2
	default:
		if dir[2] < 0 {
			return 5
		}
		return 4
	}
}

// FaceViewProjections computes the six 90° view-projection matrices of an omnidirectional shadow
// map centered at the light's world position.
//
// Parameters:
//   - position: light world position
//   - s: shadow parameters (Near, Far)
//   - zeroToOne: true to produce WebGPU clip space (z in [0, 1]); false for OpenGL (z in [-1, 1])
//
// Returns:
//   - [ShadowFaces]mgl32.Mat4: per-face view-projection matrices
func FaceViewProjections(position mgl32.Vec3, s Shadow, zeroToOne bool) [ShadowFaces]mgl32.Mat4 {
	near, far := s.Near, s.Far
	if near <= 0 {
		near = DefaultShadowNear
	}
	if far <= near {
		far = DefaultShadowFar
	}
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, near, far)
	if zeroToOne {
		proj = common.ClipZeroToOne.Mul4(proj)
	}
	var out [ShadowFaces]mgl32.Mat4
	for i, fd := range faceDirections {
		view := mgl32.LookAtV(position, position.Add(fd[0]), fd[1])
		out[i] = proj.Mul4(view)
	}
	return out
}

// ShadowFar returns the far plane for a point light: its range when limited, else the default.
func ShadowFar(p *Point) float32 {
	if p.distance > 0 {
		return p.distance
	}
	if p.shadow.Far > 0 {
		return p.shadow.Far
	}
	return DefaultShadowFar
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
