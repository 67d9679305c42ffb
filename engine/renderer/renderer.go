package renderer

import (
	"errors"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/camera"
	"github.com/Carmen-Shannon/oxy-viewer/engine/material"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

// Kind identifies which graphics API a Renderer draws with.
type Kind int

const (
	// KindWGPU renders through WebGPU (wgpu-native).
	KindWGPU Kind = iota

	// KindGL renders through OpenGL 4.1 core.
	KindGL
)

func (k Kind) String() string {
	switch k {
	case KindWGPU:
		return "WebGPU"
	case KindGL:
		return "OpenGL"
	default:
		return "unknown"
	}
}

// ShadowType selects the shadow filtering technique.
type ShadowType int

const (
	// ShadowPCF samples the shadow map once with hardware comparison.
	ShadowPCF ShadowType = iota

	// ShadowPCFSoft averages a 3×3 kernel of comparisons for softer edges.
	ShadowPCFSoft
)

// ShadowConfig enables shadow mapping on a Renderer.
type ShadowConfig struct {
	Type ShadowType

	// MapSize is the edge length in texels of each shadow map face.
	MapSize int
}

// ErrUnsupportedMaterial is returned by Compile when the backend cannot draw a material kind.
var ErrUnsupportedMaterial = errors.New("material kind not supported by this renderer")

// Surface is the drawing target a Renderer presents to. window.Window satisfies it.
type Surface interface {
	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int

	// ContentScale returns the ratio of framebuffer pixels to window coordinates.
	ContentScale() float32

	// SurfaceDescriptor returns the platform descriptor used to create a WebGPU surface.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// UseOpenGL prepares the surface for an OpenGL context, recreating the native window if needed.
	UseOpenGL() error

	// MakeContextCurrent binds the surface's OpenGL context to the calling thread.
	MakeContextCurrent()

	// SwapBuffers presents the OpenGL back buffer.
	SwapBuffers()

	// SwapInterval sets the number of vertical blanks to wait per SwapBuffers.
	SwapInterval(interval int)
}

// Renderer draws a scene from a camera onto a surface. Exactly one Renderer exists per process;
// every method must be called from the main thread unless noted otherwise.
type Renderer interface {
	// Kind reports which graphics API the renderer uses.
	//
	// Returns:
	//   - Kind: KindWGPU or KindGL
	Kind() Kind

	// SetViewport resizes the drawing area. Calling it with the current size is a no-op.
	//
	// Parameters:
	//   - width: framebuffer width in pixels
	//   - height: framebuffer height in pixels
	SetViewport(width, height int)

	// SetPixelRatio sets the ratio used to size screen-space overlays.
	//
	// Parameters:
	//   - ratio: the device pixel ratio after the profile cap
	SetPixelRatio(ratio float64)

	// PixelRatio returns the ratio set by SetPixelRatio, 1 by default.
	PixelRatio() float64

	// EnableShadows turns on shadow mapping for shadow-casting lights.
	//
	// Parameters:
	//   - cfg: filtering technique and map size
	EnableShadows(cfg ShadowConfig)

	// Compile prepares the GPU program of a material ahead of its first draw.
	//
	// Parameters:
	//   - m: the material
	//
	// Returns:
	//   - error: ErrUnsupportedMaterial if the backend cannot draw m, or a compile/link error
	Compile(m material.Material) error

	// SetOverlay shows an RGBA image in the top-right corner, or removes it when img is nil.
	// Safe to call from any goroutine.
	//
	// Parameters:
	//   - img: the overlay image in physical pixels
	SetOverlay(img *common.TextureStagingData)

	// Render draws one frame of the scene as seen by the camera and presents it.
	//
	// Parameters:
	//   - sc: the scene
	//   - cam: the camera; its matrices must be up to date
	//
	// Returns:
	//   - error: an error if the frame could not be acquired or submitted
	Render(sc scene.Scene, cam camera.Camera) error

	// Close releases every GPU resource held by the renderer.
	Close()
}
