package viewer

import (
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
)

// Config is the process-level configuration of the viewer.
type Config struct {
	// AssetsDir holds models/, skybox/ and hdr/.
	AssetsDir string

	Title  string
	Width  int
	Height int

	// Backend overrides automatic renderer selection.
	Backend renderer.Preference

	// VSync presents once per display refresh. Disabling it uncaps the frame loop.
	VSync bool

	// Profile logs frame rate and heap statistics periodically.
	Profile bool

	// ForceLowEnd uses the low-end performance profile regardless of the probed signals.
	ForceLowEnd bool
}

// DefaultConfig returns a 1280×720 window reading assets from ./assets with automatic backend
// selection and vsync.
func DefaultConfig() Config {
	return Config{
		AssetsDir: "assets",
		Title:     "oxy-viewer",
		Width:     1280,
		Height:    720,
		Backend:   renderer.PreferAuto,
		VSync:     true,
	}
}

// Assets are the file locations the scene composer loads from.
type Assets struct {
	// Model is a glTF 2.0 file.
	Model string

	// Skybox is a directory holding the six cube faces.
	Skybox string

	// Environment is a Radiance RGBE panorama.
	Environment string
}

// AssetsIn returns the conventional asset layout below dir:
// models/model.glb, skybox/{px,nx,py,ny,pz,nz}.* and hdr/environment.hdr.
func AssetsIn(dir string) Assets {
	return Assets{
		Model:       filepath.Join(dir, "models", "model.glb"),
		Skybox:      filepath.Join(dir, "skybox"),
		Environment: filepath.Join(dir, "hdr", "environment.hdr"),
	}
}
