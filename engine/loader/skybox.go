package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

// faceExtensions are tried in order for every cube face.
var faceExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// findFace returns the first existing file named stem with a supported extension.
func findFace(dir, stem string) (string, error) {
	for _, ext := range faceExtensions {
		p := filepath.Join(dir, stem+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("skybox face %q not found in %s", stem, dir)
}

// loadCubeFaces decodes the six faces of a skybox and checks that they are equal squares.
//
// Parameters:
//   - dir: directory holding px, nx, py, ny, pz and nz images
//
// Returns:
//   - *scene.CubeTexture: the decoded faces in CubeFace order
//   - error: an error if a face is missing, undecodable or mis-sized
func loadCubeFaces(dir string) (*scene.CubeTexture, error) {
	cube := &scene.CubeTexture{}
	for i, stem := range scene.CubeFaceNames {
		path, err := findFace(dir, stem)
		if err != nil {
			return nil, err
		}
		face, err := common.LoadImage(path)
		if err != nil {
			return nil, err
		}
		if face.Width != face.Height {
			return nil, fmt.Errorf("skybox face %s is %dx%d, faces must be square", stem, face.Width, face.Height)
		}
		if i > 0 && face.Width != cube.Faces[0].Width {
			return nil, fmt.Errorf("skybox face %s is %dpx, want %dpx", stem, face.Width, cube.Faces[0].Width)
		}
		cube.Faces[i] = face
	}
	return cube, nil
}
