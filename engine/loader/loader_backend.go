package loader

import (
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

// loaderBackend turns a model file into a detached scene subgraph.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load decodes the model at path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - scene.Node: the root of the model's node hierarchy
	//   - error: error if loading fails
	Load(path string) (scene.Node, error)
}
