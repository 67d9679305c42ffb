package scene

import (
	"github.com/Carmen-Shannon/oxy-viewer/common"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithName sets the scene's identifier.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *scene) {
		s.name = name
	}
}

// WithNodes attaches initial nodes to the root.
//
// Parameters:
//   - nodes: the nodes to attach
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithNodes(nodes ...Node) SceneBuilderOption {
	return func(s *scene) {
		s.root.Add(nodes...)
	}
}

// WithBackgroundColor sets a flat background color.
//
// Parameters:
//   - c: linear RGB color
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithBackgroundColor(c common.Color3) SceneBuilderOption {
	return func(s *scene) {
		s.background.Color = c
	}
}

// WithFog enables linear fog.
//
// Parameters:
//   - f: fog settings
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithFog(f Fog) SceneBuilderOption {
	return func(s *scene) {
		s.fog = &f
	}
}

// WithToneMapping sets the tone mapping operator and exposure.
func WithToneMapping(t ToneMapping, exposure float32) SceneBuilderOption {
	return func(s *scene) {
		s.toneMapping = t
		s.exposure = exposure
	}
}
