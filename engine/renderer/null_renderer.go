package renderer

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/camera"
	"github.com/Carmen-Shannon/oxy-viewer/engine/material"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

// nullRenderer stands in when no graphics API could be initialized. It reports KindGL, accepts
// all configuration and draws nothing.
type nullRenderer struct {
	logger     *zap.Logger
	once       sync.Once
	pixelRatio float64
}

var _ Renderer = &nullRenderer{}

func newNullRenderer(l *zap.Logger) *nullRenderer {
	return &nullRenderer{logger: l, pixelRatio: 1}
}

func (n *nullRenderer) Kind() Kind {
	return KindGL
}

func (n *nullRenderer) SetViewport(width, height int) {}

func (n *nullRenderer) SetPixelRatio(ratio float64) {
	if ratio > 0 {
		n.pixelRatio = ratio
	}
}

func (n *nullRenderer) PixelRatio() float64 {
	return n.pixelRatio
}

func (n *nullRenderer) EnableShadows(cfg ShadowConfig) {}

func (n *nullRenderer) Compile(m material.Material) error {
	return nil
}

func (n *nullRenderer) SetOverlay(img *common.TextureStagingData) {}

func (n *nullRenderer) Render(sc scene.Scene, cam camera.Camera) error {
	n.once.Do(func() {
		n.logger.Warn("no graphics backend available, frames are discarded")
	})
	return nil
}

func (n *nullRenderer) Close() {}
