package renderer

import (
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/Carmen-Shannon/oxy-viewer/common"
)

// IndicatorDuration is how long the backend badge stays on screen.
const IndicatorDuration = 3000 * time.Millisecond

const (
	indicatorFontSize = 14.0
	indicatorPadding  = 8.0
	indicatorRadius   = 6.0
)

// RenderIndicator rasterises the badge naming the active backend.
//
// Parameters:
//   - kind: the backend to name
//   - scale: the pixel ratio; the badge is drawn at scale× its logical size
//
// Returns:
//   - *common.TextureStagingData: the RGBA badge
//   - error: an error if the font cannot be loaded or the shape cannot be filled
func RenderIndicator(kind Kind, scale float64) (*common.TextureStagingData, error) {
	if scale <= 0 {
		scale = 1
	}
	label := "Renderer: " + kind.String()

	src, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("indicator font: %w", err)
	}
	defer src.Close()
	face := src.Face(indicatorFontSize * scale)

	probe := gg.NewContext(1, 1)
	probe.SetFont(face)
	textWidth, textHeight := probe.MeasureString(label)
	_ = probe.Close()

	pad := indicatorPadding * scale
	width := int(math.Ceil(textWidth + 2*pad))
	height := int(math.Ceil(textHeight + 2*pad))

	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.Clear()
	dc.SetRGBA(0, 0, 0, 0.6)
	dc.DrawRoundedRectangle(0, 0, float64(width), float64(height), indicatorRadius*scale)
	if err := dc.Fill(); err != nil {
		return nil, fmt.Errorf("indicator background: %w", err)
	}
	dc.SetRGBA(1, 1, 1, 1)
	dc.SetFont(face)
	dc.DrawStringAnchored(label, float64(width)/2, float64(height)/2, 0.5, 0.5)
	if err := dc.FlushGPU(); err != nil {
		return nil, fmt.Errorf("indicator flush: %w", err)
	}

	staging := common.ImageToStaging(dc.Image())
	return &staging, nil
}

// overlayRect places an overlay of w×h pixels in the top-right corner of a viewport, returning
// its NDC rectangle as (min.x, min.y, max.x, max.y).
func overlayRect(w, h uint32, viewportWidth, viewportHeight int, margin float64) [4]float32 {
	if viewportWidth <= 0 || viewportHeight <= 0 {
		return [4]float32{}
	}
	vw, vh := float64(viewportWidth), float64(viewportHeight)
	right := vw - margin
	left := right - float64(w)
	top := margin
	bottom := top + float64(h)
	toX := func(px float64) float32 { return float32(px/vw*2 - 1) }
	toY := func(py float64) float32 { return float32(1 - py/vh*2) }
	return [4]float32{toX(left), toY(bottom), toX(right), toY(top)}
}
