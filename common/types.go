// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/webp"
)

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It is in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// FloatTextureStagingData holds linear RGBA32F pixel data, used for high dynamic range images.
type FloatTextureStagingData struct {
	// Pixels holds 4 floats per pixel in row-major order, top row first.
	Pixels []float32
	Width  uint32
	Height uint32
}

// At returns the RGB value of the texel at (x, y) with x wrapping and y clamped.
func (t *FloatTextureStagingData) At(x, y int) [3]float32 {
	w, h := int(t.Width), int(t.Height)
	x = ((x % w) + w) % w
	y = Clamp(y, 0, h-1)
	i := (y*w + x) * 4
	return [3]float32{t.Pixels[i], t.Pixels[i+1], t.Pixels[i+2]}
}

// ImportedTexture represents an encoded image either embedded in a model file or referenced by path.
type ImportedTexture struct {
	// Name is an identifier for this texture (e.g., "baseColor").
	Name string

	// Path is the file path for external textures (empty for embedded).
	Path string

	// Data contains raw image bytes for embedded textures (PNG/JPEG/WebP).
	Data []byte

	// MimeType indicates the image format (e.g., "image/png", "image/jpeg").
	MimeType string
}

// Decode decodes the texture to raw RGBA pixel data.
// Uses either embedded Data bytes or loads from Path on disk.
// Reference: https://pkg.go.dev/image
//
// Returns:
//   - TextureStagingData: decoded pixels
//   - error: error if decoding fails
func (t *ImportedTexture) Decode() (TextureStagingData, error) {
	if t == nil {
		return TextureStagingData{}, fmt.Errorf("texture is nil")
	}

	if len(t.Data) > 0 {
		staging, err := DecodeImage(bytes.NewReader(t.Data))
		if err != nil {
			return TextureStagingData{}, fmt.Errorf("failed to decode embedded image %q: %w", t.Name, err)
		}
		return staging, nil
	}
	if t.Path != "" {
		return LoadImage(t.Path)
	}
	return TextureStagingData{}, fmt.Errorf("texture %q has neither data nor path", t.Name)
}

// LoadImage opens and decodes an image file into RGBA staging data.
//
// Parameters:
//   - path: the image file path (PNG, JPEG or WebP)
//
// Returns:
//   - TextureStagingData: decoded pixels
//   - error: error if the file cannot be opened or decoded
func LoadImage(path string) (TextureStagingData, error) {
	file, err := os.Open(path)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to open image file %s: %w", path, err)
	}
	defer file.Close()

	staging, err := DecodeImage(file)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to decode image file %s: %w", path, err)
	}
	return staging, nil
}

// DecodeImage decodes any registered image format and converts it to tightly packed RGBA.
func DecodeImage(r io.Reader) (TextureStagingData, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return TextureStagingData{}, err
	}
	return ImageToStaging(img), nil
}

// ImageToStaging converts an image.Image into tightly packed RGBA staging data.
func ImageToStaging(img image.Image) TextureStagingData {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}
}
