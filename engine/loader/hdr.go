package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/environment"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

const (
	maxHeaderLines = 128

	// maxRGBESide bounds each panorama dimension before any pixel storage is allocated.
	maxRGBESide = 16384
)

var (
	errNotRadiance  = errors.New("hdr: missing #?RADIANCE signature")
	errRGBEFormat   = errors.New("hdr: only 32-bit_rle_rgbe is supported")
	errBadDimension = errors.New("hdr: unsupported resolution line")
	errNotHDR       = errors.New("hdr: decoder did not return a high dynamic range image")
)

// DecodeRGBE decodes a Radiance .hdr image into linear RGBA floats, top row first. The header is
// validated here; scanlines are decoded by the rgbe codec.
//
// Parameters:
//   - r: the encoded image
//
// Returns:
//   - common.FloatTextureStagingData: linear radiance with alpha 1
//   - error: an error if the header or pixel data is malformed
func DecodeRGBE(r io.Reader) (common.FloatTextureStagingData, error) {
	br := bufio.NewReader(r)
	width, height, flipY, err := readRGBEHeader(br)
	if err != nil {
		return common.FloatTextureStagingData{}, err
	}

	// the codec gets a canonical header so orientation and optional header lines stay ours
	canonical := fmt.Sprintf("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y %d +X %d\n", height, width)
	img, err := rgbe.Decode(io.MultiReader(strings.NewReader(canonical), br))
	if err != nil {
		return common.FloatTextureStagingData{}, fmt.Errorf("hdr: %w", err)
	}
	src, ok := img.(hdr.Image)
	if !ok {
		return common.FloatTextureStagingData{}, errNotHDR
	}
	b := src.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return common.FloatTextureStagingData{}, fmt.Errorf("%w: decoded %dx%d", errBadDimension, b.Dx(), b.Dy())
	}

	out := common.FloatTextureStagingData{
		Pixels: make([]float32, width*height*4),
		Width:  uint32(width),
		Height: uint32(height),
	}
	for y := 0; y < height; y++ {
		row := y
		if flipY {
			row = height - 1 - y
		}
		dst := out.Pixels[row*width*4 : (row+1)*width*4]
		for x := 0; x < width; x++ {
			cr, cg, cb, _ := src.HDRAt(b.Min.X+x, b.Min.Y+y).HDRRGBA()
			dst[x*4] = float32(cr)
			dst[x*4+1] = float32(cg)
			dst[x*4+2] = float32(cb)
			dst[x*4+3] = 1
		}
	}
	return out, nil
}

// readRGBEHeader parses the text header and the resolution line. flipY is true for "+Y" images,
// whose first scanline is the bottom row.
func readRGBEHeader(br *bufio.Reader) (width, height int, flipY bool, err error) {
	first, err := br.ReadString('\n')
	if err != nil {
		return 0, 0, false, fmt.Errorf("hdr: %w", err)
	}
	if !strings.HasPrefix(first, "#?RADIANCE") && !strings.HasPrefix(first, "#?RGBE") {
		return 0, 0, false, errNotRadiance
	}
	for i := 0; ; i++ {
		if i > maxHeaderLines {
			return 0, 0, false, errors.New("hdr: header too long")
		}
		line, err := br.ReadString('\n')
		if err != nil {
			return 0, 0, false, fmt.Errorf("hdr: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if format, ok := strings.CutPrefix(line, "FORMAT="); ok && format != "32-bit_rle_rgbe" {
			return 0, 0, false, errRGBEFormat
		}
	}

	res, err := br.ReadString('\n')
	if err != nil {
		return 0, 0, false, fmt.Errorf("hdr: %w", err)
	}
	fields := strings.Fields(res)
	if len(fields) != 4 || fields[2] != "+X" || (fields[0] != "-Y" && fields[0] != "+Y") {
		return 0, 0, false, errBadDimension
	}
	height, err = strconv.Atoi(fields[1])
	if err != nil || height <= 0 || height > maxRGBESide {
		return 0, 0, false, errBadDimension
	}
	width, err = strconv.Atoi(fields[3])
	if err != nil || width <= 0 || width > maxRGBESide {
		return 0, 0, false, errBadDimension
	}
	return width, height, fields[0] == "+Y", nil
}

// loadEnvironment decodes a panorama and derives its irradiance.
func loadEnvironment(path string) (*scene.Environment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pano, err := DecodeRGBE(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sh, err := environment.Project(pano)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &scene.Environment{Irradiance: sh, Intensity: 1}, nil
}
