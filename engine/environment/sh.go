// Package environment derives diffuse lighting from equirectangular panoramas.
package environment

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-viewer/common"
)

// SH9 holds the first nine real spherical-harmonic coefficients (bands 0-2) of a radiance
// function, one RGB triple per coefficient. Coefficients are pre-convolved with the clamped
// cosine lobe so Irradiance evaluates directly.
type SH9 [9]mgl32.Vec3

// band-0..2 basis constants
const (
	shY00 = 0.282095
	shY1  = 0.488603
	shY2  = 1.092548
	shY20 = 0.315392
	shY22 = 0.546274
)

// cosine-lobe convolution factors per band
var shBandScale = [9]float32{
	math.Pi,
	2 * math.Pi / 3, 2 * math.Pi / 3, 2 * math.Pi / 3,
	math.Pi / 4, math.Pi / 4, math.Pi / 4, math.Pi / 4, math.Pi / 4,
}

func shBasis(d mgl32.Vec3) [9]float32 {
	x, y, z := d[0], d[1], d[2]
	return [9]float32{
		shY00,
		shY1 * y,
		shY1 * z,
		shY1 * x,
		shY2 * x * y,
		shY2 * y * z,
		shY20 * (3*z*z - 1),
		shY2 * x * z,
		shY22 * (x*x - y*y),
	}
}

// Direction maps equirectangular texture coordinates to a unit direction with +Y up.
// u runs around the horizon starting at -Z, v runs from the zenith (0) to the nadir (1).
func Direction(u, v float64) mgl32.Vec3 {
	phi := 2 * math.Pi * u
	theta := math.Pi * v
	st := math.Sin(theta)
	return mgl32.Vec3{
		float32(-math.Sin(phi) * st),
		float32(math.Cos(theta)),
		float32(-math.Cos(phi) * st),
	}
}

// Project integrates an equirectangular radiance map into irradiance SH coefficients.
// Each texel is weighted by its solid angle.
//
// Parameters:
//   - pano: linear HDR radiance in equirectangular layout
//
// Returns:
//   - SH9: irradiance coefficients
//   - error: an error if the panorama is empty or its pixel buffer is short
func Project(pano common.FloatTextureStagingData) (SH9, error) {
	var sh SH9
	w, h := int(pano.Width), int(pano.Height)
	if w == 0 || h == 0 {
		return sh, fmt.Errorf("panorama is empty")
	}
	if len(pano.Pixels) < w*h*4 {
		return sh, fmt.Errorf("panorama has %d floats, want %d", len(pano.Pixels), w*h*4)
	}

	dPhi := 2 * math.Pi / float64(w)
	dTheta := math.Pi / float64(h)
	var total float64
	for y := 0; y < h; y++ {
		v := (float64(y) + 0.5) / float64(h)
		weight := math.Sin(math.Pi*v) * dPhi * dTheta
		for x := 0; x < w; x++ {
			u := (float64(x) + 0.5) / float64(w)
			basis := shBasis(Direction(u, v))
			c := pano.At(x, y)
			col := mgl32.Vec3{c[0], c[1], c[2]}.Mul(float32(weight))
			for i := range sh {
				sh[i] = sh[i].Add(col.Mul(basis[i]))
			}
			total += weight
		}
	}

	// normalise the discrete solid angle sum to 4π
	norm := float32(4 * math.Pi / total)
	for i := range sh {
		sh[i] = sh[i].Mul(norm * shBandScale[i])
	}
	return sh, nil
}

// Irradiance evaluates the diffuse irradiance (divided by π, ready to multiply by albedo) for a
// surface normal.
func (sh SH9) Irradiance(n mgl32.Vec3) mgl32.Vec3 {
	basis := shBasis(n)
	var out mgl32.Vec3
	for i := range sh {
		out = out.Add(sh[i].Mul(basis[i]))
	}
	out = out.Mul(1 / math.Pi)
	for k := 0; k < 3; k++ {
		out[k] = max(out[k], 0)
	}
	return out
}

// Uniform returns coefficients describing a constant radiance in every direction.
func Uniform(c common.Color3) SH9 {
	var sh SH9
	sh[0] = c.Mul(math.Pi / shY00)
	return sh
}

// Floats flattens the coefficients for upload as nine vec4 values (w unused).
func (sh SH9) Floats() []float32 {
	out := make([]float32, 0, 36)
	for _, c := range sh {
		out = append(out, c[0], c[1], c[2], 0)
	}
	return out
}
