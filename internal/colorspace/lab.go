// Package colorspace converts 8-bit sRGB samples to CIE L*a*b* (D65) and back,
// and reduces pixel neighborhoods to a single robust color.
package colorspace

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"plate-reader/internal/model"
)

// Lab is a color in CIE L*a*b* under the D65 white point.
// L is in [0,100]; A and B are unbounded but stay roughly within [-128,128] for sRGB input.
type Lab struct {
	L float64 `json:"l"`
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// go-colorful keeps L*a*b* on a 0-1 lightness scale.
const labScale = 100.0

// ToUniform applies sRGB gamma expansion, the linear-RGB to XYZ (D65) matrix,
// white point normalization and the L*a*b* cube-root companding.
func ToUniform(c model.RGB) Lab {
	l, a, b := colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}.Lab()
	return Lab{L: l * labScale, A: a * labScale, B: b * labScale}
}

// ToTristimulus is the inverse of ToUniform. Out-of-gamut results are clamped
// per channel and rounded to the nearest integer.
func ToTristimulus(c Lab) model.RGB {
	col := colorful.Lab(c.L/labScale, c.A/labScale, c.B/labScale)
	return model.RGBFromFloat(col.R*255.0, col.G*255.0, col.B*255.0)
}

func (c Lab) Sub(o Lab) Lab {
	return Lab{L: c.L - o.L, A: c.A - o.A, B: c.B - o.B}
}

func (c Lab) Vec() []float64 {
	return []float64{c.L, c.A, c.B}
}

// Distance is the Euclidean (CIE76) distance between two colors.
func (c Lab) Distance(o Lab) float64 {
	d := c.Sub(o)
	return math.Sqrt(d.L*d.L + d.A*d.A + d.B*d.B)
}
