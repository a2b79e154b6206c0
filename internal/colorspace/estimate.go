package colorspace

import (
	"slices"

	"plate-reader/internal/model"
)

// Estimate reduces a pixel neighborhood to one color by taking the median of
// each L*a*b* channel independently. Glare and shadow pixels inside a sampling
// disc move a median far less than a mean, and working in L*a*b* avoids the hue
// shifts of averaging device RGB.
//
// An empty input yields black. Black is also a legitimate reading, so callers
// must check len(pixels) themselves.
func Estimate(pixels []model.RGB) model.RGB {
	switch len(pixels) {
	case 0:
		return model.RGB{}
	case 1:
		return pixels[0]
	}
	return ToTristimulus(EstimateLab(pixels))
}

// EstimateLab returns the unrounded per-channel median in L*a*b*.
func EstimateLab(pixels []model.RGB) Lab {
	if len(pixels) == 0 {
		return Lab{}
	}
	ls := make([]float64, len(pixels))
	as := make([]float64, len(pixels))
	bs := make([]float64, len(pixels))
	for i, p := range pixels {
		c := ToUniform(p)
		ls[i], as[i], bs[i] = c.L, c.A, c.B
	}
	return Lab{L: median(ls), A: median(as), B: median(bs)}
}

// median sorts values in place.
func median(values []float64) float64 {
	slices.Sort(values)
	n := len(values)
	mid := n / 2
	if n%2 == 1 {
		return values[mid]
	}
	return (values[mid-1] + values[mid]) / 2
}
