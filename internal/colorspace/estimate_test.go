package colorspace

import (
	"math"
	"testing"

	"github.com/lucasb-eyer/go-colorful"

	"plate-reader/internal/model"
)

func TestEstimateEmptyAndSingle(t *testing.T) {
	if got := Estimate(nil); got != (model.RGB{}) {
		t.Fatalf("empty input should be black, got %v", got)
	}
	one := model.RGB{R: 7, G: 99, B: 201}
	if got := Estimate([]model.RGB{one}); got != one {
		t.Fatalf("single pixel should be returned unchanged, got %v", got)
	}
}

func TestEstimateUniformPatch(t *testing.T) {
	c := model.RGB{R: 180, G: 140, B: 60}
	pixels := make([]model.RGB, 25)
	for i := range pixels {
		pixels[i] = c
	}
	got := Estimate(pixels)
	if absDiff(got.R, c.R) > 1 || absDiff(got.G, c.G) > 1 || absDiff(got.B, c.B) > 1 {
		t.Fatalf("uniform patch estimate = %v, want %v", got, c)
	}
}

func TestEstimateRejectsGlareAndShadow(t *testing.T) {
	c := model.RGB{R: 120, G: 80, B: 200}
	tests := []struct {
		name     string
		outliers []model.RGB
		base     int
	}{
		{
			name:     "glare and shadow",
			outliers: []model.RGB{{R: 255, G: 255, B: 255}, {R: 255, G: 255, B: 255}, {}, {}},
			base:     6,
		},
		{
			name:     "saturated glints",
			outliers: []model.RGB{{R: 255}, {G: 255}, {B: 255}},
			base:     4,
		},
		{
			name:     "half shadow",
			outliers: []model.RGB{{}, {}, {}, {}},
			base:     5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pixels := make([]model.RGB, 0, tt.base+len(tt.outliers))
			for i := 0; i < tt.base; i++ {
				pixels = append(pixels, c)
			}
			pixels = append(pixels, tt.outliers...)

			got := Estimate(pixels)
			d := toColorful(got).DistanceCIEDE2000(toColorful(c))
			// CIEDE2000 in go-colorful is on a 0-1 scale; 0.1 is 10 dE00 units.
			if d > 0.1 {
				t.Fatalf("estimate %v too far from %v: dE00=%v", got, c, d*100)
			}

			mean := meanRGB(pixels)
			if md := toColorful(mean).DistanceCIEDE2000(toColorful(c)); md <= d {
				t.Fatalf("median (%v) should beat mean (%v)", d, md)
			}
		})
	}
}

func TestMedianEvenCountAverages(t *testing.T) {
	if got := median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Fatalf("median = %v, want 2.5", got)
	}
	if got := median([]float64{9, -1, 5}); got != 5 {
		t.Fatalf("median = %v, want 5", got)
	}
}

func TestEstimateLabIsPerChannel(t *testing.T) {
	pixels := []model.RGB{{R: 255}, {G: 255}, {B: 255}}
	got := EstimateLab(pixels)
	want := [3]float64{}
	var ls, as, bs []float64
	for _, p := range pixels {
		c := ToUniform(p)
		ls = append(ls, c.L)
		as = append(as, c.A)
		bs = append(bs, c.B)
	}
	want[0], want[1], want[2] = median(ls), median(as), median(bs)
	if math.Abs(got.L-want[0]) > 1e-9 || math.Abs(got.A-want[1]) > 1e-9 || math.Abs(got.B-want[2]) > 1e-9 {
		t.Fatalf("EstimateLab = %+v, want %v", got, want)
	}
}

func toColorful(c model.RGB) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func meanRGB(pixels []model.RGB) model.RGB {
	var r, g, b float64
	for _, p := range pixels {
		r += float64(p.R)
		g += float64(p.G)
		b += float64(p.B)
	}
	n := float64(len(pixels))
	return model.RGBFromFloat(r/n, g/n, b/n)
}
