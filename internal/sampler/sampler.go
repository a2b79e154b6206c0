// Package sampler reads pixel colors out of a decoded plate photo.
package sampler

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	"github.com/disintegration/imaging"

	"plate-reader/internal/model"
)

// Sampler returns the pixels inside the disc of the given radius around
// center. Implementations must be read-only so wells can be sampled concurrently.
type Sampler interface {
	Sample(center model.Point, radius float64) []model.RGB
}

// SamplingError reports that an image could not be decoded or rasterized.
type SamplingError struct {
	Err error
}

func (e *SamplingError) Error() string {
	return "sample image: " + e.Err.Error()
}

func (e *SamplingError) Unwrap() error {
	return e.Err
}

// Decode reads a PNG, JPEG or GIF and applies its EXIF orientation, so
// landmark coordinates match the image as the user saw it.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &SamplingError{Err: err}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &SamplingError{Err: image.ErrFormat}
	}
	return img, nil
}

// ImageSampler samples a caller-owned raster. The source is copied once into
// an NRGBA buffer; the caller may release its own image afterwards.
type ImageSampler struct {
	img *image.NRGBA
}

func NewImageSampler(img image.Image) *ImageSampler {
	return &ImageSampler{img: imaging.Clone(img)}
}

func (s *ImageSampler) Bounds() image.Rectangle {
	return s.img.Bounds()
}

// Sample returns every opaque or partially opaque pixel whose center lies in
// the closed disc. Points off the image simply yield fewer (or no) pixels.
func (s *ImageSampler) Sample(center model.Point, radius float64) []model.RGB {
	if !center.Finite() || math.IsNaN(radius) || math.IsInf(radius, 0) || radius <= 0 {
		return nil
	}
	// Clip to the image while still in float64; a far-off center or huge
	// radius would not fit in an int.
	b := s.img.Bounds()
	x0 := math.Max(float64(b.Min.X), math.Floor(center.X-radius))
	x1 := math.Min(float64(b.Max.X-1), math.Ceil(center.X+radius))
	y0 := math.Max(float64(b.Min.Y), math.Floor(center.Y-radius))
	y1 := math.Min(float64(b.Max.Y-1), math.Ceil(center.Y+radius))
	if x0 > x1 || y0 > y1 {
		return nil
	}
	minX, maxX, minY, maxY := int(x0), int(x1), int(y0), int(y1)

	r2 := radius * radius
	out := make([]model.RGB, 0, (maxX-minX+1)*(maxY-minY+1))
	for y := minY; y <= maxY; y++ {
		dy := float64(y) + 0.5 - center.Y
		for x := minX; x <= maxX; x++ {
			dx := float64(x) + 0.5 - center.X
			if dx*dx+dy*dy > r2 {
				continue
			}
			i := s.img.PixOffset(x, y)
			px := s.img.Pix[i : i+4 : i+4]
			if px[3] == 0 {
				continue
			}
			out = append(out, model.RGB{R: px[0], G: px[1], B: px[2]})
		}
	}
	return out
}

// Pixels is an in-memory sampler keyed by exact center. It ignores the
// radius beyond treating a non-positive one as empty.
type Pixels map[model.Point][]model.RGB

func (p Pixels) Sample(center model.Point, radius float64) []model.RGB {
	if radius <= 0 {
		return nil
	}
	px := p[center]
	out := make([]model.RGB, len(px))
	copy(out, px)
	return out
}

// Func adapts a plain function to a Sampler.
type Func func(center model.Point, radius float64) []model.RGB

func (f Func) Sample(center model.Point, radius float64) []model.RGB {
	return f(center, radius)
}
