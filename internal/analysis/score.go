// Package analysis turns sampled well colors into calibrated intensities and
// cell count estimates.
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"plate-reader/internal/colorspace"
)

// Epsilon is the smallest squared axis length that still counts as two
// distinguishable reference colors.
const Epsilon = 1e-6

// The count curve is intensity^CountExponent * CountCeiling. Both constants are
// empirical and fixed; the quadratic ease-in keeps near-zero wells near zero.
const (
	CountExponent = 2
	CountCeiling  = 10000.0
)

// Axis is the line in L*a*b* from the zero-density reference to the
// full-density reference.
type Axis struct {
	Origin           colorspace.Lab `json:"origin"`
	Vector           colorspace.Lab `json:"vector"`
	MagnitudeSquared float64        `json:"magnitude_squared"`
}

func BuildAxis(minColor, maxColor colorspace.Lab) Axis {
	v := maxColor.Sub(minColor)
	vec := v.Vec()
	return Axis{
		Origin:           minColor,
		Vector:           v,
		MagnitudeSquared: floats.Dot(vec, vec),
	}
}

// Degenerate reports whether the two references are too close in color to
// define a direction.
func (a Axis) Degenerate() bool {
	return a.MagnitudeSquared <= Epsilon
}

// Project returns the unclamped position of c along the axis, 0 at the
// origin and 1 at the full-density reference.
func (a Axis) Project(c colorspace.Lab) float64 {
	if a.Degenerate() {
		return 0
	}
	return floats.Dot(c.Sub(a.Origin).Vec(), a.Vector.Vec()) / a.MagnitudeSquared
}

type Score struct {
	Intensity float64
	CellCount float64
}

// ScoreWell scores one well color. Wells with no sampled pixels and
// degenerate axes score zero.
func ScoreWell(c colorspace.Lab, axis Axis, hadPixels bool) Score {
	if !hadPixels || axis.Degenerate() {
		return Score{}
	}
	intensity := clamp01(axis.Project(c))
	return Score{
		Intensity: intensity,
		CellCount: CellCount(intensity),
	}
}

// CellCount maps a clamped intensity onto the quadratic count curve.
func CellCount(intensity float64) float64 {
	return math.Pow(clamp01(intensity), CountExponent) * CountCeiling
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
