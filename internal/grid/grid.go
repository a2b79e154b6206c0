// Package grid derives well centers and the sampling radius of a plate from
// the A1 and H6 landmark points.
package grid

import (
	"errors"
	"math"
	"strconv"

	"plate-reader/internal/model"
)

// RadiusFactor shrinks the smaller grid step to a sampling radius that stays
// inside a well even when the landmarks are placed a little off-center.
// Empirical constant; changing it changes what a reading means.
const RadiusFactor = 0.3

var ErrDegenerateGrid = errors.New("landmarks A1 and H6 do not span the plate grid")

var ErrNonFinitePoint = errors.New("landmark coordinates must be finite")

type Well struct {
	Row    int
	Col    int
	ID     string
	Center model.Point
}

// Grid is an axis-aligned affine well layout. The plate is assumed square to
// the photo; two landmarks cannot resolve rotation or shear.
type Grid struct {
	Origin  model.Point
	ColStep float64
	RowStep float64
	Radius  float64
}

// Derive computes the grid spanned by the A1 and H6 well centers. A layout
// whose sampling radius collapses to zero (A1 == H6, or both landmarks on one
// row or column) is rejected, since every well would sample nothing.
func Derive(a1, h6 model.Point) (Grid, error) {
	if !a1.Finite() || !h6.Finite() {
		return Grid{}, ErrNonFinitePoint
	}
	g := Grid{
		Origin:  a1,
		ColStep: (h6.X - a1.X) / float64(model.Cols-1),
		RowStep: (h6.Y - a1.Y) / float64(model.Rows-1),
	}
	g.Radius = math.Min(math.Abs(g.ColStep), math.Abs(g.RowStep)) * RadiusFactor
	if g.Radius <= 0 {
		return Grid{}, ErrDegenerateGrid
	}
	return g, nil
}

func (g Grid) Center(row, col int) model.Point {
	return model.Point{
		X: g.Origin.X + float64(col)*g.ColStep,
		Y: g.Origin.Y + float64(row)*g.RowStep,
	}
}

// Wells lists every well in row-major order: A1..A6, B1..B6, ..., H1..H6.
func (g Grid) Wells() []Well {
	out := make([]Well, 0, model.WellCount)
	for row := 0; row < model.Rows; row++ {
		for col := 0; col < model.Cols; col++ {
			out = append(out, Well{
				Row:    row,
				Col:    col,
				ID:     WellID(row, col),
				Center: g.Center(row, col),
			})
		}
	}
	return out
}

// WellID formats a zero-based row and column as a plate label such as "A1" or "H6".
func WellID(row, col int) string {
	return string(rune('A'+row)) + strconv.Itoa(col+1)
}
