package model

import (
	"math"
	"time"
)

// Plate format: 8 rows (A-H) by 6 columns (1-6).
const (
	Rows      = 8
	Cols      = 6
	WellCount = Rows * Cols
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// RGB is an 8-bit sRGB color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// RGBFromFloat rounds and clamps 0-255 channel values.
func RGBFromFloat(r, g, b float64) RGB {
	return RGB{R: clampChannel(r), G: clampChannel(g), B: clampChannel(b)}
}

func clampChannel(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}

// Calibration holds the four landmark points picked on a plate photo,
// in native image pixel coordinates.
type Calibration struct {
	ID        string `json:"id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Label     string `json:"label,omitempty"`
	A1        Point  `json:"a1"`
	H6        Point  `json:"h6"`
	MinRef    Point  `json:"min_ref"`
	MaxRef    Point  `json:"max_ref"`
	CreatedAt int64  `json:"created_at_unix_ms,omitempty"`
}

func (c Calibration) Finite() bool {
	return c.A1.Finite() && c.H6.Finite() && c.MinRef.Finite() && c.MaxRef.Finite()
}

type WellResult struct {
	ID        string  `json:"id"`
	Row       int     `json:"row"`
	Col       int     `json:"col"`
	Center    Point   `json:"center"`
	AvgColor  RGB     `json:"avg_color"`
	Intensity float64 `json:"intensity"`
	CellCount float64 `json:"cell_count"`
}

// Analysis is the envelope returned for one analysis run. It is never stored.
type Analysis struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	CalibrationID string       `json:"calibration_id,omitempty"`
	Calibration   Calibration  `json:"calibration"`
	ImageWidth    int          `json:"image_width"`
	ImageHeight   int          `json:"image_height"`
	Radius        float64      `json:"radius"`
	Wells         []WellResult `json:"wells"`
	CreatedAt     int64        `json:"created_at_unix_ms"`
}

type StoredState struct {
	Calibrations          map[string]Calibration `json:"calibrations"`
	LastCalibrationByUser map[string]string      `json:"last_calibration_by_user"`
	LastUpdatedUnixMS     int64                  `json:"last_updated_unix_ms"`
	CreatedAt             time.Time              `json:"created_at"`
}

type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	CreatedAt int64       `json:"created_at_unix_ms"`
}
