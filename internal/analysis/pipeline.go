package analysis

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"plate-reader/internal/colorspace"
	"plate-reader/internal/grid"
	"plate-reader/internal/model"
	"plate-reader/internal/sampler"
)

// ErrNoPixels means a reference point sampled nothing, typically because it
// lies outside the image.
var ErrNoPixels = errors.New("no pixels sampled at reference point")

var errRunReused = errors.New("analysis run already executed")

type Stage int

const (
	StageIdle Stage = iota
	StageGeometryDerived
	StageAxisBuilt
	StageScoring
	StageComplete
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageGeometryDerived:
		return "geometry-derived"
	case StageAxisBuilt:
		return "axis-built"
	case StageScoring:
		return "scoring"
	case StageComplete:
		return "complete"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Report is everything one successful run produced.
type Report struct {
	Grid     grid.Grid
	Axis     Axis
	MinColor model.RGB
	MaxColor model.RGB
	Wells    []model.WellResult
}

// Analyze scores all 48 wells of the plate photographed in s. It either
// returns every well, in row-major order, or a single error.
func Analyze(s sampler.Sampler, cal model.Calibration) ([]model.WellResult, error) {
	rep, err := Run(logrus.NewEntry(logrus.StandardLogger()), s, cal)
	if err != nil {
		return nil, err
	}
	return rep.Wells, nil
}

// Run is Analyze with the grid and axis kept, logging stage changes to log.
func Run(log *logrus.Entry, s sampler.Sampler, cal model.Calibration) (*Report, error) {
	r := &run{log: log, sampler: s, cal: cal}
	return r.execute()
}

// run is single use: stages only move forward, and a finished or failed run
// cannot be executed again.
type run struct {
	log     *logrus.Entry
	sampler sampler.Sampler
	cal     model.Calibration
	stage   Stage
}

func (r *run) advance(next Stage) {
	if r.stage == StageFailed || next != r.stage+1 {
		panic(fmt.Sprintf("analysis: invalid stage transition %s -> %s", r.stage, next))
	}
	r.stage = next
	r.log.WithField("stage", next.String()).Debug("analysis stage")
}

func (r *run) fail(err error) error {
	r.log.WithField("from", r.stage.String()).WithError(err).Warn("analysis failed")
	r.stage = StageFailed
	return err
}

func (r *run) execute() (*Report, error) {
	if r.stage != StageIdle {
		return nil, errRunReused
	}

	g, err := grid.Derive(r.cal.A1, r.cal.H6)
	if err != nil {
		return nil, r.fail(&CalibrationError{Reference: ReferenceGrid, Err: err})
	}
	r.advance(StageGeometryDerived)

	minColor, err := r.reference(ReferenceMin, r.cal.MinRef, g.Radius)
	if err != nil {
		return nil, r.fail(err)
	}
	maxColor, err := r.reference(ReferenceMax, r.cal.MaxRef, g.Radius)
	if err != nil {
		return nil, r.fail(err)
	}
	axis := BuildAxis(colorspace.ToUniform(minColor), colorspace.ToUniform(maxColor))
	if axis.Degenerate() {
		r.log.WithFields(logrus.Fields{"min": minColor, "max": maxColor}).Warn("reference colors are indistinguishable, all wells will score zero")
	}
	r.advance(StageAxisBuilt)

	r.advance(StageScoring)
	wells := g.Wells()
	results := make([]model.WellResult, 0, len(wells))
	for _, w := range wells {
		px := r.sampler.Sample(w.Center, g.Radius)
		avg := colorspace.Estimate(px)
		sc := ScoreWell(colorspace.ToUniform(avg), axis, len(px) > 0)
		if len(px) == 0 {
			r.log.WithField("well", w.ID).Debug("well sampled no pixels")
		}
		results = append(results, model.WellResult{
			ID:        w.ID,
			Row:       w.Row,
			Col:       w.Col,
			Center:    w.Center,
			AvgColor:  avg,
			Intensity: sc.Intensity,
			CellCount: sc.CellCount,
		})
	}
	r.advance(StageComplete)

	return &Report{
		Grid:     g,
		Axis:     axis,
		MinColor: minColor,
		MaxColor: maxColor,
		Wells:    results,
	}, nil
}

func (r *run) reference(name string, p model.Point, radius float64) (model.RGB, error) {
	px := r.sampler.Sample(p, radius)
	if len(px) == 0 {
		return model.RGB{}, &CalibrationError{Reference: name, Err: ErrNoPixels}
	}
	return colorspace.Estimate(px), nil
}
