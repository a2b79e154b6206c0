package service

import (
	"errors"
	"strings"

	"plate-reader/internal/model"
	"plate-reader/internal/storage"
)

var (
	ErrNoCalibration      = errors.New("calibration required: give calibration_id, use_last, or all four points")
	ErrInvalidCalibration = errors.New("calibration points must be finite")
)

// CalibrationSource says where an analysis takes its four points from.
// Exactly one of ID, UseLast or Points is expected; ID wins over UseLast,
// which wins over Points. Save asks for explicit points to be stored once
// an analysis with them has succeeded.
type CalibrationSource struct {
	ID      string
	UseLast bool
	Points  *model.Calibration
	Save    bool
}

func (src CalibrationSource) explicit() bool {
	return strings.TrimSpace(src.ID) == "" && !src.UseLast && src.Points != nil
}

type CalibrationService struct {
	store *storage.Store
}

func NewCalibrationService(store *storage.Store) *CalibrationService {
	return &CalibrationService{store: store}
}

func (s *CalibrationService) Create(userID string, c model.Calibration) (model.Calibration, error) {
	if !c.Finite() {
		return model.Calibration{}, ErrInvalidCalibration
	}
	c.UserID = userID
	c.Label = strings.TrimSpace(c.Label)
	return s.store.SaveCalibration(c)
}

func (s *CalibrationService) Get(id string) (model.Calibration, error) {
	return s.store.GetCalibration(id)
}

func (s *CalibrationService) List(userID string) []model.Calibration {
	return s.store.ListCalibrations(userID)
}

func (s *CalibrationService) Delete(id string) error {
	return s.store.DeleteCalibration(id)
}

// Resolve turns a request's calibration source into concrete points.
// Nothing is stored; see Remember.
func (s *CalibrationService) Resolve(userID string, src CalibrationSource) (model.Calibration, error) {
	switch {
	case strings.TrimSpace(src.ID) != "":
		return s.store.GetCalibration(strings.TrimSpace(src.ID))
	case src.UseLast:
		return s.store.LastCalibration(userID)
	case src.Points != nil:
		c := *src.Points
		if !c.Finite() {
			return model.Calibration{}, ErrInvalidCalibration
		}
		c.UserID = userID
		return c, nil
	default:
		return model.Calibration{}, ErrNoCalibration
	}
}

// Remember stores cal as the user's latest calibration when src asked for
// explicit points to be saved. Call it only after cal analyzed successfully,
// so a point set that fails calibration never becomes the one use_last picks.
// Otherwise cal is returned unchanged.
func (s *CalibrationService) Remember(userID string, src CalibrationSource, cal model.Calibration) (model.Calibration, error) {
	if !src.Save || !src.explicit() {
		return cal, nil
	}
	return s.Create(userID, cal)
}
