package analysis

import "fmt"

// Reference names used in CalibrationError.
const (
	ReferenceGrid = "grid"
	ReferenceMin  = "min"
	ReferenceMax  = "max"
)

// CalibrationError means the landmark or reference points cannot calibrate
// the plate. The user has to pick the points again.
type CalibrationError struct {
	Reference string
	Err       error
}

func (e *CalibrationError) Error() string {
	return fmt.Sprintf("calibration failed at %s reference: %v", e.Reference, e.Err)
}

func (e *CalibrationError) Unwrap() error {
	return e.Err
}
