package service

import (
	"image"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"plate-reader/internal/analysis"
	"plate-reader/internal/model"
	"plate-reader/internal/sampler"
)

// EventSink receives analysis lifecycle events. *ws.Hub implements it.
type EventSink interface {
	BroadcastEvent(evt model.Event)
}

type AnalysisService struct {
	events EventSink
}

// NewAnalysisService returns a service that reports to events; events may be nil.
func NewAnalysisService(events EventSink) *AnalysisService {
	return &AnalysisService{events: events}
}

// AnalyzeImage decodes an uploaded photo and scores every well. Decode
// failures are returned as *sampler.SamplingError.
func (s *AnalysisService) AnalyzeImage(userID string, r io.Reader, cal model.Calibration) (model.Analysis, error) {
	img, err := sampler.Decode(r)
	if err != nil {
		s.publishFailure(userID, err)
		return model.Analysis{}, err
	}
	return s.AnalyzeRaster(userID, img, cal)
}

// AnalyzeRaster scores an already decoded image. img must not be modified
// until the call returns.
func (s *AnalysisService) AnalyzeRaster(userID string, img image.Image, cal model.Calibration) (model.Analysis, error) {
	id := uuid.NewString()
	log := logrus.WithFields(logrus.Fields{"run": id, "user": userID})
	start := time.Now()

	smp := sampler.NewImageSampler(img)
	rep, err := analysis.Run(log, smp, cal)
	if err != nil {
		s.publishFailure(userID, err)
		return model.Analysis{}, err
	}

	b := smp.Bounds()
	out := model.Analysis{
		ID:            id,
		UserID:        userID,
		CalibrationID: cal.ID,
		Calibration:   cal,
		ImageWidth:    b.Dx(),
		ImageHeight:   b.Dy(),
		Radius:        rep.Grid.Radius,
		Wells:         rep.Wells,
		CreatedAt:     time.Now().UnixMilli(),
	}
	log.WithFields(logrus.Fields{
		"width":    out.ImageWidth,
		"height":   out.ImageHeight,
		"radius":   out.Radius,
		"duration": time.Since(start),
	}).Info("plate analyzed")

	if s.events != nil {
		s.events.BroadcastEvent(model.Event{Type: "analysis.completed", Payload: out, CreatedAt: out.CreatedAt})
	}
	return out, nil
}

func (s *AnalysisService) publishFailure(userID string, err error) {
	if s.events == nil {
		return
	}
	s.events.BroadcastEvent(model.Event{
		Type:      "analysis.failed",
		Payload:   map[string]string{"user_id": userID, "error": err.Error()},
		CreatedAt: time.Now().UnixMilli(),
	})
}
