package service

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"plate-reader/internal/analysis"
	"plate-reader/internal/model"
	"plate-reader/internal/sampler"
	"plate-reader/internal/storage"
)

type recordingSink struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recordingSink) BroadcastEvent(evt model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// testPlatePNG is a white 70x90 photo with one dark well at H6 (60,80).
func testPlatePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 70, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 70; x++ {
			c := color.NRGBA{R: 250, G: 250, B: 245, A: 255}
			if x >= 55 && x < 65 && y >= 75 && y < 85 {
				c = color.NRGBA{R: 60, G: 20, B: 90, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func testCalibration() model.Calibration {
	return model.Calibration{
		A1:     model.Point{X: 10, Y: 10},
		H6:     model.Point{X: 60, Y: 80},
		MinRef: model.Point{X: 10, Y: 10},
		MaxRef: model.Point{X: 60, Y: 80},
	}
}

func TestAnalyzeImage(t *testing.T) {
	sink := &recordingSink{}
	svc := NewAnalysisService(sink)

	out, err := svc.AnalyzeImage("alice", bytes.NewReader(testPlatePNG(t)), testCalibration())
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if out.ID == "" || out.UserID != "alice" {
		t.Fatalf("unexpected envelope: %+v", out)
	}
	if out.ImageWidth != 70 || out.ImageHeight != 90 || math.Abs(out.Radius-3) > 1e-9 {
		t.Fatalf("unexpected geometry: %dx%d r=%v", out.ImageWidth, out.ImageHeight, out.Radius)
	}
	if len(out.Wells) != model.WellCount {
		t.Fatalf("got %d wells", len(out.Wells))
	}
	for _, w := range out.Wells {
		want := 0.0
		if w.ID == "H6" {
			want = 1
		}
		if w.Intensity != want {
			t.Fatalf("%s intensity = %v, want %v", w.ID, w.Intensity, want)
		}
	}
	if got := sink.types(); len(got) != 1 || got[0] != "analysis.completed" {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestAnalyzeImageDecodeFailure(t *testing.T) {
	sink := &recordingSink{}
	svc := NewAnalysisService(sink)
	_, err := svc.AnalyzeImage("alice", bytes.NewReader([]byte("nope")), testCalibration())
	var se *sampler.SamplingError
	if !errors.As(err, &se) {
		t.Fatalf("expected SamplingError, got %v", err)
	}
	if got := sink.types(); len(got) != 1 || got[0] != "analysis.failed" {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestAnalyzeImageCalibrationFailure(t *testing.T) {
	svc := NewAnalysisService(nil)
	cal := testCalibration()
	cal.MaxRef = model.Point{X: 500, Y: 500}
	_, err := svc.AnalyzeImage("alice", bytes.NewReader(testPlatePNG(t)), cal)
	var ce *analysis.CalibrationError
	if !errors.As(err, &ce) || ce.Reference != analysis.ReferenceMax {
		t.Fatalf("expected max reference CalibrationError, got %v", err)
	}
}

func TestResolveCalibration(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	svc := NewCalibrationService(store)
	points := testCalibration()

	src := CalibrationSource{Points: &points, Save: true}
	resolved, err := svc.Resolve("alice", src)
	if err != nil || resolved.ID != "" {
		t.Fatalf("Resolve = %+v, %v", resolved, err)
	}
	if len(svc.List("alice")) != 0 {
		t.Fatalf("Resolve must not store points before the analysis ran")
	}
	saved, err := svc.Remember("alice", src, resolved)
	if err != nil || saved.ID == "" || saved.UserID != "alice" {
		t.Fatalf("Remember = %+v, %v", saved, err)
	}

	byID, err := svc.Resolve("bob", CalibrationSource{ID: " " + saved.ID + " "})
	if err != nil || byID.ID != saved.ID {
		t.Fatalf("resolve by id = %+v, %v", byID, err)
	}

	last, err := svc.Resolve("alice", CalibrationSource{UseLast: true})
	if err != nil || last.ID != saved.ID {
		t.Fatalf("resolve last = %+v, %v", last, err)
	}
	if _, err := svc.Resolve("bob", CalibrationSource{UseLast: true}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("bob has no calibration, got %v", err)
	}

	adhoc, err := svc.Resolve("carol", CalibrationSource{Points: &points})
	if err != nil || adhoc.ID != "" || adhoc.UserID != "carol" {
		t.Fatalf("ad hoc points = %+v, %v", adhoc, err)
	}
	if len(svc.List("carol")) != 0 {
		t.Fatalf("unsaved points must not be stored")
	}

	if _, err := svc.Resolve("alice", CalibrationSource{}); !errors.Is(err, ErrNoCalibration) {
		t.Fatalf("empty source = %v, want ErrNoCalibration", err)
	}
}

func TestCreateRejectsNonFinite(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	svc := NewCalibrationService(store)
	c := testCalibration()
	c.MinRef.Y = math.Inf(1)
	if _, err := svc.Create("alice", c); !errors.Is(err, ErrInvalidCalibration) {
		t.Fatalf("Create = %v, want ErrInvalidCalibration", err)
	}
}

func TestRememberOnlySavesExplicitPoints(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	svc := NewCalibrationService(store)
	points := testCalibration()

	tests := []struct {
		name string
		src  CalibrationSource
	}{
		{name: "save not requested", src: CalibrationSource{Points: &points}},
		{name: "id wins over points", src: CalibrationSource{ID: "abc", Points: &points, Save: true}},
		{name: "use_last wins over points", src: CalibrationSource{UseLast: true, Points: &points, Save: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Remember("alice", tt.src, points)
			if err != nil || got != points {
				t.Fatalf("Remember = %+v, %v; want points unchanged", got, err)
			}
			if len(svc.List("")) != 0 {
				t.Fatalf("nothing should be stored")
			}
		})
	}
}
