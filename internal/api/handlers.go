package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"plate-reader/internal/analysis"
	"plate-reader/internal/config"
	"plate-reader/internal/model"
	"plate-reader/internal/sampler"
	"plate-reader/internal/service"
	"plate-reader/internal/storage"
	"plate-reader/internal/ws"
)

type Handler struct {
	cfg            config.Config
	hub            *ws.Hub
	analysisSvc    *service.AnalysisService
	calibrationSvc *service.CalibrationService
	upgrader       websocket.Upgrader
}

type apiError struct {
	Error     string `json:"error"`
	Reference string `json:"reference,omitempty"`
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, errors.New("websocket requires GET"))
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		writeErr(w, http.StatusBadRequest, errors.New("websocket upgrade required"))
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithFields(logrus.Fields{"remote": r.RemoteAddr, "uri": r.RequestURI}).WithError(err).Warn("ws upgrade failed")
		return
	}
	client := ws.NewClient(h.hub, conn)
	h.hub.Register(client)
	h.hub.BroadcastEvent(model.Event{Type: "ws.client_connected", Payload: map[string]string{"id": uuid.NewString()}, CreatedAt: time.Now().UnixMilli()})
	go client.WritePump()
	go client.ReadPump()
}

// Analyze scores an uploaded plate photo. The multipart form carries the
// image plus one calibration source: calibration_id, use_last=true, or the
// eight coordinates a1_x..max_y. With save_calibration=true those points are
// stored after the analysis succeeds.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := r.ParseMultipartForm(h.cfg.MaxUploadSizeBytes); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	userID := firstOr(r.FormValue("user_id"), userIDFromRequest(r))

	file, fileHeader, err := r.FormFile("image")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	if err := validateImageUpload(fileHeader); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	points, err := parsePoints(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	src := service.CalibrationSource{
		ID:      r.FormValue("calibration_id"),
		UseLast: parseBool(r.FormValue("use_last")),
		Points:  points,
		Save:    parseBool(r.FormValue("save_calibration")),
	}
	cal, err := h.calibrationSvc.Resolve(userID, src)
	if err != nil {
		writeCalibrationLookupErr(w, err)
		return
	}

	out, err := h.analysisSvc.AnalyzeImage(userID, file, cal)
	if err != nil {
		writeAnalysisErr(w, err)
		return
	}
	saved, err := h.calibrationSvc.Remember(userID, src, cal)
	if err != nil {
		writeCalibrationLookupErr(w, err)
		return
	}
	out.CalibrationID = saved.ID
	out.Calibration = saved
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Calibrations(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"calibrations": h.calibrationSvc.List(strings.TrimSpace(r.URL.Query().Get("user_id"))),
		})
	case http.MethodPost:
		var req struct {
			UserID string      `json:"user_id"`
			Label  string      `json:"label"`
			A1     model.Point `json:"a1"`
			H6     model.Point `json:"h6"`
			MinRef model.Point `json:"min_ref"`
			MaxRef model.Point `json:"max_ref"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		if req.UserID == "" {
			req.UserID = userID
		}
		c, err := h.calibrationSvc.Create(req.UserID, model.Calibration{
			Label:  req.Label,
			A1:     req.A1,
			H6:     req.H6,
			MinRef: req.MinRef,
			MaxRef: req.MaxRef,
		})
		if err != nil {
			writeCalibrationLookupErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) Calibration(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/v1/calibrations/"))
	if id == "" || strings.Contains(id, "/") {
		writeErr(w, http.StatusNotFound, storage.ErrNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		c, err := h.calibrationSvc.Get(id)
		if err != nil {
			writeCalibrationLookupErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		if err := h.calibrationSvc.Delete(id); err != nil {
			writeCalibrationLookupErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

var pointFields = []string{"a1_x", "a1_y", "h6_x", "h6_y", "min_x", "min_y", "max_x", "max_y"}

// parsePoints reads the eight calibration coordinates. It returns nil when
// none are present and an error when only some are.
func parsePoints(r *http.Request) (*model.Calibration, error) {
	vals := make([]float64, len(pointFields))
	present := 0
	for i, k := range pointFields {
		raw := strings.TrimSpace(r.FormValue(k))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", k, err)
		}
		vals[i] = v
		present++
	}
	switch present {
	case 0:
		return nil, nil
	case len(pointFields):
	default:
		return nil, fmt.Errorf("calibration needs all of %s", strings.Join(pointFields, ", "))
	}
	return &model.Calibration{
		A1:     model.Point{X: vals[0], Y: vals[1]},
		H6:     model.Point{X: vals[2], Y: vals[3]},
		MinRef: model.Point{X: vals[4], Y: vals[5]},
		MaxRef: model.Point{X: vals[6], Y: vals[7]},
	}, nil
}

func validateImageUpload(header *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif":
		return nil
	default:
		return errors.New("unsupported image format")
	}
}

func writeAnalysisErr(w http.ResponseWriter, err error) {
	var ce *analysis.CalibrationError
	var se *sampler.SamplingError
	switch {
	case errors.As(err, &ce):
		writeJSON(w, http.StatusUnprocessableEntity, apiError{Error: err.Error(), Reference: ce.Reference})
	case errors.As(err, &se):
		writeErr(w, http.StatusBadRequest, err)
	default:
		writeErr(w, http.StatusInternalServerError, err)
	}
}

func writeCalibrationLookupErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeErr(w, http.StatusNotFound, err)
	case errors.Is(err, service.ErrNoCalibration), errors.Is(err, service.ErrInvalidCalibration):
		writeErr(w, http.StatusBadRequest, err)
	default:
		writeErr(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, apiError{Error: err.Error()})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeErr(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func firstOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}

func userIDFromRequest(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if v != "" {
		return v
	}
	return "anon"
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
