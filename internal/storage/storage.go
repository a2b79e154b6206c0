package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"plate-reader/internal/model"
)

var ErrNotFound = errors.New("calibration not found")

// Store keeps calibration point sets in a JSON file. Analysis results are
// never written here.
type Store struct {
	path  string
	mu    sync.RWMutex
	state model.StoredState
}

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, pkgerrors.Wrapf(err, "create data dir for %s", path)
	}
	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.state = defaultState()
			return s.saveLocked()
		}
		return pkgerrors.Wrapf(err, "read %s", s.path)
	}
	if len(b) == 0 {
		s.state = defaultState()
		return s.saveLocked()
	}

	var state model.StoredState
	if err := json.Unmarshal(b, &state); err != nil {
		return pkgerrors.Wrapf(err, "parse %s", s.path)
	}
	mergeDefaults(&state)
	s.state = state
	return nil
}

func defaultState() model.StoredState {
	return model.StoredState{
		Calibrations:          map[string]model.Calibration{},
		LastCalibrationByUser: map[string]string{},
		CreatedAt:             time.Now().UTC(),
	}
}

func mergeDefaults(state *model.StoredState) {
	if state.Calibrations == nil {
		state.Calibrations = map[string]model.Calibration{}
	}
	if state.LastCalibrationByUser == nil {
		state.LastCalibrationByUser = map[string]string{}
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now().UTC()
	}
}

func (s *Store) saveLocked() error {
	s.state.LastUpdatedUnixMS = time.Now().UnixMilli()
	b, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	return pkgerrors.Wrapf(os.WriteFile(s.path, b, 0o600), "write %s", s.path)
}

// SaveCalibration stores c under a new id and makes it the user's latest.
func (s *Store) SaveCalibration(c model.Calibration) (model.Calibration, error) {
	c.ID = uuid.NewString()
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Calibrations[c.ID] = c
	if c.UserID != "" {
		s.state.LastCalibrationByUser[c.UserID] = c.ID
	}
	if err := s.saveLocked(); err != nil {
		return model.Calibration{}, err
	}
	return c, nil
}

func (s *Store) GetCalibration(id string) (model.Calibration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.Calibrations[id]
	if !ok {
		return model.Calibration{}, ErrNotFound
	}
	return c, nil
}

func (s *Store) LastCalibration(userID string) (model.Calibration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.state.LastCalibrationByUser[userID]
	if !ok {
		return model.Calibration{}, ErrNotFound
	}
	c, ok := s.state.Calibrations[id]
	if !ok {
		return model.Calibration{}, ErrNotFound
	}
	return c, nil
}

// ListCalibrations returns calibrations newest first, optionally filtered by user.
func (s *Store) ListCalibrations(userID string) []model.Calibration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Calibration, 0, len(s.state.Calibrations))
	for _, c := range s.state.Calibrations {
		if userID != "" && c.UserID != userID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) DeleteCalibration(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.Calibrations[id]; !ok {
		return ErrNotFound
	}
	delete(s.state.Calibrations, id)
	for user, last := range s.state.LastCalibrationByUser {
		if last == id {
			delete(s.state.LastCalibrationByUser, user)
		}
	}
	return s.saveLocked()
}
