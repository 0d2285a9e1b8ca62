package services

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// SyncState carries the watermark and the in-flight guard for one watched
// repository. It is owned by its SyncService; nothing else mutates it, so
// several services can run side by side with isolated state.
type SyncState struct {
	mu        sync.Mutex
	watermark time.Time
	inFlight  bool
}

func NewSyncState(initial time.Time) *SyncState {
	return &SyncState{watermark: initial}
}

func (s *SyncState) Watermark() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermark
}

// Advance moves the watermark forward. It never moves backward.
func (s *SyncState) Advance(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.watermark) {
		s.watermark = t
	}
}

// TryBegin marks a sync cycle as running. It returns false when a cycle is
// already in flight; callers drop the tick instead of queueing it.
func (s *SyncState) TryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

func (s *SyncState) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
}

// WatermarkStore persists the watermark across process restarts. Optional:
// without one, a restart silently skips whatever happened while the process
// was down.
type WatermarkStore interface {
	Load() (time.Time, bool, error)
	Save(t time.Time) error
}

type persistedState struct {
	Watermark time.Time `json:"watermark"`
}

// FileWatermarkStore keeps the watermark in a small JSON file.
type FileWatermarkStore struct {
	path string
}

func NewFileWatermarkStore(path string) *FileWatermarkStore {
	return &FileWatermarkStore{path: path}
}

func (f *FileWatermarkStore) Load() (time.Time, bool, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return time.Time{}, false, err
	}
	return state.Watermark, true, nil
}

func (f *FileWatermarkStore) Save(t time.Time) error {
	data, err := json.MarshalIndent(persistedState{Watermark: t}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0644)
}
