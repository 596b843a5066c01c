package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CachedState is the locally persisted snapshot of an attempt in progress,
// written on every answer change and navigation. It exists for continuity
// across restarts and as the fallback when a flush at shutdown doesn't make
// it out; it is never authoritative over the server.
type CachedState struct {
	Answers      map[string]uint `json:"answers"`
	StartTime    time.Time       `json:"startTime"`
	AttemptID    uint            `json:"attemptId"`
	CurrentIndex int             `json:"currentIndex"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Fresh reports whether the snapshot was written within the freshness window.
func (s *CachedState) Fresh(window time.Duration, now time.Time) bool {
	return s != nil && now.Sub(s.Timestamp) < window
}

// CacheStore persists CachedState per (test, user) pair.
type CacheStore interface {
	Load(testID, userID uint) (*CachedState, error)
	Save(testID, userID uint, state CachedState) error
	Clear(testID, userID uint) error
}

// fileCacheStore keeps one JSON file per attempt under a directory, keyed
// test-{testID}-{userID} like the browser original keyed localStorage.
type fileCacheStore struct {
	dir string
}

func NewFileCacheStore(dir string) (CacheStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	return &fileCacheStore{dir: dir}, nil
}

func (s *fileCacheStore) path(testID, userID uint) string {
	return filepath.Join(s.dir, fmt.Sprintf("test-%d-%d.json", testID, userID))
}

// Load returns (nil, nil) when no snapshot exists; a corrupt snapshot is
// treated the same way rather than failing the resume.
func (s *fileCacheStore) Load(testID, userID uint) (*CachedState, error) {
	data, err := os.ReadFile(s.path(testID, userID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache for test %d user %d: %w", testID, userID, err)
	}
	var state CachedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, nil
	}
	return &state, nil
}

func (s *fileCacheStore) Save(testID, userID uint, state CachedState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding cache for test %d user %d: %w", testID, userID, err)
	}
	return os.WriteFile(s.path(testID, userID), data, 0o644)
}

func (s *fileCacheStore) Clear(testID, userID uint) error {
	err := os.Remove(s.path(testID, userID))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
