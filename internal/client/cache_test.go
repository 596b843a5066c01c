package client

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestFileCacheStore_Roundtrip(t *testing.T) {
	store, err := NewFileCacheStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCacheStore: %v", err)
	}

	state := CachedState{
		Answers:      map[string]uint{"1": 11, "2": 22},
		StartTime:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		AttemptID:    42,
		CurrentIndex: 3,
		Timestamp:    time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	if err := store.Save(5, 7, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(5, 7)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load returned nil for a saved snapshot")
	}
	if !reflect.DeepEqual(loaded.Answers, state.Answers) {
		t.Errorf("Answers = %v, want %v", loaded.Answers, state.Answers)
	}
	if loaded.AttemptID != state.AttemptID || loaded.CurrentIndex != state.CurrentIndex {
		t.Errorf("loaded %+v, want %+v", loaded, state)
	}
	if !loaded.StartTime.Equal(state.StartTime) || !loaded.Timestamp.Equal(state.Timestamp) {
		t.Errorf("timestamps changed across roundtrip: %+v", loaded)
	}
}

func TestFileCacheStore_KeyedPerTestAndUser(t *testing.T) {
	store, err := NewFileCacheStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCacheStore: %v", err)
	}

	if err := store.Save(1, 1, CachedState{AttemptID: 10}); err != nil {
		t.Fatalf("Save(1,1): %v", err)
	}
	if err := store.Save(1, 2, CachedState{AttemptID: 20}); err != nil {
		t.Fatalf("Save(1,2): %v", err)
	}

	a, _ := store.Load(1, 1)
	b, _ := store.Load(1, 2)
	if a == nil || b == nil || a.AttemptID != 10 || b.AttemptID != 20 {
		t.Fatalf("snapshots collided: %+v %+v", a, b)
	}
}

func TestFileCacheStore_MissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileCacheStore(dir)
	if err != nil {
		t.Fatalf("NewFileCacheStore: %v", err)
	}

	state, err := store.Load(3, 4)
	if err != nil {
		t.Fatalf("Load of missing snapshot: %v", err)
	}
	if state != nil {
		t.Fatalf("Load of missing snapshot = %+v, want nil", state)
	}

	// A half-written file must not fail the resume.
	if err := os.WriteFile(filepath.Join(dir, "test-3-4.json"), []byte(`{"answers":{`), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	state, err = store.Load(3, 4)
	if err != nil {
		t.Fatalf("Load of corrupt snapshot: %v", err)
	}
	if state != nil {
		t.Fatalf("Load of corrupt snapshot = %+v, want nil", state)
	}
}

func TestFileCacheStore_Clear(t *testing.T) {
	store, err := NewFileCacheStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCacheStore: %v", err)
	}

	if err := store.Save(8, 9, CachedState{AttemptID: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Clear(8, 9); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	state, err := store.Load(8, 9)
	if err != nil || state != nil {
		t.Fatalf("Load after Clear = (%+v, %v), want (nil, nil)", state, err)
	}
	// Clearing twice is fine.
	if err := store.Clear(8, 9); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}
