package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lshigami/Quolls/internal/dto"
)

func errorServer(t *testing.T, status int, message string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Message: message})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInitAttempt_CompletedTestIsNotAHardFailure(t *testing.T) {
	// Init reports a finished test as 403, unlike the 409 the other lifecycle
	// calls use. Both are the same terminal state to the caller.
	srv := errorServer(t, http.StatusForbidden, "Test already completed")
	c := New(srv.URL, "token")

	_, err := c.InitAttempt(context.Background(), 1)
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("InitAttempt on completed test returned %v; want ErrAlreadySubmitted", err)
	}
}

func TestDo_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		want    error
	}{
		{"conflict is already submitted", http.StatusConflict, "Attempt already completed", ErrAlreadySubmitted},
		{"server error is transient", http.StatusInternalServerError, "boom", ErrTransient},
		{"bad gateway is transient", http.StatusBadGateway, "", ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := errorServer(t, tt.status, tt.message)
			c := New(srv.URL, "token")
			err := c.SaveProgress(context.Background(), 1, 2, dto.SaveProgressRequest{Answers: map[string]uint{}})
			if !errors.Is(err, tt.want) {
				t.Fatalf("SaveProgress with %d returned %v; want %v", tt.status, err, tt.want)
			}
		})
	}
}

func TestDo_PlainForbiddenStaysAnError(t *testing.T) {
	srv := errorServer(t, http.StatusForbidden, "Forbidden")
	c := New(srv.URL, "token")

	err := c.SaveProgress(context.Background(), 1, 2, dto.SaveProgressRequest{Answers: map[string]uint{}})
	if err == nil {
		t.Fatal("expected an error for a 403 role rejection")
	}
	if errors.Is(err, ErrAlreadySubmitted) {
		t.Fatal("a role-gate 403 must not be mistaken for a completed attempt")
	}
}

func TestRun_ExitsWhenSaveFindsAttemptCompleted(t *testing.T) {
	srv := errorServer(t, http.StatusConflict, "Attempt already completed")
	c := New(srv.URL, "token")
	store, err := NewFileCacheStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCacheStore: %v", err)
	}

	s := NewSession(c, store, SessionConfig{
		TestID:       1,
		UserID:       2,
		DurationMins: 60,
		Heartbeat:    10 * time.Millisecond,
	})
	s.mu.Lock()
	s.attemptID = 5
	s.startedAt = time.Now()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp, err := s.Run(ctx)
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("Run returned %v; want ErrAlreadySubmitted once the server reports completion", err)
	}
	if resp != nil {
		t.Fatalf("Run returned a submit response %+v for an attempt it never submitted", resp)
	}
	if ctx.Err() != nil {
		t.Fatal("Run only exited because the test context expired")
	}
}
