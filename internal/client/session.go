package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lshigami/Quolls/internal/dto"
	"github.com/rs/zerolog/log"
)

// SessionConfig tunes the save cadence of a running exam session.
type SessionConfig struct {
	TestID       uint
	UserID       uint
	DurationMins int
	// Freshness bounds how old a local snapshot may be and still take part
	// in resume reconciliation.
	Freshness time.Duration
	// SaveDebounce delays the server save after an answer change so rapid
	// clicking collapses into one request.
	SaveDebounce time.Duration
	// Heartbeat is the fixed interval for periodic saves regardless of
	// activity.
	Heartbeat time.Duration
}

func (c *SessionConfig) withDefaults() {
	if c.Freshness <= 0 {
		c.Freshness = 5 * time.Minute
	}
	if c.SaveDebounce <= 0 {
		c.SaveDebounce = 5 * time.Second
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = time.Minute
	}
}

// Session drives one exam attempt from the student side: resume
// reconciliation on start, debounced and heartbeat auto-saves while running,
// and exactly one finalize when the clock runs out or the student submits.
type Session struct {
	client *Client
	cache  CacheStore
	cfg    SessionConfig

	mu           sync.Mutex
	attemptID    uint
	startedAt    time.Time
	answers      map[string]uint
	currentIndex int
	dirty        bool
	saveDeadline time.Time
	submitted    bool

	// submitOnce guards the finalize call: the tick handler hitting zero and
	// a racing manual submit must not both fire.
	submitOnce sync.Once
	submitErr  error
	submitResp *dto.SubmitResponse
}

func NewSession(client *Client, cache CacheStore, cfg SessionConfig) *Session {
	cfg.withDefaults()
	return &Session{
		client:  client,
		cache:   cache,
		cfg:     cfg,
		answers: make(map[string]uint),
	}
}

// Start initializes (or resumes) the attempt and reconciles local cache
// against the server's canonical answer. Returns ErrAlreadySubmitted when the
// test was already completed, so callers can show the submitted state instead
// of an error screen.
func (s *Session) Start(ctx context.Context) (*EffectiveState, error) {
	server, err := s.client.InitAttempt(ctx, s.cfg.TestID)
	if err != nil {
		return nil, err
	}

	cached, err := s.cache.Load(s.cfg.TestID, s.cfg.UserID)
	if err != nil {
		log.Warn().Err(err).Msg("session: cache load failed, continuing with server state only")
		cached = nil
	}

	state := Reconcile(*server, cached, s.cfg.Freshness, time.Now())

	s.mu.Lock()
	s.attemptID = state.AttemptID
	s.startedAt = state.StartedAt
	s.answers = state.Answers
	s.currentIndex = state.CurrentIndex
	s.mu.Unlock()

	s.persistCache()
	return &state, nil
}

// SelectAnswer records a choice, snapshots it locally at once, and schedules
// a debounced server save. Safe to call from the UI loop at any rate.
func (s *Session) SelectAnswer(questionID string, optionID uint) {
	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return
	}
	s.answers[questionID] = optionID
	s.dirty = true
	s.saveDeadline = time.Now().Add(s.cfg.SaveDebounce)
	s.mu.Unlock()

	s.persistCache()
}

// Navigate records the current question index for resume continuity.
func (s *Session) Navigate(index int) {
	s.mu.Lock()
	s.currentIndex = index
	s.mu.Unlock()
	s.persistCache()
}

// Remaining recomputes the seconds left from the attempt's StartedAt. Called
// on every tick and whenever the UI regains visibility; there is no paused
// counter to trust or mistrust.
func (s *Session) Remaining(now time.Time) int {
	s.mu.Lock()
	startedAt := s.startedAt
	s.mu.Unlock()
	return Remaining(startedAt, s.cfg.DurationMins, now)
}

// Run ticks the clock and the save machinery until the context ends or the
// attempt is finalized. When remaining hits zero it triggers exactly one
// automatic submit. A save that finds the attempt already completed on the
// server ends the loop with ErrAlreadySubmitted instead of ticking on.
func (s *Session) Run(ctx context.Context) (*dto.SubmitResponse, error) {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	heartbeat := time.NewTicker(s.cfg.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Flush(context.Background())
			return nil, ctx.Err()
		case now := <-tick.C:
			if s.Remaining(now) <= 0 {
				return s.Submit(ctx)
			}
			s.mu.Lock()
			due := s.dirty && !now.Before(s.saveDeadline)
			s.mu.Unlock()
			if due {
				s.save(ctx)
				if s.isSubmitted() {
					return nil, ErrAlreadySubmitted
				}
			}
		case <-heartbeat.C:
			s.save(ctx)
			if s.isSubmitted() {
				return nil, ErrAlreadySubmitted
			}
		}
	}
}

func (s *Session) isSubmitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// Flush pushes the current sheet best-effort, for shutdown paths. Failures
// are logged, not returned: the cache already holds the data.
func (s *Session) Flush(ctx context.Context) {
	s.persistCache()
	s.save(ctx)
}

func (s *Session) save(ctx context.Context) {
	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return
	}
	attemptID := s.attemptID
	sheet := make(map[string]uint, len(s.answers))
	for k, v := range s.answers {
		sheet[k] = v
	}
	remaining := Remaining(s.startedAt, s.cfg.DurationMins, time.Now())
	s.dirty = false
	s.mu.Unlock()

	req := dto.SaveProgressRequest{Answers: sheet, TimeRemaining: &remaining}
	err := s.client.SaveProgress(ctx, s.cfg.TestID, attemptID, req)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadySubmitted):
		// Completed on the server; stop auto-saving.
		s.mu.Lock()
		s.submitted = true
		s.mu.Unlock()
	case errors.Is(err, ErrTransient):
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("session: save failed, will retry on heartbeat")
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
	default:
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("session: save rejected")
	}
}

// Submit finalizes the attempt. Subsequent calls (including the tick handler
// racing a manual submit) return the first call's outcome.
func (s *Session) Submit(ctx context.Context) (*dto.SubmitResponse, error) {
	s.submitOnce.Do(func() {
		s.mu.Lock()
		attemptID := s.attemptID
		sheet := make(map[string]uint, len(s.answers))
		for k, v := range s.answers {
			sheet[k] = v
		}
		s.submitted = true
		s.mu.Unlock()

		resp, err := s.client.Submit(ctx, s.cfg.TestID, attemptID, dto.SubmitRequest{Answers: sheet})
		if err != nil {
			s.submitErr = err
			return
		}
		s.submitResp = resp
		if cerr := s.cache.Clear(s.cfg.TestID, s.cfg.UserID); cerr != nil {
			log.Warn().Err(cerr).Msg("session: clearing cache after submit failed")
		}
		log.Info().Uint("attemptID", attemptID).Int("score", resp.Score).Msg("session: attempt submitted")
	})
	return s.submitResp, s.submitErr
}

func (s *Session) persistCache() {
	s.mu.Lock()
	state := CachedState{
		Answers:      make(map[string]uint, len(s.answers)),
		StartTime:    s.startedAt,
		AttemptID:    s.attemptID,
		CurrentIndex: s.currentIndex,
		Timestamp:    time.Now(),
	}
	for k, v := range s.answers {
		state.Answers[k] = v
	}
	testID, userID := s.cfg.TestID, s.cfg.UserID
	s.mu.Unlock()

	if err := s.cache.Save(testID, userID, state); err != nil {
		log.Warn().Err(err).Msg("session: cache write failed")
	}
}
