package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lshigami/Quolls/internal/dto"
	"github.com/lshigami/Quolls/internal/model"
	"github.com/lshigami/Quolls/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AttemptService is the server-side attempt state machine:
// ABSENT -> IN_PROGRESS -> COMPLETED, with COMPLETED terminal. All remaining
// time answered here is recomputed from StartedAt; the stored TimeRemaining
// column is only a client-written advisory cache.
type AttemptService interface {
	Initiate(userID, testID uint) (*dto.InitAttemptResponse, error)
	SaveProgress(userID, testID, attemptID uint, req dto.SaveProgressRequest) error
	Submit(userID, testID, attemptID uint, req dto.SubmitRequest) (*dto.SubmitResponse, error)
	Reset(testID, userID uint) error
	ListAttempts(testID uint) ([]dto.AttemptSummaryDTO, error)
}

type attemptService struct {
	testRepo     repository.TestRepository
	questionRepo repository.QuestionRepository
	attemptRepo  repository.AttemptRepository
	answerRepo   repository.AnswerRepository
	grading      GradingService
	db           *gorm.DB // transactions for finalize and reset
	now          func() time.Time
}

func NewAttemptService(
	testRepo repository.TestRepository,
	questionRepo repository.QuestionRepository,
	attemptRepo repository.AttemptRepository,
	answerRepo repository.AnswerRepository,
	grading GradingService,
	db *gorm.DB,
) AttemptService {
	return &attemptService{
		testRepo:     testRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		answerRepo:   answerRepo,
		grading:      grading,
		db:           db,
		now:          time.Now,
	}
}

// Initiate creates the attempt on first call and resumes it unchanged on every
// later one. Resume must return the original StartedAt: remaining time is
// derived from it, so handing back a fresh timestamp would let a student reset
// the clock by reconnecting. Creation goes through an insert-on-conflict
// no-op, so duplicate tabs racing each other still end with exactly one row.
func (s *attemptService) Initiate(userID, testID uint) (*dto.InitAttemptResponse, error) {
	test, err := s.testRepo.FindByID(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("test %d: %w", testID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading test %d: %w", testID, err)
	}
	if test.Status != model.TestStatusEnabled {
		// A disabled test is invisible to students.
		return nil, fmt.Errorf("test %d not enabled: %w", testID, ErrNotFound)
	}

	existing, err := s.attemptRepo.FindByUserAndTest(userID, testID)
	if err == nil {
		if existing.Completed() {
			return nil, fmt.Errorf("attempt %d: %w", existing.ID, ErrAlreadyCompleted)
		}
		log.Info().Uint("userID", userID).Uint("testID", testID).Uint("attemptID", existing.ID).
			Msg("Initiate: resuming in-progress attempt")
		return s.initResponse(existing, test, true), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("looking up attempt for user %d test %d: %w", userID, testID, err)
	}

	attempt := model.Attempt{
		UserID:        userID,
		TestID:        testID,
		StartedAt:     s.now().UTC(),
		Answers:       model.ToJSONMap(nil),
		TimeRemaining: test.DurationMins * 60,
	}
	if err := s.attemptRepo.CreateIfAbsent(&attempt); err != nil {
		return nil, fmt.Errorf("creating attempt for user %d test %d: %w", userID, testID, err)
	}

	// Re-read the canonical row: if a concurrent Initiate won the insert, the
	// conflict clause turned ours into a no-op and the winner's row is truth.
	canonical, err := s.attemptRepo.FindByUserAndTest(userID, testID)
	if err != nil {
		return nil, fmt.Errorf("reloading attempt for user %d test %d: %w", userID, testID, err)
	}
	if canonical.Completed() {
		return nil, fmt.Errorf("attempt %d: %w", canonical.ID, ErrAlreadyCompleted)
	}
	resumed := attempt.ID == 0 || canonical.ID != attempt.ID
	if !resumed {
		log.Info().Uint("userID", userID).Uint("testID", testID).Uint("attemptID", canonical.ID).
			Msg("Initiate: new attempt created")
	}
	return s.initResponse(canonical, test, resumed), nil
}

func (s *attemptService) initResponse(attempt *model.Attempt, test *model.Test, resumed bool) *dto.InitAttemptResponse {
	answers := make(map[string]uint)
	for qid, oid := range attempt.AnswerMap() {
		answers[strconv.FormatUint(uint64(qid), 10)] = oid
	}
	return &dto.InitAttemptResponse{
		Resumed:       resumed,
		AttemptID:     attempt.ID,
		StartedAt:     attempt.StartedAt,
		TimeRemaining: remainingSeconds(attempt.StartedAt, test.DurationMins, s.now()),
		Answers:       answers,
	}
}

// remainingSeconds is the single authoritative remaining-time computation,
// clamped at zero.
func remainingSeconds(startedAt time.Time, durationMins int, now time.Time) int {
	elapsed := int(now.Sub(startedAt).Seconds())
	remaining := durationMins*60 - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SaveProgress merges the submitted sheet into the stored one, last writer
// wins per question key. The merge itself happens in the database as a jsonb
// concatenation, so two racing saves with disjoint keys both land instead of
// one overwriting the other. It must fail loudly once the attempt is completed
// so clients know to stop auto-saving; a silent no-op would mask the
// transition.
func (s *attemptService) SaveProgress(userID, testID, attemptID uint, req dto.SaveProgressRequest) error {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("attempt %d: %w", attemptID, ErrNotFound)
		}
		return fmt.Errorf("loading attempt %d: %w", attemptID, err)
	}
	if attempt.UserID != userID || attempt.TestID != testID {
		// Don't leak whether somebody else's attempt exists.
		return fmt.Errorf("attempt %d: %w", attemptID, ErrNotFound)
	}
	if attempt.Completed() {
		return fmt.Errorf("attempt %d: %w", attemptID, ErrAlreadyCompleted)
	}

	incoming, err := mergeSheet(nil, req.Answers)
	if err != nil {
		return err
	}

	rows, err := s.attemptRepo.MergeProgress(attemptID, userID, model.ToJSONMap(incoming), req.TimeRemaining)
	if err != nil {
		return fmt.Errorf("saving progress for attempt %d: %w", attemptID, err)
	}
	if rows == 0 {
		// Completed between our read and the guarded update.
		return fmt.Errorf("attempt %d: %w", attemptID, ErrAlreadyCompleted)
	}
	return nil
}

func mergeSheet(current map[uint]uint, incoming map[string]uint) (map[uint]uint, error) {
	merged := make(map[uint]uint, len(current)+len(incoming))
	for qid, oid := range current {
		merged[qid] = oid
	}
	for key, oid := range incoming {
		qid, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("answer key %q is not a question id: %w", key, ErrValidation)
		}
		merged[uint(qid)] = oid
	}
	return merged, nil
}

// Submit is the one-way transition to COMPLETED. The whole thing runs in a
// single transaction with the attempt row locked FOR UPDATE: of two
// concurrent submits, the second observes completed_at already set and fails
// without touching score or answer rows. Submitted pairs referencing a
// question outside the test, or an option not belonging to that question, are
// dropped rather than failing the submission.
func (s *attemptService) Submit(userID, testID, attemptID uint, req dto.SubmitRequest) (*dto.SubmitResponse, error) {
	submitted, err := mergeSheet(nil, req.Answers)
	if err != nil {
		return nil, err
	}

	questions, err := s.questionRepo.FindByTestID(testID)
	if err != nil {
		return nil, fmt.Errorf("loading questions for test %d: %w", testID, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("test %d has no questions: %w", testID, ErrNotFound)
	}

	correctByQuestion := make(map[uint]uint, len(questions))
	optionOwner := make(map[uint]uint) // optionID -> questionID
	for _, q := range questions {
		if correct := q.CorrectOption(); correct != nil {
			correctByQuestion[q.ID] = correct.ID
		}
		for _, opt := range q.Options {
			optionOwner[opt.ID] = q.ID
		}
	}

	var resp *dto.SubmitResponse
	err = s.db.Transaction(func(tx *gorm.DB) error {
		attempt, err := s.attemptRepo.FindByIDForUpdate(tx, attemptID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("attempt %d: %w", attemptID, ErrNotFound)
			}
			return fmt.Errorf("locking attempt %d: %w", attemptID, err)
		}
		if attempt.UserID != userID || attempt.TestID != testID {
			return fmt.Errorf("attempt %d: %w", attemptID, ErrNotFound)
		}
		if attempt.Completed() {
			return fmt.Errorf("attempt %d: %w", attemptID, ErrAlreadyCompleted)
		}

		result := s.grading.Grade(correctByQuestion, submitted)

		answers := make([]model.Answer, 0, len(submitted))
		kept := make(map[uint]uint, len(submitted))
		for qid, oid := range submitted {
			if optionOwner[oid] != qid {
				log.Warn().Uint("questionID", qid).Uint("optionID", oid).Uint("testID", testID).
					Msg("Submit: answer references a question or option outside this test, skipping")
				continue
			}
			kept[qid] = oid
			answers = append(answers, model.Answer{
				AttemptID:  attempt.ID,
				UserID:     userID,
				QuestionID: qid,
				OptionID:   oid,
				IsCorrect:  oid == correctByQuestion[qid],
			})
		}

		if err := s.answerRepo.CreateBatch(tx, answers); err != nil {
			return fmt.Errorf("writing answer records for attempt %d: %w", attemptID, err)
		}

		completedAt := s.now().UTC()
		updates := map[string]interface{}{
			"answers":        model.ToJSONMap(kept),
			"score":          result.Correct,
			"completed_at":   completedAt,
			"time_remaining": 0,
		}
		if err := tx.Model(&model.Attempt{}).Where("id = ?", attempt.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("finalizing attempt %d: %w", attemptID, err)
		}

		resp = &dto.SubmitResponse{
			Success:        true,
			Score:          result.Correct,
			TotalQuestions: len(questions),
			Percentage:     s.grading.Percentage(result.Correct, len(questions)),
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("Submit: finalize failed")
		return nil, err
	}

	log.Info().Uint("attemptID", attemptID).Int("score", resp.Score).Int("total", resp.TotalQuestions).
		Msg("Submit: attempt graded and locked")
	return resp, nil
}

// Reset returns a user to ABSENT on one test: answer rows first, then the
// attempt rows that own them. Admin-only; the role gate lives in middleware.
func (s *attemptService) Reset(testID, userID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ids, err := s.attemptRepo.FindIDsByUserAndTest(tx, userID, testID)
		if err != nil {
			return fmt.Errorf("listing attempts for user %d test %d: %w", userID, testID, err)
		}
		if err := s.answerRepo.DeleteByAttemptIDs(tx, ids); err != nil {
			return fmt.Errorf("deleting answers for user %d test %d: %w", userID, testID, err)
		}
		if err := s.attemptRepo.DeleteByUserAndTest(tx, userID, testID); err != nil {
			return fmt.Errorf("deleting attempts for user %d test %d: %w", userID, testID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Uint("userID", userID).Uint("testID", testID).Msg("Reset: attempt and answers cleared")
	return nil
}

// ListAttempts returns all attempts on a test with student identity, for the
// admin monitoring view.
func (s *attemptService) ListAttempts(testID uint) ([]dto.AttemptSummaryDTO, error) {
	attempts, err := s.attemptRepo.FindAllByTestWithUser(testID)
	if err != nil {
		return nil, fmt.Errorf("listing attempts for test %d: %w", testID, err)
	}

	summaries := make([]dto.AttemptSummaryDTO, 0, len(attempts))
	for _, a := range attempts {
		status := "IN_PROGRESS"
		answered := len(a.AnswerMap())
		if a.Completed() {
			status = "COMPLETED"
			answered = len(a.AnswerRecords)
		}
		summaries = append(summaries, dto.AttemptSummaryDTO{
			ID:            a.ID,
			UserID:        a.UserID,
			StudentName:   a.User.FullName(),
			Username:      a.User.Username,
			Email:         a.User.Email,
			StartedAt:     a.StartedAt,
			CompletedAt:   a.CompletedAt,
			Score:         a.Score,
			AnsweredCount: answered,
			Status:        status,
		})
	}
	return summaries, nil
}
