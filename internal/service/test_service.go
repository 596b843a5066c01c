package service

import (
	"errors"
	"fmt"

	"github.com/lshigami/Quolls/internal/dto"
	"github.com/lshigami/Quolls/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// TestService is the student-facing read side: which tests are open, and the
// shuffled question set for one of them.
type TestService interface {
	GetAvailableTests(userID uint) ([]dto.TestSummaryDTO, error)
	GetShuffledQuestions(userID, testID uint) (*dto.QuestionsResponse, error)
}

type testService struct {
	testRepo    repository.TestRepository
	attemptRepo repository.AttemptRepository
	shuffle     ShuffleService
}

func NewTestService(testRepo repository.TestRepository, attemptRepo repository.AttemptRepository, shuffle ShuffleService) TestService {
	return &testService{testRepo: testRepo, attemptRepo: attemptRepo, shuffle: shuffle}
}

func (s *testService) GetAvailableTests(userID uint) ([]dto.TestSummaryDTO, error) {
	testsWithCount, err := s.testRepo.FindAllEnabledWithQuestionCount()
	if err != nil {
		log.Error().Err(err).Msg("GetAvailableTests: repository error")
		return nil, fmt.Errorf("fetching available tests: %w", err)
	}

	summaries := make([]dto.TestSummaryDTO, 0, len(testsWithCount))
	for _, twc := range testsWithCount {
		status := "ABSENT"
		attempt, err := s.attemptRepo.FindByUserAndTest(userID, twc.Test.ID)
		switch {
		case err == nil && attempt.Completed():
			status = "COMPLETED"
		case err == nil:
			status = "IN_PROGRESS"
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("checking attempt status for test %d: %w", twc.Test.ID, err)
		}
		summaries = append(summaries, dto.TestSummaryDTO{
			ID:            twc.Test.ID,
			Title:         twc.Test.Title,
			DurationMins:  twc.Test.DurationMins,
			QuestionCount: twc.QuestionCount,
			AttemptStatus: status,
			CreatedAt:     twc.Test.CreatedAt,
		})
	}
	return summaries, nil
}

// GetShuffledQuestions returns the test's questions in the caller's stable
// per-user order, options shuffled per question, with the correct flags
// stripped. The same user always gets the same order; reloading cannot
// re-shuffle.
func (s *testService) GetShuffledQuestions(userID, testID uint) (*dto.QuestionsResponse, error) {
	test, err := s.testRepo.FindEnabledByIDWithQuestions(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("test %d: %w", testID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading test %d: %w", testID, err)
	}

	seed := s.shuffle.AttemptSeed(userID, testID)
	shuffled := s.shuffle.ShuffleQuestions(test.Questions, seed)

	questions := make([]dto.QuestionDTO, 0, len(shuffled))
	for _, q := range shuffled {
		options := make([]dto.OptionDTO, 0, len(q.Options))
		for _, opt := range s.shuffle.ShuffleOptions(q.Options, seed, q.ID) {
			options = append(options, dto.OptionDTO{ID: opt.ID, Text: opt.Text})
		}
		questions = append(questions, dto.QuestionDTO{ID: q.ID, Text: q.Text, Options: options})
	}
	return &dto.QuestionsResponse{Questions: questions}, nil
}
