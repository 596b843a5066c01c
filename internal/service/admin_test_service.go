package service

import (
	"errors"
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/lshigami/Quolls/internal/dto"
	"github.com/lshigami/Quolls/internal/model"
	"github.com/lshigami/Quolls/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type AdminTestService interface {
	CreateTest(req dto.TestCreateDTO) (*dto.AdminTestDTO, error)
	UpdateStatus(testID uint, status string) error
	GetTest(testID uint) (*dto.AdminTestDTO, error)
}

type adminTestService struct {
	testRepo repository.TestRepository
}

func NewAdminTestService(testRepo repository.TestRepository) AdminTestService {
	return &adminTestService{testRepo: testRepo}
}

// CreateTest validates what the binding tags cannot: every question must carry
// exactly one correct option. Grading tolerates violations in old data, but
// new authoring is held to the invariant.
func (s *adminTestService) CreateTest(req dto.TestCreateDTO) (*dto.AdminTestDTO, error) {
	questions := make([]model.Question, 0, len(req.Questions))
	for i, qDto := range req.Questions {
		correctCount := 0
		options := make([]model.Option, 0, len(qDto.Options))
		for _, oDto := range qDto.Options {
			if oDto.IsCorrect {
				correctCount++
			}
			options = append(options, model.Option{Text: oDto.Text, IsCorrect: oDto.IsCorrect})
		}
		if correctCount != 1 {
			return nil, fmt.Errorf("question %d must have exactly one correct option, got %d: %w",
				i+1, correctCount, ErrValidation)
		}
		questions = append(questions, model.Question{Text: qDto.Text, Options: options})
	}

	status := req.Status
	if status == "" {
		status = model.TestStatusDisabled
	}
	test := model.Test{
		Title:        req.Title,
		DurationMins: req.DurationMins,
		Status:       status,
		Questions:    questions,
	}
	if err := s.testRepo.Create(&test); err != nil {
		log.Error().Err(err).Str("title", req.Title).Msg("CreateTest: database error")
		return nil, fmt.Errorf("creating test %q: %w", req.Title, err)
	}

	created, err := s.testRepo.FindByIDWithQuestions(test.ID)
	if err != nil {
		log.Error().Err(err).Uint("testID", test.ID).Msg("CreateTest: reload after create failed")
		created = &test
	}
	return toAdminTestDTO(created), nil
}

func (s *adminTestService) UpdateStatus(testID uint, status string) error {
	if err := s.testRepo.UpdateStatus(testID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("test %d: %w", testID, ErrNotFound)
		}
		return fmt.Errorf("updating status of test %d: %w", testID, err)
	}
	log.Info().Uint("testID", testID).Str("status", status).Msg("UpdateStatus: test visibility changed")
	return nil
}

func (s *adminTestService) GetTest(testID uint) (*dto.AdminTestDTO, error) {
	test, err := s.testRepo.FindByIDWithQuestions(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("test %d: %w", testID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading test %d: %w", testID, err)
	}
	return toAdminTestDTO(test), nil
}

func toAdminTestDTO(test *model.Test) *dto.AdminTestDTO {
	var resp dto.AdminTestDTO
	if err := copier.Copy(&resp, test); err != nil {
		log.Error().Err(err).Uint("testID", test.ID).Msg("toAdminTestDTO: copy failed")
	}
	return &resp
}
