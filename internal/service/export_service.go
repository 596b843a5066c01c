package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lshigami/Quolls/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ExportService renders one CSV row per attempt on a test. The score column
// is the percentage derived through GradingService.Percentage from the stored
// raw count, the same derivation the submit path reports.
type ExportService interface {
	ExportAttemptsCSV(testID uint) (filename string, data []byte, err error)
}

type exportService struct {
	testRepo     repository.TestRepository
	questionRepo repository.QuestionRepository
	attemptRepo  repository.AttemptRepository
	grading      GradingService
}

func NewExportService(
	testRepo repository.TestRepository,
	questionRepo repository.QuestionRepository,
	attemptRepo repository.AttemptRepository,
	grading GradingService,
) ExportService {
	return &exportService{
		testRepo:     testRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		grading:      grading,
	}
}

var exportHeader = []string{
	"S/N", "Student Name", "Student ID", "Email", "Course Name",
	"Total Questions", "Answered Questions", "Correct Answers", "Score (%)",
	"Start Time", "End Time", "Status",
}

func (s *exportService) ExportAttemptsCSV(testID uint) (string, []byte, error) {
	test, err := s.testRepo.FindByID(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, fmt.Errorf("test %d: %w", testID, ErrNotFound)
		}
		return "", nil, fmt.Errorf("loading test %d: %w", testID, err)
	}
	totalQuestions, err := s.questionRepo.CountByTestID(testID)
	if err != nil {
		return "", nil, fmt.Errorf("counting questions for test %d: %w", testID, err)
	}
	attempts, err := s.attemptRepo.FindAllByTestWithUser(testID)
	if err != nil {
		return "", nil, fmt.Errorf("listing attempts for test %d: %w", testID, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return "", nil, fmt.Errorf("writing csv header: %w", err)
	}

	for i, a := range attempts {
		correct := 0
		for _, rec := range a.AnswerRecords {
			if rec.IsCorrect {
				correct++
			}
		}
		answered := len(a.AnswerRecords)
		status := "IN_PROGRESS"
		endTime := "Not Completed"
		if a.Completed() {
			status = "COMPLETED"
			endTime = a.CompletedAt.Format(time.RFC3339)
		} else {
			answered = len(a.AnswerMap())
		}
		pct := s.grading.Percentage(correct, int(totalQuestions))

		row := []string{
			strconv.Itoa(i + 1),
			a.User.FullName(),
			a.User.Username,
			a.User.Email,
			test.Title,
			strconv.FormatInt(totalQuestions, 10),
			strconv.Itoa(answered),
			strconv.Itoa(correct),
			strconv.FormatFloat(pct, 'f', 2, 64),
			a.StartedAt.Format(time.RFC3339),
			endTime,
			status,
		}
		if err := w.Write(row); err != nil {
			return "", nil, fmt.Errorf("writing csv row for attempt %d: %w", a.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, fmt.Errorf("flushing csv for test %d: %w", testID, err)
	}

	log.Info().Uint("testID", testID).Int("rows", len(attempts)).Msg("ExportAttemptsCSV: export generated")
	return fmt.Sprintf("test-%d-results.csv", testID), buf.Bytes(), nil
}
