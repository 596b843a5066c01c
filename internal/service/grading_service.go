package service

import "math"

// GradeResult is the outcome of grading one submitted answer sheet.
type GradeResult struct {
	// PerQuestion maps every question of the test to whether the submitted
	// choice matched its correct option. Unanswered questions are present and
	// false.
	PerQuestion map[uint]bool
	Correct     int
	Total       int
}

// GradingService compares a submitted sheet against the authoritative correct
// options. The stored score is the raw correct count; percentages are a
// presentation concern derived in exactly one place (Percentage) so the
// submit path and the CSV export can never drift apart.
type GradingService interface {
	Grade(correctByQuestion map[uint]uint, submitted map[uint]uint) GradeResult
	Percentage(correct, total int) float64
}

type gradingService struct{}

func NewGradingService() GradingService {
	return &gradingService{}
}

// Grade never fails: answers referencing a question outside the test, or an
// option that is not that question's correct one, simply don't score.
func (g *gradingService) Grade(correctByQuestion map[uint]uint, submitted map[uint]uint) GradeResult {
	result := GradeResult{
		PerQuestion: make(map[uint]bool, len(correctByQuestion)),
		Total:       len(correctByQuestion),
	}
	for questionID, correctOptionID := range correctByQuestion {
		chosen, answered := submitted[questionID]
		ok := answered && chosen == correctOptionID
		result.PerQuestion[questionID] = ok
		if ok {
			result.Correct++
		}
	}
	return result
}

func (g *gradingService) Percentage(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(correct) / float64(total) * 100
	return math.Round(pct*100) / 100
}
