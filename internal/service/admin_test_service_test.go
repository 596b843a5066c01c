package service

import (
	"errors"
	"testing"

	"github.com/lshigami/Quolls/internal/dto"
)

// Authoring validation runs before the repository is touched, so a nil repo is
// enough to exercise the rejection paths.
func TestCreateTest_CorrectOptionValidation(t *testing.T) {
	tests := []struct {
		name    string
		options []dto.OptionCreateDTO
	}{
		{
			name: "no correct option",
			options: []dto.OptionCreateDTO{
				{Text: "A"}, {Text: "B"},
			},
		},
		{
			name: "two correct options",
			options: []dto.OptionCreateDTO{
				{Text: "A", IsCorrect: true},
				{Text: "B", IsCorrect: true},
				{Text: "C"},
			},
		},
	}

	svc := NewAdminTestService(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := dto.TestCreateDTO{
				Title:        "Sample Test",
				DurationMins: 30,
				Questions: []dto.QuestionCreateDTO{
					{Text: "Q1", Options: tt.options},
				},
			}
			_, err := svc.CreateTest(req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("CreateTest() error = %v, want ErrValidation", err)
			}
		})
	}
}
