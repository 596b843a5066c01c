package dto

import "time"

// OptionCreateDTO is used within QuestionCreateDTO for admin test authoring.
type OptionCreateDTO struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionCreateDTO requires at least two options; the service additionally
// enforces exactly one correct option per question.
type QuestionCreateDTO struct {
	Text    string            `json:"text" binding:"required"`
	Options []OptionCreateDTO `json:"options" binding:"required,min=2,dive"`
}

// TestCreateDTO is for an admin to create a new test with all its questions.
type TestCreateDTO struct {
	Title        string              `json:"title" binding:"required"`
	DurationMins int                 `json:"duration_mins" binding:"required,min=1"`
	Status       string              `json:"status" binding:"omitempty,oneof=ENABLED DISABLED"`
	Questions    []QuestionCreateDTO `json:"questions" binding:"required,min=1,dive"`
}

// AdminOptionDTO includes the correct flag; it is only ever returned to admins.
type AdminOptionDTO struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type AdminQuestionDTO struct {
	ID      uint             `json:"id"`
	TestID  uint             `json:"test_id"`
	Text    string           `json:"text"`
	Options []AdminOptionDTO `json:"options"`
}

type AdminTestDTO struct {
	ID           uint               `json:"id"`
	Title        string             `json:"title"`
	DurationMins int                `json:"duration_mins"`
	Status       string             `json:"status"`
	Questions    []AdminQuestionDTO `json:"questions,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// AttemptSummaryDTO is one row of the admin attempt listing for a test.
type AttemptSummaryDTO struct {
	ID            uint       `json:"id"`
	UserID        uint       `json:"user_id"`
	StudentName   string     `json:"student_name"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Score         *int       `json:"score,omitempty"`
	AnsweredCount int        `json:"answered_count"`
	Status        string     `json:"status"` // IN_PROGRESS or COMPLETED
}
