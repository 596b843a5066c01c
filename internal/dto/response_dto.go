package dto

import "time"

type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type UserDTO struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// TestSummaryDTO is the student-facing test listing entry, including where the
// caller stands on it (ABSENT, IN_PROGRESS or COMPLETED).
type TestSummaryDTO struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	DurationMins  int       `json:"duration_mins"`
	QuestionCount int       `json:"question_count"`
	AttemptStatus string    `json:"attempt_status"`
	CreatedAt     time.Time `json:"created_at"`
}

// OptionDTO deliberately omits the correct flag: students must never see it.
type OptionDTO struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type QuestionDTO struct {
	ID      uint        `json:"id"`
	Text    string      `json:"text"`
	Options []OptionDTO `json:"options"`
}

// QuestionsResponse is the shuffled-per-user question set for one test.
type QuestionsResponse struct {
	Questions []QuestionDTO `json:"questions"`
}

// InitAttemptResponse is the canonical server truth the client reconciles
// against: StartedAt and AttemptID always win over any local cache.
type InitAttemptResponse struct {
	Resumed       bool            `json:"resumed"`
	AttemptID     uint            `json:"attempt_id"`
	StartedAt     time.Time       `json:"started_at"`
	TimeRemaining int             `json:"time_remaining"`
	Answers       map[string]uint `json:"answers,omitempty"`
}

type SaveProgressResponse struct {
	Success bool `json:"success"`
}

type SubmitResponse struct {
	Success        bool    `json:"success"`
	Score          int     `json:"score"`
	TotalQuestions int     `json:"total_questions"`
	Percentage     float64 `json:"percentage"`
}

type ResetResponse struct {
	Success bool `json:"success"`
}
