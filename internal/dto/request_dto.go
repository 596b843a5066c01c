package dto

// LoginRequest authenticates a seeded user and returns a session token.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SaveProgressRequest carries the in-progress answer sheet. Keys are question
// IDs (JSON object keys are strings), values are the chosen option IDs.
// TimeRemaining is an advisory cache only; the server never trusts it.
type SaveProgressRequest struct {
	Answers       map[string]uint `json:"answers" binding:"required"`
	TimeRemaining *int            `json:"time_remaining" binding:"omitempty,min=0"`
}

// SubmitRequest finalizes an attempt with the full answer sheet.
type SubmitRequest struct {
	Answers map[string]uint `json:"answers" binding:"required"`
}

// ResetAttemptRequest wipes one user's attempt on a test (admin only).
type ResetAttemptRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// UpdateTestStatusRequest toggles student visibility of a test.
type UpdateTestStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ENABLED DISABLED"`
}
