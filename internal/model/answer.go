package model

import "time"

// Answer is the immutable audit record written once, inside the finalize
// transaction. Rows are never updated; an admin reset deletes them before
// deleting their attempt (child first, then parent).
type Answer struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	AttemptID  uint      `json:"attempt_id" gorm:"not null;index"`
	UserID     uint      `json:"user_id" gorm:"not null;index"`
	QuestionID uint      `json:"question_id" gorm:"not null;index"`
	Question   Question  `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	OptionID   uint      `json:"option_id" gorm:"not null"`
	Option     Option    `json:"option,omitempty" gorm:"foreignKey:OptionID"`
	IsCorrect  bool      `json:"is_correct" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
}
