package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	TestStatusEnabled  = "ENABLED"
	TestStatusDisabled = "DISABLED"
)

type Test struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Title        string         `json:"title" gorm:"not null;uniqueIndex"` // "CSC 101 First CA"
	DurationMins int            `json:"duration_mins" gorm:"not null"`
	Status       string         `json:"status" gorm:"not null;default:'DISABLED'"` // "ENABLED" or "DISABLED"; gates student visibility
	Questions    []Question     `json:"questions,omitempty" gorm:"foreignKey:TestID"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
