package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

type User struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	Username   string         `json:"username" gorm:"not null;uniqueIndex"` // Also used as the student ID in exports
	Email      string         `json:"email" gorm:"not null;uniqueIndex"`
	Password   string         `json:"-" gorm:"not null"` // bcrypt hash
	FirstName  string         `json:"first_name"`
	MiddleName string         `json:"middle_name,omitempty"`
	LastName   string         `json:"last_name"`
	Role       string         `json:"role" gorm:"not null;default:'student'"` // "admin" or "student"
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// FullName joins the name parts, skipping an empty middle name.
func (u User) FullName() string {
	parts := []string{u.FirstName, u.MiddleName, u.LastName}
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
