package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser    = "user"
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// UserProfile is the application-level record for an authenticated identity.
// UserID is the auth provider's id; every other table references ID.
type UserProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Name   string    `gorm:"size:255" json:"name"`
	Email  string    `gorm:"size:255;index" json:"email"`
	Phone  string    `gorm:"size:50" json:"phone"`
	Role   string    `gorm:"size:20;not null;default:'user'" json:"role"`

	ClassBalance *StudentClassBalance `gorm:"foreignKey:StudentID" json:"student_class_balance,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
