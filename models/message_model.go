package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a direct note between a student and a teacher. Both ends are
// auth user ids for students and admin account ids for teachers.
type Message struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FromUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"from_user_id"`
	ToUserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"to_user_id"`
	Subject    string    `gorm:"size:255" json:"subject"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsRead     bool      `gorm:"default:false" json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}
