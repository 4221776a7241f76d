package models

import (
	"time"

	"github.com/google/uuid"
)

type UserCourseEnrollment struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	CourseID   uuid.UUID `gorm:"type:uuid;not null" json:"course_id"`
	EnrolledAt time.Time `gorm:"not null" json:"enrolled_at"`
}
