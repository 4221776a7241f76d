package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	InquiryPending   = "pending"
	InquiryContacted = "contacted"
	InquiryCompleted = "completed"
)

// BookingInquiry comes from the public booking form and is not linked to orders.
type BookingInquiry struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Email         string    `gorm:"size:255;not null" json:"email"`
	Phone         string    `gorm:"size:50;not null" json:"phone"`
	CourseID      string    `gorm:"size:50" json:"course_id"`
	Level         string    `gorm:"size:30" json:"level"`
	PreferredDate string    `gorm:"size:10" json:"preferred_date"`
	PreferredTime string    `gorm:"size:5" json:"preferred_time"`
	Message       string    `gorm:"type:text" json:"message"`
	Status        string    `gorm:"size:20;not null;default:'pending'" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
