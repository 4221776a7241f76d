package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StudentClassBalance tracks purchased vs consumed lesson credits.
// TotalClasses and UsedClasses are authoritative; RemainingClasses is derived on every save.
type StudentClassBalance struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	StudentID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"student_id"`
	TotalClasses     int       `gorm:"not null;default:0" json:"total_classes"`
	UsedClasses      int       `gorm:"not null;default:0" json:"used_classes"`
	RemainingClasses int       `gorm:"not null;default:0" json:"remaining_classes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (StudentClassBalance) TableName() string {
	return "student_class_balance"
}

func (b *StudentClassBalance) Recalculate() {
	b.RemainingClasses = b.TotalClasses - b.UsedClasses
}

// Credit adds purchased classes.
func (b *StudentClassBalance) Credit(classes int) {
	b.TotalClasses += classes
	b.Recalculate()
}

func (b *StudentClassBalance) BeforeSave(tx *gorm.DB) error {
	b.Recalculate()
	return nil
}
