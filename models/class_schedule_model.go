package models

import (
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
)

const DefaultScheduleTimezone = "Asia/Shanghai"

const (
	ScheduleScheduled = "scheduled"
	ScheduleCompleted = "completed"
	ScheduleCancelled = "cancelled"
)

// ClassSchedule is a calendar entry created by staff. Dates are YYYY-MM-DD and
// times HH:MM in Timezone.
type ClassSchedule struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CourseID       *uuid.UUID `gorm:"type:uuid;index" json:"course_id"`
	TeacherName    *string    `gorm:"size:255" json:"teacher_name"`
	ScheduledDate  string     `gorm:"size:10;not null;index" json:"scheduled_date"`
	StartTime      string     `gorm:"size:5;not null" json:"start_time"`
	EndTime        string     `gorm:"size:5;not null" json:"end_time"`
	Timezone       string     `gorm:"size:64;not null;default:'Asia/Shanghai'" json:"timezone"`
	StudentID      *uuid.UUID `gorm:"type:uuid;index" json:"student_id"`
	Status         string     `gorm:"size:20;not null;default:'scheduled'" json:"status"`
	Notes          *string    `gorm:"type:text" json:"notes"`
	ReminderSentAt *time.Time `json:"-"`

	Course  *Course      `gorm:"foreignKey:CourseID" json:"courses,omitempty"`
	Student *UserProfile `gorm:"foreignKey:StudentID" json:"student,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StartsAt resolves the local date and start time into an absolute instant.
func (s *ClassSchedule) StartsAt() (time.Time, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation("2006-01-02 15:04", s.ScheduledDate+" "+s.StartTime, loc)
}

// SchoolDate is the YYYY-MM-DD calendar date of t in the school's timezone.
func SchoolDate(t time.Time) string {
	loc, err := time.LoadLocation(DefaultScheduleTimezone)
	if err != nil {
		loc = time.FixedZone("CST", 8*60*60)
	}
	return t.In(loc).Format("2006-01-02")
}
