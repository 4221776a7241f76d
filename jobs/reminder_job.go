package jobs

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wavemandarin/mandarin_school/database"
	"github.com/wavemandarin/mandarin_school/models"
	"github.com/wavemandarin/mandarin_school/notifications"
)

const ReminderLead = time.Hour

// dueForReminder picks classes starting within lead of now that have not been reminded yet.
func dueForReminder(schedules []models.ClassSchedule, now time.Time, lead time.Duration) []models.ClassSchedule {
	var due []models.ClassSchedule
	for _, s := range schedules {
		if s.ReminderSentAt != nil || s.Status != models.ScheduleScheduled || s.Student == nil {
			continue
		}
		startsAt, err := s.StartsAt()
		if err != nil {
			logrus.WithError(err).WithField("schedule_id", s.ID).Warn("Skipping schedule with unreadable start time")
			continue
		}
		if startsAt.After(now) && !startsAt.After(now.Add(lead)) {
			due = append(due, s)
		}
	}
	return due
}

// reminderDateWindow bounds the scheduled_date prefilter. Schedules keep dates in their
// own timezone, which can sit a calendar day either side of the school's, so the window
// is padded by a day and dueForReminder does the exact check.
func reminderDateWindow(now time.Time, lead time.Duration) (from, to string) {
	return models.SchoolDate(now.Add(-24 * time.Hour)), models.SchoolDate(now.Add(lead + 24*time.Hour))
}

func SendClassReminders() {
	log := logrus.WithField("job", "class_reminders")
	now := time.Now()

	from, to := reminderDateWindow(now, ReminderLead)

	var schedules []models.ClassSchedule
	err := database.DB.
		Preload("Student").
		Where("status = ? AND reminder_sent_at IS NULL AND student_id IS NOT NULL AND scheduled_date BETWEEN ? AND ?",
			models.ScheduleScheduled, from, to).
		Find(&schedules).Error
	if err != nil {
		log.WithError(err).Error("Error checking for upcoming classes")
		return
	}

	due := dueForReminder(schedules, now, ReminderLead)
	for _, s := range due {
		teacher := ""
		if s.TeacherName != nil {
			teacher = *s.TeacherName
		}
		subject, body := notifications.ClassReminderEmail(s.Student.Name, s.ScheduledDate, s.StartTime, s.Timezone, teacher)
		go notifications.SendEmail(s.Student.Name, s.Student.Email, subject, body)

		if err := database.DB.Model(&models.ClassSchedule{}).Where("id = ?", s.ID).
			Update("reminder_sent_at", now).Error; err != nil {
			log.WithError(err).WithField("schedule_id", s.ID).Error("Failed to mark reminder as sent")
		}
	}
	if len(due) > 0 {
		log.WithField("count", len(due)).Info("Class reminders sent")
	}
}
