package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavemandarin/mandarin_school/models"
)

func TestDueForReminder(t *testing.T) {
	// 2025-03-01 09:00 in Shanghai
	now := time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC)
	student := &models.UserProfile{Name: "Anna", Email: "anna@example.com"}
	sent := now.Add(-time.Minute)

	schedule := func(start string) models.ClassSchedule {
		return models.ClassSchedule{
			ID:            uuid.New(),
			ScheduledDate: "2025-03-01",
			StartTime:     start,
			Timezone:      models.DefaultScheduleTimezone,
			Status:        models.ScheduleScheduled,
			Student:       student,
		}
	}

	soon := schedule("09:45")
	edge := schedule("10:00")
	later := schedule("10:30")
	past := schedule("08:30")
	reminded := schedule("09:30")
	reminded.ReminderSentAt = &sent
	cancelled := schedule("09:20")
	cancelled.Status = models.ScheduleCancelled
	noStudent := schedule("09:10")
	noStudent.Student = nil

	due := dueForReminder([]models.ClassSchedule{soon, edge, later, past, reminded, cancelled, noStudent}, now, ReminderLead)

	ids := make([]uuid.UUID, 0, len(due))
	for _, s := range due {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{soon.ID, edge.ID}, ids)
}

func TestRemindersReachSchedulesOutsideSchoolTimezone(t *testing.T) {
	// 12:00 in New York is already the next day in Shanghai
	now := time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC)
	nyClass := models.ClassSchedule{
		ID:            uuid.New(),
		ScheduledDate: "2025-03-01",
		StartTime:     "12:30",
		Timezone:      "America/New_York",
		Status:        models.ScheduleScheduled,
		Student:       &models.UserProfile{Name: "Jo", Email: "jo@example.com"},
	}
	require.Equal(t, "2025-03-02", models.SchoolDate(now))

	from, to := reminderDateWindow(now, ReminderLead)
	assert.LessOrEqual(t, from, nyClass.ScheduledDate)
	assert.GreaterOrEqual(t, to, nyClass.ScheduledDate)

	due := dueForReminder([]models.ClassSchedule{nyClass}, now, ReminderLead)
	require.Len(t, due, 1)
	assert.Equal(t, nyClass.ID, due[0].ID)
}

func TestReminderDateWindowCoversFarTimezones(t *testing.T) {
	now := time.Date(2025, 3, 1, 11, 30, 0, 0, time.UTC)
	from, to := reminderDateWindow(now, ReminderLead)
	for _, tz := range []string{"Pacific/Pago_Pago", "America/Los_Angeles", "Europe/London", "Asia/Shanghai", "Pacific/Kiritimati"} {
		loc, err := time.LoadLocation(tz)
		require.NoError(t, err)
		for _, at := range []time.Time{now, now.Add(ReminderLead)} {
			local := at.In(loc).Format("2006-01-02")
			assert.LessOrEqual(t, from, local, tz)
			assert.GreaterOrEqual(t, to, local, tz)
		}
	}
}

type fakeExpirer struct {
	calls  int
	maxAge time.Duration
}

func (f *fakeExpirer) ExpireStale(_ context.Context, maxAge time.Duration) (int64, error) {
	f.calls++
	f.maxAge = maxAge
	return 2, nil
}

func TestExpireStaleOrders(t *testing.T) {
	f := &fakeExpirer{}
	ExpireStaleOrders(f, 7)()
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, 7*24*time.Hour, f.maxAge)

	disabled := &fakeExpirer{}
	ExpireStaleOrders(disabled, 0)()
	assert.Zero(t, disabled.calls)
}
