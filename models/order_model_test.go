package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderPending, OrderPaid, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderPendingConfirmation, true},
		{OrderPendingConfirmation, OrderPaid, true},
		{OrderPendingConfirmation, OrderCancelled, true},
		{OrderPendingConfirmation, OrderPending, false},
		{OrderPaid, OrderRefunded, true},
		{OrderPaid, OrderPending, false},
		{OrderPaid, OrderCancelled, false},
		{OrderCancelled, OrderPaid, false},
		{OrderRefunded, OrderPaid, false},
		{OrderPaid, OrderPaid, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.False(t, OrderStatus("shipped").Valid())
}

func TestClassBalanceRemainingIsDerived(t *testing.T) {
	b := StudentClassBalance{TotalClasses: 10, UsedClasses: 3, RemainingClasses: 99}
	assert.NoError(t, b.BeforeSave(nil))
	assert.Equal(t, 7, b.RemainingClasses)

	b.Credit(20)
	assert.Equal(t, 30, b.TotalClasses)
	assert.Equal(t, 27, b.RemainingClasses)
}

func TestScheduleStartsAt(t *testing.T) {
	s := ClassSchedule{ScheduledDate: "2025-03-01", StartTime: "09:30", Timezone: DefaultScheduleTimezone}
	at, err := s.StartsAt()
	assert.NoError(t, err)
	assert.Equal(t, "2025-03-01T01:30:00Z", at.UTC().Format("2006-01-02T15:04:05Z"))
}

func TestSchoolDateUsesShanghai(t *testing.T) {
	late := time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-02", SchoolDate(late))
}

func TestCoursePackageExposesPricePerClass(t *testing.T) {
	p := CoursePackage{Price: decimal.NewFromInt(8330), ClassCount: 35}
	assert.NoError(t, p.AfterFind(nil))
	assert.Equal(t, "238", p.PerClass.String())

	trial := CoursePackage{Price: decimal.Zero, ClassCount: 0}
	assert.NoError(t, trial.AfterSave(nil))
	assert.True(t, trial.PerClass.IsZero())
}
