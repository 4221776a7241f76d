package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type OrderExpirer interface {
	ExpireStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// ExpireStaleOrders returns the cron func that cancels orders still pending after days.
// A non-positive days disables it.
func ExpireStaleOrders(orders OrderExpirer, days int) func() {
	return func() {
		if days <= 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := orders.ExpireStale(ctx, time.Duration(days)*24*time.Hour)
		if err != nil {
			logrus.WithError(err).Error("Failed to expire stale orders")
			return
		}
		if n > 0 {
			logrus.WithFields(logrus.Fields{"count": n, "max_age_days": days}).Info("Cancelled stale pending orders")
		}
	}
}
