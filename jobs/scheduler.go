package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// RunEvery calls fn on every tick until ctx is done. With immediate set, fn
// also runs once before the first tick. Returns when ctx is cancelled.
func RunEvery(ctx context.Context, name string, interval time.Duration, immediate bool, fn func(ctx context.Context)) {
	if interval <= 0 {
		logrus.WithField("job", name).Warn("Job disabled: non-positive interval")
		return
	}

	logrus.WithFields(logrus.Fields{
		"job":      name,
		"interval": interval.String(),
	}).Info("Scheduling job")

	if immediate {
		fn(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.WithField("job", name).Info("Job stopped")
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
