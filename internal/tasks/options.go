package tasks

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

// ValidateSchedule checks a standard cron spec or descriptor such as "@every 1m".
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// NextRun returns the first activation of spec after from.
func NextRun(spec string, from time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return schedule.Next(from), nil
}

// PreviousDay returns the calendar day before now in now's location.
func PreviousDay(now time.Time) (since, until time.Time) {
	y, m, d := now.Date()
	until = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return until.AddDate(0, 0, -1), until
}

func refillOptions() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(RetryMin),
		asynq.Timeout(TimeoutMedium),
		// A slow run must not pile up behind itself.
		asynq.Unique(TimeoutMedium),
	}
}

func archiveOptions() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(QueueLow),
		asynq.MaxRetry(RetryDefault),
		asynq.Timeout(TimeoutLong),
	}
}
