package tasks

import (
	"fmt"
	"time"

	"roleadmin/internal/config"
	"roleadmin/internal/utils/logger"

	"github.com/hibiken/asynq"
)

// Scheduler handles periodic task scheduling
type Scheduler struct {
	scheduler *asynq.Scheduler
	schedule  config.ScheduleConfig
	logger    *logger.Logger
}

// NewScheduler creates a new task scheduler running specs in schedule.Timezone.
func NewScheduler(redis config.RedisConfig, schedule config.ScheduleConfig, logger *logger.Logger) (*Scheduler, error) {
	loc := time.UTC
	if schedule.Timezone != "" {
		l, err := time.LoadLocation(schedule.Timezone)
		if err != nil {
			return nil, fmt.Errorf("loading schedule timezone: %w", err)
		}
		loc = l
	}

	scheduler := asynq.NewScheduler(redisOpt(redis), &asynq.SchedulerOpts{Location: loc})

	return &Scheduler{
		scheduler: scheduler,
		schedule:  schedule,
		logger:    logger,
	}, nil
}

// Start registers the periodic tasks and blocks until the scheduler stops.
func (s *Scheduler) Start() error {
	if err := s.registerTasks(); err != nil {
		return fmt.Errorf("failed to register tasks: %w", err)
	}

	s.logger.Info("starting task scheduler")
	return s.scheduler.Run()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Shutdown()
	s.logger.Info("task scheduler stopped")
}

// registerTasks registers all periodic tasks
func (s *Scheduler) registerTasks() error {
	entries := []struct {
		spec     string
		taskType string
		opts     []asynq.Option
	}{
		{s.schedule.Refill, TaskTypeBalanceRefill, refillOptions()},
		{s.schedule.Archive, TaskTypeTransactionsArchive, archiveOptions()},
	}
	for _, e := range entries {
		if e.spec == "" {
			s.logger.Info("%s has no schedule, not registering", e.taskType)
			continue
		}
		if err := ValidateSchedule(e.spec); err != nil {
			return err
		}
		if err := s.RegisterCustomTask(e.spec, e.taskType, nil, e.opts...); err != nil {
			return err
		}
	}
	s.logger.Info("registered all periodic tasks")
	return nil
}

// RegisterCustomTask registers a custom periodic task
func (s *Scheduler) RegisterCustomTask(spec string, taskType string, payload []byte, opts ...asynq.Option) error {
	entryID, err := s.scheduler.Register(spec, asynq.NewTask(taskType, payload, opts...))
	if err != nil {
		return fmt.Errorf("failed to register custom task: %w", err)
	}

	s.logger.Info("registered custom task %s %s %s", taskType, spec, entryID)
	return nil
}
