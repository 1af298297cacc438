package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"roleadmin/internal/config"
	"roleadmin/internal/utils/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// TaskClient enqueues tasks and owns the redis connection shared with the API rate limiter.
type TaskClient struct {
	client      *asynq.Client
	logger      *logger.Logger
	redisClient *redis.Client
}

func redisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewTaskClient creates a new TaskClient with the given Redis configuration
func NewTaskClient(cfg config.RedisConfig) *TaskClient {
	redisClient := redis.NewClient(
		&redis.Options{
			Addr:     cfg.Addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		},
	)

	return &TaskClient{
		client:      asynq.NewClient(redisOpt(cfg)),
		redisClient: redisClient,
		logger:      logger.New("TASKS"),
	}
}

func (c *TaskClient) GetClient() *asynq.Client {
	return c.client
}

// Redis returns the plain redis client.
func (c *TaskClient) Redis() *redis.Client {
	return c.redisClient
}

// Ping checks that redis answers.
func (c *TaskClient) Ping(ctx context.Context) error {
	return c.redisClient.Ping(ctx).Err()
}

// EnqueueRefill schedules a refill pass for at.
func (c *TaskClient) EnqueueRefill(ctx context.Context, at time.Time) (*asynq.TaskInfo, error) {
	task, err := NewRefillTask(at)
	if err != nil {
		return nil, err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return nil, c.logger.Error("Failed to enqueue %s", err, TaskTypeBalanceRefill)
	}
	c.logger.Info("enqueued %s id=%s queue=%s", TaskTypeBalanceRefill, info.ID, info.Queue)
	return info, nil
}

// EnqueueArchive schedules an archive of [since, until).
func (c *TaskClient) EnqueueArchive(ctx context.Context, since, until time.Time) (*asynq.TaskInfo, error) {
	task, err := NewArchiveTask(since, until)
	if err != nil {
		return nil, err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return nil, c.logger.Error("Failed to enqueue %s", err, TaskTypeTransactionsArchive)
	}
	c.logger.Info("enqueued %s id=%s queue=%s", TaskTypeTransactionsArchive, info.ID, info.Queue)
	return info, nil
}

// Close closes the asynq client and the redis connection.
func (c *TaskClient) Close() error {
	if err := c.client.Close(); err != nil {
		return err
	}
	return c.redisClient.Close()
}

func NewRefillTask(at time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(RefillPayload{At: at})
	if err != nil {
		return nil, fmt.Errorf("encoding refill payload: %w", err)
	}
	return asynq.NewTask(TaskTypeBalanceRefill, payload, refillOptions()...), nil
}

func NewArchiveTask(since, until time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(ArchivePayload{Since: since, Until: until})
	if err != nil {
		return nil, fmt.Errorf("encoding archive payload: %w", err)
	}
	return asynq.NewTask(TaskTypeTransactionsArchive, payload, archiveOptions()...), nil
}
