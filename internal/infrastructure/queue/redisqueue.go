// Package queue provides the task handoff to the execution substrate.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"classnotex/internal/domain/dispatch"
	"classnotex/internal/shared/config"
	"classnotex/internal/shared/logger"
)

const pushTimeout = 5 * time.Second

// RedisQueue implements dispatch.TaskQueue over a Redis list. Workers pop
// with BRPOP; Push is LPUSH so delivery is FIFO. At-least-once only: a task
// may be redelivered, the completion handler absorbs duplicates.
type RedisQueue struct {
	client *redis.Client
	name   string
}

// NewRedisQueue creates a queue on the given Redis connection.
func NewRedisQueue(cfg *config.RedisConfig, queueName string) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis task queue ready", "queue", queueName)
	return &RedisQueue{client: client, name: queueName}, nil
}

// Push serializes the task and appends it to the list.
func (q *RedisQueue) Push(ctx context.Context, task dispatch.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	if err := q.client.LPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to push task to queue: %w", err)
	}
	return nil
}

// Pop blocks until a task is available or the timeout elapses. A zero task
// and nil error means timeout. Used by local workers and tooling.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*dispatch.Task, error) {
	res, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop task from queue: %w", err)
	}
	// BRPOP returns [key, value].
	var task dispatch.Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, nil
}

// Len returns the number of queued tasks.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return n, nil
}

// Close releases the Redis connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
