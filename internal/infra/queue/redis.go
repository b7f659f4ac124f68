package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"deal-hub/internal/domain"
)

// RedisSubmissionQueue реализует очередь черновиков на базе Redis lists.
type RedisSubmissionQueue struct {
	client *redis.Client
	key    string
}

// NewRedisSubmissionQueue создаёт очередь по указанному ключу.
func NewRedisSubmissionQueue(client *redis.Client, key string) *RedisSubmissionQueue {
	return &RedisSubmissionQueue{client: client, key: key}
}

// Enqueue публикует черновик в очередь.
func (q *RedisSubmissionQueue) Enqueue(ctx context.Context, job domain.SubmissionJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Pop блокирующе читает черновик из очереди.
func (q *RedisSubmissionQueue) Pop(ctx context.Context) (domain.SubmissionJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.SubmissionJob{}, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.SubmissionJob{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.SubmissionJob{}, err
		}
		if len(res) != 2 {
			return domain.SubmissionJob{}, errors.New("redis queue: unexpected response")
		}
		var job domain.SubmissionJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.SubmissionJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}
