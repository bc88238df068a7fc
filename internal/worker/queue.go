package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"elasticlm-backend/internal/models"
)

const (
	// QueueName is the Redis list holding pending ingest jobs.
	QueueName = "queue:document-ingest"
	// UpdatesChannel carries upload progress for websocket clients.
	UpdatesChannel = "upload_updates"

	jobLockTTL = 10 * time.Minute
)

// RedisQueue is the job list plus the per-job lock.
type RedisQueue struct {
	redis *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{redis: client}
}

// Push enqueues a job.
func (q *RedisQueue) Push(ctx context.Context, job *models.Job) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.redis.LPush(ctx, QueueName, string(jobBytes)).Err()
}

// Pop waits up to timeout for the next job. A nil job means the wait timed out.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*models.Job, error) {
	result, err := q.redis.BLPop(ctx, timeout, QueueName).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}

	var job models.Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to parse job: %w", err)
	}
	return &job, nil
}

// Lock claims a job for one worker.
func (q *RedisQueue) Lock(ctx context.Context, job *models.Job) (bool, error) {
	return q.redis.SetNX(ctx, lockKey(job), "1", jobLockTTL).Result()
}

func (q *RedisQueue) Unlock(ctx context.Context, job *models.Job) {
	q.redis.Del(ctx, lockKey(job))
}

func lockKey(job *models.Job) string {
	return fmt.Sprintf("job_lock:%s", job.ID.String())
}

// RedisPublisher fans WebSocket messages out through Redis pub/sub.
type RedisPublisher struct {
	redis *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{redis: client}
}

// Publish sends msg on the upload updates channel.
func (p *RedisPublisher) Publish(ctx context.Context, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := p.redis.Publish(ctx, UpdatesChannel, string(data)).Err(); err != nil {
		log.Printf("failed to publish %s update: %v", msg.Type, err)
	}
}
