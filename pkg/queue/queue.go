package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueEmails is the Redis list of pending email jobs.
	QueueEmails = "worker:emails"
	// QueueDLQ holds jobs that failed MaxRetries times.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of attempts before a job is dead-lettered.
	MaxRetries = 3
	// RetryBackoff is the delay the worker waits after a failed attempt.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeEmail JobType = "email"
)

// EmailPayload is the payload of an email job. Data feeds the template for EmailType.
type EmailPayload struct {
	EmailType      string            `json:"email_type"`
	UserID         *int64            `json:"user_id,omitempty"`
	RecipientEmail string            `json:"recipient_email"`
	Data           map[string]string `json:"data,omitempty"`
}

// Job is the envelope stored in the lists.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue is a Redis list-backed job queue with a dead-letter list.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a queue on client.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

func (q *Queue) push(ctx context.Context, list string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, list, raw).Err(); err != nil {
		return fmt.Errorf("push %s: %w", list, err)
	}
	return nil
}

// EnqueueEmail appends an email job.
func (q *Queue) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{ID: uuid.NewString(), Type: JobTypeEmail, Payload: body, CreatedAt: time.Now().UTC()}
	if err := q.push(ctx, QueueEmails, job); err != nil {
		return err
	}
	q.logger.Debug("email job queued", zap.String("job_id", job.ID), zap.String("email_type", payload.EmailType))
	return nil
}

// Dequeue waits up to timeout for the next job. It returns a nil job on timeout and skips entries
// that are not valid jobs.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.client.BLPop(ctx, timeout, QueueEmails).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) != 2 {
		return nil, nil
	}
	job, ok := q.decode(res[1])
	if !ok {
		return nil, nil
	}
	return job, nil
}

func (q *Queue) decode(raw string) (*Job, bool) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		q.logger.Warn("dropping unreadable job", zap.Int("bytes", len(raw)), zap.Error(err))
		return nil, false
	}
	return &job, true
}

// Retry counts a failed attempt and puts the job back, or on the DLQ once it reached MaxRetries.
func (q *Queue) Retry(ctx context.Context, job *Job) (deadLettered bool, err error) {
	job.Attempt++
	if job.Attempt >= MaxRetries {
		if err := q.push(ctx, QueueDLQ, job); err != nil {
			q.logger.Error("dead-letter failed", zap.String("job_id", job.ID), zap.Error(err))
			return false, err
		}
		q.logger.Warn("job dead-lettered", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return true, nil
	}
	if err := q.push(ctx, QueueEmails, job); err != nil {
		return false, err
	}
	q.logger.Info("job requeued", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return false, nil
}

// Len returns the number of pending and dead-lettered jobs.
func (q *Queue) Len(ctx context.Context) (pending, dead int64, err error) {
	pipe := q.client.Pipeline()
	p := pipe.LLen(ctx, QueueEmails)
	d := pipe.LLen(ctx, QueueDLQ)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return p.Val(), d.Val(), nil
}

// DeadLetters returns up to limit dead-lettered jobs, oldest first, without removing them.
func (q *Queue) DeadLetters(ctx context.Context, limit int64) ([]*Job, error) {
	raws, err := q.client.LRange(ctx, QueueDLQ, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	jobs := make([]*Job, 0, len(raws))
	for _, raw := range raws {
		if job, ok := q.decode(raw); ok {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// RequeueDead moves every dead-lettered job back to the pending list with a fresh attempt count.
func (q *Queue) RequeueDead(ctx context.Context) (int, error) {
	moved := 0
	for {
		raw, err := q.client.LPop(ctx, QueueDLQ).Result()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, err
		}
		job, ok := q.decode(raw)
		if !ok {
			continue
		}
		job.Attempt = 0
		if err := q.push(ctx, QueueEmails, job); err != nil {
			return moved, err
		}
		moved++
	}
}
