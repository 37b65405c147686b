package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/planmyoutings/backend/internal/emails"
	"github.com/planmyoutings/backend/internal/mailer"
	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/pkg/queue"
)

const dequeueTimeout = 5 * time.Second

// errPermanent marks failures a retry cannot fix (bad payload, unknown template).
var errPermanent = errors.New("permanent failure")

// Sender delivers one rendered email. *mailer.SMTPSender implements it.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// LogStore records delivery outcomes. *emaillogs.Repository implements it.
type LogStore interface {
	Create(ctx context.Context, el *models.EmailLog) error
}

// JobQueue is the part of *queue.Queue the processor uses.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (deadLettered bool, err error)
}

// EmailProcessor renders and sends queued emails and records the outcome in email_logs.
type EmailProcessor struct {
	sender  Sender
	logs    LogStore
	queue   JobQueue
	logger  *zap.Logger
	backoff time.Duration
	now     func() time.Time
}

// NewEmailProcessor creates an email processor.
func NewEmailProcessor(sender Sender, logs LogStore, q JobQueue, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{sender: sender, logs: logs, queue: q, logger: logger, backoff: queue.RetryBackoff, now: time.Now}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) (*queue.EmailPayload, string, error) {
	if job.Type != queue.JobTypeEmail {
		return nil, "", fmt.Errorf("%w: unknown job type %s", errPermanent, job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, "", fmt.Errorf("%w: unmarshal payload: %v", errPermanent, err)
	}
	subject, body, err := emails.Render(payload.EmailType, payload.Data)
	if err != nil {
		return &payload, subject, fmt.Errorf("%w: %v", errPermanent, err)
	}
	if err := p.sender.Send(ctx, mailer.Message{To: payload.RecipientEmail, Subject: subject, Body: body}); err != nil {
		return &payload, subject, err
	}
	return &payload, subject, nil
}

// Handle processes job and settles it: success is logged as sent; transient failures are retried
// and logged as failed once the job is dead-lettered; permanent failures are logged at once.
// It returns true when the job failed and was put back on the queue.
func (p *EmailProcessor) Handle(ctx context.Context, job *queue.Job) bool {
	payload, subject, err := p.Process(ctx, job)
	if err == nil {
		now := p.now()
		p.record(ctx, payload, subject, models.EmailLogStatusSent, "", &now)
		p.logger.Info("email sent", zap.String("job_id", job.ID), zap.String("email_type", payload.EmailType))
		return false
	}

	p.logger.Error("email job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
	if errors.Is(err, errPermanent) {
		p.record(ctx, payload, subject, models.EmailLogStatusFailed, err.Error(), nil)
		return false
	}
	dead, reErr := p.queue.Retry(ctx, job)
	if reErr != nil {
		p.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(reErr))
		p.record(ctx, payload, subject, models.EmailLogStatusFailed, err.Error(), nil)
		return false
	}
	if dead {
		p.record(ctx, payload, subject, models.EmailLogStatusFailed, err.Error(), nil)
		return false
	}
	return true
}

func (p *EmailProcessor) record(ctx context.Context, payload *queue.EmailPayload, subject, status, errMsg string, sentAt *time.Time) {
	if payload == nil {
		return
	}
	if subject == "" {
		subject = emails.Subject(payload.EmailType)
	}
	el := &models.EmailLog{
		RecipientEmail: payload.RecipientEmail,
		Subject:        subject,
		EmailType:      payload.EmailType,
		Status:         status,
		ErrorMessage:   errMsg,
		UserID:         payload.UserID,
		SentAt:         sentAt,
	}
	if err := p.logs.Create(ctx, el); err != nil {
		p.logger.Error("write email log failed", zap.String("recipient", payload.RecipientEmail), zap.Error(err))
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if p.Handle(ctx, job) {
			p.sleep(ctx)
		}
	}
}

func (p *EmailProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
