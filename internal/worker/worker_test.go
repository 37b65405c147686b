package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmyoutings/backend/internal/mailer"
	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/pkg/queue"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeLogs struct {
	mu   sync.Mutex
	logs []*models.EmailLog
}

func (f *fakeLogs) Create(ctx context.Context, el *models.EmailLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, el)
	return nil
}

func (f *fakeLogs) all() []*models.EmailLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.EmailLog(nil), f.logs...)
}

type fakeQueue struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []*queue.Job
	dead    []*queue.Job
}

func (f *fakeQueue) Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		time.Sleep(5 * time.Millisecond)
		return nil, nil
	}
	job := f.jobs[0]
	f.jobs = f.jobs[1:]
	return job, nil
}

func (f *fakeQueue) Retry(ctx context.Context, job *queue.Job) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.Attempt++
	if job.Attempt >= queue.MaxRetries {
		f.dead = append(f.dead, job)
		return true, nil
	}
	f.retried = append(f.retried, job)
	f.jobs = append(f.jobs, job)
	return false, nil
}

func welcomeJob(t *testing.T) *queue.Job {
	t.Helper()
	uid := int64(3)
	raw, err := json.Marshal(queue.EmailPayload{
		EmailType:      models.EmailTypeWelcome,
		UserID:         &uid,
		RecipientEmail: "alice@example.com",
		Data:           map[string]string{"first_name": "Alice", "username": "alice.smith.1990", "password": "pw"},
	})
	require.NoError(t, err)
	return &queue.Job{ID: "j1", Type: queue.JobTypeEmail, Payload: raw}
}

func TestHandleSendsAndLogs(t *testing.T) {
	sender, logs, q := &fakeSender{}, &fakeLogs{}, &fakeQueue{}
	p := NewEmailProcessor(sender, logs, q, nil)

	assert.False(t, p.Handle(context.Background(), welcomeJob(t)))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "alice@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Body, "alice.smith.1990")

	all := logs.all()
	require.Len(t, all, 1)
	assert.Equal(t, models.EmailLogStatusSent, all[0].Status)
	assert.Equal(t, "Welcome to Plan My Outings", all[0].Subject)
	require.NotNil(t, all[0].UserID)
	assert.Equal(t, int64(3), *all[0].UserID)
	assert.NotNil(t, all[0].SentAt)
}

func TestHandleRetriesThenLogsFailure(t *testing.T) {
	sender, logs, q := &fakeSender{err: errors.New("connection refused")}, &fakeLogs{}, &fakeQueue{}
	p := NewEmailProcessor(sender, logs, q, nil)
	job := welcomeJob(t)

	assert.True(t, p.Handle(context.Background(), job))
	assert.True(t, p.Handle(context.Background(), job))
	assert.Empty(t, logs.all())

	assert.False(t, p.Handle(context.Background(), job))
	require.Len(t, q.dead, 1)
	all := logs.all()
	require.Len(t, all, 1)
	assert.Equal(t, models.EmailLogStatusFailed, all[0].Status)
	assert.Equal(t, "connection refused", all[0].ErrorMessage)
	assert.Nil(t, all[0].SentAt)
}

func TestHandlePermanentFailureIsNotRetried(t *testing.T) {
	sender, logs, q := &fakeSender{}, &fakeLogs{}, &fakeQueue{}
	p := NewEmailProcessor(sender, logs, q, nil)
	raw, _ := json.Marshal(queue.EmailPayload{EmailType: models.EmailTypeResend, RecipientEmail: "b@example.com"})

	assert.False(t, p.Handle(context.Background(), &queue.Job{ID: "j2", Type: queue.JobTypeEmail, Payload: raw}))
	assert.Empty(t, sender.sent)
	assert.Empty(t, q.retried)
	all := logs.all()
	require.Len(t, all, 1)
	assert.Equal(t, models.EmailLogStatusFailed, all[0].Status)
	assert.Equal(t, "Your Plan My Outings credentials", all[0].Subject)
}

func TestRunDrainsQueueUntilCancelled(t *testing.T) {
	sender, logs, q := &fakeSender{}, &fakeLogs{}, &fakeQueue{}
	q.jobs = []*queue.Job{welcomeJob(t), welcomeJob(t)}
	p := NewEmailProcessor(sender, logs, q, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(logs.all()) == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
