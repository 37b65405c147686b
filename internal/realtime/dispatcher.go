package realtime

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrBufferFull is returned by Notify when the dispatcher queue is saturated. The notification is dropped.
var ErrBufferFull = errors.New("realtime: notification buffer full")

// Notification is a state change to announce to a room after the write that caused it committed.
type Notification struct {
	Room    string
	Event   string
	Payload interface{}
}

// Notifier accepts notifications from the write path. Implementations must not block.
type Notifier interface {
	Notify(n Notification) error
}

// Publisher delivers a single event to a room.
type Publisher interface {
	Publish(room, event string, payload interface{}) error
}

// NopNotifier discards notifications (CLI tools, tests).
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(Notification) error { return nil }

// Dispatcher decouples writers from delivery: Notify enqueues, Run publishes.
type Dispatcher struct {
	pub     Publisher
	queue   chan Notification
	logger  *zap.Logger
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewDispatcher creates a dispatcher with the given queue capacity.
func NewDispatcher(pub Publisher, buffer int, logger *zap.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{pub: pub, queue: make(chan Notification, buffer), logger: logger}
}

// Notify enqueues n without blocking.
func (d *Dispatcher) Notify(n Notification) error {
	select {
	case d.queue <- n:
		return nil
	default:
		d.dropped.Add(1)
		d.logger.Warn("notification dropped", zap.String("room", n.Room), zap.String("event", n.Event))
		return ErrBufferFull
	}
}

// Run publishes queued notifications until ctx is done. Publish errors are logged, never retried.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("notification dispatcher stopping", zap.Int("pending", len(d.queue)))
			return
		case n := <-d.queue:
			d.publish(n)
		}
	}
}

func (d *Dispatcher) publish(n Notification) {
	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			d.logger.Error("notification publish panic", zap.String("room", n.Room), zap.Any("panic", r))
		}
	}()
	if err := d.pub.Publish(n.Room, n.Event, n.Payload); err != nil {
		d.failed.Add(1)
		d.logger.Warn("notification publish failed", zap.String("room", n.Room), zap.String("event", n.Event), zap.Error(err))
	}
}

// Dropped returns how many notifications were discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Failed returns how many notifications failed to publish.
func (d *Dispatcher) Failed() int64 { return d.failed.Load() }
