// Package realtimetest provides a Notifier that records notifications for assertions.
package realtimetest

import (
	"sync"

	"github.com/planmyoutings/backend/internal/realtime"
)

// Recorder is a realtime.Notifier that keeps every notification it accepts. When Err is set,
// Notify records nothing and returns Err, the way a saturated dispatcher would.
type Recorder struct {
	Err error

	mu   sync.Mutex
	sent []realtime.Notification
}

// Notify implements realtime.Notifier.
func (r *Recorder) Notify(n realtime.Notification) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	r.sent = append(r.sent, n)
	r.mu.Unlock()
	return nil
}

// All returns a copy of the recorded notifications in order.
func (r *Recorder) All() []realtime.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]realtime.Notification(nil), r.sent...)
}

// Events returns the recorded event names in order.
func (r *Recorder) Events() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, n := range all {
		names[i] = n.Event
	}
	return names
}
