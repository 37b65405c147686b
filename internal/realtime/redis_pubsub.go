package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "outings:room:"
	publishTimeout = 5 * time.Second
	startTimeout   = 5 * time.Second
)

// roomEnvelope is what travels over Redis for one room event.
type roomEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	At    int64           `json:"at"`
}

type roomHandler func(event string, payload []byte)

// RedisPubSub bridges room events between server instances. Each process holds one pattern
// subscription on outings:room:* and fans incoming events out to the rooms it has local handlers for.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger

	mu       sync.Mutex
	handlers map[string]map[uint64]roomHandler
	nextID   uint64
	stop     func()
}

// NewRedisPubSub creates the bridge. Call Start before serving; otherwise the pattern subscription
// starts with the first SubscribeRoom.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{client: client, logger: logger, handlers: make(map[string]map[uint64]roomHandler)}
}

// PublishRoomEvent publishes an event on the room's channel.
func (r *RedisPubSub) PublishRoomEvent(room, event string, payload []byte) error {
	body, err := json.Marshal(roomEnvelope{Event: event, Data: payload, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return r.client.Publish(ctx, channelPrefix+room, body).Err()
}

// Start opens the pattern subscription, waiting at most until ctx is done for Redis to confirm it.
// It is a no-op when already started.
func (r *RedisPubSub) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return nil
	}
	return r.startLocked(ctx)
}

// SubscribeRoom registers handler for events published to room. The returned cancel unregisters it.
func (r *RedisPubSub) SubscribeRoom(room string, handler func(event string, payload []byte)) (cancel func(), err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop == nil {
		ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
		err := r.startLocked(ctx)
		cancel()
		if err != nil {
			return nil, err
		}
	}
	id := r.nextID
	r.nextID++
	if r.handlers[room] == nil {
		r.handlers[room] = make(map[uint64]roomHandler)
	}
	r.handlers[room][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.handlers[room], id)
			if len(r.handlers[room]) == 0 {
				delete(r.handlers, room)
			}
		})
	}, nil
}

// Close ends the pattern subscription. Registered handlers stop receiving events.
func (r *RedisPubSub) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}
}

func (r *RedisPubSub) startLocked(confirm context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	ps := r.client.PSubscribe(ctx, channelPrefix+"*")
	if _, err := ps.Receive(confirm); err != nil {
		cancel()
		_ = ps.Close()
		return fmt.Errorf("psubscribe: %w", err)
	}
	r.stop = func() {
		cancel()
		_ = ps.Close()
	}
	go r.loop(ctx, ps.Channel())
	return nil
}

func (r *RedisPubSub) loop(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env roomEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Warn("invalid room payload", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			for _, h := range r.handlersFor(strings.TrimPrefix(msg.Channel, channelPrefix)) {
				h(env.Event, env.Data)
			}
		}
	}
}

func (r *RedisPubSub) handlersFor(room string) []roomHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	hs := make([]roomHandler, 0, len(r.handlers[room]))
	for _, h := range r.handlers[room] {
		hs = append(hs, h)
	}
	return hs
}
