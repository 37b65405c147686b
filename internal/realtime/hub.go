package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains room -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: each instance subscribes to the rooms its local
// clients are in, and publishes every notification to Redis instead of delivering it directly.
type Hub struct {
	// room -> map[clientID]*Client
	rooms    map[string]map[string]*Client
	subs     map[string]func() // cancel Redis subscription per room
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishRoomEvent(room, event string, payload []byte) error
}

// RedisSubscriber subscribes to room channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeRoom(room string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. Both Redis arguments may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Join adds a client to a room. The first local client of a room starts its Redis subscription;
// the subscribe call runs without holding the hub lock.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	first := h.rooms[room] == nil
	if first {
		h.rooms[room] = make(map[string]*Client)
	}
	h.rooms[room][c.ID] = c
	c.rooms[room] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("client joined room", zap.String("client_id", c.ID), zap.String("room", room))

	if first && h.redisSub != nil {
		h.subscribe(room)
	}
}

func (h *Hub) subscribe(room string) {
	cancel, err := h.redisSub.SubscribeRoom(room, func(event string, payload []byte) {
		h.BroadcastToRoom(room, event, json.RawMessage(payload))
	})
	if err != nil {
		h.logger.Warn("redis subscribe failed", zap.String("room", room), zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, active := h.rooms[room]
	if _, dup := h.subs[room]; !active || dup {
		// room emptied or re-subscribed while subscribing
		cancel()
		return
	}
	h.subs[room] = cancel
}

// Leave removes a client from a room. Cancels the Redis subscription when the last client leaves.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	m, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(m, c.ID)
	if len(m) == 0 {
		delete(h.rooms, room)
		if cancel, ok := h.subs[room]; ok {
			cancel()
			delete(h.subs, room)
		}
	}
	h.logger.Debug("client left room", zap.String("client_id", c.ID), zap.String("room", room))
}

// Unregister removes a client from every room and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	c.closed = true
	close(c.send)
}

// inRoom reports whether the client is currently subscribed to room.
func (h *Hub) inRoom(c *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

// BroadcastToRoom sends a message to all local clients in a room and returns how many were reached.
// Slow clients whose buffer is full are skipped.
func (h *Hub) BroadcastToRoom(room, event string, payload interface{}) int {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode broadcast payload", zap.String("event", event), zap.Error(err))
		return 0
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, c := range h.rooms[room] {
		select {
		case c.send <- msg:
			delivered++
		default:
			// buffer full, skip
		}
	}
	return delivered
}

// Publish delivers an event to a room across all instances. With Redis configured it publishes
// only, so the Redis subscriber performs the broadcast once for every instance including this one.
// If the publish fails the event is still delivered to local clients and the error is returned.
func (h *Hub) Publish(room, event string, payload interface{}) error {
	if h.redis == nil {
		h.BroadcastToRoom(room, event, payload)
		return nil
	}
	data, err := encode(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := h.redis.PublishRoomEvent(room, event, data); err != nil {
		h.BroadcastToRoom(room, event, json.RawMessage(data))
		return fmt.Errorf("publish %s to %s: %w", event, room, err)
	}
	return nil
}

// roomSize returns the number of local clients in a room.
func (h *Hub) roomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// SendToClient sends a message to a single client.
func (h *Hub) SendToClient(c *Client, event string, payload interface{}) {
	data, err := encode(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- WSMessage{Event: event, Data: data}:
	default:
	}
}

func encode(payload interface{}) (json.RawMessage, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(payload)
	}
}
