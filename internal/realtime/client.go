package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/planmyoutings/backend/internal/apperrors"
)

const commandTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // sockets authenticate with the token query parameter
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Commands is what a socket may ask of the domain. Every state change goes through the owning
// service so the notification follows the durable write.
type Commands interface {
	AuthorizeRoom(ctx context.Context, room string, userID int64) error
	SendMessage(ctx context.Context, groupID, userID int64, text string) error
	CastVote(ctx context.Context, pollID, optionID, userID int64, value *int) error
	RecordDecision(ctx context.Context, eventID, optionID, userID int64) error
}

// TokenValidator resolves a JWT to the user it was issued for.
type TokenValidator func(token string) (userID int64, role string, err error)

// Client represents a single WebSocket connection.
type Client struct {
	ID       string
	UserID   int64
	Role     string
	hub      *Hub
	commands Commands
	conn     *websocket.Conn
	send     chan WSMessage
	rooms    map[string]struct{} // guarded by hub.mu
	closed   bool                // guarded by hub.mu
	logger   *zap.Logger
}

func newClient(hub *Hub, commands Commands, userID int64, role string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		ID:       uuid.New().String(),
		UserID:   userID,
		Role:     role,
		hub:      hub,
		commands: commands,
		send:     make(chan WSMessage, 256),
		rooms:    make(map[string]struct{}),
		logger:   logger,
	}
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
func ServeWs(hub *Hub, commands Commands, logger *zap.Logger, validate TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
			return
		}
		userID, role, err := validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := newClient(hub, commands, userID, role, logger)
		client.conn = conn
		logger.Debug("websocket connected", zap.String("client_id", client.ID), zap.Int64("user_id", userID))
		go client.writePump()
		client.readPump()
	}
}

type roomRequest struct {
	GroupID int64 `json:"group_id"`
	PollID  int64 `json:"poll_id"`
	EventID int64 `json:"event_id"`
}

type messageRequest struct {
	GroupID int64  `json:"group_id"`
	Message string `json:"message"`
}

type voteRequest struct {
	PollID   int64 `json:"poll_id"`
	OptionID int64 `json:"option_id"`
	Value    *int  `json:"value"`
}

type decisionRequest struct {
	EventID  int64 `json:"event_id"`
	OptionID int64 `json:"option_id"`
}

// handle processes one inbound message. Failures are reported back to the sender only.
func (c *Client) handle(ctx context.Context, msg WSMessage) {
	if err := c.dispatch(ctx, msg); err != nil {
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) {
			c.logger.Warn("socket command failed", zap.String("event", msg.Event), zap.Error(err))
			appErr = apperrors.Internal(err)
		}
		c.hub.SendToClient(c, EventError, gin.H{"event": msg.Event, "code": appErr.Kind, "message": appErr.Message})
	}
}

func (c *Client) dispatch(ctx context.Context, msg WSMessage) error {
	switch msg.Event {
	case "join_group", "join_poll", "join_event":
		room, err := roomFor(msg)
		if err != nil {
			return err
		}
		if err := c.commands.AuthorizeRoom(ctx, room, c.UserID); err != nil {
			return err
		}
		c.hub.Join(c, room)
		c.hub.SendToClient(c, EventSubscribed, gin.H{"room": room})
	case "leave_group", "leave_poll", "leave_event":
		room, err := roomFor(msg)
		if err != nil {
			return err
		}
		c.hub.Leave(c, room)
		c.hub.SendToClient(c, EventUnsubscribed, gin.H{"room": room})
	case "send_message":
		var req messageRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.GroupID <= 0 {
			return apperrors.Validation("group_id and message required")
		}
		return c.commands.SendMessage(ctx, req.GroupID, c.UserID, req.Message)
	case "cast_vote":
		var req voteRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.PollID <= 0 || req.OptionID <= 0 {
			return apperrors.Validation("poll_id and option_id required")
		}
		return c.commands.CastVote(ctx, req.PollID, req.OptionID, c.UserID, req.Value)
	case "event_decision":
		var req decisionRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.EventID <= 0 || req.OptionID <= 0 {
			return apperrors.Validation("event_id and option_id required")
		}
		return c.commands.RecordDecision(ctx, req.EventID, req.OptionID, c.UserID)
	default:
		return apperrors.Validation("unknown event " + msg.Event)
	}
	return nil
}

func roomFor(msg WSMessage) (string, error) {
	var req roomRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return "", apperrors.Validation("invalid payload")
	}
	switch msg.Event {
	case "join_group", "leave_group":
		if req.GroupID > 0 {
			return GroupRoom(req.GroupID), nil
		}
	case "join_poll", "leave_poll":
		if req.PollID > 0 {
			return PollRoom(req.PollID), nil
		}
	case "join_event", "leave_event":
		if req.EventID > 0 {
			return EventRoom(req.EventID), nil
		}
	}
	return "", apperrors.Validation("missing room id")
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		c.handle(ctx, msg)
		cancel()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
