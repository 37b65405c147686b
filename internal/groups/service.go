package groups

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/planmyoutings/backend/internal/apperrors"
	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/internal/realtime"
)

const (
	maxNameLength    = 100
	maxMessageLength = 2000
)

// Store is the persistence the group service needs. *Repository implements it.
type Store interface {
	CreateWithAdmin(ctx context.Context, g *models.Group) error
	GetByID(ctx context.Context, id int64) (*models.Group, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Group, error)
	MemberRole(ctx context.Context, groupID, userID int64) (string, error)
	ListMembers(ctx context.Context, groupID int64) ([]Member, error)
	ListEvents(ctx context.Context, groupID int64) ([]models.Event, error)
	UserByUsername(ctx context.Context, username string) (*Member, error)
	Username(ctx context.Context, userID int64) (string, error)
	AddMember(ctx context.Context, groupID, userID int64, role string) (time.Time, error)
	RemoveMember(ctx context.Context, groupID, userID int64) error
	CountByRole(ctx context.Context, groupID int64) (admins, total int, err error)
	Delete(ctx context.Context, groupID int64) error
}

// Detail is a group with its members and events.
type Detail struct {
	models.Group
	Members []Member       `json:"members"`
	Events  []models.Event `json:"events"`
	MyRole  string         `json:"my_role"`
}

// MessagePayload is the new_message notification body.
type MessagePayload struct {
	GroupID   int64     `json:"group_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// MembershipPayload is the user_joined / user_left notification body.
type MembershipPayload struct {
	GroupID  int64  `json:"group_id"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Service owns group lifecycle and membership rules.
type Service struct {
	store    Store
	notifier realtime.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates the group service. A nil notifier discards notifications.
func NewService(store Store, notifier realtime.Notifier, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = realtime.NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, notifier: notifier, logger: logger, now: time.Now}
}

// CreateGroup creates a group with creatorID as its admin. Both rows commit together or not at all.
func (s *Service) CreateGroup(ctx context.Context, creatorID int64, name, description string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return nil, apperrors.Validation("group name must be 1-100 characters")
	}
	g := &models.Group{Name: name, Description: strings.TrimSpace(description), CreatedBy: creatorID}
	if err := s.store.CreateWithAdmin(ctx, g); err != nil {
		return nil, err
	}
	s.logger.Info("group created", zap.Int64("group_id", g.ID), zap.Int64("user_id", creatorID))
	return g, nil
}

// ListForUser returns the groups userID belongs to.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]models.Group, error) {
	return s.store.ListForUser(ctx, userID)
}

// RequireMember returns userID's role in the group. A missing group is NotFound; a non-member
// gets an Authorization error.
func (s *Service) RequireMember(ctx context.Context, groupID, userID int64) (string, error) {
	role, err := s.store.MemberRole(ctx, groupID, userID)
	if err != nil {
		return "", err
	}
	if role == "" {
		return "", apperrors.Authorization("you are not a member of this group")
	}
	return role, nil
}

// RequireAdmin is RequireMember restricted to group admins.
func (s *Service) RequireAdmin(ctx context.Context, groupID, userID int64) error {
	role, err := s.RequireMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if role != models.MemberRoleAdmin {
		return apperrors.Authorization("only group admins can do this")
	}
	return nil
}

// Get returns the group detail visible to a member.
func (s *Service) Get(ctx context.Context, groupID, userID int64) (*Detail, error) {
	role, err := s.RequireMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	g, err := s.store.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	events, err := s.store.ListEvents(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return &Detail{Group: *g, Members: members, Events: events, MyRole: role}, nil
}

// AddMember adds the user named username to the group. Only group admins may add members.
func (s *Service) AddMember(ctx context.Context, groupID, actorID int64, username, role string) (*Member, error) {
	if role == "" {
		role = models.MemberRoleMember
	}
	if role != models.MemberRoleMember && role != models.MemberRoleAdmin {
		return nil, apperrors.Validation("role must be member or admin")
	}
	if err := s.RequireAdmin(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	m, err := s.store.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	joinedAt, err := s.store.AddMember(ctx, groupID, m.UserID, role)
	if err != nil {
		return nil, err
	}
	m.Role = role
	m.JoinedAt = joinedAt
	s.notify(realtime.Notification{
		Room:    realtime.GroupRoom(groupID),
		Event:   realtime.EventUserJoined,
		Payload: MembershipPayload{GroupID: groupID, UserID: m.UserID, Username: m.Username, Role: role},
	})
	return m, nil
}

// RemoveMember removes userID from the group. Members may remove themselves; admins may remove
// anyone. The last admin cannot leave while other members remain.
func (s *Service) RemoveMember(ctx context.Context, groupID, actorID, userID int64) error {
	actorRole, err := s.RequireMember(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if actorID != userID && actorRole != models.MemberRoleAdmin {
		return apperrors.Authorization("only group admins can remove other members")
	}
	targetRole, err := s.store.MemberRole(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if targetRole == "" {
		return apperrors.NotFound("member")
	}
	if targetRole == models.MemberRoleAdmin {
		admins, total, err := s.store.CountByRole(ctx, groupID)
		if err != nil {
			return err
		}
		if admins == 1 && total > 1 {
			return apperrors.Validation("the last admin cannot leave while other members remain")
		}
	}
	if err := s.store.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}
	s.notify(realtime.Notification{
		Room:    realtime.GroupRoom(groupID),
		Event:   realtime.EventUserLeft,
		Payload: MembershipPayload{GroupID: groupID, UserID: userID},
	})
	return nil
}

// DeleteGroup removes the group and everything under it. Group admins only.
func (s *Service) DeleteGroup(ctx context.Context, groupID, actorID int64) error {
	if err := s.RequireAdmin(ctx, groupID, actorID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, groupID); err != nil {
		return err
	}
	s.logger.Info("group deleted", zap.Int64("group_id", groupID), zap.Int64("user_id", actorID))
	return nil
}

// SendMessage relays a chat message to the group room. Messages are not stored.
func (s *Service) SendMessage(ctx context.Context, groupID, userID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxMessageLength {
		return apperrors.Validation("message must be 1-2000 characters")
	}
	if _, err := s.RequireMember(ctx, groupID, userID); err != nil {
		return err
	}
	username, err := s.store.Username(ctx, userID)
	if err != nil {
		return err
	}
	s.notify(realtime.Notification{
		Room:  realtime.GroupRoom(groupID),
		Event: realtime.EventNewMessage,
		Payload: MessagePayload{
			GroupID:   groupID,
			UserID:    userID,
			Username:  username,
			Message:   text,
			Timestamp: s.now().UTC(),
		},
	})
	return nil
}

func (s *Service) notify(n realtime.Notification) {
	if err := s.notifier.Notify(n); err != nil {
		s.logger.Warn("notification dropped", zap.String("room", n.Room), zap.String("event", n.Event), zap.Error(err))
	}
}
