package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/planmyoutings/backend/internal/apperrors"
	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/internal/realtime"
)

// Store is the persistence the event service needs. *Repository implements it.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	ListByGroup(ctx context.Context, groupID int64) ([]models.Event, error)
	AddOption(ctx context.Context, o *models.EventOption) error
	ListOptions(ctx context.Context, eventID int64) ([]models.EventOption, error)
	GetOption(ctx context.Context, id int64) (*models.EventOption, error)
	ListPolls(ctx context.Context, eventID int64) ([]models.Poll, error)
	SetDecision(ctx context.Context, eventID, optionID int64) (*models.Event, error)
}

// Membership resolves a user's role in a group. *groups.Service implements it.
type Membership interface {
	RequireMember(ctx context.Context, groupID, userID int64) (string, error)
}

// CreateEventInput is what a member supplies to propose an outing.
type CreateEventInput struct {
	GroupID       int64
	Title         string
	Description   string
	EventType     string
	ScheduledDate *time.Time
}

// OptionInput is one candidate choice, usually copied from an enrichment lookup.
type OptionInput struct {
	OptionType  string          `json:"option_type" binding:"required"`
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	ExternalID  string          `json:"external_id"`
	Metadata    json.RawMessage `json:"metadata"`
}

// Detail is an event with its options and polls.
type Detail struct {
	models.Event
	Options []models.EventOption `json:"options"`
	Polls   []models.Poll        `json:"polls"`
}

// DecisionPayload is the decision_made notification body.
type DecisionPayload struct {
	EventID     int64  `json:"event_id"`
	OptionID    int64  `json:"option_id"`
	OptionTitle string `json:"option_title"`
	DecidedBy   int64  `json:"decided_by"`
}

// Service owns events, their options and the final decision.
type Service struct {
	store    Store
	members  Membership
	notifier realtime.Notifier
	logger   *zap.Logger
}

// NewService creates the event service. A nil notifier discards notifications.
func NewService(store Store, members Membership, notifier realtime.Notifier, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = realtime.NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, members: members, notifier: notifier, logger: logger}
}

// CreateEvent creates an event in a group the creator belongs to and announces it to the group room.
func (s *Service) CreateEvent(ctx context.Context, creatorID int64, in CreateEventInput) (*models.Event, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.EventType = strings.TrimSpace(in.EventType)
	if in.Title == "" || len(in.Title) > 200 {
		return nil, apperrors.Validation("title must be 1-200 characters")
	}
	if in.EventType == "" || len(in.EventType) > 50 {
		return nil, apperrors.Validation("event_type must be 1-50 characters")
	}
	if _, err := s.members.RequireMember(ctx, in.GroupID, creatorID); err != nil {
		return nil, err
	}
	e := &models.Event{
		GroupID:       in.GroupID,
		Title:         in.Title,
		Description:   strings.TrimSpace(in.Description),
		EventType:     in.EventType,
		Status:        models.EventStatusPlanning,
		CreatedBy:     creatorID,
		ScheduledDate: in.ScheduledDate,
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, err
	}
	s.notify(realtime.Notification{Room: realtime.GroupRoom(e.GroupID), Event: realtime.EventNewEvent, Payload: e})
	return e, nil
}

// RequireAccess returns the event and the user's role in its group. Non-members get an
// Authorization error.
func (s *Service) RequireAccess(ctx context.Context, eventID, userID int64) (*models.Event, string, error) {
	e, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		return nil, "", err
	}
	role, err := s.members.RequireMember(ctx, e.GroupID, userID)
	if err != nil {
		return nil, "", err
	}
	return e, role, nil
}

// Get returns the event with its options and polls.
func (s *Service) Get(ctx context.Context, eventID, userID int64) (*Detail, error) {
	e, _, err := s.RequireAccess(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	options, err := s.store.ListOptions(ctx, eventID)
	if err != nil {
		return nil, err
	}
	polls, err := s.store.ListPolls(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &Detail{Event: *e, Options: options, Polls: polls}, nil
}

// ListByGroup returns a group's events. Membership is checked by the route (groups.RequireGroupMember).
func (s *Service) ListByGroup(ctx context.Context, groupID int64) ([]models.Event, error) {
	return s.store.ListByGroup(ctx, groupID)
}

// AddOption adds a candidate choice to an event. Metadata is stored verbatim.
func (s *Service) AddOption(ctx context.Context, eventID, userID int64, in OptionInput) (*models.EventOption, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.OptionType = strings.TrimSpace(in.OptionType)
	if in.Title == "" || len(in.Title) > 200 {
		return nil, apperrors.Validation("title must be 1-200 characters")
	}
	if in.OptionType == "" || len(in.OptionType) > 50 {
		return nil, apperrors.Validation("option_type must be 1-50 characters")
	}
	if len(in.ExternalID) > 100 {
		return nil, apperrors.Validation("external_id must be at most 100 characters")
	}
	meta := in.Metadata
	if len(meta) == 0 || string(meta) == "null" {
		meta = json.RawMessage(`{}`)
	}
	if !json.Valid(meta) {
		return nil, apperrors.Validation("metadata must be valid JSON")
	}
	if _, _, err := s.RequireAccess(ctx, eventID, userID); err != nil {
		return nil, err
	}
	o := &models.EventOption{
		EventID:     eventID,
		OptionType:  in.OptionType,
		Title:       in.Title,
		Description: in.Description,
		ExternalID:  in.ExternalID,
		Metadata:    meta,
	}
	if err := s.store.AddOption(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// RecordDecision sets the event's final decision. Group admins and the event creator may decide;
// the option must belong to the event.
func (s *Service) RecordDecision(ctx context.Context, eventID, optionID, userID int64) (*models.Event, error) {
	e, role, err := s.RequireAccess(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if role != models.MemberRoleAdmin && e.CreatedBy != userID {
		return nil, apperrors.Authorization("only group admins or the event creator can record a decision")
	}
	option, err := s.store.GetOption(ctx, optionID)
	if err != nil {
		return nil, err
	}
	if option.EventID != eventID {
		return nil, apperrors.NotFound("option")
	}
	decided, err := s.store.SetDecision(ctx, eventID, optionID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("decision recorded", zap.Int64("event_id", eventID), zap.Int64("option_id", optionID), zap.Int64("user_id", userID))
	s.notify(realtime.Notification{
		Room:    realtime.EventRoom(eventID),
		Event:   realtime.EventDecisionMade,
		Payload: DecisionPayload{EventID: eventID, OptionID: optionID, OptionTitle: option.Title, DecidedBy: userID},
	})
	return decided, nil
}

func (s *Service) notify(n realtime.Notification) {
	if err := s.notifier.Notify(n); err != nil {
		s.logger.Warn("notification dropped", zap.String("room", n.Room), zap.String("event", n.Event), zap.Error(err))
	}
}
