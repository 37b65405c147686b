package polls

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/planmyoutings/backend/internal/apperrors"
	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/internal/realtime"
)

// Store is the persistence the poll engine needs. *Repository implements it.
type Store interface {
	Create(ctx context.Context, p *models.Poll) error
	GetByID(ctx context.Context, id int64) (*models.Poll, error)
	CastVote(ctx context.Context, v *models.Vote) (int, error)
	Tally(ctx context.Context, pollID int64) ([]models.OptionTally, error)
	UserVote(ctx context.Context, pollID, userID int64) (*models.Vote, error)
}

// EventAccess checks that a user may act on an event. *events.Service implements it.
type EventAccess interface {
	RequireAccess(ctx context.Context, eventID, userID int64) (*models.Event, string, error)
}

// VoteUpdate is the vote_update notification body and the CastVote result.
type VoteUpdate struct {
	PollID    int64 `json:"poll_id"`
	OptionID  int64 `json:"option_id"`
	VoteCount int   `json:"vote_count"`
	UserID    int64 `json:"user_id"`
}

// Results is a poll with its tally.
type Results struct {
	Poll    models.Poll          `json:"poll"`
	Options []models.OptionTally `json:"options"`
	Total   int                  `json:"total"`
	MyVote  *int64               `json:"my_vote,omitempty"`
}

// Service is the poll/vote engine.
type Service struct {
	store    Store
	events   EventAccess
	notifier realtime.Notifier
	logger   *zap.Logger
}

// NewService creates the poll engine. A nil notifier discards notifications.
func NewService(store Store, events EventAccess, notifier realtime.Notifier, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = realtime.NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, events: events, notifier: notifier, logger: logger}
}

// CreatePoll opens a poll over an event's options. Members of the event's group only.
func (s *Service) CreatePoll(ctx context.Context, eventID, userID int64, question, pollType string) (*models.Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" || len(question) > 500 {
		return nil, apperrors.Validation("question must be 1-500 characters")
	}
	pollType = strings.TrimSpace(pollType)
	if pollType == "" {
		pollType = models.PollTypeMultiple
	}
	if len(pollType) > 20 {
		return nil, apperrors.Validation("poll_type must be at most 20 characters")
	}
	if _, _, err := s.events.RequireAccess(ctx, eventID, userID); err != nil {
		return nil, err
	}
	p := &models.Poll{EventID: eventID, Question: question, PollType: pollType, CreatedBy: userID}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CastVote records userID's single ballot in the poll and announces the option's new count to the
// poll room. A second ballot from the same user is a DuplicateVote error. Announcement failures
// never fail the vote.
func (s *Service) CastVote(ctx context.Context, pollID, optionID, userID int64, value *int) (*VoteUpdate, error) {
	if _, err := s.RequireAccess(ctx, pollID, userID); err != nil {
		return nil, err
	}
	v := &models.Vote{PollID: pollID, OptionID: optionID, UserID: userID, Value: value}
	count, err := s.store.CastVote(ctx, v)
	if err != nil {
		return nil, err
	}
	update := &VoteUpdate{PollID: pollID, OptionID: optionID, VoteCount: count, UserID: userID}
	if err := s.notifier.Notify(realtime.Notification{
		Room:    realtime.PollRoom(pollID),
		Event:   realtime.EventVoteUpdate,
		Payload: *update,
	}); err != nil {
		s.logger.Warn("vote_update dropped", zap.Int64("poll_id", pollID), zap.Error(err))
	}
	return update, nil
}

// RequireAccess loads the poll and checks userID belongs to its event's group.
func (s *Service) RequireAccess(ctx context.Context, pollID, userID int64) (*models.Poll, error) {
	p, err := s.store.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.events.RequireAccess(ctx, p.EventID, userID); err != nil {
		return nil, err
	}
	return p, nil
}

// Tally returns the vote count of every option of the poll's event, including zeros.
func (s *Service) Tally(ctx context.Context, pollID int64) ([]models.OptionTally, error) {
	if _, err := s.store.GetByID(ctx, pollID); err != nil {
		return nil, err
	}
	return s.store.Tally(ctx, pollID)
}

// Results returns the poll, its tally, the total and the caller's own ballot.
func (s *Service) Results(ctx context.Context, pollID, userID int64) (*Results, error) {
	p, err := s.RequireAccess(ctx, pollID, userID)
	if err != nil {
		return nil, err
	}
	tally, err := s.store.Tally(ctx, pollID)
	if err != nil {
		return nil, err
	}
	res := &Results{Poll: *p, Options: tally}
	for _, t := range tally {
		res.Total += t.Votes
	}
	mine, err := s.store.UserVote(ctx, pollID, userID)
	if err != nil {
		return nil, err
	}
	if mine != nil {
		res.MyVote = &mine.OptionID
	}
	return res, nil
}
