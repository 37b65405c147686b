package main

import (
	"context"

	"github.com/planmyoutings/backend/internal/apperrors"
	"github.com/planmyoutings/backend/internal/events"
	"github.com/planmyoutings/backend/internal/groups"
	"github.com/planmyoutings/backend/internal/polls"
	"github.com/planmyoutings/backend/internal/realtime"
)

// socketCommands routes socket requests to the services that own the state.
type socketCommands struct {
	groups *groups.Service
	events *events.Service
	polls  *polls.Service
}

func (s socketCommands) AuthorizeRoom(ctx context.Context, room string, userID int64) error {
	kind, id, ok := realtime.ParseRoom(room)
	if !ok {
		return apperrors.Validation("invalid room " + room)
	}
	var err error
	switch kind {
	case realtime.RoomKindGroup:
		_, err = s.groups.RequireMember(ctx, id, userID)
	case realtime.RoomKindEvent:
		_, _, err = s.events.RequireAccess(ctx, id, userID)
	case realtime.RoomKindPoll:
		_, err = s.polls.RequireAccess(ctx, id, userID)
	}
	return err
}

func (s socketCommands) SendMessage(ctx context.Context, groupID, userID int64, text string) error {
	return s.groups.SendMessage(ctx, groupID, userID, text)
}

func (s socketCommands) CastVote(ctx context.Context, pollID, optionID, userID int64, value *int) error {
	_, err := s.polls.CastVote(ctx, pollID, optionID, userID, value)
	return err
}

func (s socketCommands) RecordDecision(ctx context.Context, eventID, optionID, userID int64) error {
	_, err := s.events.RecordDecision(ctx, eventID, optionID, userID)
	return err
}
