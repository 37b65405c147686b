package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmyoutings/backend/internal/apperrors"
)

type fakeCommands struct {
	denied   map[string]bool
	votes    []voteRequest
	messages []messageRequest
	decided  []decisionRequest
	voteErr  error
}

func (f *fakeCommands) AuthorizeRoom(ctx context.Context, room string, userID int64) error {
	if f.denied[room] {
		return apperrors.Authorization("not a member of this group")
	}
	return nil
}

func (f *fakeCommands) SendMessage(ctx context.Context, groupID, userID int64, text string) error {
	f.messages = append(f.messages, messageRequest{GroupID: groupID, Message: text})
	return nil
}

func (f *fakeCommands) CastVote(ctx context.Context, pollID, optionID, userID int64, value *int) error {
	if f.voteErr != nil {
		return f.voteErr
	}
	f.votes = append(f.votes, voteRequest{PollID: pollID, OptionID: optionID, Value: value})
	return nil
}

func (f *fakeCommands) RecordDecision(ctx context.Context, eventID, optionID, userID int64) error {
	f.decided = append(f.decided, decisionRequest{EventID: eventID, OptionID: optionID})
	return nil
}

func wsMsg(event, data string) WSMessage {
	return WSMessage{Event: event, Data: json.RawMessage(data)}
}

func errorPayload(t *testing.T, msg WSMessage) map[string]string {
	t.Helper()
	require.Equal(t, EventError, msg.Event)
	var out map[string]string
	require.NoError(t, json.Unmarshal(msg.Data, &out))
	return out
}

func TestClientJoinAndLeaveRooms(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	cmds := &fakeCommands{}
	c := newClient(hub, cmds, 1, "user", nil)
	ctx := context.Background()

	c.handle(ctx, wsMsg("join_group", `{"group_id":4}`))
	assert.Equal(t, EventSubscribed, recv(t, c).Event)
	assert.True(t, hub.inRoom(c, GroupRoom(4)))

	c.handle(ctx, wsMsg("join_poll", `{"poll_id":9}`))
	recv(t, c)
	assert.True(t, hub.inRoom(c, PollRoom(9)))

	c.handle(ctx, wsMsg("leave_group", `{"group_id":4}`))
	assert.Equal(t, EventUnsubscribed, recv(t, c).Event)
	assert.False(t, hub.inRoom(c, GroupRoom(4)))
}

func TestClientJoinDeniedForNonMember(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	cmds := &fakeCommands{denied: map[string]bool{GroupRoom(2): true}}
	c := newClient(hub, cmds, 1, "user", nil)

	c.handle(context.Background(), wsMsg("join_group", `{"group_id":2}`))
	out := errorPayload(t, recv(t, c))
	assert.Equal(t, "authorization", out["code"])
	assert.Equal(t, "join_group", out["event"])
	assert.False(t, hub.inRoom(c, GroupRoom(2)))
}

func TestClientRoutesCommands(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	cmds := &fakeCommands{}
	c := newClient(hub, cmds, 7, "user", nil)
	ctx := context.Background()

	c.handle(ctx, wsMsg("cast_vote", `{"poll_id":1,"option_id":2,"value":5}`))
	c.handle(ctx, wsMsg("send_message", `{"group_id":3,"message":"on my way"}`))
	c.handle(ctx, wsMsg("event_decision", `{"event_id":4,"option_id":2}`))

	require.Len(t, cmds.votes, 1)
	assert.Equal(t, int64(2), cmds.votes[0].OptionID)
	require.NotNil(t, cmds.votes[0].Value)
	assert.Equal(t, 5, *cmds.votes[0].Value)
	require.Len(t, cmds.messages, 1)
	assert.Equal(t, "on my way", cmds.messages[0].Message)
	require.Len(t, cmds.decided, 1)
	assertNoMessage(t, c)
}

func TestClientReportsErrorsToSenderOnly(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	cmds := &fakeCommands{voteErr: apperrors.DuplicateVote()}
	c := newClient(hub, cmds, 1, "user", nil)
	other := newClient(hub, cmds, 2, "user", nil)
	hub.Join(c, PollRoom(1))
	hub.Join(other, PollRoom(1))

	c.handle(context.Background(), wsMsg("cast_vote", `{"poll_id":1,"option_id":2}`))
	out := errorPayload(t, recv(t, c))
	assert.Equal(t, "duplicate_vote", out["code"])
	assertNoMessage(t, other)

	cmds.voteErr = errors.New("pq: connection reset")
	c.handle(context.Background(), wsMsg("cast_vote", `{"poll_id":1,"option_id":2}`))
	out = errorPayload(t, recv(t, c))
	assert.Equal(t, "internal", out["code"])
	assert.Equal(t, "internal server error", out["message"])
	assert.NotContains(t, out["message"], "connection reset")
}

func TestClientRejectsMalformedMessages(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	c := newClient(hub, &fakeCommands{}, 1, "user", nil)
	ctx := context.Background()

	for _, m := range []WSMessage{
		wsMsg("join_group", `{}`),
		wsMsg("cast_vote", `{"poll_id":1}`),
		wsMsg("dance", `{}`),
	} {
		c.handle(ctx, m)
		assert.Equal(t, "validation", errorPayload(t, recv(t, c))["code"], m.Event)
	}
}
