package realtime

import (
	"strconv"
	"strings"
)

// Room prefixes. A room name is prefix + entity id, e.g. "group_12".
const (
	RoomKindGroup = "group_"
	RoomKindPoll  = "poll_"
	RoomKindEvent = "event_"
)

// Event names on the wire.
const (
	EventUserJoined   = "user_joined"
	EventUserLeft     = "user_left"
	EventNewEvent     = "new_event"
	EventVoteUpdate   = "vote_update"
	EventNewMessage   = "new_message"
	EventDecisionMade = "decision_made"
	EventSubscribed   = "subscribed"
	EventUnsubscribed = "unsubscribed"
	EventError        = "error"
)

// GroupRoom returns the room for a group.
func GroupRoom(id int64) string { return RoomKindGroup + strconv.FormatInt(id, 10) }

// PollRoom returns the room for a poll.
func PollRoom(id int64) string { return RoomKindPoll + strconv.FormatInt(id, 10) }

// EventRoom returns the room for an event.
func EventRoom(id int64) string { return RoomKindEvent + strconv.FormatInt(id, 10) }

// ParseRoom splits a room name into its prefix and positive id.
func ParseRoom(room string) (kind string, id int64, ok bool) {
	for _, k := range []string{RoomKindGroup, RoomKindPoll, RoomKindEvent} {
		if !strings.HasPrefix(room, k) {
			continue
		}
		n, err := strconv.ParseInt(room[len(k):], 10, 64)
		if err != nil || n <= 0 {
			return "", 0, false
		}
		return k, n, true
	}
	return "", 0, false
}
