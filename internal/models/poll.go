package models

import (
	"time"
)

// PollTypeMultiple is the default poll type.
const PollTypeMultiple = "multiple"

// Poll is a question over the options of one event.
type Poll struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	Question  string    `json:"question"`
	PollType  string    `json:"poll_type"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Vote is one user's ballot in a poll. At most one exists per (poll, user).
type Vote struct {
	ID        int64     `json:"id"`
	PollID    int64     `json:"poll_id"`
	OptionID  int64     `json:"option_id"`
	UserID    int64     `json:"user_id"`
	Value     *int      `json:"value,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// OptionTally is the vote count for one option within one poll.
type OptionTally struct {
	OptionID int64  `json:"option_id"`
	Title    string `json:"title"`
	Votes    int    `json:"votes"`
}
