package models

import (
	"encoding/json"
	"time"
)

// Event status values.
const (
	EventStatusPlanning = "planning"
	EventStatusDecided  = "decided"
)

// Event is a candidate outing inside a group.
type Event struct {
	ID            int64      `json:"id"`
	GroupID       int64      `json:"group_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	EventType     string     `json:"event_type"`
	Status        string     `json:"status"`
	FinalDecision *int64     `json:"final_decision,omitempty"`
	CreatedBy     int64      `json:"created_by"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// EventOption is one candidate choice for an event (a place, a movie, or a custom item).
// Metadata is stored verbatim as supplied by the enrichment lookup.
type EventOption struct {
	ID          int64           `json:"id"`
	EventID     int64           `json:"event_id"`
	OptionType  string          `json:"option_type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ExternalID  string          `json:"external_id,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
