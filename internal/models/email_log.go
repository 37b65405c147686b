package models

import (
	"time"
)

// EmailType values.
const (
	EmailTypeWelcome           = "welcome"
	EmailTypeAdminNotification = "admin_notification"
	EmailTypeResend            = "resend"
)

// EmailLogStatus for delivery.
const (
	EmailLogStatusSent   = "sent"
	EmailLogStatusFailed = "failed"
)

// EmailLog records one delivery attempt outcome.
type EmailLog struct {
	ID             int64      `json:"id"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	EmailType      string     `json:"email_type"`
	Status         string     `json:"status"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	UserID         *int64     `json:"user_id,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
