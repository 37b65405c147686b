package models

import (
	"time"
)

// Enquiry status values.
const (
	EnquiryStatusPending   = "pending"
	EnquiryStatusProcessed = "processed"
)

// Enquiry is a raw contact-form submission, kept for audit after the user is derived from it.
type Enquiry struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	YearOfBirth int       `json:"year_of_birth"`
	Message     string    `json:"message"`
	Status      string    `json:"status"`
	UserID      *int64    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
