package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification email types.
const (
	EmailTypeExcuseDecision           = "excuse_decision"
	EmailTypeRegistrationConfirmation = "registration_confirmation"
)

// Notification statuses.
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// NotificationLog records an outbound email attempt made by the worker.
type NotificationLog struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	EventID      *uuid.UUID `json:"event_id,omitempty"`
	EmailType    string     `json:"email_type"`
	Recipient    string     `json:"recipient"`
	Subject      string     `json:"subject"`
	Status       string     `json:"status"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
