package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus is the lifecycle state of an event registration.
type RegistrationStatus string

const (
	RegStatusPreRegistered RegistrationStatus = "pre_registered"
	RegStatusAttended      RegistrationStatus = "attended"
	RegStatusCancelled     RegistrationStatus = "cancelled"
)

// Registration binds a user to an event they intend to or must attend.
// Unique per (event, user).
type Registration struct {
	ID           uuid.UUID          `json:"id"`
	EventID      uuid.UUID          `json:"event_id"`
	UserID       uuid.UUID          `json:"user_id"`
	Status       RegistrationStatus `json:"status"`
	Mandatory    bool               `json:"mandatory"`
	RegisteredAt time.Time          `json:"registered_at"`
	CheckedInAt  *time.Time         `json:"checked_in_at,omitempty"`
}
