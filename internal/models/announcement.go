package models

import (
	"time"

	"github.com/google/uuid"
)

// Announcement is a timestamped post, optionally pinned and optionally
// scoped to an organization (nil organization = global).
type Announcement struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	CreatedBy      uuid.UUID  `json:"created_by"`
	Pinned         bool       `json:"pinned"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ActiveAt reports whether the announcement is still visible at t.
func (a *Announcement) ActiveAt(t time.Time) bool {
	return a.ExpiresAt == nil || t.Before(*a.ExpiresAt)
}
