package models

import (
	"time"

	"github.com/google/uuid"
)

// QRCode is a stable per-(user, organization) scan identity.
// The token is what gets encoded into the visual QR; it never expires.
type QRCode struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	Token          string     `json:"token"`
	IsActive       bool       `json:"is_active"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
