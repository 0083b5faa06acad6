package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceRecord is one successful scan of a user's QR code for a slot.
// Unique per (event, user, slot); created only by a scan, never updated.
type AttendanceRecord struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	UserID    uuid.UUID `json:"user_id"`
	Slot      ScanSlot  `json:"slot"`
	ScannedBy uuid.UUID `json:"scanned_by"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
