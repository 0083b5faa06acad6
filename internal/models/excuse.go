package models

import (
	"time"

	"github.com/google/uuid"
)

// ExcuseStatus is the review state of an excuse request.
// pending is the only non-terminal state.
type ExcuseStatus string

const (
	ExcuseStatusPending  ExcuseStatus = "pending"
	ExcuseStatusApproved ExcuseStatus = "approved"
	ExcuseStatusRejected ExcuseStatus = "rejected"
)

// ExcuseSlotAll marks an excuse covering every enabled slot of the event.
const ExcuseSlotAll = "all"

// Excuse is a request to be excused from mandatory event attendance.
type Excuse struct {
	ID          uuid.UUID    `json:"id"`
	EventID     uuid.UUID    `json:"event_id"`
	UserID      uuid.UUID    `json:"user_id"`
	Slot        string       `json:"slot"` // a ScanSlot value or ExcuseSlotAll
	Reason      string       `json:"reason"`
	ProofLink   string       `json:"proof_link,omitempty"`
	Status      ExcuseStatus `json:"status"`
	ReviewedBy  *uuid.UUID   `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time   `json:"reviewed_at,omitempty"`
	ReviewNotes string       `json:"review_notes,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// CoversSlot reports whether the excuse applies to the given slot.
func (e *Excuse) CoversSlot(slot ScanSlot) bool {
	return e.Slot == ExcuseSlotAll || e.Slot == string(slot)
}
