package models

import (
	"time"

	"github.com/google/uuid"
)

// PointsKind classifies a ledger entry.
type PointsKind string

const (
	// PointsKindAttendanceAward is the one-shot award for completing all
	// enabled scans of an event. At most one per (user, event).
	PointsKindAttendanceAward PointsKind = "attendance_award"
	// PointsKindAdjustment is a manual admin credit or debit.
	PointsKindAdjustment PointsKind = "adjustment"
)

// PointsTransaction is an append-only ledger entry. A user's balance is
// always the sum over the ledger, never a separately stored counter.
type PointsTransaction struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	EventID   *uuid.UUID `json:"event_id,omitempty"`
	Kind      PointsKind `json:"kind"`
	Amount    int        `json:"amount"`
	Reason    string     `json:"reason"`
	CreatedAt time.Time  `json:"created_at"`
}
