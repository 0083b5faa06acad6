package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanSlot identifies one of the four attendance checkpoints of an event.
type ScanSlot string

const (
	SlotMorningIn    ScanSlot = "morning_in"
	SlotMorningOut   ScanSlot = "morning_out"
	SlotAfternoonIn  ScanSlot = "afternoon_in"
	SlotAfternoonOut ScanSlot = "afternoon_out"
)

// AllScanSlots lists the slots in chronological order.
func AllScanSlots() []ScanSlot {
	return []ScanSlot{SlotMorningIn, SlotMorningOut, SlotAfternoonIn, SlotAfternoonOut}
}

// ParseScanSlot validates a slot string from a request.
func ParseScanSlot(s string) (ScanSlot, bool) {
	switch ScanSlot(s) {
	case SlotMorningIn, SlotMorningOut, SlotAfternoonIn, SlotAfternoonOut:
		return ScanSlot(s), true
	}
	return "", false
}

// IsCheckIn reports whether the slot is a time-in checkpoint.
func (s ScanSlot) IsCheckIn() bool {
	return s == SlotMorningIn || s == SlotAfternoonIn
}

// SlotWindow is the configured scan window for one slot.
// A scan is accepted when Enabled and now is within [StartsAt, EndsAt).
type SlotWindow struct {
	Enabled  bool      `json:"enabled"`
	StartsAt time.Time `json:"starts_at,omitempty"`
	EndsAt   time.Time `json:"ends_at,omitempty"`
}

// Contains reports whether t falls inside the window (start inclusive, end exclusive).
func (w SlotWindow) Contains(t time.Time) bool {
	if !w.Enabled {
		return false
	}
	return !t.Before(w.StartsAt) && t.Before(w.EndsAt)
}

// Event is an organization-owned event with QR attendance configuration.
type Event struct {
	ID                   uuid.UUID               `json:"id"`
	OrganizationID       uuid.UUID               `json:"organization_id"`
	CreatedBy            uuid.UUID               `json:"created_by"`
	Title                string                  `json:"title"`
	Description          string                  `json:"description,omitempty"`
	Venue                string                  `json:"venue,omitempty"`
	Mandatory            bool                    `json:"mandatory"`
	StartsAt             time.Time               `json:"starts_at"`
	EndsAt               time.Time               `json:"ends_at"`
	Capacity             *int                    `json:"capacity,omitempty"`
	RegistrationDeadline *time.Time              `json:"registration_deadline,omitempty"`
	Points               *int                    `json:"points,omitempty"`
	Slots                map[ScanSlot]SlotWindow `json:"slots"`
	CreatedAt            time.Time               `json:"created_at"`
	UpdatedAt            time.Time               `json:"updated_at"`
}

// Window returns the configured window for a slot (zero value if unset).
func (e *Event) Window(slot ScanSlot) SlotWindow {
	return e.Slots[slot]
}

// EnabledSlots returns the slots with scanning enabled, in chronological order.
func (e *Event) EnabledSlots() []ScanSlot {
	var out []ScanSlot
	for _, s := range AllScanSlots() {
		if e.Slots[s].Enabled {
			out = append(out, s)
		}
	}
	return out
}

// SlotOpenAt reports whether the slot accepts scans at t.
func (e *Event) SlotOpenAt(slot ScanSlot, t time.Time) bool {
	return e.Window(slot).Contains(t)
}

// AwardPoints returns the configured award for full attendance, or def when unset.
func (e *Event) AwardPoints(def int) int {
	if e.Points != nil {
		return *e.Points
	}
	return def
}

// RegistrationOpenAt reports whether a new registration is allowed at t.
func (e *Event) RegistrationOpenAt(t time.Time) bool {
	if e.RegistrationDeadline != nil && t.After(*e.RegistrationDeadline) {
		return false
	}
	return t.Before(e.StartsAt)
}

// ValidateSlotWindows checks per-slot ordering and pairwise overlap of
// enabled windows: no instant may satisfy two different slots.
func (e *Event) ValidateSlotWindows() error {
	enabled := e.EnabledSlots()
	for _, s := range enabled {
		w := e.Slots[s]
		if !w.StartsAt.Before(w.EndsAt) {
			return &SlotWindowError{Slot: s, Reason: "window start must be before end"}
		}
	}
	for i := 0; i < len(enabled); i++ {
		for j := i + 1; j < len(enabled); j++ {
			a, b := e.Slots[enabled[i]], e.Slots[enabled[j]]
			// Half-open intervals overlap iff each starts before the other ends.
			if a.StartsAt.Before(b.EndsAt) && b.StartsAt.Before(a.EndsAt) {
				return &SlotWindowError{Slot: enabled[j], Reason: "window overlaps " + string(enabled[i])}
			}
		}
	}
	return nil
}

// SlotWindowError reports an invalid slot window configuration.
type SlotWindowError struct {
	Slot   ScanSlot
	Reason string
}

func (e *SlotWindowError) Error() string {
	return string(e.Slot) + ": " + e.Reason
}
