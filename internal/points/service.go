package points

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-pulse/backend/internal/models"
)

// Ledger is the ledger surface the qualifier writes to.
type Ledger interface {
	AwardAttendance(ctx context.Context, userID, eventID uuid.UUID, amount int, reason string) (bool, error)
}

// AttendanceSource reports which slots a user has already scanned.
type AttendanceSource interface {
	SlotsForUser(ctx context.Context, eventID, userID uuid.UUID) ([]models.ScanSlot, error)
}

// Service decides attendance-award qualification: one award per (user, event)
// once every enabled slot has a record.
type Service struct {
	ledger       Ledger
	attendance   AttendanceSource
	defaultAward int
	logger       *zap.Logger
}

// NewService creates a qualification service.
func NewService(ledger Ledger, attendance AttendanceSource, defaultAward int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ledger: ledger, attendance: attendance, defaultAward: defaultAward, logger: logger}
}

// Evaluate awards the event's points when the user has now completed every
// enabled slot. Safe to call after every scan; re-evaluation is idempotent.
func (s *Service) Evaluate(ctx context.Context, event *models.Event, userID uuid.UUID) (bool, int, error) {
	enabled := event.EnabledSlots()
	if len(enabled) == 0 {
		return false, 0, nil
	}
	recorded, err := s.attendance.SlotsForUser(ctx, event.ID, userID)
	if err != nil {
		return false, 0, err
	}
	have := make(map[models.ScanSlot]bool, len(recorded))
	for _, slot := range recorded {
		have[slot] = true
	}
	for _, slot := range enabled {
		if !have[slot] {
			return false, 0, nil
		}
	}

	amount := event.AwardPoints(s.defaultAward)
	awarded, err := s.ledger.AwardAttendance(ctx, userID, event.ID, amount, "full attendance: "+event.Title)
	if err != nil {
		return false, 0, err
	}
	if awarded {
		s.logger.Info("attendance award granted",
			zap.String("event_id", event.ID.String()),
			zap.String("user_id", userID.String()),
			zap.Int("amount", amount))
		return true, amount, nil
	}
	return false, 0, nil
}
