package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-pulse/backend/internal/models"
)

// Scan rejection reasons, in pipeline order.
var (
	ErrInvalidQR     = errors.New("invalid QR code")
	ErrUnregistered  = errors.New("holder is not registered for this event")
	ErrSlotDisabled  = errors.New("slot is not enabled for this event")
	ErrOutsideWindow = errors.New("scan is outside the slot window")
	ErrDuplicate     = errors.New("slot already scanned for this holder")
)

// Store is the persistence surface the scan pipeline needs.
type Store interface {
	// ResolveToken returns the active QR identity for a token, or an error
	// satisfying database.IsNotFound when unknown.
	ResolveToken(ctx context.Context, token string) (*models.QRCode, error)
	GetRegistration(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error)
	// AutoRegister creates (or revives) a mandatory registration on the fly.
	AutoRegister(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error)
	// InsertRecord returns inserted=false when the (event, user, slot) record
	// already exists, including when a concurrent scan wins the race.
	InsertRecord(ctx context.Context, rec *models.AttendanceRecord) (bool, error)
	MarkAttended(ctx context.Context, eventID, userID uuid.UUID, at time.Time) error
	TouchToken(ctx context.Context, qrID uuid.UUID, at time.Time) error
	IsNotFound(err error) bool
}

// Qualifier awards points once a holder has completed every enabled slot.
type Qualifier interface {
	Evaluate(ctx context.Context, event *models.Event, userID uuid.UUID) (awarded bool, amount int, err error)
}

// Broadcaster pushes accepted scans to the realtime feed.
type Broadcaster interface {
	BroadcastScan(eventID uuid.UUID, payload any)
}

// ScanInput is one scan attempt.
type ScanInput struct {
	Token     string
	Slot      models.ScanSlot
	ScannedBy uuid.UUID
	Notes     string
	Now       time.Time
}

// ScanResult is a successful scan.
type ScanResult struct {
	Record        *models.AttendanceRecord `json:"record"`
	UserID        uuid.UUID                `json:"user_id"`
	PointsAwarded bool                     `json:"points_awarded"`
	PointsAmount  int                      `json:"points_amount,omitempty"`
}

// Service runs the scan validation pipeline.
type Service struct {
	store     Store
	qualifier Qualifier
	feed      Broadcaster
	logger    *zap.Logger
}

// NewService creates a scan service. qualifier and feed may be nil.
func NewService(store Store, qualifier Qualifier, feed Broadcaster, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, qualifier: qualifier, feed: feed, logger: logger}
}

// Scan validates and records one scan against the event. Rejections are the
// package sentinel errors; anything else is an infrastructure failure.
func (s *Service) Scan(ctx context.Context, event *models.Event, in ScanInput) (*ScanResult, error) {
	qr, err := s.store.ResolveToken(ctx, in.Token)
	if err != nil {
		if s.store.IsNotFound(err) {
			return nil, ErrInvalidQR
		}
		return nil, err
	}
	// A token minted for another organization never matches this event.
	if qr.OrganizationID != event.OrganizationID {
		return nil, ErrInvalidQR
	}

	reg, err := s.store.GetRegistration(ctx, event.ID, qr.UserID)
	switch {
	case err != nil && !s.store.IsNotFound(err):
		return nil, err
	case err != nil || reg.Status == models.RegStatusCancelled:
		if !event.Mandatory {
			return nil, ErrUnregistered
		}
		if _, err := s.store.AutoRegister(ctx, event.ID, qr.UserID); err != nil {
			return nil, err
		}
	}

	window := event.Window(in.Slot)
	if !window.Enabled {
		return nil, ErrSlotDisabled
	}
	if !window.Contains(in.Now) {
		return nil, ErrOutsideWindow
	}

	rec := &models.AttendanceRecord{
		EventID:   event.ID,
		UserID:    qr.UserID,
		Slot:      in.Slot,
		ScannedBy: in.ScannedBy,
		Notes:     in.Notes,
	}
	inserted, err := s.store.InsertRecord(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, ErrDuplicate
	}

	if err := s.store.TouchToken(ctx, qr.ID, in.Now); err != nil {
		s.logger.Warn("failed to stamp qr last_used_at", zap.Error(err))
	}
	if in.Slot.IsCheckIn() {
		if err := s.store.MarkAttended(ctx, event.ID, qr.UserID, in.Now); err != nil {
			s.logger.Warn("failed to mark registration attended", zap.Error(err))
		}
	}

	result := &ScanResult{Record: rec, UserID: qr.UserID}
	if s.qualifier != nil {
		awarded, amount, err := s.qualifier.Evaluate(ctx, event, qr.UserID)
		if err != nil {
			s.logger.Error("points qualification failed",
				zap.String("event_id", event.ID.String()),
				zap.String("user_id", qr.UserID.String()), zap.Error(err))
		} else {
			result.PointsAwarded, result.PointsAmount = awarded, amount
		}
	}
	if s.feed != nil {
		s.feed.BroadcastScan(event.ID, result)
	}
	return result, nil
}
