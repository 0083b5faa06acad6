package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-pulse/backend/internal/models"
	"github.com/campus-pulse/backend/internal/qrcodes"
	"github.com/campus-pulse/backend/internal/registrations"
	"github.com/campus-pulse/backend/pkg/database"
)

// Repository implements Store on Postgres, delegating to the qrcodes and
// registrations repositories for their tables.
type Repository struct {
	pool *pgxpool.Pool
	qr   *qrcodes.Repository
	regs *registrations.Repository
}

// NewRepository creates an attendance repository.
func NewRepository(pool *pgxpool.Pool, qr *qrcodes.Repository, regs *registrations.Repository) *Repository {
	return &Repository{pool: pool, qr: qr, regs: regs}
}

func (r *Repository) ResolveToken(ctx context.Context, token string) (*models.QRCode, error) {
	return r.qr.ResolveToken(ctx, token)
}

func (r *Repository) GetRegistration(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	return r.regs.Get(ctx, eventID, userID)
}

func (r *Repository) AutoRegister(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	reg, _, err := r.regs.Upsert(ctx, eventID, userID, true)
	return reg, err
}

// InsertRecord inserts an attendance record. The unique constraint on
// (event, user, slot) backstops concurrent scans; a violation reports
// inserted=false rather than an error.
func (r *Repository) InsertRecord(ctx context.Context, rec *models.AttendanceRecord) (bool, error) {
	const q = `INSERT INTO attendance_records (event_id, user_id, slot, scanned_by, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, rec.EventID, rec.UserID, rec.Slot, rec.ScannedBy, rec.Notes).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *Repository) MarkAttended(ctx context.Context, eventID, userID uuid.UUID, at time.Time) error {
	return r.regs.MarkAttended(ctx, eventID, userID, at)
}

func (r *Repository) TouchToken(ctx context.Context, qrID uuid.UUID, at time.Time) error {
	return r.qr.TouchLastUsed(ctx, qrID, at)
}

func (r *Repository) IsNotFound(err error) bool {
	return database.IsNotFound(err)
}

// SlotsForUser returns the slots already recorded for (event, user).
func (r *Repository) SlotsForUser(ctx context.Context, eventID, userID uuid.UUID) ([]models.ScanSlot, error) {
	const q = `SELECT slot FROM attendance_records WHERE event_id = $1 AND user_id = $2`
	rows, err := r.pool.Query(ctx, q, eventID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var slots []models.ScanSlot
	for rows.Next() {
		var s models.ScanSlot
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// MatrixRow is one registered user's slot completion for an event.
type MatrixRow struct {
	UserID   uuid.UUID                      `json:"user_id"`
	FullName string                         `json:"full_name"`
	Email    string                         `json:"email"`
	Status   models.RegistrationStatus      `json:"status"`
	Slots    map[models.ScanSlot]*time.Time `json:"slots"`
}

// Matrix returns the per-user slot matrix for an event: every non-cancelled
// registration, with the scan time of each recorded slot.
func (r *Repository) Matrix(ctx context.Context, eventID uuid.UUID) ([]*MatrixRow, error) {
	const q = `SELECT r.user_id, u.full_name, u.email, r.status, a.slot, a.created_at
		FROM registrations r
		JOIN users u ON u.id = r.user_id
		LEFT JOIN attendance_records a ON a.event_id = r.event_id AND a.user_id = r.user_id
		WHERE r.event_id = $1 AND r.status <> 'cancelled'
		ORDER BY u.full_name, r.user_id`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*MatrixRow
	byUser := map[uuid.UUID]*MatrixRow{}
	for rows.Next() {
		var (
			userID    uuid.UUID
			fullName  string
			email     string
			status    models.RegistrationStatus
			slot      *models.ScanSlot
			scannedAt *time.Time
		)
		if err := rows.Scan(&userID, &fullName, &email, &status, &slot, &scannedAt); err != nil {
			return nil, err
		}
		row, ok := byUser[userID]
		if !ok {
			row = &MatrixRow{
				UserID:   userID,
				FullName: fullName,
				Email:    email,
				Status:   status,
				Slots:    make(map[models.ScanSlot]*time.Time, 4),
			}
			byUser[userID] = row
			out = append(out, row)
		}
		if slot != nil {
			row.Slots[*slot] = scannedAt
		}
	}
	return out, rows.Err()
}
