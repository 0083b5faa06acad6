package excuses

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-pulse/backend/internal/models"
	"github.com/campus-pulse/backend/pkg/database"
)

// Repository handles excuse persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an excuses repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const excuseColumns = `id, event_id, user_id, slot, reason, proof_link, status,
	reviewed_by, reviewed_at, review_notes, created_at, updated_at`

func scanExcuse(row interface{ Scan(...any) error }) (*models.Excuse, error) {
	var ex models.Excuse
	err := row.Scan(&ex.ID, &ex.EventID, &ex.UserID, &ex.Slot, &ex.Reason, &ex.ProofLink,
		&ex.Status, &ex.ReviewedBy, &ex.ReviewedAt, &ex.ReviewNotes, &ex.CreatedAt, &ex.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

// Create inserts a pending excuse. The partial unique index rejects a second
// live excuse for the same (event, user, slot).
func (r *Repository) Create(ctx context.Context, ex *models.Excuse) error {
	const q = `INSERT INTO excuses (event_id, user_id, slot, reason, proof_link)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, ex.EventID, ex.UserID, ex.Slot, ex.Reason, ex.ProofLink).
		Scan(&ex.ID, &ex.Status, &ex.CreatedAt, &ex.UpdatedAt)
}

// GetByID returns an excuse.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Excuse, error) {
	const q = `SELECT ` + excuseColumns + ` FROM excuses WHERE id = $1`
	return scanExcuse(r.pool.QueryRow(ctx, q, id))
}

// Review transitions a pending excuse to approved or rejected. The WHERE
// guard makes terminal states immutable: reviewing a non-pending excuse
// returns pgx.ErrNoRows.
func (r *Repository) Review(ctx context.Context, id, reviewer uuid.UUID, status models.ExcuseStatus, notes string, at time.Time) (*models.Excuse, error) {
	const q = `UPDATE excuses
		SET status = $2, reviewed_by = $3, reviewed_at = $4, review_notes = $5, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + excuseColumns
	return scanExcuse(r.pool.QueryRow(ctx, q, id, status, reviewer, at, notes))
}

// IsNotFound reports whether err means no matching row.
func (r *Repository) IsNotFound(err error) bool {
	return database.IsNotFound(err)
}

// ListByUser returns the user's excuses, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Excuse, error) {
	const q = `SELECT ` + excuseColumns + ` FROM excuses WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, q, userID)
}

// ListByEvent returns an event's excuses, pending first then newest.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*models.Excuse, error) {
	const q = `SELECT ` + excuseColumns + ` FROM excuses WHERE event_id = $1
		ORDER BY (status = 'pending') DESC, created_at DESC`
	return r.list(ctx, q, eventID)
}

func (r *Repository) list(ctx context.Context, q string, arg any) ([]*models.Excuse, error) {
	rows, err := r.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Excuse
	for rows.Next() {
		ex, err := scanExcuse(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, ex)
	}
	return list, rows.Err()
}
