package points

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-pulse/backend/internal/models"
)

// Repository handles the append-only points ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a points repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AwardAttendance inserts the one-shot attendance award for (user, event).
// The partial unique index on award rows makes concurrent qualifying scans
// insert exactly one; the loser reports awarded=false.
func (r *Repository) AwardAttendance(ctx context.Context, userID, eventID uuid.UUID, amount int, reason string) (bool, error) {
	const q = `INSERT INTO points_transactions (user_id, event_id, kind, amount, reason)
		VALUES ($1, $2, 'attendance_award', $3, $4)
		ON CONFLICT (user_id, event_id) WHERE kind = 'attendance_award' DO NOTHING
		RETURNING id`
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, q, userID, eventID, amount, reason).Scan(&id)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Adjust appends a manual admin credit or debit.
func (r *Repository) Adjust(ctx context.Context, userID uuid.UUID, amount int, reason string) (*models.PointsTransaction, error) {
	const q = `INSERT INTO points_transactions (user_id, kind, amount, reason)
		VALUES ($1, 'adjustment', $2, $3)
		RETURNING id, created_at`
	tx := &models.PointsTransaction{
		UserID: userID,
		Kind:   models.PointsKindAdjustment,
		Amount: amount,
		Reason: reason,
	}
	if err := r.pool.QueryRow(ctx, q, userID, amount, reason).Scan(&tx.ID, &tx.CreatedAt); err != nil {
		return nil, err
	}
	return tx, nil
}

// Balance sums the user's ledger.
func (r *Repository) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	const q = `SELECT COALESCE(SUM(amount), 0) FROM points_transactions WHERE user_id = $1`
	var balance int
	err := r.pool.QueryRow(ctx, q, userID).Scan(&balance)
	return balance, err
}

// ListByUser returns the user's ledger, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.PointsTransaction, error) {
	const q = `SELECT id, user_id, event_id, kind, amount, reason, created_at
		FROM points_transactions WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.PointsTransaction
	for rows.Next() {
		var tx models.PointsTransaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.EventID, &tx.Kind, &tx.Amount, &tx.Reason, &tx.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &tx)
	}
	return list, rows.Err()
}
