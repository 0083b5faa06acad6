package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-pulse/backend/internal/models"
)

// Repository handles notification_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notification logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreatePending inserts a pending log row before the send attempt.
func (r *Repository) CreatePending(ctx context.Context, log *models.NotificationLog) error {
	const q = `INSERT INTO notification_logs (user_id, event_id, email_type, recipient, subject, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, log.UserID, log.EventID, log.EmailType, log.Recipient, log.Subject).
		Scan(&log.ID, &log.CreatedAt)
}

// MarkSent records a successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE notification_logs SET status = 'sent', sent_at = $2, error_message = NULL WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, at)
	return err
}

// MarkFailed records a delivery failure.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	const q = `UPDATE notification_logs SET status = 'failed', error_message = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, errMsg)
	return err
}

// ListByUser returns a user's notification logs, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.NotificationLog, error) {
	const q = `SELECT id, user_id, event_id, email_type, recipient, subject, status, sent_at, error_message, created_at
		FROM notification_logs
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.NotificationLog
	for rows.Next() {
		var nl models.NotificationLog
		var subject, errMsg *string
		if err := rows.Scan(&nl.ID, &nl.UserID, &nl.EventID, &nl.EmailType, &nl.Recipient, &subject, &nl.Status, &nl.SentAt, &errMsg, &nl.CreatedAt); err != nil {
			return nil, err
		}
		if subject != nil {
			nl.Subject = *subject
		}
		if errMsg != nil {
			nl.ErrorMessage = *errMsg
		}
		list = append(list, &nl)
	}
	return list, rows.Err()
}
