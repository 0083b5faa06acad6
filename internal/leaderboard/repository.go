package leaderboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one leaderboard row.
type Entry struct {
	Rank       int       `json:"rank"`
	UserID     uuid.UUID `json:"user_id"`
	FullName   string    `json:"full_name"`
	Course     *string   `json:"course,omitempty"`
	Points     int       `json:"points"`
	FirstAward time.Time `json:"first_award"`
}

// Repository computes leaderboard standings from the points ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a leaderboard repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Top returns the standings: descending by total, ties broken by earliest
// award then user id, so repeated reads order identically. An org scope sums
// only transactions tied to that org's events.
func (r *Repository) Top(ctx context.Context, orgID *uuid.UUID, limit int) ([]*Entry, error) {
	q := `SELECT p.user_id, u.full_name, u.course,
			SUM(p.amount) AS total,
			MIN(p.created_at) AS first_award
		FROM points_transactions p
		JOIN users u ON u.id = p.user_id`
	args := []any{limit}
	if orgID != nil {
		q += `
		JOIN events e ON e.id = p.event_id
		WHERE e.organization_id = $2`
		args = append(args, *orgID)
	}
	q += `
		GROUP BY p.user_id, u.full_name, u.course
		ORDER BY total DESC, first_award ASC, p.user_id ASC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.FullName, &e.Course, &e.Points, &e.FirstAward); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
