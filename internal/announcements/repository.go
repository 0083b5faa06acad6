package announcements

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-pulse/backend/internal/models"
)

// Repository handles announcement persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an announcements repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const annColumns = `id, title, content, organization_id, created_by, pinned, expires_at, created_at, updated_at`

func scanAnn(row interface{ Scan(...any) error }) (*models.Announcement, error) {
	var a models.Announcement
	err := row.Scan(&a.ID, &a.Title, &a.Content, &a.OrganizationID, &a.CreatedBy,
		&a.Pinned, &a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts an announcement.
func (r *Repository) Create(ctx context.Context, a *models.Announcement) error {
	const q = `INSERT INTO announcements (title, content, organization_id, created_by, pinned, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, a.Title, a.Content, a.OrganizationID, a.CreatedBy, a.Pinned, a.ExpiresAt).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// GetByID returns an announcement.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Announcement, error) {
	const q = `SELECT ` + annColumns + ` FROM announcements WHERE id = $1`
	return scanAnn(r.pool.QueryRow(ctx, q, id))
}

// Update rewrites an announcement's mutable fields.
func (r *Repository) Update(ctx context.Context, a *models.Announcement) error {
	const q = `UPDATE announcements
		SET title = $2, content = $3, pinned = $4, expires_at = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, a.ID, a.Title, a.Content, a.Pinned, a.ExpiresAt).Scan(&a.UpdatedAt)
}

// Delete removes an announcement.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	return err
}

// List returns visible announcements, pinned first then newest, excluding
// expired ones. An org scope includes global announcements.
func (r *Repository) List(ctx context.Context, orgID *uuid.UUID) ([]*models.Announcement, error) {
	q := `SELECT ` + annColumns + ` FROM announcements
		WHERE (expires_at IS NULL OR expires_at > NOW())`
	args := []any{}
	if orgID != nil {
		args = append(args, *orgID)
		q += ` AND (organization_id IS NULL OR organization_id = $1)`
	}
	q += ` ORDER BY pinned DESC, created_at DESC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Announcement
	for rows.Next() {
		a, err := scanAnn(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
