package qrcodes

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-pulse/backend/internal/models"
)

// Repository handles QR identity persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a qrcodes repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const qrColumns = `id, user_id, organization_id, token, is_active, last_used_at, created_at`

func scanQR(row interface{ Scan(...any) error }) (*models.QRCode, error) {
	var qr models.QRCode
	err := row.Scan(&qr.ID, &qr.UserID, &qr.OrganizationID, &qr.Token, &qr.IsActive,
		&qr.LastUsedAt, &qr.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &qr, nil
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// GetOrCreate returns the member's QR identity for the org, minting one on
// first access. Tokens never expire.
func (r *Repository) GetOrCreate(ctx context.Context, userID, orgID uuid.UUID) (*models.QRCode, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	// The no-op update makes the conflicting row flow through RETURNING, so
	// a second caller gets the winner's token rather than an error.
	const q = `INSERT INTO qr_codes (user_id, organization_id, token)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, organization_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + qrColumns
	return scanQR(r.pool.QueryRow(ctx, q, userID, orgID, token))
}

// GetByID returns a QR identity regardless of active state.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.QRCode, error) {
	const q = `SELECT ` + qrColumns + ` FROM qr_codes WHERE id = $1`
	return scanQR(r.pool.QueryRow(ctx, q, id))
}

// ResolveToken returns the active QR identity for a scanned token.
func (r *Repository) ResolveToken(ctx context.Context, token string) (*models.QRCode, error) {
	const q = `SELECT ` + qrColumns + ` FROM qr_codes WHERE token = $1 AND is_active`
	return scanQR(r.pool.QueryRow(ctx, q, token))
}

// TouchLastUsed stamps the token's last successful scan time.
func (r *Repository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE qr_codes SET last_used_at = $2 WHERE id = $1`, id, at)
	return err
}

// SetActive toggles a QR identity on or off.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE qr_codes SET is_active = $2 WHERE id = $1`, id, active)
	return err
}
