package registrations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-pulse/backend/internal/models"
)

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const regColumns = `id, event_id, user_id, status, mandatory, registered_at, checked_in_at`

func scanReg(row interface{ Scan(...any) error }) (*models.Registration, error) {
	var reg models.Registration
	err := row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.Mandatory,
		&reg.RegisteredAt, &reg.CheckedInAt)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Upsert registers the user for the event. An existing cancelled registration
// is revived; an existing live one is returned unchanged. The returned bool is
// true when the row was created or revived.
func (r *Repository) Upsert(ctx context.Context, eventID, userID uuid.UUID, mandatory bool) (*models.Registration, bool, error) {
	const q = `INSERT INTO registrations (event_id, user_id, status, mandatory)
		VALUES ($1, $2, 'pre_registered', $3)
		ON CONFLICT (event_id, user_id) DO UPDATE
			SET status = 'pre_registered',
			    mandatory = EXCLUDED.mandatory,
			    registered_at = NOW()
			WHERE registrations.status = 'cancelled'
		RETURNING ` + regColumns
	reg, err := scanReg(r.pool.QueryRow(ctx, q, eventID, userID, mandatory))
	if err == nil {
		return reg, true, nil
	}
	if err != pgx.ErrNoRows {
		return nil, false, err
	}
	// Conflict hit a live registration: DO UPDATE's WHERE filtered it out.
	reg, err = r.Get(ctx, eventID, userID)
	return reg, false, err
}

// Get returns the registration for (event, user).
func (r *Repository) Get(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	const q = `SELECT ` + regColumns + ` FROM registrations WHERE event_id = $1 AND user_id = $2`
	return scanReg(r.pool.QueryRow(ctx, q, eventID, userID))
}

// Cancel marks a registration cancelled. pgx.ErrNoRows when no live
// registration exists.
func (r *Repository) Cancel(ctx context.Context, eventID, userID uuid.UUID) error {
	const q = `UPDATE registrations SET status = 'cancelled'
		WHERE event_id = $1 AND user_id = $2 AND status <> 'cancelled'
		RETURNING id`
	var id uuid.UUID
	return r.pool.QueryRow(ctx, q, eventID, userID).Scan(&id)
}

// MarkAttended flips a registration to attended and stamps checked_in_at,
// once. No-op if already attended.
func (r *Repository) MarkAttended(ctx context.Context, eventID, userID uuid.UUID, at time.Time) error {
	const q = `UPDATE registrations SET status = 'attended', checked_in_at = $3
		WHERE event_id = $1 AND user_id = $2 AND status = 'pre_registered'`
	_, err := r.pool.Exec(ctx, q, eventID, userID, at)
	return err
}

// RegistrationWithEvent carries a registration joined with event headline fields.
type RegistrationWithEvent struct {
	models.Registration
	EventTitle    string    `json:"event_title"`
	EventStartsAt time.Time `json:"event_starts_at"`
	EventEndsAt   time.Time `json:"event_ends_at"`
	EventVenue    string    `json:"event_venue"`
}

// ListByUser returns the user's registrations, newest event first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*RegistrationWithEvent, error) {
	const q = `SELECT r.id, r.event_id, r.user_id, r.status, r.mandatory, r.registered_at, r.checked_in_at,
			e.title, e.starts_at, e.ends_at, e.venue
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1
		ORDER BY e.starts_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*RegistrationWithEvent
	for rows.Next() {
		var reg RegistrationWithEvent
		err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.Mandatory,
			&reg.RegisteredAt, &reg.CheckedInAt,
			&reg.EventTitle, &reg.EventStartsAt, &reg.EventEndsAt, &reg.EventVenue)
		if err != nil {
			return nil, err
		}
		list = append(list, &reg)
	}
	return list, rows.Err()
}

// ListByEvent returns registrations for an event with the holder's name, for
// organizer views.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*RegistrationWithUser, error) {
	const q = `SELECT r.id, r.event_id, r.user_id, r.status, r.mandatory, r.registered_at, r.checked_in_at,
			u.full_name, u.email
		FROM registrations r
		JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1
		ORDER BY u.full_name`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*RegistrationWithUser
	for rows.Next() {
		var reg RegistrationWithUser
		err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.Mandatory,
			&reg.RegisteredAt, &reg.CheckedInAt, &reg.FullName, &reg.Email)
		if err != nil {
			return nil, err
		}
		list = append(list, &reg)
	}
	return list, rows.Err()
}

// RegistrationWithUser carries a registration joined with the holder.
type RegistrationWithUser struct {
	models.Registration
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// AutoRegisterAll inserts pre-registrations for every given user, skipping
// rows that already exist. Used when a mandatory event is created.
func (r *Repository) AutoRegisterAll(ctx context.Context, eventID uuid.UUID, userIDs []uuid.UUID) error {
	const q = `INSERT INTO registrations (event_id, user_id, status, mandatory)
		VALUES ($1, $2, 'pre_registered', TRUE)
		ON CONFLICT (event_id, user_id) DO NOTHING`
	for _, uid := range userIDs {
		if _, err := r.pool.Exec(ctx, q, eventID, uid); err != nil {
			return err
		}
	}
	return nil
}
