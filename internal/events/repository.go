package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-pulse/backend/internal/models"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, organization_id, created_by, title, description, venue, mandatory,
	starts_at, ends_at, capacity, registration_deadline, points,
	morning_in_enabled, morning_in_starts_at, morning_in_ends_at,
	morning_out_enabled, morning_out_starts_at, morning_out_ends_at,
	afternoon_in_enabled, afternoon_in_starts_at, afternoon_in_ends_at,
	afternoon_out_enabled, afternoon_out_starts_at, afternoon_out_ends_at,
	created_at, updated_at`

type slotRow struct {
	enabled bool
	start   *time.Time
	end     *time.Time
}

func (s slotRow) window() models.SlotWindow {
	w := models.SlotWindow{Enabled: s.enabled}
	if s.start != nil {
		w.StartsAt = *s.start
	}
	if s.end != nil {
		w.EndsAt = *s.end
	}
	return w
}

func scanEvent(row interface{ Scan(...any) error }) (*models.Event, error) {
	var e models.Event
	var mi, mo, ai, ao slotRow
	err := row.Scan(&e.ID, &e.OrganizationID, &e.CreatedBy, &e.Title, &e.Description, &e.Venue, &e.Mandatory,
		&e.StartsAt, &e.EndsAt, &e.Capacity, &e.RegistrationDeadline, &e.Points,
		&mi.enabled, &mi.start, &mi.end,
		&mo.enabled, &mo.start, &mo.end,
		&ai.enabled, &ai.start, &ai.end,
		&ao.enabled, &ao.start, &ao.end,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Slots = map[models.ScanSlot]models.SlotWindow{
		models.SlotMorningIn:    mi.window(),
		models.SlotMorningOut:   mo.window(),
		models.SlotAfternoonIn:  ai.window(),
		models.SlotAfternoonOut: ao.window(),
	}
	return &e, nil
}

func slotArgs(e *models.Event) []any {
	out := make([]any, 0, 12)
	for _, s := range models.AllScanSlots() {
		w := e.Slots[s]
		var start, end *time.Time
		if w.Enabled {
			st, en := w.StartsAt, w.EndsAt
			start, end = &st, &en
		}
		out = append(out, w.Enabled, start, end)
	}
	return out
}

// Create inserts an event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (organization_id, created_by, title, description, venue, mandatory,
		starts_at, ends_at, capacity, registration_deadline, points,
		morning_in_enabled, morning_in_starts_at, morning_in_ends_at,
		morning_out_enabled, morning_out_starts_at, morning_out_ends_at,
		afternoon_in_enabled, afternoon_in_starts_at, afternoon_in_ends_at,
		afternoon_out_enabled, afternoon_out_starts_at, afternoon_out_ends_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		RETURNING id, created_at, updated_at`
	args := []any{e.OrganizationID, e.CreatedBy, e.Title, e.Description, e.Venue, e.Mandatory,
		e.StartsAt, e.EndsAt, e.Capacity, e.RegistrationDeadline, e.Points}
	args = append(args, slotArgs(e)...)
	return r.pool.QueryRow(ctx, q, args...).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// Update rewrites the mutable fields of an event.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET title=$2, description=$3, venue=$4, mandatory=$5,
		starts_at=$6, ends_at=$7, capacity=$8, registration_deadline=$9, points=$10,
		morning_in_enabled=$11, morning_in_starts_at=$12, morning_in_ends_at=$13,
		morning_out_enabled=$14, morning_out_starts_at=$15, morning_out_ends_at=$16,
		afternoon_in_enabled=$17, afternoon_in_starts_at=$18, afternoon_in_ends_at=$19,
		afternoon_out_enabled=$20, afternoon_out_starts_at=$21, afternoon_out_ends_at=$22,
		updated_at=NOW()
		WHERE id=$1
		RETURNING updated_at`
	args := []any{e.ID, e.Title, e.Description, e.Venue, e.Mandatory,
		e.StartsAt, e.EndsAt, e.Capacity, e.RegistrationDeadline, e.Points}
	args = append(args, slotArgs(e)...)
	return r.pool.QueryRow(ctx, q, args...).Scan(&e.UpdatedAt)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.pool.QueryRow(ctx, q, id))
}

// List returns events, optionally scoped to an organization and filtered on
// upcoming (ends_at in the future).
func (r *Repository) List(ctx context.Context, orgID *uuid.UUID, upcomingOnly bool) ([]*models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE TRUE`
	args := []any{}
	if orgID != nil {
		args = append(args, *orgID)
		q += ` AND organization_id = $1`
	}
	if upcomingOnly {
		q += ` AND ends_at > NOW()`
	}
	q += ` ORDER BY starts_at DESC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// ListUpcomingMandatory returns mandatory events of the org that have not
// started yet. Used to auto-register new members.
func (r *Repository) ListUpcomingMandatory(ctx context.Context, orgID uuid.UUID) ([]*models.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events
		WHERE organization_id = $1 AND mandatory AND starts_at > NOW()`
	rows, err := r.pool.Query(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Delete removes an event.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}

// HasAttendance reports whether any attendance record exists for the event.
// Once true, the event's scan windows are frozen.
func (r *Repository) HasAttendance(ctx context.Context, eventID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM attendance_records WHERE event_id = $1)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, eventID).Scan(&exists)
	return exists, err
}

// CountActiveRegistrations returns the number of non-cancelled registrations.
func (r *Repository) CountActiveRegistrations(ctx context.Context, eventID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status <> 'cancelled'`
	var n int
	err := r.pool.QueryRow(ctx, q, eventID).Scan(&n)
	return n, err
}
