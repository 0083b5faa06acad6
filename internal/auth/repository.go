package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-pulse/backend/internal/models"
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password_hash, full_name, role,
	COALESCE(phone,''), COALESCE(course,''), year_level, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role,
		&u.Phone, &u.Course, &u.YearLevel, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, q, email))
}

// List returns all users for admin views.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, full_name, role,
		COALESCE(phone,''), COALESCE(course,''), year_level, created_at
		FROM users ORDER BY full_name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role,
			&u.Phone, &u.Course, &u.YearLevel, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// CreateUserParams holds optional profile fields for registration.
type CreateUserParams struct {
	Phone     string
	Course    string
	YearLevel *int
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName string, role models.Role, profile *CreateUserParams) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name, role, phone, course, year_level)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), $7)
		RETURNING ` + userColumns
	phone, course := "", ""
	var yearLevel *int
	if profile != nil {
		phone, course, yearLevel = profile.Phone, profile.Course, profile.YearLevel
	}
	return scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, fullName, string(role), phone, course, yearLevel))
}

// UpdateProfile updates mutable profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, fullName, phone, course string, yearLevel *int) (*models.User, error) {
	const q = `UPDATE users SET full_name = $2, phone = NULLIF($3,''), course = NULLIF($4,''),
		year_level = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, id, fullName, phone, course, yearLevel))
}
