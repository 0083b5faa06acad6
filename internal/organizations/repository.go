package organizations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-pulse/backend/internal/models"
)

// Repository handles organization, membership and invite persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orgColumns = `id, name, description, join_code, status, is_active,
	created_by, reviewed_by, reviewed_at, created_at, updated_at`

func scanOrg(row interface{ Scan(...any) error }) (*models.Organization, error) {
	var o models.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Description, &o.JoinCode, &o.Status, &o.IsActive,
		&o.CreatedBy, &o.ReviewedBy, &o.ReviewedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create creates an organization in pending state.
func (r *Repository) Create(ctx context.Context, org *models.Organization) error {
	const q = `INSERT INTO organizations (name, description, join_code, status, created_by)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING id, status, is_active, reviewed_by, reviewed_at, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, org.Name, org.Description, org.JoinCode, org.CreatedBy).
		Scan(&org.ID, &org.Status, &org.IsActive, &org.ReviewedBy, &org.ReviewedAt, &org.CreatedAt, &org.UpdatedAt)
}

// GetByID returns an organization by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	const q = `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	return scanOrg(r.pool.QueryRow(ctx, q, id))
}

// GetByJoinCode returns an organization by its join code.
func (r *Repository) GetByJoinCode(ctx context.Context, code string) (*models.Organization, error) {
	const q = `SELECT ` + orgColumns + ` FROM organizations WHERE join_code = $1`
	return scanOrg(r.pool.QueryRow(ctx, q, code))
}

// Review records the admin decision on a pending organization.
func (r *Repository) Review(ctx context.Context, id, reviewerID uuid.UUID, status models.OrgStatus) (*models.Organization, error) {
	const q = `UPDATE organizations
		SET status = $3, reviewed_by = $2, reviewed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + orgColumns
	return scanOrg(r.pool.QueryRow(ctx, q, id, reviewerID, string(status)))
}

// ListPending returns organizations awaiting review.
func (r *Repository) ListPending(ctx context.Context) ([]*models.Organization, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orgColumns+` FROM organizations WHERE status = 'pending' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// AddMember adds a user to an organization. Existing memberships keep their
// role (no downgrade on re-join).
func (r *Repository) AddMember(ctx context.Context, orgID, userID uuid.UUID, role, joinedVia string) (created bool, err error) {
	const q = `INSERT INTO memberships (organization_id, user_id, role, joined_via)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (organization_id, user_id) DO NOTHING`
	tag, err := r.pool.Exec(ctx, q, orgID, userID, role, joinedVia)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetMemberRole updates a member's role within the organization.
func (r *Repository) SetMemberRole(ctx context.Context, orgID, userID uuid.UUID, role string) error {
	const q = `UPDATE memberships SET role = $3 WHERE organization_id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, q, orgID, userID, role)
	return err
}

// GetMemberRole returns the user's role in the organization, or empty if not a member.
func (r *Repository) GetMemberRole(ctx context.Context, orgID, userID uuid.UUID) (string, error) {
	const q = `SELECT role FROM memberships WHERE organization_id = $1 AND user_id = $2`
	var role string
	if err := r.pool.QueryRow(ctx, q, orgID, userID).Scan(&role); err != nil {
		return "", err
	}
	return role, nil
}

// UserCanManage reports whether the user is an organizer or admin of the org.
func (r *Repository) UserCanManage(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	role, err := r.GetMemberRole(ctx, orgID, userID)
	if err != nil || role == "" {
		return false, nil
	}
	return role == models.OrgRoleOrganizer || role == models.OrgRoleAdmin, nil
}

// ListForUser returns organizations the user is a member of.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error) {
	const q = `SELECT o.id, o.name, o.description, o.join_code, o.status, o.is_active,
		o.created_by, o.reviewed_by, o.reviewed_at, o.created_at, o.updated_at
		FROM organizations o
		INNER JOIN memberships m ON m.organization_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.name`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// ListMemberIDs returns user IDs of all members of the organization.
func (r *Repository) ListMemberIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM memberships WHERE organization_id = $1`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Member is an organization member with user details.
type Member struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// ListMembers returns members of an organization with user details.
func (r *Repository) ListMembers(ctx context.Context, orgID uuid.UUID) ([]Member, error) {
	const q = `SELECT m.id, m.user_id, u.email, u.full_name, m.role, m.joined_at
		FROM memberships m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = $1
		ORDER BY m.joined_at ASC`
	rows, err := r.pool.Query(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.UserID, &m.Email, &m.FullName, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// GetActiveInvite returns the newest redeemable invite for the org, if any.
func (r *Repository) GetActiveInvite(ctx context.Context, orgID uuid.UUID) (*models.Invite, error) {
	const q = `SELECT id, organization_id, token, created_by, expires_at, max_uses, used_count, is_active, created_at
		FROM invites
		WHERE organization_id = $1 AND is_active
		ORDER BY created_at DESC LIMIT 1`
	var inv models.Invite
	err := r.pool.QueryRow(ctx, q, orgID).Scan(&inv.ID, &inv.OrganizationID, &inv.Token, &inv.CreatedBy,
		&inv.ExpiresAt, &inv.MaxUses, &inv.UsedCount, &inv.IsActive, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreateInvite inserts an invite.
func (r *Repository) CreateInvite(ctx context.Context, inv *models.Invite) error {
	const q = `INSERT INTO invites (organization_id, token, created_by, expires_at, max_uses)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, used_count, is_active, created_at`
	return r.pool.QueryRow(ctx, q, inv.OrganizationID, inv.Token, inv.CreatedBy, inv.ExpiresAt, inv.MaxUses).
		Scan(&inv.ID, &inv.UsedCount, &inv.IsActive, &inv.CreatedAt)
}

// GetInviteByToken returns an invite by its token.
func (r *Repository) GetInviteByToken(ctx context.Context, token string) (*models.Invite, error) {
	const q = `SELECT id, organization_id, token, created_by, expires_at, max_uses, used_count, is_active, created_at
		FROM invites WHERE token = $1`
	var inv models.Invite
	err := r.pool.QueryRow(ctx, q, token).Scan(&inv.ID, &inv.OrganizationID, &inv.Token, &inv.CreatedBy,
		&inv.ExpiresAt, &inv.MaxUses, &inv.UsedCount, &inv.IsActive, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// MarkInviteUsed increments the invite's use counter.
func (r *Repository) MarkInviteUsed(ctx context.Context, inviteID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE invites SET used_count = used_count + 1 WHERE id = $1`, inviteID)
	return err
}
