package models

import (
	"time"

	"github.com/google/uuid"
)

// OrgStatus is the approval state of an organization.
type OrgStatus string

const (
	OrgStatusPending  OrgStatus = "pending"
	OrgStatusApproved OrgStatus = "approved"
	OrgStatusRejected OrgStatus = "rejected"
)

// Organization represents a campus organization (club, department, society).
type Organization struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	JoinCode    string     `json:"join_code"`
	Status      OrgStatus  `json:"status"`
	IsActive    bool       `json:"is_active"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	ReviewedBy  *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Membership roles within an organization.
const (
	OrgRoleMember    = "member"
	OrgRoleOrganizer = "organizer"
	OrgRoleAdmin     = "admin"
)

// How a member joined the organization.
const (
	JoinedViaCode   = "code"
	JoinedViaInvite = "invite"
)

// Membership links a user to an organization with a role.
type Membership struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	UserID         uuid.UUID `json:"user_id"`
	Role           string    `json:"role"`
	JoinedVia      string    `json:"joined_via"`
	JoinedAt       time.Time `json:"joined_at"`
}

// Invite is a shareable invite link token for an organization.
type Invite struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	Token          string     `json:"token"`
	CreatedBy      uuid.UUID  `json:"created_by"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	MaxUses        *int       `json:"max_uses,omitempty"`
	UsedCount      int        `json:"used_count"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Valid reports whether the invite can still be redeemed at t.
func (i *Invite) Valid(t time.Time) bool {
	if !i.IsActive {
		return false
	}
	if i.ExpiresAt != nil && t.After(*i.ExpiresAt) {
		return false
	}
	if i.MaxUses != nil && i.UsedCount >= *i.MaxUses {
		return false
	}
	return true
}
