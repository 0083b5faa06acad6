package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's platform-wide role.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleUser      Role = "user"
)

// User represents a platform user.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	Course    string    `json:"course,omitempty"`
	YearLevel *int      `json:"year_level,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	Course    string    `json:"course,omitempty"`
	YearLevel *int      `json:"year_level,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		Phone:     u.Phone,
		Course:    u.Course,
		YearLevel: u.YearLevel,
		CreatedAt: u.CreatedAt,
	}
}
