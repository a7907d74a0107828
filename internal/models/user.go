// File: internal/models/user.go
package models

import (
	"time"
)

// Role controls what a user is authorized to do.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a persisted user account.
type User struct {
	ID                  string     `json:"id" db:"id"`
	Username            string     `json:"username" db:"username"`
	Email               string     `json:"email" db:"email"`
	PasswordHash        string     `json:"-" db:"password_hash"` // Never serialize to JSON
	FirstName           string     `json:"firstName,omitempty" db:"first_name"`
	LastName            string     `json:"lastName,omitempty" db:"last_name"`
	Image               string     `json:"image,omitempty" db:"image"`
	Role                Role       `json:"role" db:"role"`
	ResetPasswordToken  *string    `json:"-" db:"reset_password_token"`
	ResetPasswordExpiry *time.Time `json:"-" db:"reset_password_expiry"`
	CreatedAt           time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time  `json:"updatedAt" db:"updated_at"`
}

// PublicUser is the redacted shape of a User that leaves the service layer.
// It has no password or reset-token fields at all.
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Image     string    `json:"image,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Redact strips credentials from the user.
func (u *User) Redact() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Image:     u.Image,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// DisplayName is the greeting name used in outgoing mail.
func (u PublicUser) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// UserUpdate is a partial update. Nil fields are left untouched by the store.
type UserUpdate struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Username     *string
	PasswordHash *string
	Image        *string
	Role         *Role
}

// ListQuery selects one page of users.
type ListQuery struct {
	Offset int
	Limit  int
	Search string
}

// PaginatedUsers is the result of a paginated listing.
type PaginatedUsers struct {
	Data       []PublicUser `json:"data"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	TotalPages int          `json:"totalPages"`
}
