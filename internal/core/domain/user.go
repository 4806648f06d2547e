package domain

import (
	"strings"
	"time"
)

// User models an account on the platform.
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Username        string     `json:"username"`
	DisplayName     string     `json:"displayName"`
	PasswordHash    string     `json:"-"`
	Role            Role       `json:"role"`
	IsActive        bool       `json:"isActive"`
	ProfileImageURL string     `json:"profileImageUrl,omitempty"`
	Bio             string     `json:"bio,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	LastLoginAt     *time.Time `json:"lastLoginAt"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// NormalizeEmail lower-cases and trims an email so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Sanitized returns a copy of u without the password hash.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	return &clone
}

// PublicUser is the identity payload returned to clients. Permission flags
// and the role level are derived from the matrix at serialization time.
type PublicUser struct {
	ID              string              `json:"id"`
	Email           string              `json:"email"`
	Username        string              `json:"username"`
	DisplayName     string              `json:"displayName"`
	Role            Role                `json:"role"`
	RoleLevel       int                 `json:"roleLevel"`
	Permissions     map[Permission]bool `json:"permissions"`
	IsActive        bool                `json:"isActive"`
	ProfileImageURL *string             `json:"profileImageUrl"`
	Bio             *string             `json:"bio"`
	LastLoginAt     *time.Time          `json:"lastLoginAt"`
	CreatedAt       time.Time           `json:"createdAt"`

	// Deprecated flags kept for older clients; use Permissions.
	CanCreatePosts bool `json:"canCreatePosts"`
	CanModerate    bool `json:"canModerate"`
	IsAdmin        bool `json:"isAdmin"`
}

// Public projects u through m. It is a pure function of (u, m).
func (u *User) Public(m Matrix) PublicUser {
	perms := make(map[Permission]bool, len(m))
	for p := range m {
		perms[p] = m.Allows(p, u.Role)
	}
	return PublicUser{
		ID:              u.ID,
		Email:           u.Email,
		Username:        u.Username,
		DisplayName:     u.DisplayName,
		Role:            u.Role,
		RoleLevel:       u.Role.Level(),
		Permissions:     perms,
		IsActive:        u.IsActive,
		ProfileImageURL: optional(u.ProfileImageURL),
		Bio:             optional(u.Bio),
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
		CanCreatePosts:  m.Allows(PermWriteCommunity, u.Role),
		CanModerate:     m.Allows(PermModerateCommunity, u.Role),
		IsAdmin:         u.Role == RoleAdmin,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
