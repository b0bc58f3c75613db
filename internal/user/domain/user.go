package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role enumerates the access tiers a user can hold.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// ParseRole validates a raw role string against the known set.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return Role(raw), true
	}
	return "", false
}

// User is the canonical identity aggregate owned by the user service.
// Credential state (password hash, refresh token) lives service-side in auth
// and is never part of this record or of the events derived from it.
type User struct {
	UserID    uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Role      Role
	BirthDate *time.Time
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
