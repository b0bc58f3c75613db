package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role enumerates the access tiers mirrored from the canonical user record.
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

// Credential is the authentication aggregate owned by the auth service.
// Its id always equals the canonical user record's id; identity fields are
// mirrored copies kept current by the user lifecycle event consumer. The
// password hash here is the only one in the system.
type Credential struct {
	UserID                uuid.UUID
	Email                 string
	FirstName             string
	LastName              string
	Role                  Role
	PasswordHash          string
	RefreshTokenHash      *string
	RefreshTokenExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
