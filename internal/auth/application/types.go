package application

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest creates a new identity via the public surface.
// The role is always the configured default; role assignment is an admin
// operation.
type RegisterRequest struct {
	Email          string     `json:"email"`
	Password       string     `json:"password"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	BirthDate      *time.Time `json:"birthDate,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	IdempotencyKey string     `json:"-"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthUserView is the public-safe projection returned by auth endpoints.
// Password hashes and refresh-token state never leave the service.
type AuthUserView struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Role      string     `json:"role"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// AuthResponse carries a token pair plus the authenticated user projection.
type AuthResponse struct {
	User         AuthUserView `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UpdateProfileRequest covers self-service profile edits. Email and role
// changes are excluded; those are admin operations.
type UpdateProfileRequest struct {
	FirstName *string    `json:"firstName,omitempty"`
	LastName  *string    `json:"lastName,omitempty"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
}

// AdminCreateUserRequest provisions an account with an explicit role and
// initial password.
type AdminCreateUserRequest struct {
	Email          string     `json:"email"`
	Password       string     `json:"password"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Role           string     `json:"role"`
	BirthDate      *time.Time `json:"birthDate,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	IdempotencyKey string     `json:"-"`
}

// AdminUpdateUserRequest mutates a directory record; nil means unchanged.
type AdminUpdateUserRequest struct {
	UserID    uuid.UUID  `json:"-"`
	Email     *string    `json:"email,omitempty"`
	FirstName *string    `json:"firstName,omitempty"`
	LastName  *string    `json:"lastName,omitempty"`
	Role      *string    `json:"role,omitempty"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
}

type ListUsersRequest struct {
	Limit  int
	Offset int
	Search string
}

type ListUsersResponse struct {
	Users []AuthUserView `json:"users"`
	Total int64          `json:"total"`
}

type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

type BulkDeleteResponse struct {
	Deleted []string `json:"deleted"`
	Missing []string `json:"missing"`
}
