package application

import (
	"time"

	"github.com/google/uuid"
)

// CreateUserRequest creates a canonical user record.
type CreateUserRequest struct {
	Email          string
	FirstName      string
	LastName       string
	Role           string
	BirthDate      *time.Time
	Phone          *string
	IdempotencyKey string
}

// UpdateUserRequest mutates mutable canonical fields; nil means unchanged.
type UpdateUserRequest struct {
	UserID    uuid.UUID
	Email     *string
	FirstName *string
	LastName  *string
	Role      *string
	BirthDate *time.Time
	Phone     *string
}

// ListUsersRequest pages the directory.
type ListUsersRequest struct {
	Limit  int
	Offset int
	Search string
}

// UserView is the public projection of a canonical record.
type UserView struct {
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

// ListUsersResponse carries one page plus the total row count.
type ListUsersResponse struct {
	Users []UserView `json:"users"`
	Total int64      `json:"total"`
}

// BulkDeleteResponse reports per-id outcomes so no failure is silent.
type BulkDeleteResponse struct {
	Deleted []string `json:"deleted"`
	Missing []string `json:"missing"`
}
