package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DirectoryUser is the canonical record projection returned by the user
// directory service.
type DirectoryUser struct {
	UserID    uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Role      string
	BirthDate *time.Time
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DirectoryCreateParams creates a canonical record; the directory generates
// and returns the id.
type DirectoryCreateParams struct {
	Email          string
	FirstName      string
	LastName       string
	Role           string
	BirthDate      *time.Time
	Phone          *string
	IdempotencyKey string
}

// DirectoryUpdateParams mutates canonical fields; nil means unchanged.
type DirectoryUpdateParams struct {
	UserID    uuid.UUID
	Email     *string
	FirstName *string
	LastName  *string
	Role      *string
	BirthDate *time.Time
	Phone     *string
}

// DirectoryListParams pages the directory listing.
type DirectoryListParams struct {
	Limit  int
	Offset int
	Search string
}

// DirectoryBulkDeleteResult reports per-id outcomes of a batch delete.
type DirectoryBulkDeleteResult struct {
	Deleted []uuid.UUID
	Missing []uuid.UUID
}

// UserDirectory is the synchronous client port to the user service. Every
// canonical mutation goes through here first; the auth store only ever reuses
// ids minted by the directory.
type UserDirectory interface {
	CreateUser(ctx context.Context, params DirectoryCreateParams) (DirectoryUser, error)
	GetUser(ctx context.Context, userID uuid.UUID) (DirectoryUser, error)
	ListUsers(ctx context.Context, params DirectoryListParams) ([]DirectoryUser, int64, error)
	UpdateUser(ctx context.Context, params DirectoryUpdateParams) (DirectoryUser, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	BulkDeleteUsers(ctx context.Context, userIDs []uuid.UUID) (DirectoryBulkDeleteResult, error)
}
