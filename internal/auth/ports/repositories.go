package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/leocisternasa/mediprotek-test/internal/auth/domain"
)

// CreateCredentialParams captures the initial credential row written during
// registration. UserID is the id returned by the user directory, never
// generated locally, so the two stores always share the join key.
type CreateCredentialParams struct {
	UserID       uuid.UUID
	Email        string
	FirstName    string
	LastName     string
	Role         domain.Role
	PasswordHash string
	CreatedAtUTC time.Time
}

// MirrorIdentityParams carries the identity fields copied from a user
// lifecycle event. Credential state is deliberately absent.
type MirrorIdentityParams struct {
	UserID       uuid.UUID
	Email        string
	FirstName    string
	LastName     string
	Role         domain.Role
	UpdatedAtUTC time.Time
}

// CredentialRepository manages credential rows and refresh-token state.
// Refresh-token writes are single-row so one active token per user holds by
// construction.
type CredentialRepository interface {
	Create(ctx context.Context, params CreateCredentialParams) (domain.Credential, error)
	GetByEmail(ctx context.Context, email string) (domain.Credential, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.Credential, error)
	MirrorIdentity(ctx context.Context, params MirrorIdentityParams) error
	SetRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt, updatedAt time.Time) error
	ClearRefreshToken(ctx context.Context, userID uuid.UUID, updatedAt time.Time) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// EventDedupRepository makes the lifecycle event consumer idempotent across
// at-least-once broker delivery.
type EventDedupRepository interface {
	IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error
}

// Idempotency record lifecycle states.
const (
	IdempotencyStatusPending   = "PENDING"
	IdempotencyStatusCompleted = "COMPLETED"
)

// IdempotencyRecord tracks a previously accepted mutating request.
// Storing response metadata lets handlers return stable replay responses.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	Status       string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdempotencyRepository enforces idempotent mutation semantics.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}
