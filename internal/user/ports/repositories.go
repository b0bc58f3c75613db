package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/leocisternasa/mediprotek-test/internal/user/domain"
)

// CreateUserTxParams captures atomic user-creation inputs.
// The repository generates the user id and injects it into the outbox payload
// so the canonical row and its creation event commit together.
type CreateUserTxParams struct {
	Email        string
	FirstName    string
	LastName     string
	Role         domain.Role
	BirthDate    *time.Time
	Phone        *string
	CreatedAtUTC time.Time
}

// UpdateUserTxParams lists the mutable canonical fields. Nil pointers mean
// "leave unchanged"; email changes re-check the unique constraint.
type UpdateUserTxParams struct {
	UserID       uuid.UUID
	Email        *string
	FirstName    *string
	LastName     *string
	Role         *domain.Role
	BirthDate    *time.Time
	Phone        *string
	UpdatedAtUTC time.Time
}

// ListUsersParams pages the directory listing.
type ListUsersParams struct {
	Limit  int
	Offset int
	Search string
}

// BulkDeleteResult reports the per-id outcome of a batch delete.
type BulkDeleteResult struct {
	Deleted []uuid.UUID
	Missing []uuid.UUID
}

// UserRepository defines persistence operations for canonical user records.
// The transactional mutation methods exist to enforce row+outbox consistency:
// a mutation is only observable together with the event announcing it.
type UserRepository interface {
	CreateWithOutboxTx(ctx context.Context, params CreateUserTxParams, outboxEvent OutboxEvent) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	List(ctx context.Context, params ListUsersParams) ([]domain.User, int64, error)
	UpdateWithOutboxTx(ctx context.Context, params UpdateUserTxParams, outboxEvent OutboxEvent) (domain.User, error)
	DeleteWithOutboxTx(ctx context.Context, userID uuid.UUID, outboxEvent OutboxEvent) error
	BulkDeleteWithOutboxTx(ctx context.Context, userIDs []uuid.UUID, makeEvent func(domain.User) OutboxEvent) (BulkDeleteResult, error)
}

// OutboxEvent is the write-side event payload prior to storage.
// It is adapter-neutral to keep application code independent of broker specifics.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls publish-retry workflow for domain events.
// This explicit contract enables transactional outbox patterns without leaking DB details.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
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
