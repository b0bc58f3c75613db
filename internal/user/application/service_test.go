package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/leocisternasa/mediprotek-test/internal/user/application"
	"github.com/leocisternasa/mediprotek-test/internal/user/domain"
	"github.com/leocisternasa/mediprotek-test/internal/user/ports"
)

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]domain.User
	events []ports.OutboxEvent
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uuid.UUID]domain.User{}}
}

func (f *fakeUsers) CreateWithOutboxTx(_ context.Context, params ports.CreateUserTxParams, outboxEvent ports.OutboxEvent) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == params.Email {
			return domain.User{}, domain.ErrConflict
		}
	}
	user := domain.User{
		UserID:    uuid.New(),
		Email:     params.Email,
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Role:      params.Role,
		BirthDate: params.BirthDate,
		Phone:     params.Phone,
		CreatedAt: params.CreatedAtUTC,
		UpdatedAt: params.CreatedAtUTC,
	}
	f.byID[user.UserID] = user
	outboxEvent.PartitionKey = user.UserID.String()
	f.events = append(f.events, outboxEvent)
	return user, nil
}

func (f *fakeUsers) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeUsers) List(_ context.Context, params ports.ListUsersParams) ([]domain.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, u)
	}
	total := int64(len(out))
	if params.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[params.Offset:]
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, total, nil
}

func (f *fakeUsers) UpdateWithOutboxTx(_ context.Context, params ports.UpdateUserTxParams, outboxEvent ports.OutboxEvent) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[params.UserID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	if params.Email != nil {
		for id, u := range f.byID {
			if id != params.UserID && u.Email == *params.Email {
				return domain.User{}, domain.ErrConflict
			}
		}
		user.Email = *params.Email
	}
	if params.FirstName != nil {
		user.FirstName = *params.FirstName
	}
	if params.LastName != nil {
		user.LastName = *params.LastName
	}
	if params.Role != nil {
		user.Role = *params.Role
	}
	if params.BirthDate != nil {
		user.BirthDate = params.BirthDate
	}
	if params.Phone != nil {
		user.Phone = params.Phone
	}
	user.UpdatedAt = params.UpdatedAtUTC
	f.byID[params.UserID] = user
	f.events = append(f.events, outboxEvent)
	return user, nil
}

func (f *fakeUsers) DeleteWithOutboxTx(_ context.Context, userID uuid.UUID, outboxEvent ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[userID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, userID)
	f.events = append(f.events, outboxEvent)
	return nil
}

func (f *fakeUsers) BulkDeleteWithOutboxTx(_ context.Context, userIDs []uuid.UUID, makeEvent func(domain.User) ports.OutboxEvent) (ports.BulkDeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := ports.BulkDeleteResult{}
	for _, id := range userIDs {
		user, ok := f.byID[id]
		if !ok {
			result.Missing = append(result.Missing, id)
			continue
		}
		delete(f.byID, id)
		f.events = append(f.events, makeEvent(user))
		result.Deleted = append(result.Deleted, id)
	}
	return result, nil
}

func (f *fakeUsers) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

type fakeOutbox struct {
	mu     sync.Mutex
	queued []ports.OutboxEvent
}

func (f *fakeOutbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, event)
	return nil
}

func (f *fakeOutbox) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkPublished(context.Context, uuid.UUID, string, time.Time) error { return nil }

func (f *fakeOutbox) MarkFailed(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

func (f *fakeOutbox) MarkDeadLettered(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

type fakeIdempotency struct {
	mu      sync.Mutex
	records map[string]ports.IdempotencyRecord
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{records: map[string]ports.IdempotencyRecord{}}
}

func (f *fakeIdempotency) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeIdempotency) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[key]; ok {
		return domain.ErrConflict
	}
	f.records[key] = ports.IdempotencyRecord{Key: key, RequestHash: requestHash, Status: "PENDING", ExpiresAt: expiresAt}
	return nil
}

func (f *fakeIdempotency) Complete(_ context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.records[key]
	rec.Status = "COMPLETED"
	rec.ResponseCode = responseCode
	rec.ResponseBody = responseBody
	rec.UpdatedAt = at
	f.records[key] = rec
	return nil
}

type fixture struct {
	service *application.Service
	users   *fakeUsers
	idem    *fakeIdempotency
}

func newFixture() *fixture {
	users := newFakeUsers()
	idem := newFakeIdempotency()
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:     "user-service-test",
			DefaultRole:     domain.RoleUser,
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Users:       users,
		Outbox:      &fakeOutbox{},
		Idempotency: idem,
	})
	return &fixture{service: svc, users: users, idem: idem}
}

func TestCreateUserEmitsCreationEvent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	view, err := f.service.CreateUser(ctx, application.CreateUserRequest{
		Email:     "Maria.Perez@Example.com",
		FirstName: "Maria",
		LastName:  "Perez",
	})
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if view.Email != "maria.perez@example.com" {
		t.Fatalf("expected normalized email, got %q", view.Email)
	}
	if view.Role != string(domain.RoleUser) {
		t.Fatalf("expected default role, got %q", view.Role)
	}
	types := f.users.eventTypes()
	if len(types) != 1 || types[0] != "user.event.created" {
		t.Fatalf("expected one creation event, got %v", types)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	req := application.CreateUserRequest{
		Email:     "dup@example.com",
		FirstName: "First",
		LastName:  "User",
	}
	if _, err := f.service.CreateUser(ctx, req); err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if _, err := f.service.CreateUser(ctx, req); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
}

func TestCreateUserRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	cases := []application.CreateUserRequest{
		{Email: "not-an-email", FirstName: "A", LastName: "B"},
		{Email: "ok@example.com", FirstName: "", LastName: "B"},
		{Email: "ok@example.com", FirstName: "A", LastName: "B", Role: "WIZARD"},
	}
	for i, req := range cases {
		if _, err := f.service.CreateUser(ctx, req); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestUpdateUserUnknownID(t *testing.T) {
	t.Parallel()

	f := newFixture()
	first := "Ghost"
	_, err := f.service.UpdateUser(context.Background(), application.UpdateUserRequest{
		UserID:    uuid.New(),
		FirstName: &first,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBulkDeleteEmitsOneEventPerUser(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	ids := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		view, err := f.service.CreateUser(ctx, application.CreateUserRequest{
			Email:     fmt.Sprintf("user%d@example.com", i),
			FirstName: "Bulk",
			LastName:  "Target",
		})
		if err != nil {
			t.Fatalf("create user failed: %v", err)
		}
		id, err := uuid.Parse(view.ID)
		if err != nil {
			t.Fatalf("parse created id: %v", err)
		}
		ids = append(ids, id)
	}
	unknown := uuid.New()

	resp, err := f.service.BulkDeleteUsers(ctx, append(ids, unknown))
	if err != nil {
		t.Fatalf("bulk delete failed: %v", err)
	}
	if len(resp.Deleted) != 3 {
		t.Fatalf("expected 3 deleted, got %d", len(resp.Deleted))
	}
	if len(resp.Missing) != 1 || resp.Missing[0] != unknown.String() {
		t.Fatalf("expected unknown id reported missing, got %v", resp.Missing)
	}

	deletions := 0
	for _, et := range f.users.eventTypes() {
		if et == "user.event.deleted" {
			deletions++
		}
	}
	if deletions != 3 {
		t.Fatalf("expected one deletion event per removed user, got %d", deletions)
	}
}

func TestListUsersClampsPageSize(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := f.service.CreateUser(ctx, application.CreateUserRequest{
			Email:     fmt.Sprintf("page%d@example.com", i),
			FirstName: "Page",
			LastName:  "User",
		}); err != nil {
			t.Fatalf("create user failed: %v", err)
		}
	}

	resp, err := f.service.ListUsers(ctx, application.ListUsersRequest{Limit: 2})
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(resp.Users) != 2 {
		t.Fatalf("expected page of 2, got %d", len(resp.Users))
	}
	if resp.Total != 5 {
		t.Fatalf("expected total 5, got %d", resp.Total)
	}
}

func TestCreateUserIdempotencyKeyReplay(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	req := application.CreateUserRequest{
		Email:          "idem@example.com",
		FirstName:      "Idem",
		LastName:       "User",
		IdempotencyKey: "create-1",
	}
	first, err := f.service.CreateUser(ctx, req)
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	// An identical retry replays the stored response without a second row
	// or a second creation event.
	second, err := f.service.CreateUser(ctx, req)
	if err != nil {
		t.Fatalf("identical retry must succeed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("replay must return the original user: %q vs %q", second.ID, first.ID)
	}
	if types := f.users.eventTypes(); len(types) != 1 {
		t.Fatalf("replay must not emit another event, got %v", types)
	}

	req.Email = "idem2@example.com"
	if _, err := f.service.CreateUser(ctx, req); !errors.Is(err, domain.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict on reused key, got %v", err)
	}
}
