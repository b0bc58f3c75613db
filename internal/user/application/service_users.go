package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leocisternasa/mediprotek-test/internal/user/domain"
	"github.com/leocisternasa/mediprotek-test/internal/user/ports"
)

// CreateUser inserts the canonical record and its creation event in one
// transaction. Duplicate emails surface as domain.ErrConflict.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (UserView, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return UserView{}, err
	}
	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	if first == "" || last == "" {
		return UserView{}, fmt.Errorf("%w: first and last name are required", domain.ErrInvalidInput)
	}
	role := s.cfg.DefaultRole
	if req.Role != "" {
		parsed, ok := domain.ParseRole(req.Role)
		if !ok {
			return UserView{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, req.Role)
		}
		role = parsed
	}
	replay, err := s.beginIdempotent(ctx, req.IdempotencyKey, req)
	if err != nil {
		return UserView{}, err
	}
	if replay != nil {
		var stored UserView
		if err := json.Unmarshal(replay.ResponseBody, &stored); err != nil {
			return UserView{}, fmt.Errorf("%w: stored response is not replayable", domain.ErrIdempotencyConflict)
		}
		return stored, nil
	}

	now := s.nowFn()
	event := s.buildUserEvent(eventTypeUserCreated, userEventData{
		Email:     email,
		FirstName: first,
		LastName:  last,
		Role:      string(role),
		UpdatedAt: now.Format(time.RFC3339),
	}, now)
	created, err := s.users.CreateWithOutboxTx(ctx, ports.CreateUserTxParams{
		Email:        email,
		FirstName:    first,
		LastName:     last,
		Role:         role,
		BirthDate:    req.BirthDate,
		Phone:        req.Phone,
		CreatedAtUTC: now,
	}, event)
	if err != nil {
		return UserView{}, err
	}
	view := toUserView(created)
	s.completeIdempotent(ctx, req.IdempotencyKey, http.StatusCreated, view)
	return view, nil
}

func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (UserView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return UserView{}, err
	}
	return toUserView(user), nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (UserView, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return UserView{}, err
	}
	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		return UserView{}, err
	}
	return toUserView(user), nil
}

func (s *Service) ListUsers(ctx context.Context, req ListUsersRequest) (ListUsersResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	users, total, err := s.users.List(ctx, ports.ListUsersParams{Limit: limit, Offset: offset, Search: strings.TrimSpace(req.Search)})
	if err != nil {
		return ListUsersResponse{}, err
	}
	resp := ListUsersResponse{Users: make([]UserView, 0, len(users)), Total: total}
	for _, u := range users {
		resp.Users = append(resp.Users, toUserView(u))
	}
	return resp, nil
}

// UpdateUser applies the supplied fields and commits the row together with a
// user.event.updated carrying the post-update snapshot.
func (s *Service) UpdateUser(ctx context.Context, req UpdateUserRequest) (UserView, error) {
	params := ports.UpdateUserTxParams{
		UserID:    req.UserID,
		BirthDate: req.BirthDate,
		Phone:     req.Phone,
	}
	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			return UserView{}, err
		}
		params.Email = &email
	}
	if req.FirstName != nil {
		first := strings.TrimSpace(*req.FirstName)
		if first == "" {
			return UserView{}, fmt.Errorf("%w: first name cannot be empty", domain.ErrInvalidInput)
		}
		params.FirstName = &first
	}
	if req.LastName != nil {
		last := strings.TrimSpace(*req.LastName)
		if last == "" {
			return UserView{}, fmt.Errorf("%w: last name cannot be empty", domain.ErrInvalidInput)
		}
		params.LastName = &last
	}
	if req.Role != nil {
		role, ok := domain.ParseRole(*req.Role)
		if !ok {
			return UserView{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, *req.Role)
		}
		params.Role = &role
	}

	now := s.nowFn()
	params.UpdatedAtUTC = now
	event := s.buildUserEvent(eventTypeUserUpdated, userEventData{
		UserID:    req.UserID.String(),
		UpdatedAt: now.Format(time.RFC3339),
	}, now)
	updated, err := s.users.UpdateWithOutboxTx(ctx, params, event)
	if err != nil {
		return UserView{}, err
	}
	return toUserView(updated), nil
}

// DeleteUser removes the canonical record and its deletion event atomically.
func (s *Service) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	now := s.nowFn()
	event := s.buildUserEvent(eventTypeUserDeleted, userEventData{
		UserID:    userID.String(),
		UpdatedAt: now.Format(time.RFC3339),
	}, now)
	return s.users.DeleteWithOutboxTx(ctx, userID, event)
}

// BulkDeleteUsers removes every listed id in one transaction, writing one
// deletion event per removed row. Ids without a matching row are reported
// back rather than silently dropped.
func (s *Service) BulkDeleteUsers(ctx context.Context, userIDs []uuid.UUID) (BulkDeleteResponse, error) {
	if len(userIDs) == 0 {
		return BulkDeleteResponse{}, fmt.Errorf("%w: no ids supplied", domain.ErrInvalidInput)
	}
	seen := make(map[uuid.UUID]bool, len(userIDs))
	unique := make([]uuid.UUID, 0, len(userIDs))
	for _, id := range userIDs {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	now := s.nowFn()
	result, err := s.users.BulkDeleteWithOutboxTx(ctx, unique, func(u domain.User) ports.OutboxEvent {
		return s.buildUserEvent(eventTypeUserDeleted, userEventData{
			UserID:    u.UserID.String(),
			UpdatedAt: now.Format(time.RFC3339),
		}, now)
	})
	if err != nil {
		return BulkDeleteResponse{}, err
	}
	resp := BulkDeleteResponse{Deleted: make([]string, 0, len(result.Deleted)), Missing: make([]string, 0, len(result.Missing))}
	for _, id := range result.Deleted {
		resp.Deleted = append(resp.Deleted, id.String())
	}
	for _, id := range result.Missing {
		resp.Missing = append(resp.Missing, id.String())
	}
	return resp, nil
}

func toUserView(u domain.User) UserView {
	return UserView{
		ID:        u.UserID.String(),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		BirthDate: u.BirthDate,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return strings.ToLower(trimmed), nil
}

func hashRequest(v any) string {
	raw, _ := json.Marshal(v)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// beginIdempotent reserves the key for a first-time request. A reused key is
// a conflict unless it belongs to an identical completed request, in which
// case the stored record is returned so the caller can replay its response.
func (s *Service) beginIdempotent(ctx context.Context, key string, request any) (*ports.IdempotencyRecord, error) {
	if key == "" {
		return nil, nil
	}
	hash := hashRequest(request)
	if err := s.idempotency.Reserve(ctx, key, hash, s.nowFn().Add(s.cfg.IdempotencyTTL)); err == nil {
		return nil, nil
	}
	record, err := s.idempotency.Get(ctx, key)
	if err != nil || record == nil {
		return nil, fmt.Errorf("%w: idempotency key already used", domain.ErrIdempotencyConflict)
	}
	if record.RequestHash != hash {
		return nil, fmt.Errorf("%w: idempotency key reused with a different request", domain.ErrIdempotencyConflict)
	}
	if record.Status != ports.IdempotencyStatusCompleted || len(record.ResponseBody) == 0 {
		return nil, fmt.Errorf("%w: request with this idempotency key is still in flight", domain.ErrIdempotencyConflict)
	}
	return record, nil
}

// completeIdempotent stores the response for later replays. The row is
// already committed, so a storage failure only costs the replay and is
// logged rather than surfaced.
func (s *Service) completeIdempotent(ctx context.Context, key string, responseCode int, response any) {
	if key == "" {
		return
	}
	body, err := json.Marshal(response)
	if err == nil {
		err = s.idempotency.Complete(ctx, key, responseCode, body, s.nowFn())
	}
	if err != nil {
		slog.Default().WarnContext(ctx, "idempotency record not completed",
			"service", s.cfg.ServiceName,
			"module", "users",
			"layer", "application",
			"operation", "complete_idempotency",
			"outcome", "failure",
			"error", err,
		)
	}
}
