package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/leocisternasa/mediprotek-test/internal/auth/domain"
	"github.com/leocisternasa/mediprotek-test/internal/auth/ports"
)

// ListUsers pages the directory listing for callers holding users.read.
func (s *Service) ListUsers(ctx context.Context, caller ports.AuthClaims, req ListUsersRequest) (ListUsersResponse, error) {
	if err := s.authorize(caller, domain.PermUsersRead); err != nil {
		return ListUsersResponse{}, err
	}

	dirCtx, cancel := context.WithTimeout(ctx, s.cfg.DirectoryTimeout)
	defer cancel()
	users, total, err := s.directory.ListUsers(dirCtx, ports.DirectoryListParams{
		Limit:  req.Limit,
		Offset: req.Offset,
		Search: strings.TrimSpace(req.Search),
	})
	if err != nil {
		return ListUsersResponse{}, err
	}

	views := make([]AuthUserView, 0, len(users))
	for _, u := range users {
		views = append(views, toDirectoryUserView(u))
	}
	return ListUsersResponse{Users: views, Total: total}, nil
}

// GetUserByID fetches a single directory record for callers holding
// users.read.
func (s *Service) GetUserByID(ctx context.Context, caller ports.AuthClaims, userID uuid.UUID) (AuthUserView, error) {
	if err := s.authorize(caller, domain.PermUsersRead); err != nil {
		return AuthUserView{}, err
	}

	dirCtx, cancel := context.WithTimeout(ctx, s.cfg.DirectoryTimeout)
	defer cancel()
	user, err := s.directory.GetUser(dirCtx, userID)
	if err != nil {
		return AuthUserView{}, err
	}
	return toDirectoryUserView(user), nil
}

// AdminCreateUser provisions an account with an explicit role. Granting any
// role above the default additionally requires roles.assign.
func (s *Service) AdminCreateUser(ctx context.Context, caller ports.AuthClaims, req AdminCreateUserRequest) (AuthUserView, error) {
	if err := s.authorize(caller, domain.PermUsersWrite); err != nil {
		return AuthUserView{}, err
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return AuthUserView{}, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return AuthUserView{}, err
	}
	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	if first == "" || last == "" {
		return AuthUserView{}, fmt.Errorf("%w: first and last name are required", domain.ErrInvalidInput)
	}

	role := s.cfg.DefaultRole
	if req.Role != "" {
		parsed, ok := domain.ParseRole(req.Role)
		if !ok {
			return AuthUserView{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, req.Role)
		}
		role = parsed
	}
	if role != s.cfg.DefaultRole {
		if err := s.authorize(caller, domain.PermRolesAssign); err != nil {
			return AuthUserView{}, err
		}
	}
	replay, err := s.beginIdempotent(ctx, req.IdempotencyKey, req)
	if err != nil {
		return AuthUserView{}, err
	}
	if replay != nil {
		var stored AuthUserView
		if err := json.Unmarshal(replay.ResponseBody, &stored); err != nil {
			return AuthUserView{}, fmt.Errorf("%w: stored response is not replayable", domain.ErrIdempotencyConflict)
		}
		return stored, nil
	}

	cred, err := s.createIdentity(ctx, ports.DirectoryCreateParams{
		Email:          email,
		FirstName:      first,
		LastName:       last,
		Role:           string(role),
		BirthDate:      req.BirthDate,
		Phone:          req.Phone,
		IdempotencyKey: req.IdempotencyKey,
	}, req.Password)
	if err != nil {
		return AuthUserView{}, err
	}
	view := toAuthUserView(cred)
	s.completeIdempotent(ctx, req.IdempotencyKey, http.StatusCreated, view)
	return view, nil
}

// AdminUpdateUser mutates a directory record. Role changes are gated by
// roles.assign on top of users.write.
func (s *Service) AdminUpdateUser(ctx context.Context, caller ports.AuthClaims, req AdminUpdateUserRequest) (AuthUserView, error) {
	if err := s.authorize(caller, domain.PermUsersWrite); err != nil {
		return AuthUserView{}, err
	}

	params := ports.DirectoryUpdateParams{
		UserID:    req.UserID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		BirthDate: req.BirthDate,
		Phone:     req.Phone,
	}
	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			return AuthUserView{}, err
		}
		params.Email = &email
	}
	if req.Role != nil {
		parsed, ok := domain.ParseRole(*req.Role)
		if !ok {
			return AuthUserView{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, *req.Role)
		}
		if err := s.authorize(caller, domain.PermRolesAssign); err != nil {
			return AuthUserView{}, err
		}
		role := string(parsed)
		params.Role = &role
	}

	dirCtx, cancel := context.WithTimeout(ctx, s.cfg.DirectoryTimeout)
	defer cancel()
	updated, err := s.directory.UpdateUser(dirCtx, params)
	if err != nil {
		return AuthUserView{}, err
	}

	s.mirrorDirectoryUser(ctx, updated)
	return toDirectoryUserView(updated), nil
}

// AdminDeleteUser removes the directory record and the local credential.
// Deleting the credential in-line disables login immediately; the lifecycle
// event would otherwise only catch up after the worker consumes it.
func (s *Service) AdminDeleteUser(ctx context.Context, caller ports.AuthClaims, userID uuid.UUID) error {
	if err := s.authorize(caller, domain.PermUsersDelete); err != nil {
		return err
	}

	dirCtx, cancel := context.WithTimeout(ctx, s.cfg.DirectoryTimeout)
	defer cancel()
	if err := s.directory.DeleteUser(dirCtx, userID); err != nil {
		return err
	}

	if err := s.credentials.Delete(ctx, userID); err != nil && !isNotFound(err) {
		s.authLogger().WarnContext(ctx, "inline credential delete failed",
			"operation", "admin_delete_user",
			"outcome", "partial",
			"user_id", userID.String(),
			"error", err,
		)
	}
	return nil
}

// BulkDeleteUsers removes a batch of accounts. The directory deletes all
// matched rows and emits one deletion event per row in a single transaction;
// unknown ids are reported, not treated as failure.
func (s *Service) BulkDeleteUsers(ctx context.Context, caller ports.AuthClaims, req BulkDeleteRequest) (BulkDeleteResponse, error) {
	if err := s.authorize(caller, domain.PermUsersDelete); err != nil {
		return BulkDeleteResponse{}, err
	}
	if len(req.IDs) == 0 {
		return BulkDeleteResponse{}, fmt.Errorf("%w: ids are required", domain.ErrInvalidInput)
	}

	seen := make(map[uuid.UUID]struct{}, len(req.IDs))
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return BulkDeleteResponse{}, fmt.Errorf("%w: invalid id %q", domain.ErrInvalidInput, raw)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	dirCtx, cancel := context.WithTimeout(ctx, s.cfg.DirectoryTimeout)
	defer cancel()
	result, err := s.directory.BulkDeleteUsers(dirCtx, ids)
	if err != nil {
		return BulkDeleteResponse{}, err
	}

	for _, id := range result.Deleted {
		if err := s.credentials.Delete(ctx, id); err != nil && !isNotFound(err) {
			s.authLogger().WarnContext(ctx, "inline credential delete failed",
				"operation", "bulk_delete_users",
				"outcome", "partial",
				"user_id", id.String(),
				"error", err,
			)
		}
	}

	resp := BulkDeleteResponse{
		Deleted: make([]string, 0, len(result.Deleted)),
		Missing: make([]string, 0, len(result.Missing)),
	}
	for _, id := range result.Deleted {
		resp.Deleted = append(resp.Deleted, id.String())
	}
	for _, id := range result.Missing {
		resp.Missing = append(resp.Missing, id.String())
	}
	return resp, nil
}

func (s *Service) authorize(caller ports.AuthClaims, perm domain.Permission) error {
	role, ok := domain.ParseRole(caller.Role)
	if !ok {
		return fmt.Errorf("%w: unknown role", domain.ErrForbidden)
	}
	if !s.permissions.Allows(role, perm) {
		return fmt.Errorf("%w: missing permission %s", domain.ErrForbidden, perm)
	}
	return nil
}
