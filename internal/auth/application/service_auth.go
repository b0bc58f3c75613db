package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leocisternasa/mediprotek-test/internal/auth/domain"
	"github.com/leocisternasa/mediprotek-test/internal/auth/ports"
)

// Register creates the canonical record through the user directory, then the
// local credential row reusing the directory-issued id, and finally mints a
// token pair. If the credential insert fails the canonical record is removed
// best-effort so orphans do not accumulate.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return AuthResponse{}, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return AuthResponse{}, err
	}
	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	if first == "" || last == "" {
		return AuthResponse{}, fmt.Errorf("%w: first and last name are required", domain.ErrInvalidInput)
	}
	replay, err := s.beginIdempotent(ctx, req.IdempotencyKey, req)
	if err != nil {
		return AuthResponse{}, err
	}
	if replay != nil {
		var stored AuthResponse
		if err := json.Unmarshal(replay.ResponseBody, &stored); err != nil {
			return AuthResponse{}, fmt.Errorf("%w: stored response is not replayable", domain.ErrIdempotencyConflict)
		}
		return stored, nil
	}

	cred, err := s.createIdentity(ctx, ports.DirectoryCreateParams{
		Email:          email,
		FirstName:      first,
		LastName:       last,
		Role:           string(s.cfg.DefaultRole),
		BirthDate:      req.BirthDate,
		Phone:          req.Phone,
		IdempotencyKey: req.IdempotencyKey,
	}, req.Password)
	if err != nil {
		return AuthResponse{}, err
	}

	resp, err := s.issueTokens(ctx, cred)
	if err != nil {
		return AuthResponse{}, err
	}
	s.completeIdempotent(ctx, req.IdempotencyKey, http.StatusCreated, resp)
	return resp, nil
}

// Login verifies the password against the single stored hash. A missing
// email and a mismatched password produce the identical error.
func (s *Service) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("%w: invalid email or password", domain.ErrInvalidCredentials)
	}
	now := s.nowFn()

	state, err := s.lockouts.Get(ctx, email)
	if err == nil && state.LockedUntil != nil && state.LockedUntil.After(now) {
		return AuthResponse{}, fmt.Errorf("%w until %s", domain.ErrAccountLocked, state.LockedUntil.Format(time.RFC3339))
	}

	cred, err := s.credentials.GetByEmail(ctx, email)
	if err != nil {
		s.recordLoginFailure(ctx, email, now)
		return AuthResponse{}, fmt.Errorf("%w: invalid email or password", domain.ErrInvalidCredentials)
	}
	if err := s.hasher.Compare(cred.PasswordHash, req.Password); err != nil {
		s.recordLoginFailure(ctx, email, now)
		return AuthResponse{}, fmt.Errorf("%w: invalid email or password", domain.ErrInvalidCredentials)
	}

	_ = s.lockouts.Clear(ctx, email)
	return s.issueTokens(ctx, cred)
}

// Refresh rotates the token pair. The presented token must carry a valid
// signature, be unexpired, and hash-match the single persisted token; a
// rotated or cleared token fails all the same way.
func (s *Service) Refresh(ctx context.Context, rawToken string) (AuthResponse, error) {
	claims, err := s.signer.ParseAndValidate(rawToken)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("%w: invalid refresh token", domain.ErrUnauthorized)
	}
	if claims.Kind != ports.TokenKindRefresh {
		return AuthResponse{}, fmt.Errorf("%w: not a refresh token", domain.ErrUnauthorized)
	}

	cred, err := s.credentials.GetByID(ctx, claims.UserID)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("%w: invalid refresh token", domain.ErrUnauthorized)
	}

	now := s.nowFn()
	presented := hashToken(rawToken)
	if cred.RefreshTokenHash == nil || *cred.RefreshTokenHash != presented {
		return AuthResponse{}, fmt.Errorf("%w: refresh token mismatch", domain.ErrUnauthorized)
	}
	if cred.RefreshTokenExpiresAt == nil || !cred.RefreshTokenExpiresAt.After(now) {
		return AuthResponse{}, fmt.Errorf("%w: refresh token", domain.ErrTokenExpired)
	}

	return s.issueTokens(ctx, cred)
}

// Logout clears the persisted refresh token and denylists the presented
// access token until its natural expiry. Repeated logouts succeed.
func (s *Service) Logout(ctx context.Context, claims ports.AuthClaims) error {
	now := s.nowFn()
	if err := s.credentials.ClearRefreshToken(ctx, claims.UserID, now); err != nil && !isNotFound(err) {
		return err
	}
	if err := s.denylist.MarkRevoked(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		s.authLogger().WarnContext(ctx, "access token denylist write failed",
			"operation", "logout",
			"outcome", "partial",
			"user_id", claims.UserID.String(),
			"error", err,
		)
	}
	return nil
}

// ValidateAccessToken parses and checks an access token, including the
// logout denylist.
func (s *Service) ValidateAccessToken(ctx context.Context, rawToken string) (ports.AuthClaims, error) {
	claims, err := s.signer.ParseAndValidate(rawToken)
	if err != nil {
		return ports.AuthClaims{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	if claims.Kind != ports.TokenKindAccess {
		return ports.AuthClaims{}, fmt.Errorf("%w: not an access token", domain.ErrUnauthorized)
	}
	revoked, err := s.denylist.IsRevoked(ctx, claims.TokenID)
	if err == nil && revoked {
		return ports.AuthClaims{}, fmt.Errorf("%w: token revoked", domain.ErrUnauthorized)
	}
	return claims, nil
}

// GetProfile serves the caller's projection from the local mirror.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (AuthUserView, error) {
	cred, err := s.credentials.GetByID(ctx, userID)
	if err != nil {
		return AuthUserView{}, err
	}
	return toAuthUserView(cred), nil
}

// UpdateProfile routes self-service edits through the directory; the mirror
// is refreshed in-line and again by the lifecycle event.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (AuthUserView, error) {
	params := ports.DirectoryUpdateParams{
		UserID:    userID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		BirthDate: req.BirthDate,
		Phone:     req.Phone,
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

func (s *Service) createIdentity(ctx context.Context, params ports.DirectoryCreateParams, password string) (domain.Credential, error) {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.Credential{}, err
	}

	dirCtx, cancel := context.WithTimeout(ctx, s.cfg.DirectoryTimeout)
	defer cancel()
	dirUser, err := s.directory.CreateUser(dirCtx, params)
	if err != nil {
		return domain.Credential{}, err
	}

	role, ok := domain.ParseRole(dirUser.Role)
	if !ok {
		role = s.cfg.DefaultRole
	}
	cred, err := s.credentials.Create(ctx, ports.CreateCredentialParams{
		UserID:       dirUser.UserID,
		Email:        dirUser.Email,
		FirstName:    dirUser.FirstName,
		LastName:     dirUser.LastName,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAtUTC: s.nowFn(),
	})
	if err != nil {
		compCtx, compCancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.DirectoryTimeout)
		defer compCancel()
		if delErr := s.directory.DeleteUser(compCtx, dirUser.UserID); delErr != nil {
			s.authLogger().ErrorContext(ctx, "compensating canonical delete failed",
				"operation", "register_compensate",
				"outcome", "failure",
				"user_id", dirUser.UserID.String(),
				"error", delErr,
			)
		}
		return domain.Credential{}, err
	}
	return cred, nil
}

func (s *Service) issueTokens(ctx context.Context, cred domain.Credential) (AuthResponse, error) {
	now := s.nowFn()

	access, err := s.signer.Sign(ports.AuthClaims{
		UserID:    cred.UserID,
		Email:     cred.Email,
		Role:      string(cred.Role),
		Kind:      ports.TokenKindAccess,
		TokenID:   uuid.New(),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.AccessTokenTTL),
	})
	if err != nil {
		return AuthResponse{}, err
	}

	refreshExpiry := now.Add(s.cfg.RefreshTokenTTL)
	refresh, err := s.signer.Sign(ports.AuthClaims{
		UserID:    cred.UserID,
		Email:     cred.Email,
		Kind:      ports.TokenKindRefresh,
		TokenID:   uuid.New(),
		IssuedAt:  now,
		ExpiresAt: refreshExpiry,
	})
	if err != nil {
		return AuthResponse{}, err
	}

	if err := s.credentials.SetRefreshToken(ctx, cred.UserID, hashToken(refresh), refreshExpiry, now); err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		User:         toAuthUserView(cred),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (s *Service) recordLoginFailure(ctx context.Context, email string, now time.Time) {
	if _, err := s.lockouts.RecordFailure(ctx, email, now, s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration); err != nil {
		s.authLogger().WarnContext(ctx, "lockout counter update failed",
			"operation", "login",
			"outcome", "partial",
			"error", err,
		)
	}
}

func (s *Service) mirrorDirectoryUser(ctx context.Context, user ports.DirectoryUser) {
	role, ok := domain.ParseRole(user.Role)
	if !ok {
		return
	}
	if err := s.credentials.MirrorIdentity(ctx, ports.MirrorIdentityParams{
		UserID:       user.UserID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Role:         role,
		UpdatedAtUTC: s.nowFn(),
	}); err != nil && !isNotFound(err) {
		s.authLogger().WarnContext(ctx, "inline mirror update failed",
			"operation", "mirror_identity",
			"outcome", "partial",
			"user_id", user.UserID.String(),
			"error", err,
		)
	}
}

func (s *Service) authLogger() *slog.Logger {
	return slog.Default().With(
		"module", "application",
		"layer", "application",
	)
}

func toAuthUserView(cred domain.Credential) AuthUserView {
	return AuthUserView{
		ID:        cred.UserID.String(),
		Email:     cred.Email,
		FirstName: cred.FirstName,
		LastName:  cred.LastName,
		Role:      string(cred.Role),
		CreatedAt: cred.CreatedAt,
		UpdatedAt: cred.UpdatedAt,
	}
}

func toDirectoryUserView(user ports.DirectoryUser) AuthUserView {
	return AuthUserView{
		ID:        user.UserID.String(),
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		BirthDate: user.BirthDate,
		Phone:     user.Phone,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
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

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
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

// completeIdempotent stores the response for later replays. The mutation
// already committed, so a storage failure only costs the replay and is logged
// rather than surfaced.
func (s *Service) completeIdempotent(ctx context.Context, key string, responseCode int, response any) {
	if key == "" {
		return
	}
	body, err := json.Marshal(response)
	if err == nil {
		err = s.idempotency.Complete(ctx, key, responseCode, body, s.nowFn())
	}
	if err != nil {
		s.authLogger().WarnContext(ctx, "idempotency record not completed",
			"operation", "complete_idempotency",
			"outcome", "failure",
			"error", err,
		)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
