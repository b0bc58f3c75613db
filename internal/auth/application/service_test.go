package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/leocisternasa/mediprotek-test/internal/auth/application"
	"github.com/leocisternasa/mediprotek-test/internal/auth/domain"
	"github.com/leocisternasa/mediprotek-test/internal/auth/ports"
)

func registerUser(t *testing.T, f *fixture, email string) application.AuthResponse {
	t.Helper()
	resp, err := f.service.Register(context.Background(), application.RegisterRequest{
		Email:     email,
		Password:  "Passw0rd!long",
		FirstName: "Test",
		LastName:  "User",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return resp
}

func TestRegisterSharesDirectoryID(t *testing.T) {
	t.Parallel()

	f := newFixture()
	resp := registerUser(t, f, "shared@example.com")

	userID, err := uuid.Parse(resp.User.ID)
	if err != nil {
		t.Fatalf("parse returned id: %v", err)
	}
	if _, err := f.directory.GetUser(context.Background(), userID); err != nil {
		t.Fatalf("directory should hold the returned id: %v", err)
	}
	cred, err := f.credentials.GetByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("credential store should hold the returned id: %v", err)
	}
	if cred.Email != "shared@example.com" {
		t.Fatalf("unexpected mirrored email %q", cred.Email)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("expected minted token pair")
	}
}

func TestRegisterResponseNeverCarriesHashes(t *testing.T) {
	t.Parallel()

	f := newFixture()
	resp := registerUser(t, f, "nohash@example.com")

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	user, ok := decoded["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user object in response")
	}
	for key := range user {
		if key == "password" || key == "passwordHash" || key == "refreshTokenHash" {
			t.Fatalf("credential material leaked under key %q", key)
		}
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	t.Parallel()

	f := newFixture()
	registerUser(t, f, "dup@example.com")

	_, err := f.service.Register(context.Background(), application.RegisterRequest{
		Email:     "dup@example.com",
		Password:  "Passw0rd!long",
		FirstName: "Other",
		LastName:  "User",
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
}

func TestRegisterCompensatesWhenCredentialWriteFails(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.credentials.failCreate = true

	_, err := f.service.Register(context.Background(), application.RegisterRequest{
		Email:     "orphan@example.com",
		Password:  "Passw0rd!long",
		FirstName: "Orphan",
		LastName:  "Candidate",
	})
	if err == nil {
		t.Fatalf("expected register to fail")
	}
	if f.directory.size() != 0 {
		t.Fatalf("canonical record should be removed after credential failure")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()

	f := newFixture()
	registerUser(t, f, "known@example.com")
	ctx := context.Background()

	_, unknownErr := f.service.Login(ctx, application.LoginRequest{
		Email:    "missing@example.com",
		Password: "Passw0rd!long",
	})
	_, wrongErr := f.service.Login(ctx, application.LoginRequest{
		Email:    "known@example.com",
		Password: "WrongPass1x!",
	})

	if !errors.Is(unknownErr, domain.ErrInvalidCredentials) || !errors.Is(wrongErr, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for both paths, got %v / %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("unknown-email and wrong-password errors differ: %q vs %q", unknownErr, wrongErr)
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	f := newFixture()
	registerUser(t, f, "lockme@example.com")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.service.Login(ctx, application.LoginRequest{
			Email:    "lockme@example.com",
			Password: "WrongPass1x!",
		})
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i, err)
		}
	}

	_, err := f.service.Login(ctx, application.LoginRequest{
		Email:    "lockme@example.com",
		Password: "Passw0rd!long",
	})
	if !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected account locked after threshold, got %v", err)
	}
}

func TestRefreshRotationRejectsReplay(t *testing.T) {
	t.Parallel()

	f := newFixture()
	first := registerUser(t, f, "rotate@example.com")
	ctx := context.Background()

	second, err := f.service.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh should mint a new token")
	}

	if _, err := f.service.Refresh(ctx, first.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected rotated token replay to be rejected, got %v", err)
	}
	if _, err := f.service.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("current token should still refresh: %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	t.Parallel()

	f := newFixture()
	resp := registerUser(t, f, "kind@example.com")

	if _, err := f.service.Refresh(context.Background(), resp.AccessToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected access token to be rejected on refresh, got %v", err)
	}
}

func TestRefreshAfterLogoutFails(t *testing.T) {
	t.Parallel()

	f := newFixture()
	resp := registerUser(t, f, "logout@example.com")
	ctx := context.Background()

	claims, err := f.service.ValidateAccessToken(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if err := f.service.Logout(ctx, claims); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if _, err := f.service.Refresh(ctx, resp.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected refresh after logout to fail, got %v", err)
	}
	if _, err := f.service.ValidateAccessToken(ctx, resp.AccessToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected denylisted access token to be rejected, got %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	resp := registerUser(t, f, "twice@example.com")
	ctx := context.Background()

	claims, err := f.service.ValidateAccessToken(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if err := f.service.Logout(ctx, claims); err != nil {
		t.Fatalf("first logout failed: %v", err)
	}
	if err := f.service.Logout(ctx, claims); err != nil {
		t.Fatalf("second logout should succeed, got %v", err)
	}
}

func TestDeleteDisablesLogin(t *testing.T) {
	t.Parallel()

	f := newFixture()
	resp := registerUser(t, f, "doomed@example.com")
	ctx := context.Background()

	admin := ports.AuthClaims{UserID: uuid.New(), Role: string(domain.RoleSuperAdmin)}
	userID := uuid.MustParse(resp.User.ID)
	if err := f.service.AdminDeleteUser(ctx, admin, userID); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}

	_, err := f.service.Login(ctx, application.LoginRequest{
		Email:    "doomed@example.com",
		Password: "Passw0rd!long",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected login to fail after delete, got %v", err)
	}
}

func TestBulkDeleteReportsPerID(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	first := registerUser(t, f, "bulk1@example.com")
	second := registerUser(t, f, "bulk2@example.com")
	unknown := uuid.New()

	admin := ports.AuthClaims{UserID: uuid.New(), Role: string(domain.RoleSuperAdmin)}
	resp, err := f.service.BulkDeleteUsers(ctx, admin, application.BulkDeleteRequest{
		IDs: []string{first.User.ID, second.User.ID, unknown.String()},
	})
	if err != nil {
		t.Fatalf("bulk delete failed: %v", err)
	}
	if len(resp.Deleted) != 2 {
		t.Fatalf("expected 2 deleted, got %v", resp.Deleted)
	}
	if len(resp.Missing) != 1 || resp.Missing[0] != unknown.String() {
		t.Fatalf("expected unknown id reported missing, got %v", resp.Missing)
	}
	if f.directory.deletes != 2 {
		t.Fatalf("expected one directory deletion per matched id, got %d", f.directory.deletes)
	}
	if _, err := f.credentials.GetByID(ctx, uuid.MustParse(first.User.ID)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected credential removed, got %v", err)
	}
}

func TestPermissionBoundaries(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	user := ports.AuthClaims{UserID: uuid.New(), Role: string(domain.RoleUser)}
	admin := ports.AuthClaims{UserID: uuid.New(), Role: string(domain.RoleAdmin)}

	if _, err := f.service.ListUsers(ctx, user, application.ListUsersRequest{}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected USER to be denied listing, got %v", err)
	}
	if err := f.service.AdminDeleteUser(ctx, admin, uuid.New()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ADMIN to be denied deletes, got %v", err)
	}
	if _, err := f.service.AdminCreateUser(ctx, admin, application.AdminCreateUserRequest{
		Email:     "elevated@example.com",
		Password:  "Passw0rd!long",
		FirstName: "Should",
		LastName:  "Fail",
		Role:      string(domain.RoleAdmin),
	}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected role grant to require roles.assign, got %v", err)
	}
	if _, err := f.service.AdminCreateUser(ctx, admin, application.AdminCreateUserRequest{
		Email:     "plain@example.com",
		Password:  "Passw0rd!long",
		FirstName: "Plain",
		LastName:  "User",
	}); err != nil {
		t.Fatalf("ADMIN should create default-role users: %v", err)
	}
}

func TestAdminUpdateRoleRequiresAssignPermission(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	resp := registerUser(t, f, "promotee@example.com")
	userID := uuid.MustParse(resp.User.ID)

	admin := ports.AuthClaims{UserID: uuid.New(), Role: string(domain.RoleAdmin)}
	super := ports.AuthClaims{UserID: uuid.New(), Role: string(domain.RoleSuperAdmin)}
	role := string(domain.RoleAdmin)

	if _, err := f.service.AdminUpdateUser(ctx, admin, application.AdminUpdateUserRequest{
		UserID: userID,
		Role:   &role,
	}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ADMIN role change to be denied, got %v", err)
	}

	updated, err := f.service.AdminUpdateUser(ctx, super, application.AdminUpdateUserRequest{
		UserID: userID,
		Role:   &role,
	})
	if err != nil {
		t.Fatalf("super admin role change failed: %v", err)
	}
	if updated.Role != role {
		t.Fatalf("expected role %q, got %q", role, updated.Role)
	}
	cred, err := f.credentials.GetByID(ctx, userID)
	if err != nil {
		t.Fatalf("credential lookup failed: %v", err)
	}
	if cred.Role != domain.RoleAdmin {
		t.Fatalf("expected mirrored role update, got %q", cred.Role)
	}
}

func TestRegisterIdempotencyKeyReplay(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	req := application.RegisterRequest{
		Email:          "once@example.com",
		Password:       "Passw0rd!long",
		FirstName:      "Only",
		LastName:       "Once",
		IdempotencyKey: "register-1",
	}
	first, err := f.service.Register(ctx, req)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// An identical retry replays the stored response instead of 409ing and
	// does not create a second identity.
	second, err := f.service.Register(ctx, req)
	if err != nil {
		t.Fatalf("identical retry must succeed: %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Fatalf("replay must return the original user: %q vs %q", second.User.ID, first.User.ID)
	}
	if second.AccessToken != first.AccessToken || second.RefreshToken != first.RefreshToken {
		t.Fatalf("replay must return the originally minted tokens")
	}
	if f.directory.size() != 1 {
		t.Fatalf("replay must not create a second directory record, got %d", f.directory.size())
	}

	req.Email = "different@example.com"
	if _, err := f.service.Register(ctx, req); !errors.Is(err, domain.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict on reused key, got %v", err)
	}
}
