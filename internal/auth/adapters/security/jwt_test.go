package security_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/leocisternasa/mediprotek-test/internal/auth/adapters/security"
	"github.com/leocisternasa/mediprotek-test/internal/auth/ports"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testClaims(kind ports.TokenKind, ttl time.Duration) ports.AuthClaims {
	now := time.Now().UTC().Truncate(time.Second)
	return ports.AuthClaims{
		UserID:    uuid.New(),
		Email:     "ana@example.com",
		Role:      "ADMIN",
		Kind:      kind,
		TokenID:   uuid.New(),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestSignParseRoundTrip(t *testing.T) {
	t.Parallel()

	signer, err := security.NewJWTSigner(testSecret)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	want := testClaims(ports.TokenKindAccess, 15*time.Minute)
	raw, err := signer.Sign(want)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := signer.ParseAndValidate(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.UserID != want.UserID || got.TokenID != want.TokenID {
		t.Fatalf("identifier mismatch: got %+v want %+v", got, want)
	}
	if got.Email != want.Email || got.Role != want.Role || got.Kind != want.Kind {
		t.Fatalf("claim mismatch: got %+v want %+v", got, want)
	}
	if !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("expiry mismatch: got %v want %v", got.ExpiresAt, want.ExpiresAt)
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	t.Parallel()

	signer, err := security.NewJWTSigner(testSecret)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	raw, err := signer.Sign(testClaims(ports.TokenKindAccess, time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tampered := raw[:len(raw)-2] + "xx"
	if _, err := signer.ParseAndValidate(tampered); err == nil {
		t.Fatalf("tampered token must not validate")
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	t.Parallel()

	signer, err := security.NewJWTSigner(testSecret)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	other, err := security.NewJWTSigner("another-secret-of-plenty-bytes")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	raw, err := other.Sign(testClaims(ports.TokenKindRefresh, time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := signer.ParseAndValidate(raw); err == nil {
		t.Fatalf("token signed with a different secret must not validate")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	signer, err := security.NewJWTSigner(testSecret)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	raw, err := signer.Sign(testClaims(ports.TokenKindAccess, -2*time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := signer.ParseAndValidate(raw); err == nil {
		t.Fatalf("expired token must not validate")
	}
}

func TestNewJWTSignerRejectsShortSecret(t *testing.T) {
	t.Parallel()

	if _, err := security.NewJWTSigner("short"); err == nil {
		t.Fatalf("short secret must be rejected")
	}
}
