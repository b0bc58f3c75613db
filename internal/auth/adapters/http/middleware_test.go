package http

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/leocisternasa/mediprotek-test/internal/auth/domain"
)

func TestMapDomainError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials"},
		{fmt.Errorf("%w: invalid email or password", domain.ErrInvalidCredentials), http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials"},
		{domain.ErrTokenExpired, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token"},
		{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "insufficient permissions"},
		{domain.ErrAccountLocked, http.StatusLocked, "ACCOUNT_LOCKED", "account temporarily locked"},
		{domain.ErrConflict, http.StatusConflict, "CONFLICT", "email already registered"},
		{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "resource not found"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"},
	}
	for _, tc := range cases {
		status, code, message := mapDomainError(tc.err)
		if status != tc.wantStatus || code != tc.wantCode || message != tc.wantMessage {
			t.Fatalf("%v: got (%d, %s, %q), want (%d, %s, %q)", tc.err, status, code, message, tc.wantStatus, tc.wantCode, tc.wantMessage)
		}
	}
}
