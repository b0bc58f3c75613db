package domain_test

import (
	"testing"

	"github.com/leocisternasa/mediprotek-test/internal/auth/domain"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		password  string
		wantError bool
	}{
		{name: "valid", password: "Passw0rd!", wantError: false},
		{name: "too short", password: "Ab1!", wantError: true},
		{name: "no digit", password: "StrongPass!", wantError: true},
		{name: "no upper", password: "weakpass123!", wantError: true},
		{name: "weak pattern", password: "MyPassword123", wantError: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := domain.ValidatePassword(tc.password)
			if tc.wantError && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantError && err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
		})
	}
}
