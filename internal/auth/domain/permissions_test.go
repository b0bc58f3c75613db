package domain_test

import (
	"testing"

	"github.com/leocisternasa/mediprotek-test/internal/auth/domain"
)

func TestDefaultPermissions(t *testing.T) {
	t.Parallel()

	table := domain.DefaultPermissions()

	cases := []struct {
		role domain.Role
		perm domain.Permission
		want bool
	}{
		{domain.RoleUser, domain.PermUsersRead, false},
		{domain.RoleUser, domain.PermUsersWrite, false},
		{domain.RoleAdmin, domain.PermUsersRead, true},
		{domain.RoleAdmin, domain.PermUsersWrite, true},
		{domain.RoleAdmin, domain.PermUsersDelete, false},
		{domain.RoleAdmin, domain.PermRolesAssign, false},
		{domain.RoleSuperAdmin, domain.PermUsersDelete, true},
		{domain.RoleSuperAdmin, domain.PermRolesAssign, true},
	}
	for _, tc := range cases {
		if got := table.Allows(tc.role, tc.perm); got != tc.want {
			t.Fatalf("%s/%s: expected %v, got %v", tc.role, tc.perm, tc.want, got)
		}
	}

	if table.Allows(domain.Role("GHOST"), domain.PermUsersRead) {
		t.Fatalf("unknown role must hold no permissions")
	}
}

func TestPermissionsWithOverridesReplacesListedRoles(t *testing.T) {
	t.Parallel()

	table := domain.PermissionsWithOverrides(map[domain.Role][]domain.Permission{
		domain.RoleAdmin: {domain.PermUsersRead, domain.PermUsersWrite, domain.PermUsersDelete},
	})

	if !table.Allows(domain.RoleAdmin, domain.PermUsersDelete) {
		t.Fatalf("override must grant the added permission")
	}
	if table.Allows(domain.RoleAdmin, domain.PermRolesAssign) {
		t.Fatalf("override must not grant unlisted permissions")
	}
	if !table.Allows(domain.RoleSuperAdmin, domain.PermRolesAssign) {
		t.Fatalf("roles without overrides keep the built-in grants")
	}
}
