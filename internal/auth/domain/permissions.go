package domain

// Permission names an action gated by role.
type Permission string

const (
	PermUsersRead   Permission = "users.read"
	PermUsersWrite  Permission = "users.write"
	PermUsersDelete Permission = "users.delete"
	PermRolesAssign Permission = "roles.assign"
)

// PermissionTable is the immutable role-to-permission mapping resolved at
// startup and injected into the service. Lookups never mutate it, so it is
// safe for concurrent use.
type PermissionTable struct {
	grants map[Role]map[Permission]bool
}

// DefaultPermissions returns the built-in grants: USER holds no directory
// permissions, ADMIN can read and write, SUPER_ADMIN additionally deletes
// and assigns roles.
func DefaultPermissions() PermissionTable {
	return PermissionsWithOverrides(nil)
}

// PermissionsWithOverrides overlays configured grants on the defaults. A role
// present in overrides replaces its default grant set entirely; roles not
// mentioned keep the built-in grants.
func PermissionsWithOverrides(overrides map[Role][]Permission) PermissionTable {
	grants := map[Role][]Permission{
		RoleUser:       {},
		RoleAdmin:      {PermUsersRead, PermUsersWrite},
		RoleSuperAdmin: {PermUsersRead, PermUsersWrite, PermUsersDelete, PermRolesAssign},
	}
	for role, perms := range overrides {
		grants[role] = perms
	}
	return NewPermissionTable(grants)
}

// NewPermissionTable copies the supplied grants into a frozen table.
func NewPermissionTable(grants map[Role][]Permission) PermissionTable {
	frozen := make(map[Role]map[Permission]bool, len(grants))
	for role, perms := range grants {
		set := make(map[Permission]bool, len(perms))
		for _, p := range perms {
			set[p] = true
		}
		frozen[role] = set
	}
	return PermissionTable{grants: frozen}
}

// Allows reports whether the role holds the permission.
func (t PermissionTable) Allows(role Role, perm Permission) bool {
	set, ok := t.grants[role]
	if !ok {
		return false
	}
	return set[perm]
}
