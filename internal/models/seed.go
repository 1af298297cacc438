package models

// DefaultPermissions builds the catalog permission set for a default role.
// The admin set grants everything. The user set grants chat features only.
func DefaultPermissions(admin bool) Permissions {
	perms := make(Permissions, len(Catalog))
	for capability, actions := range Catalog {
		set := make(ActionSet, len(actions))
		for _, action := range actions {
			switch {
			case admin:
				set[action] = true
			case adminOnly[capability], sharedActions[action]:
				set[action] = false
			default:
				set[action] = true
			}
		}
		perms[capability] = set
	}
	return perms
}

// DefaultRoles are created on startup when missing.
func DefaultRoles() []Role {
	return []Role{
		{Name: RoleAdmin, Permissions: DefaultPermissions(true), ModelAccess: ModelAccess{}},
		{Name: RoleUser, Permissions: DefaultPermissions(false), ModelAccess: ModelAccess{}},
	}
}

// BackfillManagement adds ROLE_MANAGEMENT and BALANCE_MANAGEMENT groups a role is missing.
// Flags are true only for ADMIN. It reports whether anything changed.
func BackfillManagement(r *Role) bool {
	if r.Permissions == nil {
		r.Permissions = Permissions{}
	}
	isAdmin := r.Name == RoleAdmin
	changed := false
	for _, capability := range []string{CapRoleManagement, CapBalanceManagement} {
		if _, ok := r.Permissions[capability]; ok {
			continue
		}
		set := ActionSet{}
		for _, action := range Catalog[capability] {
			set[action] = isAdmin
		}
		r.Permissions[capability] = set
		changed = true
	}
	if r.ModelAccess == nil {
		r.ModelAccess = ModelAccess{}
		changed = true
	}
	return changed
}
