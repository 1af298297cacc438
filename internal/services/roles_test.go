package services

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roleadmin/internal/apperr"
	"roleadmin/internal/events"
	"roleadmin/internal/models"
	"roleadmin/internal/store"
)

func TestCreateRoleNormalizesName(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	svc := NewRoleService(store.NewMemory(), rec)

	role, err := svc.CreateRole(ctx, "pro", nil, nil, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "PRO", role.Name)

	stored, err := svc.GetRole(ctx, "PRO")
	require.NoError(t, err)
	assert.Equal(t, "PRO", stored.Name)

	for _, again := range []string{"pro", "PRO", "Pro"} {
		_, err := svc.CreateRole(ctx, again, nil, nil, "admin-1")
		assert.ErrorIs(t, err, apperr.ErrConflict, again)
	}
	assert.Equal(t, []string{events.RoleCreated}, rec.names)
	assert.Equal(t, "admin-1", rec.data[0].(events.RoleEvent).ActorID)
}

func TestCreateRoleValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewRoleService(store.NewMemory(), nil)

	_, err := svc.CreateRole(ctx, "   ", nil, nil, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.CreateRole(ctx, "cheap", nil, models.ModelAccess{"gpt-4o": {Enabled: true, Coefficient: 0.05}}, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.CreateRole(ctx, "pricey", nil, models.ModelAccess{"gpt-4o": {Enabled: true, Coefficient: 10.01}}, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.CreateRole(ctx, "unpriced", nil, models.ModelAccess{"m": {Enabled: true, Coefficient: math.NaN()}}, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.GetRole(ctx, "UNPRICED")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.GetRole(ctx, "CHEAP")
	assert.ErrorIs(t, err, apperr.ErrNotFound, "nothing persisted on validation failure")

	_, err = svc.CreateRole(ctx, "edge", nil, models.ModelAccess{
		"a": {Coefficient: 0.1},
		"b": {Coefficient: 10},
	}, "")
	assert.NoError(t, err)
}

func TestUpdateRolePermissionsShallowMerge(t *testing.T) {
	ctx := context.Background()
	svc := NewRoleService(store.NewMemory(), nil)
	_, err := svc.CreateRole(ctx, "pro", models.Permissions{
		models.CapPrompts: {models.ActionUse: true, models.ActionCreate: true},
		models.CapAgents:  {models.ActionUse: true},
	}, nil, "")
	require.NoError(t, err)

	role, err := svc.UpdateRole(ctx, "pro", RoleUpdate{
		Permissions: models.Permissions{
			models.CapPrompts:        {models.ActionUse: true},
			models.CapRoleManagement: {models.ActionUpdate: true},
		},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, models.ActionSet{models.ActionUse: true}, role.Permissions[models.CapPrompts])
	assert.Equal(t, models.ActionSet{models.ActionUse: true}, role.Permissions[models.CapAgents])
	assert.True(t, HasPermission(role, models.CapRoleManagement, models.ActionUpdate))
	assert.False(t, HasPermission(role, models.CapPrompts, models.ActionCreate))
}

func TestUpdateRoleModelAccessModes(t *testing.T) {
	ctx := context.Background()
	svc := NewRoleService(store.NewMemory(), nil)
	_, err := svc.CreateRole(ctx, "pro", nil, models.ModelAccess{
		"gpt-4o":   {Enabled: true, Coefficient: 2},
		"claude-3": {Enabled: true, Coefficient: 1},
	}, "")
	require.NoError(t, err)

	merged, err := svc.UpdateRole(ctx, "pro", RoleUpdate{
		ModelAccess: models.ModelAccess{"gpt-4o": {Enabled: false, Coefficient: 3}},
		Mode:        ModelAccessMerge,
	}, "")
	require.NoError(t, err)
	assert.Len(t, merged.ModelAccess, 2)
	assert.Equal(t, models.ModelGrant{Enabled: false, Coefficient: 3}, merged.ModelAccess["gpt-4o"])

	replaced, err := svc.UpdateRole(ctx, "pro", RoleUpdate{
		ModelAccess: models.ModelAccess{"o1": {Enabled: true, Coefficient: 5}},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, models.ModelAccess{"o1": {Enabled: true, Coefficient: 5}}, replaced.ModelAccess)

	untouched, err := svc.UpdateRole(ctx, "pro", RoleUpdate{}, "")
	require.NoError(t, err)
	assert.Equal(t, replaced.ModelAccess, untouched.ModelAccess)
}

func TestUpdateRoleErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewRoleService(store.NewMemory(), nil)
	_, err := svc.CreateRole(ctx, "pro", nil, nil, "")
	require.NoError(t, err)

	_, err = svc.UpdateRole(ctx, "missing", RoleUpdate{}, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.UpdateRole(ctx, "pro", RoleUpdate{ModelAccess: models.ModelAccess{"x": {Coefficient: 11}}}, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.UpdateRole(ctx, "pro", RoleUpdate{ModelAccess: models.ModelAccess{"x": {Coefficient: math.NaN()}}, Mode: ModelAccessMerge}, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.UpdateRole(ctx, "pro", RoleUpdate{Mode: "deep"}, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeleteRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.roles.CreateRole(ctx, "pro", nil, nil, f.admin.ID)
	require.NoError(t, err)
	_, err = f.roles.CreateRole(ctx, "trial", nil, nil, f.admin.ID)
	require.NoError(t, err)
	_, err = f.users.AssignRole(ctx, f.user.ID, "pro", f.admin.ID)
	require.NoError(t, err)

	_, err = f.roles.DeleteRole(ctx, "pro", f.admin.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.roles.DeleteRole(ctx, "nope", f.admin.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	name, err := f.roles.DeleteRole(ctx, "trial", f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "TRIAL", name)

	roles, err := f.roles.ListRoles(ctx)
	require.NoError(t, err)
	for _, r := range roles {
		assert.NotEqual(t, "TRIAL", r.Name)
	}
	assert.Len(t, roles, 3)
}

func TestEnsureDefaultRoles(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.CreateRole(ctx, &models.Role{
		Name:        "legacy",
		Permissions: models.Permissions{models.CapPrompts: {models.ActionUse: true}},
	}))
	svc := NewRoleService(mem, nil)

	require.NoError(t, svc.EnsureDefaultRoles(ctx))
	require.NoError(t, svc.EnsureDefaultRoles(ctx))

	roles, err := svc.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 3)

	admin, err := svc.GetRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, HasPermission(admin, models.CapRoleManagement, models.ActionDelete))

	legacy, err := svc.GetRole(ctx, "LEGACY")
	require.NoError(t, err)
	assert.True(t, HasPermission(legacy, models.CapPrompts, models.ActionUse))
	assert.Contains(t, legacy.Permissions, models.CapBalanceManagement)
	assert.False(t, HasPermission(legacy, models.CapBalanceManagement, models.ActionUpdate))
}

func TestEnsureDefaultRolesReportsFailingRole(t *testing.T) {
	svc := NewRoleService(brokenRoles{store.NewMemory()}, nil)

	err := svc.EnsureDefaultRoles(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.Contains(t, err.Error(), "checking default role "+models.RoleAdmin)
}
