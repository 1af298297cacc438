package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roleadmin/internal/apperr"
	"roleadmin/internal/events"
	"roleadmin/internal/models"
	"roleadmin/internal/store"
)

func TestListUsersIncludesBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.SetBalance(ctx, f.admin.ID, 42, "", f.admin.ID)
	require.NoError(t, err)

	users, err := f.users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	byEmail := map[string]UserSummary{}
	for _, u := range users {
		byEmail[u.Email] = u
	}
	assert.Equal(t, 42.0, byEmail["admin@example.com"].Balance)
	assert.Equal(t, models.RoleAdmin, byEmail["admin@example.com"].Role)
	assert.Equal(t, 0.0, byEmail["user@example.com"].Balance, "no balance row reads as zero")
}

func TestAssignRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.roles.CreateRole(ctx, "pro", nil, nil, f.admin.ID)
	require.NoError(t, err)

	change, err := f.users.AssignRole(ctx, f.user.ID, " pro ", f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleChange{UserID: f.user.ID, OldRole: models.RoleUser, NewRole: "PRO"}, change)

	u, err := f.store.GetUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "PRO", u.Role)
}

func TestAssignRoleErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.AssignRole(ctx, f.user.ID, "", f.admin.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.users.AssignRole(ctx, f.user.ID, "ghost", f.admin.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.users.AssignRole(ctx, "missing", models.RoleAdmin, f.admin.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	u, err := f.store.GetUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)
}

func TestAssignRoleNeverPointsAtDeletedRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("TEMP_%d", i)
		_, err := f.roles.CreateRole(ctx, name, nil, nil, f.admin.ID)
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.users.AssignRole(ctx, f.user.ID, name, f.admin.ID)
		}()
		go func() {
			defer wg.Done()
			_, _ = f.roles.DeleteRole(ctx, name, f.admin.ID)
		}()
		wg.Wait()

		u, err := f.store.GetUser(ctx, f.user.ID)
		require.NoError(t, err)
		_, err = f.store.GetRole(ctx, u.Role)
		require.NoError(t, err, "user holds role %s which no longer exists", u.Role)
	}
}

func TestAssignRoleEmits(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, NewRoleService(mem, nil).EnsureDefaultRoles(ctx))
	u := &models.User{Email: "a@example.com"}
	require.NoError(t, mem.CreateUser(ctx, u))

	rec := &recorder{}
	svc := NewUserService(mem, mem, rec)
	_, err := svc.AssignRole(ctx, u.ID, models.RoleAdmin, "root")
	require.NoError(t, err)

	require.Equal(t, []string{events.UserRoleChanged}, rec.names)
	e := rec.data[0].(events.UserRoleEvent)
	assert.Equal(t, models.RoleUser, e.OldRole)
	assert.Equal(t, models.RoleAdmin, e.NewRole)
	assert.Equal(t, "root", e.ActorID)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	promoted, err := f.users.EnsureAdmin(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, promoted.ID)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	created, err := f.users.EnsureAdmin(ctx, "  ops@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", created.Email)
	assert.Equal(t, "ops", created.Username)
	assert.Equal(t, models.RoleAdmin, created.Role)

	again, err := f.users.EnsureAdmin(ctx, "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	_, err = f.users.EnsureAdmin(ctx, " ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
