package handlers

import (
	"context"

	"roleadmin/internal/models"
	"roleadmin/internal/services"
)

// RoleManager is the role side of the admin API.
type RoleManager interface {
	ListRoles(ctx context.Context) ([]models.Role, error)
	CreateRole(ctx context.Context, name string, perms models.Permissions, access models.ModelAccess, actorID string) (*models.Role, error)
	UpdateRole(ctx context.Context, name string, patch services.RoleUpdate, actorID string) (*models.Role, error)
	DeleteRole(ctx context.Context, name, actorID string) (string, error)
}

// UserManager lists users and moves them between roles.
type UserManager interface {
	ListUsers(ctx context.Context) ([]services.UserSummary, error)
	AssignRole(ctx context.Context, userID, role, actorID string) (services.RoleChange, error)
}

// BalanceManager mutates credits and reads the audit trail.
type BalanceManager interface {
	SetBalance(ctx context.Context, userID string, value float64, reason, actorID string) (services.BalanceChange, error)
	AdjustBalance(ctx context.Context, userID string, delta float64, reason, actorID string) (services.BalanceChange, error)
	ConfigureAutoRefill(ctx context.Context, userID string, policy models.RefillPolicy) (*models.Balance, error)
	Transactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
}

// AccessResolver answers model-access questions. It never fails.
type AccessResolver interface {
	ResolveForUser(ctx context.Context, userID, model string) services.AccessDecision
	ListAvailableModels(ctx context.Context, userID string) []services.AvailableModel
}

var (
	_ RoleManager    = (*services.RoleService)(nil)
	_ UserManager    = (*services.UserService)(nil)
	_ BalanceManager = (*services.Ledger)(nil)
	_ AccessResolver = (*services.Resolver)(nil)
)
