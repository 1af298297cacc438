// Package store defines the persistence contracts used by the services and
// ships a gorm/postgres implementation plus an in-memory one for tests and local runs.
package store

import (
	"context"
	"errors"
	"time"

	"roleadmin/internal/models"
)

// ErrNoChange is returned by a BalanceMutation to leave the balance untouched without failing.
var ErrNoChange = errors.New("no change")

// BalanceMutation edits b in place and returns the audit record to persist with it.
// Returning an error aborts the mutation; ErrNoChange aborts it silently.
type BalanceMutation func(b *models.Balance) (*models.Transaction, error)

type RoleStore interface {
	GetRole(ctx context.Context, name string) (*models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
	CreateRole(ctx context.Context, role *models.Role) error
	SaveRole(ctx context.Context, role *models.Role) error
	// DeleteRole removes an unreferenced role. It fails with a conflict while any user holds it.
	DeleteRole(ctx context.Context, name string) error
}

type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUserRole(ctx context.Context, id, role string) error
	// AssignUserRole moves user id to an existing role and returns the previous one.
	// The role lookup and the write are atomic with respect to DeleteRole; a missing
	// role is a validation error.
	AssignUserRole(ctx context.Context, id, role string) (string, error)
	CountUsersWithRole(ctx context.Context, role string) (int64, error)
}

type TransactionFilter struct {
	UserID string
	Since  time.Time
	Until  time.Time
	Limit  int
}

type BalanceStore interface {
	GetBalance(ctx context.Context, userID string) (*models.Balance, error)
	ListBalances(ctx context.Context) ([]models.Balance, error)
	ListRefillCandidates(ctx context.Context) ([]models.Balance, error)
	// UpdateBalance runs fn as one atomic read-modify-write for userID, creating
	// a zero balance first when none exists.
	UpdateBalance(ctx context.Context, userID string, fn BalanceMutation) (*models.Balance, *models.Transaction, error)
	// ListTransactions returns matching transactions, newest first.
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
}

// Store bundles every contract. Both implementations satisfy it.
type Store interface {
	RoleStore
	UserStore
	BalanceStore
}
