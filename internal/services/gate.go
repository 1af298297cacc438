package services

import (
	"context"

	"roleadmin/internal/apperr"
	"roleadmin/internal/metrics"
	"roleadmin/internal/store"
	console "roleadmin/internal/utils/logger"
)

var gateLog = console.New("GATE")

// Gate authorizes administrative operations. Every failure, including storage
// errors while resolving the caller, is a denial.
type Gate struct {
	users store.UserStore
	roles store.RoleStore
}

func NewGate(users store.UserStore, roles store.RoleStore) *Gate {
	return &Gate{users: users, roles: roles}
}

func (g *Gate) Authorize(ctx context.Context, userID, capability, action string) error {
	deny := func(format string, args ...interface{}) error {
		metrics.AuthorizationDenials.WithLabelValues(capability, action).Inc()
		return apperr.Forbidden(format, args...)
	}

	if userID == "" {
		return deny("no authenticated user")
	}
	user, err := g.users.GetUser(ctx, userID)
	if err != nil {
		gateLog.Warn("denying %s.%s: resolving user %s: %v", capability, action, userID, err)
		return deny("user %s cannot be resolved", userID)
	}
	role, err := g.roles.GetRole(ctx, user.Role)
	if err != nil {
		gateLog.Warn("denying %s.%s: resolving role %s of user %s: %v", capability, action, user.Role, userID, err)
		return deny("role %s cannot be resolved", user.Role)
	}
	if !HasPermission(role, capability, action) {
		return deny("role %s lacks %s.%s", role.Name, capability, action)
	}
	return nil
}
