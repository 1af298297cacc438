package services

import (
	"context"
	"errors"
	"sort"

	"roleadmin/internal/apperr"
	"roleadmin/internal/metrics"
	"roleadmin/internal/models"
	"roleadmin/internal/store"
	console "roleadmin/internal/utils/logger"
)

var accessLog = console.New("ACCESS")

// Access decision reasons
const (
	ReasonGranted       = "granted"
	ReasonDisabled      = "disabled"
	ReasonNotConfigured = "not configured"
	ReasonUserNotFound  = "user not found"
	ReasonRoleNotFound  = "role not found"
	ReasonLookupFailed  = "lookup failed"
)

// HasPermission reports whether role grants capability.action. It never fails:
// a nil role or any missing key is a denial.
func HasPermission(role *models.Role, capability, action string) bool {
	if role == nil {
		return false
	}
	return role.Permissions[capability][action]
}

type AccessDecision struct {
	HasAccess   bool    `json:"hasAccess"`
	Coefficient float64 `json:"coefficient"`
	Reason      string  `json:"reason"`
}

type AvailableModel struct {
	Name        string  `json:"name"`
	Coefficient float64 `json:"coefficient"`
}

// ResolveAccess decides whether role may use model and at which price coefficient.
func ResolveAccess(role *models.Role, model string) AccessDecision {
	if role == nil {
		return AccessDecision{Coefficient: models.DefaultCoefficient, Reason: ReasonRoleNotFound}
	}
	grant, ok := role.ModelAccess[model]
	if !ok {
		return AccessDecision{Coefficient: models.DefaultCoefficient, Reason: ReasonNotConfigured}
	}
	if !grant.Enabled {
		return AccessDecision{Coefficient: grant.Coefficient, Reason: ReasonDisabled}
	}
	return AccessDecision{HasAccess: true, Coefficient: grant.Coefficient, Reason: ReasonGranted}
}

// Resolver answers model-access questions for users. Its methods never return
// errors; failures degrade to the neutral coefficient and are logged.
type Resolver struct {
	users store.UserStore
	roles store.RoleStore
}

func NewResolver(users store.UserStore, roles store.RoleStore) *Resolver {
	return &Resolver{users: users, roles: roles}
}

func (r *Resolver) roleFor(ctx context.Context, userID string) (*models.Role, string) {
	user, err := r.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ReasonUserNotFound
		}
		accessLog.Warn("user lookup for %s failed: %v", userID, err)
		return nil, ReasonLookupFailed
	}
	role, err := r.roles.GetRole(ctx, user.Role)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ReasonRoleNotFound
		}
		accessLog.Warn("role lookup %s for user %s failed: %v", user.Role, userID, err)
		return nil, ReasonLookupFailed
	}
	return role, ""
}

// ResolveForUser resolves userID's role and applies ResolveAccess.
func (r *Resolver) ResolveForUser(ctx context.Context, userID, model string) AccessDecision {
	role, reason := r.roleFor(ctx, userID)
	if role == nil {
		accessLog.Warn("model access for user %s model %s: %s, using coefficient %.1f", userID, model, reason, models.DefaultCoefficient)
		metrics.CoefficientFallbacks.WithLabelValues(reason).Inc()
		return AccessDecision{Coefficient: models.DefaultCoefficient, Reason: reason}
	}
	return ResolveAccess(role, model)
}

// GetCoefficient returns the price multiplier for userID on model, or 1.0 when it cannot be resolved.
func (r *Resolver) GetCoefficient(ctx context.Context, userID, model string) float64 {
	return r.ResolveForUser(ctx, userID, model).Coefficient
}

// ListAvailableModels returns the enabled models of userID's role sorted by name.
// Resolution failures yield an empty list.
func (r *Resolver) ListAvailableModels(ctx context.Context, userID string) []AvailableModel {
	role, reason := r.roleFor(ctx, userID)
	if role == nil {
		accessLog.Warn("available models for user %s: %s", userID, reason)
		return []AvailableModel{}
	}
	return AvailableModels(role)
}

// AvailableModels lists the enabled entries of role.ModelAccess sorted by name.
func AvailableModels(role *models.Role) []AvailableModel {
	out := []AvailableModel{}
	if role == nil {
		return out
	}
	for name, grant := range role.ModelAccess {
		if grant.Enabled {
			out = append(out, AvailableModel{Name: name, Coefficient: grant.Coefficient})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
