package services

import (
	"context"
	"strings"
	"time"

	"roleadmin/internal/apperr"
	"roleadmin/internal/events"
	"roleadmin/internal/models"
	"roleadmin/internal/store"
	console "roleadmin/internal/utils/logger"
)

var rolesLog = console.New("ROLES")

// ModelAccessMode selects how UpdateRole applies a modelAccess patch.
type ModelAccessMode string

const (
	// ModelAccessReplace swaps the whole map for the patch.
	ModelAccessReplace ModelAccessMode = "replace"
	// ModelAccessMerge replaces only the models named in the patch.
	ModelAccessMerge ModelAccessMode = "merge"
)

// RoleUpdate is a partial role change. Nil fields are left alone.
type RoleUpdate struct {
	Permissions models.Permissions
	ModelAccess models.ModelAccess
	Mode        ModelAccessMode
}

type RoleService struct {
	roles  store.RoleStore
	events events.Emitter
	now    func() time.Time
}

func NewRoleService(roles store.RoleStore, emitter events.Emitter) *RoleService {
	return &RoleService{roles: roles, events: emitter, now: time.Now}
}

func validateModelAccess(m models.ModelAccess) error {
	for _, name := range m.Models() {
		if strings.TrimSpace(name) == "" {
			return apperr.Validation("model name must not be empty")
		}
	}
	if bad := m.InvalidCoefficients(); len(bad) > 0 {
		return apperr.Validation("coefficient must be between %.1f and %.1f for: %s",
			models.MinCoefficient, models.MaxCoefficient, strings.Join(bad, ", "))
	}
	return nil
}

func (s *RoleService) emit(event, name, actorID string) {
	if s.events == nil {
		return
	}
	s.events.Emit(event, events.RoleEvent{Name: name, ActorID: actorID, At: s.now()})
}

func (s *RoleService) GetRole(ctx context.Context, name string) (*models.Role, error) {
	return s.roles.GetRole(ctx, name)
}

func (s *RoleService) ListRoles(ctx context.Context) ([]models.Role, error) {
	return s.roles.ListRoles(ctx)
}

// CreateRole stores a new role under the uppercased name.
func (s *RoleService) CreateRole(ctx context.Context, name string, perms models.Permissions, access models.ModelAccess, actorID string) (*models.Role, error) {
	normalized := models.NormalizeRoleName(name)
	if normalized == "" {
		return nil, apperr.Validation("role name is required")
	}
	if err := validateModelAccess(access); err != nil {
		return nil, err
	}
	role := &models.Role{
		Name:        normalized,
		Permissions: perms.Clone(),
		ModelAccess: access.Clone(),
	}
	if err := s.roles.CreateRole(ctx, role); err != nil {
		return nil, err
	}
	rolesLog.Info("role %s created with %d capabilities, %d models configured", role.Name, len(role.Permissions), len(role.ModelAccess))
	s.emit(events.RoleCreated, role.Name, actorID)
	return role, nil
}

// UpdateRole applies patch to the named role. Permission groups are merged
// shallowly; modelAccess follows patch.Mode, defaulting to full replacement.
func (s *RoleService) UpdateRole(ctx context.Context, name string, patch RoleUpdate, actorID string) (*models.Role, error) {
	if patch.ModelAccess != nil {
		if err := validateModelAccess(patch.ModelAccess); err != nil {
			return nil, err
		}
	}
	switch patch.Mode {
	case "", ModelAccessReplace, ModelAccessMerge:
	default:
		return nil, apperr.Validation("unknown modelAccess mode %q", patch.Mode)
	}

	role, err := s.roles.GetRole(ctx, name)
	if err != nil {
		return nil, err
	}
	if patch.Permissions != nil {
		role.Permissions = role.Permissions.Merge(patch.Permissions)
	}
	if patch.ModelAccess != nil {
		if patch.Mode == ModelAccessMerge {
			role.ModelAccess = role.ModelAccess.MergePerKey(patch.ModelAccess)
		} else {
			role.ModelAccess = patch.ModelAccess.Clone()
		}
	}
	if err := s.roles.SaveRole(ctx, role); err != nil {
		return nil, err
	}
	rolesLog.Info("role %s updated", role.Name)
	s.emit(events.RoleUpdated, role.Name, actorID)
	return role, nil
}

// DeleteRole removes an unreferenced role and returns its normalized name.
func (s *RoleService) DeleteRole(ctx context.Context, name, actorID string) (string, error) {
	normalized := models.NormalizeRoleName(name)
	if normalized == "" {
		return "", apperr.Validation("role name is required")
	}
	if err := s.roles.DeleteRole(ctx, normalized); err != nil {
		return "", err
	}
	rolesLog.Info("role %s deleted", normalized)
	s.emit(events.RoleDeleted, normalized, actorID)
	return normalized, nil
}

// EnsureDefaultRoles creates ADMIN and USER when missing and backfills the
// management capabilities on every stored role.
func (s *RoleService) EnsureDefaultRoles(ctx context.Context) error {
	for _, def := range models.DefaultRoles() {
		def := def
		_, err := s.roles.GetRole(ctx, def.Name)
		if err == nil {
			continue
		}
		if apperr.Kind(err) != apperr.ErrNotFound {
			return rolesLog.Error("checking default role %s", err, def.Name)
		}
		if err := s.roles.CreateRole(ctx, &def); err != nil && apperr.Kind(err) != apperr.ErrConflict {
			return rolesLog.Error("creating default role %s", err, def.Name)
		}
		rolesLog.Success("created default role %s", def.Name)
	}

	roles, err := s.roles.ListRoles(ctx)
	if err != nil {
		return rolesLog.Error("listing roles for backfill", err)
	}
	for i := range roles {
		role := &roles[i]
		if !models.BackfillManagement(role) {
			continue
		}
		if err := s.roles.SaveRole(ctx, role); err != nil {
			return rolesLog.Error("backfilling role %s", err, role.Name)
		}
		rolesLog.Info("role %s backfilled, %d models configured", role.Name, len(role.ModelAccess))
	}
	return nil
}
