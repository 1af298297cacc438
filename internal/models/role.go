package models

import (
	"math"
	"sort"
	"strings"
)

// Coefficient bounds for ModelGrant.
const (
	MinCoefficient     = 0.1
	MaxCoefficient     = 10.0
	DefaultCoefficient = 1.0
)

// ActionSet maps an action name (CREATE, USE, ...) to its grant.
type ActionSet map[string]bool

// Permissions maps a capability name to its actions.
type Permissions map[string]ActionSet

// ModelGrant is the access entry for one model.
type ModelGrant struct {
	Enabled     bool    `json:"enabled"`
	Coefficient float64 `json:"coefficient"`
}

// ModelAccess maps a model name to its grant.
type ModelAccess map[string]ModelGrant

// Role is a named bundle of capability grants and model access.
type Role struct {
	Base
	Name        string      `gorm:"uniqueIndex;not null" json:"name"`
	Permissions Permissions `gorm:"type:jsonb;serializer:json" json:"permissions"`
	ModelAccess ModelAccess `gorm:"column:model_access;type:jsonb;serializer:json" json:"modelAccess"`
}

// NormalizeRoleName trims and uppercases a role name.
func NormalizeRoleName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Clone returns a deep copy.
func (p Permissions) Clone() Permissions {
	out := make(Permissions, len(p))
	for capability, actions := range p {
		copied := make(ActionSet, len(actions))
		for action, granted := range actions {
			copied[action] = granted
		}
		out[capability] = copied
	}
	return out
}

// Merge returns p with every capability group in patch replacing the group of the same name.
// Groups are replaced wholesale; actions are never merged individually.
func (p Permissions) Merge(patch Permissions) Permissions {
	out := p.Clone()
	for capability, actions := range patch.Clone() {
		out[capability] = actions
	}
	return out
}

// Capabilities returns the capability names in sorted order.
func (p Permissions) Capabilities() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m ModelAccess) Clone() ModelAccess {
	out := make(ModelAccess, len(m))
	for name, grant := range m {
		out[name] = grant
	}
	return out
}

// MergePerKey returns m with each model in patch replacing its previous entry.
func (m ModelAccess) MergePerKey(patch ModelAccess) ModelAccess {
	out := m.Clone()
	for name, grant := range patch {
		out[name] = grant
	}
	return out
}

// Models returns the model names in sorted order.
func (m ModelAccess) Models() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InvalidCoefficients lists the models whose coefficient is NaN or outside
// [MinCoefficient, MaxCoefficient].
func (m ModelAccess) InvalidCoefficients() []string {
	var bad []string
	for _, name := range m.Models() {
		c := m[name].Coefficient
		if math.IsNaN(c) || c < MinCoefficient || c > MaxCoefficient {
			bad = append(bad, name)
		}
	}
	return bad
}

// Clone returns a deep copy of the role.
func (r *Role) Clone() *Role {
	if r == nil {
		return nil
	}
	out := *r
	out.Permissions = r.Permissions.Clone()
	out.ModelAccess = r.ModelAccess.Clone()
	return &out
}
