package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"roleadmin/internal/apperr"
	"roleadmin/internal/events"
	"roleadmin/internal/models"
	"roleadmin/internal/store"
	console "roleadmin/internal/utils/logger"
)

var usersLog = console.New("USERS")

// UserSummary is a user row joined with its credits.
type UserSummary struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	Balance   float64   `json:"balance"`
}

type RoleChange struct {
	UserID  string `json:"userId"`
	OldRole string `json:"oldRole"`
	NewRole string `json:"newRole"`
}

type UserService struct {
	users    store.UserStore
	balances store.BalanceStore
	events   events.Emitter
	now      func() time.Time
}

func NewUserService(users store.UserStore, balances store.BalanceStore, emitter events.Emitter) *UserService {
	return &UserService{users: users, balances: balances, events: emitter, now: time.Now}
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetUser(ctx, id)
}

// ListUsers returns every user with its balance; users without a balance show 0.
func (s *UserService) ListUsers(ctx context.Context) ([]UserSummary, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	balances, err := s.balances.ListBalances(ctx)
	if err != nil {
		return nil, err
	}
	credits := make(map[string]float64, len(balances))
	for _, b := range balances {
		credits[b.UserID] = b.TokenCredits
	}

	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, UserSummary{
			ID:        u.ID,
			Email:     u.Email,
			Username:  u.Username,
			Name:      u.Name,
			Role:      u.Role,
			CreatedAt: u.CreatedAt,
			Balance:   credits[u.ID],
		})
	}
	return out, nil
}

// AssignRole moves a user to an existing role. An unknown role is a validation error.
func (s *UserService) AssignRole(ctx context.Context, userID, role, actorID string) (RoleChange, error) {
	name := models.NormalizeRoleName(role)
	if name == "" {
		return RoleChange{}, apperr.Validation("role is required")
	}
	oldRole, err := s.users.AssignUserRole(ctx, userID, name)
	if err != nil {
		return RoleChange{}, err
	}

	change := RoleChange{UserID: userID, OldRole: oldRole, NewRole: name}
	usersLog.Info("user %s role %s -> %s by %s", userID, change.OldRole, change.NewRole, actorID)
	if s.events != nil {
		s.events.Emit(events.UserRoleChanged, events.UserRoleEvent{
			UserID:  userID,
			OldRole: change.OldRole,
			NewRole: change.NewRole,
			ActorID: actorID,
			At:      s.now(),
		})
	}
	return change, nil
}

// EnsureAdmin makes the user with email an ADMIN, creating the user when missing.
func (s *UserService) EnsureAdmin(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.Validation("admin email is required")
	}
	user, err := s.users.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Role == models.RoleAdmin {
			return user, nil
		}
		if err := s.users.UpdateUserRole(ctx, user.ID, models.RoleAdmin); err != nil {
			return nil, err
		}
		user.Role = models.RoleAdmin
		usersLog.Success("promoted %s to %s", email, models.RoleAdmin)
		return user, nil
	case errors.Is(err, apperr.ErrNotFound):
		user = &models.User{
			Email:    email,
			Username: strings.SplitN(email, "@", 2)[0],
			Role:     models.RoleAdmin,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		usersLog.Success("created admin user %s", email)
		return user, nil
	default:
		return nil, err
	}
}
