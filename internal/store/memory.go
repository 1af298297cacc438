package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"roleadmin/internal/apperr"
	"roleadmin/internal/models"
)

// Memory is an in-process Store. Roles and users share one lock; each user's
// balance is additionally serialized by its own mutex.
type Memory struct {
	mu           sync.RWMutex
	roles        []*models.Role
	users        map[string]*models.User
	userOrder    []string
	balances     map[string]*models.Balance
	transactions []models.Transaction

	locksMu   sync.Mutex
	userLocks map[string]*sync.Mutex

	now func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:     make(map[string]*models.User),
		balances:  make(map[string]*models.Balance),
		userLocks: make(map[string]*sync.Mutex),
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) clock() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now()
}

func (m *Memory) findRole(name string) int {
	for i, r := range m.roles {
		if r.Name == name {
			return i
		}
	}
	return -1
}

func (m *Memory) GetRole(ctx context.Context, name string) (*models.Role, error) {
	name = models.NormalizeRoleName(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.findRole(name)
	if i < 0 {
		return nil, apperr.NotFound("role %q", name)
	}
	return m.roles[i].Clone(), nil
}

func (m *Memory) ListRoles(ctx context.Context) ([]models.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, *r.Clone())
	}
	return out, nil
}

func (m *Memory) CreateRole(ctx context.Context, role *models.Role) error {
	role.Name = models.NormalizeRoleName(role.Name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findRole(role.Name) >= 0 {
		return apperr.Conflict("role %q already exists", role.Name)
	}
	now := m.now()
	role.EnsureID()
	role.CreatedAt, role.UpdatedAt = now, now
	if role.Permissions == nil {
		role.Permissions = models.Permissions{}
	}
	if role.ModelAccess == nil {
		role.ModelAccess = models.ModelAccess{}
	}
	m.roles = append(m.roles, role.Clone())
	return nil
}

func (m *Memory) SaveRole(ctx context.Context, role *models.Role) error {
	role.Name = models.NormalizeRoleName(role.Name)
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.findRole(role.Name)
	if i < 0 {
		return apperr.NotFound("role %q", role.Name)
	}
	role.ID = m.roles[i].ID
	role.CreatedAt = m.roles[i].CreatedAt
	role.UpdatedAt = m.now()
	m.roles[i] = role.Clone()
	return nil
}

func (m *Memory) DeleteRole(ctx context.Context, name string) error {
	name = models.NormalizeRoleName(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.findRole(name)
	if i < 0 {
		return apperr.NotFound("role %q", name)
	}
	if n := m.countRole(name); n > 0 {
		return apperr.Conflict("role %q is assigned to %d user(s)", name, n)
	}
	m.roles = append(m.roles[:i], m.roles[i+1:]...)
	return nil
}

func (m *Memory) countRole(name string) int64 {
	var n int64
	for _, u := range m.users {
		if u.Role == name {
			n++
		}
	}
	return n
}

func (m *Memory) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user %q", id)
	}
	copied := *u
	return &copied, nil
}

func (m *Memory) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("user with email %q", email)
}

func (m *Memory) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(m.userOrder))
	for _, id := range m.userOrder {
		out = append(out, *m.users[id])
	}
	return out, nil
}

func (m *Memory) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperr.Conflict("email %q already registered", user.Email)
		}
	}
	now := m.now()
	user.EnsureID()
	if _, exists := m.users[user.ID]; exists {
		return apperr.Conflict("user %q already exists", user.ID)
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.CreatedAt, user.UpdatedAt = now, now
	copied := *user
	m.users[user.ID] = &copied
	m.userOrder = append(m.userOrder, user.ID)
	return nil
}

func (m *Memory) UpdateUserRole(ctx context.Context, id, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperr.NotFound("user %q", id)
	}
	u.Role = role
	u.UpdatedAt = m.now()
	return nil
}

func (m *Memory) AssignUserRole(ctx context.Context, id, role string) (string, error) {
	role = models.NormalizeRoleName(role)
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return "", apperr.NotFound("user %q", id)
	}
	if m.findRole(role) < 0 {
		return "", apperr.Validation("invalid role %q: role does not exist", role)
	}
	old := u.Role
	u.Role = role
	u.UpdatedAt = m.now()
	return old, nil
}

func (m *Memory) CountUsersWithRole(ctx context.Context, role string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countRole(role), nil
}

func (m *Memory) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.balances[userID]
	if !ok {
		return nil, apperr.NotFound("balance for user %q", userID)
	}
	copied := *b
	return &copied, nil
}

func (m *Memory) ListBalances(ctx context.Context) ([]models.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Balance, 0, len(m.balances))
	for _, b := range m.balances {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *Memory) ListRefillCandidates(ctx context.Context) ([]models.Balance, error) {
	all, err := m.ListBalances(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, b := range all {
		if b.AutoRefillEnabled && b.RefillAmount > 0 {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *Memory) userLock(userID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.userLocks[userID] = l
	}
	return l
}

func (m *Memory) UpdateBalance(ctx context.Context, userID string, fn BalanceMutation) (*models.Balance, *models.Transaction, error) {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := m.clock()

	m.mu.RLock()
	current, exists := m.balances[userID]
	var working models.Balance
	if exists {
		working = *current
	}
	m.mu.RUnlock()

	if !exists {
		working = *models.NewBalance(userID, now)
		working.EnsureID()
		working.CreatedAt, working.UpdatedAt = now, now
	}
	snapshot := working

	record, err := fn(&working)
	if errors.Is(err, ErrNoChange) {
		return &snapshot, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	working.UserID = userID
	working.UpdatedAt = now

	m.mu.Lock()
	defer m.mu.Unlock()
	saved := working
	m.balances[userID] = &saved
	if record != nil {
		record.EnsureID()
		record.UserID = userID
		record.CreatedAt, record.UpdatedAt = now, now
		m.transactions = append(m.transactions, *record)
	}
	out := working
	return &out, record, nil
}

func (m *Memory) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Transaction, 0)
	for i := len(m.transactions) - 1; i >= 0; i-- {
		t := m.transactions[i]
		if filter.UserID != "" && t.UserID != filter.UserID {
			continue
		}
		if !filter.Since.IsZero() && t.CreatedAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && !t.CreatedAt.Before(filter.Until) {
			continue
		}
		out = append(out, t)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}
