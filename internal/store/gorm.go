package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"roleadmin/internal/apperr"
	"roleadmin/internal/models"
)

// Gorm is the postgres-backed Store.
type Gorm struct {
	db  *gorm.DB
	now func() time.Time
}

var _ Store = (*Gorm)(nil)

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db, now: time.Now}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") || strings.Contains(msg, "duplicate key")
}

func notFoundOr(err error, op string, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(format, args...)
	}
	return apperr.Storage(op, err)
}

func (s *Gorm) GetRole(ctx context.Context, name string) (*models.Role, error) {
	name = models.NormalizeRoleName(name)
	var role models.Role
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, notFoundOr(err, "get role", "role %q", name)
	}
	return &role, nil
}

func (s *Gorm) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&roles).Error; err != nil {
		return nil, apperr.Storage("list roles", err)
	}
	return roles, nil
}

func (s *Gorm) CreateRole(ctx context.Context, role *models.Role) error {
	role.Name = models.NormalizeRoleName(role.Name)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Role{}).Where("name = ?", role.Name).Count(&n).Error; err != nil {
			return apperr.Storage("check role", err)
		}
		if n > 0 {
			return apperr.Conflict("role %q already exists", role.Name)
		}
		if err := tx.Create(role).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("role %q already exists", role.Name)
			}
			return apperr.Storage("create role", err)
		}
		return nil
	})
}

func (s *Gorm) SaveRole(ctx context.Context, role *models.Role) error {
	role.Name = models.NormalizeRoleName(role.Name)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Role
		if err := tx.Where("name = ?", role.Name).First(&existing).Error; err != nil {
			return notFoundOr(err, "get role", "role %q", role.Name)
		}
		role.ID = existing.ID
		role.CreatedAt = existing.CreatedAt
		if err := tx.Save(role).Error; err != nil {
			return apperr.Storage("save role", err)
		}
		return nil
	})
}

func (s *Gorm) DeleteRole(ctx context.Context, name string) error {
	name = models.NormalizeRoleName(name)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("name = ?", name).First(&role).Error
		if err != nil {
			return notFoundOr(err, "get role", "role %q", name)
		}
		var n int64
		if err := tx.Model(&models.User{}).Where("role = ?", name).Count(&n).Error; err != nil {
			return apperr.Storage("count role users", err)
		}
		if n > 0 {
			return apperr.Conflict("role %q is assigned to %d user(s)", name, n)
		}
		if err := tx.Delete(&models.Role{}, "name = ?", name).Error; err != nil {
			return apperr.Storage("delete role", err)
		}
		return nil
	})
}

func (s *Gorm) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "get user", "user %q", id)
	}
	return &user, nil
}

func (s *Gorm) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "find user", "user with email %q", email)
	}
	return &user, nil
}

func (s *Gorm) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, apperr.Storage("list users", err)
	}
	return users, nil
}

func (s *Gorm) CreateUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return apperr.Conflict("email %q already registered", user.Email)
		}
		return apperr.Storage("create user", err)
	}
	return nil
}

func (s *Gorm) UpdateUserRole(ctx context.Context, id, role string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return apperr.Storage("update user role", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user %q", id)
	}
	return nil
}

// AssignUserRole holds a share lock on the role row until the user is updated,
// so a concurrent DeleteRole either waits and sees the user or wins and makes
// the role lookup fail.
func (s *Gorm) AssignUserRole(ctx context.Context, id, role string) (string, error) {
	role = models.NormalizeRoleName(role)
	var old string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
			return notFoundOr(err, "get user", "user %q", id)
		}
		var existing models.Role
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).Where("name = ?", role).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Validation("invalid role %q: role does not exist", role)
		}
		if err != nil {
			return apperr.Storage("lock role", err)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", id).Update("role", role).Error; err != nil {
			return apperr.Storage("update user role", err)
		}
		old = user.Role
		return nil
	})
	if err != nil {
		return "", err
	}
	return old, nil
}

func (s *Gorm) CountUsersWithRole(ctx context.Context, role string) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&n).Error; err != nil {
		return 0, apperr.Storage("count role users", err)
	}
	return n, nil
}

func (s *Gorm) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	var b models.Balance
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&b).Error; err != nil {
		return nil, notFoundOr(err, "get balance", "balance for user %q", userID)
	}
	return &b, nil
}

func (s *Gorm) ListBalances(ctx context.Context) ([]models.Balance, error) {
	var out []models.Balance
	if err := s.db.WithContext(ctx).Order("user_id ASC").Find(&out).Error; err != nil {
		return nil, apperr.Storage("list balances", err)
	}
	return out, nil
}

func (s *Gorm) ListRefillCandidates(ctx context.Context) ([]models.Balance, error) {
	var out []models.Balance
	err := s.db.WithContext(ctx).
		Where("auto_refill_enabled = ? AND refill_amount > ?", true, 0).
		Order("user_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, apperr.Storage("list refill candidates", err)
	}
	return out, nil
}

// UpdateBalance upserts the row, locks it with SELECT ... FOR UPDATE and applies fn
// inside the same database transaction.
func (s *Gorm) UpdateBalance(ctx context.Context, userID string, fn BalanceMutation) (*models.Balance, *models.Transaction, error) {
	var (
		out    models.Balance
		record *models.Transaction
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.NewBalance(userID, s.now())
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(seed).Error
		if err != nil {
			return apperr.Storage("create balance", err)
		}

		var b models.Balance
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&b).Error; err != nil {
			return apperr.Storage("lock balance", err)
		}
		snapshot := b

		rec, err := fn(&b)
		if errors.Is(err, ErrNoChange) {
			out = snapshot
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Save(&b).Error; err != nil {
			return apperr.Storage("save balance", err)
		}
		if rec != nil {
			rec.UserID = userID
			if err := tx.Create(rec).Error; err != nil {
				return apperr.Storage("record transaction", err)
			}
		}
		out, record = b, rec
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &out, record, nil
}

func (s *Gorm) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	q := s.db.WithContext(ctx).Model(&models.Transaction{})
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("created_at < ?", filter.Until)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var out []models.Transaction
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, apperr.Storage("list transactions", err)
	}
	return out, nil
}
