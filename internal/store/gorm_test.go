package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"roleadmin/internal/apperr"
	"roleadmin/internal/models"
)

func setupGorm(t *testing.T) (*Gorm, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db, err := gorm.Open(
		postgres.New(postgres.Config{
			Conn:                 mockDB,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	require.NoError(t, err)
	return NewGorm(db), mock
}

var roleColumns = []string{"id", "created_at", "updated_at", "name", "permissions", "model_access"}

func TestGormGetRole(t *testing.T) {
	s, mock := setupGorm(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "roles" WHERE name = \$1`).
		WillReturnRows(sqlmock.NewRows(roleColumns).AddRow(
			"8c0f5d5e-7c89-4a0e-9d7c-3f8f2f1d2a10", now, now, "PRO",
			`{"ROLE_MANAGEMENT":{"UPDATE":true}}`,
			`{"gpt-4o":{"enabled":true,"coefficient":1.5}}`,
		))

	role, err := s.GetRole(context.Background(), "pro")
	require.NoError(t, err)
	assert.Equal(t, "PRO", role.Name)
	assert.True(t, role.Permissions["ROLE_MANAGEMENT"]["UPDATE"])
	assert.Equal(t, 1.5, role.ModelAccess["gpt-4o"].Coefficient)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormGetRoleNotFound(t *testing.T) {
	s, mock := setupGorm(t)
	mock.ExpectQuery(`SELECT \* FROM "roles" WHERE name = \$1`).
		WillReturnRows(sqlmock.NewRows(roleColumns))

	_, err := s.GetRole(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormGetRoleStorageError(t *testing.T) {
	s, mock := setupGorm(t)
	mock.ExpectQuery(`SELECT \* FROM "roles"`).WillReturnError(errors.New("connection reset"))

	_, err := s.GetRole(context.Background(), "PRO")
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormListRoles(t *testing.T) {
	s, mock := setupGorm(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "roles" ORDER BY created_at ASC`).
		WillReturnRows(sqlmock.NewRows(roleColumns).
			AddRow("8c0f5d5e-7c89-4a0e-9d7c-3f8f2f1d2a10", now, now, "ADMIN", `{}`, `{}`).
			AddRow("5b8e1f7a-2c3d-4e5f-8a9b-0c1d2e3f4a5b", now, now, "USER", `{}`, `{}`))

	roles, err := s.ListRoles(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "ADMIN", roles[0].Name)
	assert.Equal(t, "USER", roles[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreateRoleConflict(t *testing.T) {
	s, mock := setupGorm(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "roles" WHERE name = \$1`).
		WithArgs("PRO").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := s.CreateRole(context.Background(), newRole("pro"))
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDeleteRoleInUse(t *testing.T) {
	s, mock := setupGorm(t)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "roles" WHERE name = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(roleColumns).
			AddRow("8c0f5d5e-7c89-4a0e-9d7c-3f8f2f1d2a10", now, now, "PRO", `{}`, `{}`))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE role = \$1`).
		WithArgs("PRO").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := s.DeleteRole(context.Background(), "pro")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDeleteRole(t *testing.T) {
	s, mock := setupGorm(t)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "roles" WHERE name = \$1`).
		WillReturnRows(sqlmock.NewRows(roleColumns).
			AddRow("8c0f5d5e-7c89-4a0e-9d7c-3f8f2f1d2a10", now, now, "TEMP", `{}`, `{}`))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE role = \$1`).
		WithArgs("TEMP").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`DELETE FROM "roles" WHERE name = \$1`).
		WithArgs("TEMP").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteRole(context.Background(), "temp"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDeleteRoleNotFound(t *testing.T) {
	s, mock := setupGorm(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "roles" WHERE name = \$1`).
		WillReturnRows(sqlmock.NewRows(roleColumns))
	mock.ExpectRollback()

	err := s.DeleteRole(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var userColumns = []string{"id", "created_at", "updated_at", "email", "username", "name", "role"}

func TestGormAssignUserRoleLocksRole(t *testing.T) {
	s, mock := setupGorm(t)
	now := time.Now()
	userID := "5b8e1f7a-2c3d-4e5f-8a9b-0c1d2e3f4a5b"
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(userID, now, now, "a@example.com", "a", "", "USER"))
	mock.ExpectQuery(`SELECT \* FROM "roles" WHERE name = \$1 .*FOR SHARE`).
		WillReturnRows(sqlmock.NewRows(roleColumns).
			AddRow("8c0f5d5e-7c89-4a0e-9d7c-3f8f2f1d2a10", now, now, "PRO", `{}`, `{}`))
	mock.ExpectExec(`UPDATE "users" SET "role"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	old, err := s.AssignUserRole(context.Background(), userID, "pro")
	require.NoError(t, err)
	assert.Equal(t, "USER", old)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormAssignUserRoleMissingRole(t *testing.T) {
	s, mock := setupGorm(t)
	now := time.Now()
	userID := "5b8e1f7a-2c3d-4e5f-8a9b-0c1d2e3f4a5b"
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(userID, now, now, "a@example.com", "a", "", "USER"))
	mock.ExpectQuery(`SELECT \* FROM "roles" WHERE name = \$1 .*FOR SHARE`).
		WillReturnRows(sqlmock.NewRows(roleColumns))
	mock.ExpectRollback()

	_, err := s.AssignUserRole(context.Background(), userID, "ghost")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormAssignUserRoleMissingUser(t *testing.T) {
	s, mock := setupGorm(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectRollback()

	_, err := s.AssignUserRole(context.Background(), "ghost", "PRO")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpdateUserRoleMissingUser(t *testing.T) {
	s, mock := setupGorm(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET "role"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.UpdateUserRole(context.Background(), "ghost", "PRO")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCountUsersWithRole(t *testing.T) {
	s, mock := setupGorm(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE role = \$1`).
		WithArgs("ADMIN").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := s.CountUsersWithRole(context.Background(), "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

const balanceUserID = "5b8e1f7a-2c3d-4e5f-8a9b-0c1d2e3f4a5b"

var balanceColumns = []string{
	"id", "created_at", "updated_at", "user_id", "token_credits", "auto_refill_enabled",
	"refill_interval_value", "refill_interval_unit", "last_refill", "refill_amount",
}

func balanceRow(now time.Time, credits float64) *sqlmock.Rows {
	return sqlmock.NewRows(balanceColumns).AddRow(
		"0f2c4e6a-8b1d-4c3e-9f5a-7b9d1e3f5a7c", now, now, balanceUserID, credits, false,
		int64(30), "days", now, 0.0,
	)
}

// expectLockedBalance queues the upsert and the row lock every mutation starts with.
func expectLockedBalance(mock sqlmock.Sqlmock, now time.Time, credits float64) {
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "balances" .* ON CONFLICT \("user_id"\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "balances" WHERE user_id = \$1 .*FOR UPDATE`).
		WillReturnRows(balanceRow(now, credits))
}

func TestGormUpdateBalanceLocksAndRecords(t *testing.T) {
	s, mock := setupGorm(t)
	now := time.Now()
	expectLockedBalance(mock, now, 100)
	mock.ExpectExec(`UPDATE "balances" SET .* WHERE "id" = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "transactions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, rec, err := s.UpdateBalance(context.Background(), balanceUserID, func(b *models.Balance) (*models.Transaction, error) {
		assert.Equal(t, 100.0, b.TokenCredits)
		b.TokenCredits += 50
		return models.NewTransaction("", models.ContextBalanceAdjust, 50, "bonus", "admin"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 150.0, b.TokenCredits)
	require.NotNil(t, rec)
	assert.Equal(t, balanceUserID, rec.UserID)
	assert.Equal(t, 50.0, rec.RawAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpdateBalanceNoChange(t *testing.T) {
	s, mock := setupGorm(t)
	now := time.Now()
	expectLockedBalance(mock, now, 100)
	mock.ExpectCommit()

	b, rec, err := s.UpdateBalance(context.Background(), balanceUserID, func(b *models.Balance) (*models.Transaction, error) {
		b.TokenCredits = 999
		return nil, ErrNoChange
	})
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, 100.0, b.TokenCredits, "the locked row is returned unmodified")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpdateBalanceMutationErrorRollsBack(t *testing.T) {
	s, mock := setupGorm(t)
	now := time.Now()
	expectLockedBalance(mock, now, 100)
	mock.ExpectRollback()

	boom := apperr.Validation("rejected")
	_, _, err := s.UpdateBalance(context.Background(), balanceUserID, func(b *models.Balance) (*models.Transaction, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpdateBalanceTransactionInsertFailureRollsBack(t *testing.T) {
	s, mock := setupGorm(t)
	now := time.Now()
	expectLockedBalance(mock, now, 100)
	mock.ExpectExec(`UPDATE "balances" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "transactions"`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, rec, err := s.UpdateBalance(context.Background(), balanceUserID, func(b *models.Balance) (*models.Transaction, error) {
		b.TokenCredits = 0
		return models.NewTransaction("", models.ContextBalanceSet, -100, "", "admin"), nil
	})
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpdateBalanceLockFailure(t *testing.T) {
	s, mock := setupGorm(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "balances"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "balances" .*FOR UPDATE`).
		WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	called := false
	_, _, err := s.UpdateBalance(context.Background(), balanceUserID, func(b *models.Balance) (*models.Transaction, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var transactionColumns = []string{"id", "created_at", "updated_at", "user_id", "token_type", "context", "raw_amount", "metadata"}

func TestGormListTransactions(t *testing.T) {
	s, mock := setupGorm(t)
	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	until := since.Add(24 * time.Hour)
	mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE user_id = \$1 AND created_at >= \$2 AND created_at < \$3 ORDER BY created_at DESC LIMIT \$4`).
		WithArgs(balanceUserID, since, until, 10).
		WillReturnRows(sqlmock.NewRows(transactionColumns).
			AddRow("a1", until.Add(-time.Hour), until.Add(-time.Hour), balanceUserID, "credits",
				models.ContextBalanceAdjust, -100.0, `{"reason":"refund","actorId":"admin"}`).
			AddRow("a2", since.Add(time.Hour), since.Add(time.Hour), balanceUserID, "credits",
				models.ContextBalanceSet, 300.0, `{}`))

	txs, err := s.ListTransactions(context.Background(), TransactionFilter{
		UserID: balanceUserID,
		Since:  since,
		Until:  until,
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.ContextBalanceAdjust, txs[0].Context)
	assert.Equal(t, -100.0, txs[0].RawAmount)
	assert.Equal(t, "refund", txs[0].Metadata.Data().Reason)
	assert.Equal(t, "admin", txs[0].Metadata.Data().ActorID)
	assert.Equal(t, 300.0, txs[1].RawAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormListTransactionsUnfiltered(t *testing.T) {
	s, mock := setupGorm(t)
	mock.ExpectQuery(`SELECT \* FROM "transactions" ORDER BY created_at DESC$`).
		WillReturnRows(sqlmock.NewRows(transactionColumns))

	txs, err := s.ListTransactions(context.Background(), TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
