package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"roleadmin/internal/config"
	"roleadmin/internal/models"
	console "roleadmin/internal/utils/logger"
)

var DB *gorm.DB
var log = console.New("DB")

const (
	maxRetries = 5
	retryWait  = 5 * time.Second
)

// Connect opens the postgres pool, retrying while the database comes up.
func Connect(cfg *config.Config) error {
	level := logger.Warn
	if cfg.Server.Debug {
		level = logger.Info
	}

	log.Info("Connecting to database %s@%s:%d/%s...", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	var err error
	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
			Logger:                                   logger.Default.LogMode(level),
			DisableForeignKeyConstraintWhenMigrating: true,
			PrepareStmt:                              true,
			AllowGlobalUpdate:                        false,
			TranslateError:                           true,
		})
		if err == nil {
			log.Success("Connected to database")

			sqlDB, err := DB.DB()
			if err != nil {
				return log.Error("Failed to get underlying *sql.DB instance", err)
			}
			sqlDB.SetMaxOpenConns(100)
			sqlDB.SetMaxIdleConns(10)
			sqlDB.SetConnMaxLifetime(time.Hour)
			sqlDB.SetConnMaxIdleTime(time.Minute * 30)
			return nil
		}
		log.Warn("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		time.Sleep(retryWait)
	}
	return log.Error("Giving up on database", fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err))
}

// Migrate creates or updates the roles, users, balances and transactions tables.
func Migrate() error {
	log.Info("Running migrations...")
	tx := DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Balance{},
		&models.Transaction{},
	); err != nil {
		tx.Rollback()
		return log.Error("Failed to run migrations", err)
	}

	if err := tx.Commit().Error; err != nil {
		return log.Error("Failed to commit migrations", err)
	}
	log.Success("Migrations completed")
	return nil
}

func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func GetDB() *gorm.DB {
	return DB
}
