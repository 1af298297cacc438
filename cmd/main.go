// Command roleadmin serves the administrative API for roles, model access and
// credit balances, and runs the periodic ledger tasks.
//
//	roleadmin migrate                  # create tables and default roles
//	roleadmin serve                    # API server plus task worker
//	roleadmin serve --no-worker        # API server only
//	roleadmin worker                   # task worker and scheduler only
//	roleadmin roles list               # print roles
//	roleadmin coefficient <user> <model>
//	roleadmin enqueue refill|archive
//
// Configuration comes from the environment (and .env), optionally layered over
// the YAML file named by ROLEADMIN_CONFIG.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"roleadmin/internal/config"
	"roleadmin/internal/db"
	"roleadmin/internal/events"
	"roleadmin/internal/services"
	"roleadmin/internal/store"
	"roleadmin/internal/utils/logger"
)

var log = logger.New("roleadmin")

var rootCmd = &cobra.Command{
	Use:           "roleadmin",
	Short:         "Role, model access and balance administration",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnv()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadEnv() error {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		log.Debug("No .env file found, skipping environment variable loading")
		return nil
	}
	log.Info("Loading environment variables from .env file")
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

// app is the state every database-backed command needs.
type app struct {
	cfg      *config.Config
	store    *store.Gorm
	bus      *events.EventBus
	services *services.Services
}

// bootstrap loads config, connects to postgres and wires the services.
// When migrate is set it also creates tables and the default roles.
func bootstrap(ctx context.Context, migrate bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.SetDebug(cfg.Server.Debug)

	if err := db.Connect(cfg); err != nil {
		return nil, err
	}
	if migrate {
		if err := db.Migrate(); err != nil {
			return nil, err
		}
	}

	bus := events.Default()
	events.RegisterAuditLog(bus)

	st := store.NewGorm(db.GetDB())
	a := &app{cfg: cfg, store: st, bus: bus, services: services.New(st, bus)}

	if migrate {
		if err := a.services.Roles.EnsureDefaultRoles(ctx); err != nil {
			return nil, err
		}
		if cfg.Admin.Email != "" {
			if _, err := a.services.Users.EnsureAdmin(ctx, cfg.Admin.Email); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}

func (a *app) close() {
	a.bus.Wait()
	if err := db.Close(); err != nil {
		log.Error("Failed to close database connection", err)
	}
}
