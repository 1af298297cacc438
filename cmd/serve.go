package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"roleadmin/docs/swagger"
	"roleadmin/internal/api"
	"roleadmin/internal/api/middleware"
	"roleadmin/internal/ratelimit"
	"roleadmin/internal/routes"
	"roleadmin/internal/tasks"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin API server",
	Long: `Run the admin API server.

Migrations and default roles are applied on startup unless --no-migrate is set.
The task worker and scheduler run in the same process unless --no-worker is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		noWorker, _ := cmd.Flags().GetBool("no-worker")
		return runServe(cmd.Context(), !noMigrate, !noWorker)
	},
}

func init() {
	serveCmd.Flags().Bool("no-migrate", false, "skip migrations and default role bootstrap")
	serveCmd.Flags().Bool("no-worker", false, "do not run the task worker and scheduler")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, migrate, worker bool) error {
	a, err := bootstrap(ctx, migrate)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	taskClient := tasks.NewTaskClient(cfg.Redis)
	defer taskClient.Close()

	var limiter middleware.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewSlidingWindow(taskClient.Redis(), "admin", ratelimit.Limit{
			Window:  cfg.RateLimit.Window(),
			MaxHits: cfg.RateLimit.Requests,
		})
		log.Info("rate limiting mutations to %d per %s", cfg.RateLimit.Requests, cfg.RateLimit.Window())
	}

	var w *workerProcess
	if worker {
		w, err = startWorker(ctx, a)
		if err != nil {
			return err
		}
		defer w.stop()
	}

	swagger.SwaggerInfo.Title = "Role Admin API"
	swagger.SwaggerInfo.Description = "Administrative API for roles, model access and credit balances"
	swagger.SwaggerInfo.Version = api.Version
	swagger.SwaggerInfo.Host = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	apiServer := api.NewServer(cfg, routes.AdminDeps{
		Services:  a.services,
		JWTSecret: cfg.JWT.Secret,
		Limiter:   limiter,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Success("API server started")
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return log.Error("API server error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shutdown API server", err)
	}
	log.Info("Servers shutdown gracefully")
	return nil
}
