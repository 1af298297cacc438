package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"roleadmin/internal/services"
	"roleadmin/internal/tasks"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the task worker and scheduler",
	Long:  `Run the asynq worker that applies auto refills and archives transactions, together with the scheduler that enqueues them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.close()

		w, err := startWorker(cmd.Context(), a)
		if err != nil {
			return err
		}
		defer w.stop()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

type workerProcess struct {
	server    *tasks.Server
	scheduler *tasks.Scheduler
}

func newArchiver(ctx context.Context, a *app) (*services.Archiver, error) {
	var objects services.ObjectStore
	if a.cfg.S3.Enabled() {
		s3Service, err := services.NewS3Service(ctx, a.cfg.S3)
		if err != nil {
			return nil, err
		}
		objects = s3Service
	}
	return services.NewArchiver(a.store, objects), nil
}

func startWorker(ctx context.Context, a *app) (*workerProcess, error) {
	cfg := a.cfg

	archiver, err := newArchiver(ctx, a)
	if err != nil {
		return nil, err
	}

	loc := time.UTC
	if cfg.Schedule.Timezone != "" {
		if loc, err = time.LoadLocation(cfg.Schedule.Timezone); err != nil {
			return nil, err
		}
	}

	handler := tasks.NewTaskHandler(a.services.Ledger, archiver, loc)
	server := tasks.NewServer(cfg.Redis, cfg.Worker, handler, log)
	if err := server.Start(ctx); err != nil {
		return nil, log.Error("Task server error", err)
	}

	scheduler, err := tasks.NewScheduler(cfg.Redis, cfg.Schedule, log)
	if err != nil {
		server.Shutdown()
		return nil, err
	}
	go func() {
		if err := scheduler.Start(); err != nil {
			log.Error("Task scheduler error", err)
		}
	}()

	return &workerProcess{server: server, scheduler: scheduler}, nil
}

func (w *workerProcess) stop() {
	w.scheduler.Stop()
	w.server.Shutdown()
}
