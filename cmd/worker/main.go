package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/wardenhq/warden/internal/app"
	"github.com/wardenhq/warden/internal/audit"
	jobmetrics "github.com/wardenhq/warden/internal/jobs"
	"github.com/wardenhq/warden/internal/platform/db"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := jobmetrics.NewMetrics(nil)
	worker := audit.NewWorker(audit.NewRepository(pool), logger, metrics)

	server := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			audit.QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(audit.TaskTypeRecord, worker.HandleRecord)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(mux)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down worker")
		server.Shutdown()
	case err := <-errCh:
		if err != nil {
			logger.Error("worker exit", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
