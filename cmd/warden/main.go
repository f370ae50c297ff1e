package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/wardenhq/warden/internal/app"
	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/identity"
	"github.com/wardenhq/warden/internal/observability"
	"github.com/wardenhq/warden/internal/platform/db"
	"github.com/wardenhq/warden/internal/rbac"
	"github.com/wardenhq/warden/internal/workspace"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	recorder := audit.NewRecorder(asynqClient)

	grantStore := rbac.NewRepository(pool)
	resolver := rbac.NewResolver(grantStore, metrics, logger)
	manager := rbac.NewManager(grantStore, recorder, logger, cfg.AdminRoleID)
	guard := rbac.Middleware{Resolver: resolver, Logger: logger}

	accountRepo := identity.NewRepository(pool)
	sessions := identity.NewSessionStore(redisClient, cfg.SessionTTL)
	identityService := identity.NewService(accountRepo, sessions, manager, logger, cfg.DefaultRoleID)
	identityMiddleware := identity.Middleware{Sessions: sessions, Accounts: accountRepo, Logger: logger}

	workspaceRepo := workspace.NewRepository(pool)
	workspaceService := workspace.NewService(workspaceRepo)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Pool:               pool,
		Metrics:            metrics,
		IdentityMiddleware: identityMiddleware,
		IdentityHandler:    identity.NewHandler(logger, identityService, guard),
		RBACHandler:        rbac.NewHandler(logger, manager, resolver, guard),
		WorkspaceHandler:   workspace.NewHandler(logger, workspaceService, guard),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
