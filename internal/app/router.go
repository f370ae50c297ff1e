package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardenhq/warden/internal/identity"
	"github.com/wardenhq/warden/internal/observability"
	"github.com/wardenhq/warden/internal/rbac"
	"github.com/wardenhq/warden/internal/workspace"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Pool               *pgxpool.Pool
	Metrics            *observability.Metrics
	IdentityMiddleware identity.Middleware
	IdentityHandler    *identity.Handler
	RBACHandler        *rbac.Handler
	WorkspaceHandler   *workspace.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), params.Config.AppRequestTimeout)
		defer cancel()
		if params.Pool != nil {
			if err := params.Pool.Ping(ctx); err != nil {
				params.Logger.Error("health ping", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			params.IdentityHandler.MountAuthRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(params.IdentityMiddleware.Authenticate)
				params.IdentityHandler.MountSessionRoutes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(params.IdentityMiddleware.Authenticate)
			r.Route("/users", params.IdentityHandler.MountUserRoutes)
			r.Route("/rbac", params.RBACHandler.MountRoutes)
			r.Route("/workspaces", params.WorkspaceHandler.MountRoutes)
		})
	})

	return r
}
