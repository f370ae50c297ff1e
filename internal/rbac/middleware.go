package rbac

import (
	"log/slog"
	"net/http"

	"github.com/wardenhq/warden/internal/platform/httpx"
	"github.com/wardenhq/warden/internal/shared"
)

// Middleware wires authorization guards for HTTP handlers. The identity
// middleware must run earlier in the chain so a principal (and optionally a
// workspace scope) is present in the request context.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// Requirement names one (resource, action) pair a route needs.
type Requirement struct {
	Resource Resource
	Action   Action
}

// Require ensures the current principal may perform action on resource.
// A storage failure surfaces as 500, never as a denial.
func (m Middleware) Require(resource Resource, action Action) func(http.Handler) http.Handler {
	return m.RequireAny(Requirement{Resource: resource, Action: action})
}

// RequireAny ensures the current principal holds at least one of the given
// permissions.
func (m Middleware) RequireAny(requirements ...Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(requirements) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			workspaceID := shared.WorkspaceFromContext(r.Context())
			for _, req := range requirements {
				allowed, err := m.Resolver.Resolve(r.Context(), *principal, req.Resource, req.Action, workspaceID)
				if err != nil {
					if m.Logger != nil {
						m.Logger.Error("authorization check",
							slog.String("resource", string(req.Resource)),
							slog.String("action", string(req.Action)),
							slog.Any("error", err))
					}
					httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
					return
				}
				if allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden",
				"missing required permission")
		})
	}
}
