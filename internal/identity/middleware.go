package identity

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wardenhq/warden/internal/platform/httpx"
	"github.com/wardenhq/warden/internal/shared"
)

// WorkspaceHeader selects the workspace scope for the request. Absent means a
// global-only check downstream.
const WorkspaceHeader = "X-Workspace-ID"

// Middleware authenticates requests from bearer tokens and places the
// principal and workspace scope into the request context.
type Middleware struct {
	Sessions *SessionStore
	Accounts AccountStore
	Logger   *slog.Logger
}

// Authenticate rejects requests without a valid session. The account is
// reloaded on every request so a status change locks out live sessions
// immediately. Non-active accounts are rejected here, except superusers.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		guid, err := m.Sessions.Resolve(r.Context(), token)
		if err != nil {
			m.respondAuthError(w, "resolve session", err)
			return
		}
		account, err := m.Accounts.GetByGUID(r.Context(), guid)
		if errors.Is(err, shared.ErrNotFound) {
			// Session outlived the account.
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "unknown session")
			return
		}
		if err != nil {
			m.respondAuthError(w, "load account", err)
			return
		}
		if !account.Superuser && account.Status != shared.StatusActive {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "account is not active")
			return
		}

		principal := account.Principal()
		ctx := shared.ContextWithPrincipal(r.Context(), &principal)
		if workspaceID := r.Header.Get(WorkspaceHeader); workspaceID != "" {
			ctx = shared.ContextWithWorkspace(ctx, workspaceID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) respondAuthError(w http.ResponseWriter, op string, err error) {
	if m.Logger != nil {
		m.Logger.Warn(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
