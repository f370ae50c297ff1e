package rbac

import (
	"context"
	"log/slog"

	"github.com/wardenhq/warden/internal/observability"
	"github.com/wardenhq/warden/internal/shared"
)

// Resolver computes access decisions from the grant store. Resolution is a
// pure allow-list OR-combined across every held role and every reachable
// group; there is no deny rule and no way to subtract a granted permission.
type Resolver struct {
	store   ResolutionStore
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewResolver constructs a Resolver. metrics may be nil.
func NewResolver(store ResolutionStore, metrics *observability.Metrics, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, metrics: metrics, logger: logger}
}

// Resolve reports whether the principal may perform action on resource.
// workspaceID widens the role set with the principal's active grants in that
// workspace; pass "" for a global-only check. Storage errors propagate, never
// collapse into a boolean.
func (r *Resolver) Resolve(ctx context.Context, principal shared.Principal, resource Resource, action Action, workspaceID string) (bool, error) {
	return r.resolveCode(ctx, principal, PermissionCode(resource, action), workspaceID)
}

// ResolveCode is Resolve keyed by a permission code instead of the
// (resource, action) pair.
func (r *Resolver) ResolveCode(ctx context.Context, principal shared.Principal, code, workspaceID string) (bool, error) {
	return r.resolveCode(ctx, principal, code, workspaceID)
}

func (r *Resolver) resolveCode(ctx context.Context, principal shared.Principal, code, workspaceID string) (bool, error) {
	// The single hard-coded override in the system: superusers skip every
	// check, including the status gate.
	if principal.Superuser {
		r.metrics.ObserveDecision("bypass")
		return true, nil
	}
	// The identity middleware already rejects non-active principals; this
	// re-check keeps the resolver safe when called off the request path.
	if !principal.Active() {
		r.metrics.ObserveDecision("deny")
		return false, nil
	}

	roleIDs, err := r.roleIDs(ctx, principal.GUID, workspaceID)
	if err != nil {
		r.metrics.ObserveDecision("error")
		return false, err
	}
	if len(roleIDs) == 0 {
		r.metrics.ObserveDecision("deny")
		return false, nil
	}

	permissionIDs, err := r.store.PermissionIDsForRoles(ctx, roleIDs)
	if err != nil {
		r.metrics.ObserveDecision("error")
		return false, err
	}
	if len(permissionIDs) == 0 {
		r.metrics.ObserveDecision("deny")
		return false, nil
	}

	allowed, err := r.store.ActivePermissionMatch(ctx, permissionIDs, code)
	if err != nil {
		r.metrics.ObserveDecision("error")
		return false, err
	}
	if allowed {
		r.metrics.ObserveDecision("allow")
	} else {
		r.metrics.ObserveDecision("deny")
	}
	return allowed, nil
}

// HasWorkspaceRole reports whether the principal holds the named role within
// the workspace. Only active grants whose role kind is workspace count; the
// resource/action resolution path deliberately does not apply this kind
// filter.
func (r *Resolver) HasWorkspaceRole(ctx context.Context, principal shared.Principal, workspaceID, roleName string) (bool, error) {
	if principal.Superuser {
		return true, nil
	}
	if !principal.Active() {
		return false, nil
	}
	names, err := r.store.WorkspaceRoleNames(ctx, principal.GUID, workspaceID)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if name == roleName {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) roleIDs(ctx context.Context, userGUID, workspaceID string) ([]int64, error) {
	roleIDs, err := r.store.GlobalRoleIDs(ctx, userGUID)
	if err != nil {
		return nil, err
	}
	if workspaceID != "" {
		wsRoleIDs, err := r.store.WorkspaceRoleIDs(ctx, userGUID, workspaceID)
		if err != nil {
			return nil, err
		}
		roleIDs = append(roleIDs, wsRoleIDs...)
	}
	return dedupeInt64(roleIDs), nil
}
