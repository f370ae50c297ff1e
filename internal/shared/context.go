package shared

import "context"

type principalContextKey struct{}

type workspaceContextKey struct{}

// ContextWithPrincipal stores the authenticated principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the authenticated principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}

// ContextWithWorkspace stores the workspace scope for the current request.
func ContextWithWorkspace(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, workspaceContextKey{}, workspaceID)
}

// WorkspaceFromContext returns the workspace scope, or "" when the request
// carries no workspace context.
func WorkspaceFromContext(ctx context.Context) string {
	ws, _ := ctx.Value(workspaceContextKey{}).(string)
	return ws
}
