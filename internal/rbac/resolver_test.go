package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/shared"
)

func activePrincipal(guid string) shared.Principal {
	return shared.Principal{GUID: guid, Username: guid, Status: shared.StatusActive}
}

// seedEditor builds the common fixture: user u1 holds an editor role with a
// direct doc:update grant.
func seedEditor(t *testing.T, store *memoryStore) Role {
	t.Helper()
	editor := store.seedRole("editor", RoleKindCustom)
	perm := store.seedPermission("doc", ActionUpdate, PermissionStatusActive)
	require.NoError(t, store.ReplaceRolePermissions(context.Background(), editor.ID, []int64{perm.ID}))
	require.NoError(t, store.GrantRoleToUser(context.Background(), "u1", editor.ID))
	return editor
}

func TestResolveDirectGrant(t *testing.T) {
	store := newMemoryStore()
	seedEditor(t, store)
	resolver := NewResolver(store, nil, nil)

	allowed, err := resolver.Resolve(context.Background(), activePrincipal("u1"), "doc", ActionUpdate, "")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = resolver.Resolve(context.Background(), activePrincipal("u1"), "doc", ActionDelete, "")
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestResolveSuperuserBypass(t *testing.T) {
	store := newMemoryStore()
	resolver := NewResolver(store, nil, nil)

	// No roles, no permissions, not even an active status: still allowed.
	root := shared.Principal{GUID: "root", Status: shared.StatusLocked, Superuser: true}
	allowed, err := resolver.Resolve(context.Background(), root, "doc", ActionDelete, "")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestResolveInactivePrincipalDenied(t *testing.T) {
	store := newMemoryStore()
	seedEditor(t, store)
	resolver := NewResolver(store, nil, nil)

	for _, status := range []shared.PrincipalStatus{
		shared.StatusInactive,
		shared.StatusLocked,
		shared.StatusDisabled,
		shared.StatusDeleted,
	} {
		principal := shared.Principal{GUID: "u1", Status: status}
		allowed, err := resolver.Resolve(context.Background(), principal, "doc", ActionUpdate, "")
		require.NoError(t, err)
		require.False(t, allowed, "status %s must deny", status)
	}
}

func TestResolveNoRolesDenied(t *testing.T) {
	store := newMemoryStore()
	resolver := NewResolver(store, nil, nil)

	allowed, err := resolver.Resolve(context.Background(), activePrincipal("nobody"), "doc", ActionRead, "")
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestResolveGroupIndirection(t *testing.T) {
	store := newMemoryStore()
	viewer := store.seedRole("viewer", RoleKindCustom)
	perm := store.seedPermission("report", ActionView, PermissionStatusActive)
	group := store.seedGroup("grp-reporting", "reporting")
	ctx := context.Background()
	require.NoError(t, store.ReplaceGroupPermissions(ctx, group.Code, []int64{perm.ID}))
	require.NoError(t, store.ReplaceRolePermissionGroups(ctx, viewer.ID, []string{group.Code}))
	require.NoError(t, store.GrantRoleToUser(ctx, "u1", viewer.ID))

	resolver := NewResolver(store, nil, nil)
	allowed, err := resolver.Resolve(ctx, activePrincipal("u1"), "report", ActionView, "")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestResolveDisabledPermissionNeverMatches(t *testing.T) {
	store := newMemoryStore()
	role := store.seedRole("ops", RoleKindCustom)
	perm := store.seedPermission("job", ActionExecute, PermissionStatusDisabled)
	ctx := context.Background()
	require.NoError(t, store.ReplaceRolePermissions(ctx, role.ID, []int64{perm.ID}))
	require.NoError(t, store.GrantRoleToUser(ctx, "u1", role.ID))

	resolver := NewResolver(store, nil, nil)
	allowed, err := resolver.Resolve(ctx, activePrincipal("u1"), "job", ActionExecute, "")
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestResolveWorkspaceScoping(t *testing.T) {
	store := newMemoryStore()
	approver := store.seedRole("approver", RoleKindWorkspace)
	perm := store.seedPermission("doc", ActionApprove, PermissionStatusActive)
	ctx := context.Background()
	require.NoError(t, store.ReplaceRolePermissions(ctx, approver.ID, []int64{perm.ID}))
	require.NoError(t, store.UpsertWorkspaceGrant(ctx, WorkspaceGrant{
		UserGUID: "u1", WorkspaceID: "W1", RoleID: approver.ID, Active: true,
	}))

	resolver := NewResolver(store, nil, nil)

	// Granted in W1 only.
	allowed, err := resolver.Resolve(ctx, activePrincipal("u1"), "doc", ActionApprove, "W1")
	require.NoError(t, err)
	require.True(t, allowed)

	// Another workspace does not see the grant.
	allowed, err = resolver.Resolve(ctx, activePrincipal("u1"), "doc", ActionApprove, "W2")
	require.NoError(t, err)
	require.False(t, allowed)

	// Neither does an unscoped check.
	allowed, err = resolver.Resolve(ctx, activePrincipal("u1"), "doc", ActionApprove, "")
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestResolveInactiveWorkspaceGrantIgnored(t *testing.T) {
	store := newMemoryStore()
	approver := store.seedRole("approver", RoleKindWorkspace)
	perm := store.seedPermission("doc", ActionApprove, PermissionStatusActive)
	ctx := context.Background()
	require.NoError(t, store.ReplaceRolePermissions(ctx, approver.ID, []int64{perm.ID}))
	require.NoError(t, store.UpsertWorkspaceGrant(ctx, WorkspaceGrant{
		UserGUID: "u1", WorkspaceID: "W1", RoleID: approver.ID, Active: false,
	}))

	resolver := NewResolver(store, nil, nil)
	allowed, err := resolver.Resolve(ctx, activePrincipal("u1"), "doc", ActionApprove, "W1")
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestResolveGlobalRolesApplyInsideWorkspace(t *testing.T) {
	store := newMemoryStore()
	seedEditor(t, store)
	resolver := NewResolver(store, nil, nil)

	// A workspace scope widens the role set, it never narrows it.
	allowed, err := resolver.Resolve(context.Background(), activePrincipal("u1"), "doc", ActionUpdate, "W1")
	require.NoError(t, err)
	require.True(t, allowed)
}

type faultStore struct {
	*memoryStore
	err error
}

func (s *faultStore) GlobalRoleIDs(ctx context.Context, userGUID string) ([]int64, error) {
	return nil, s.err
}

func TestResolveStorageErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	store := &faultStore{memoryStore: newMemoryStore(), err: boom}
	resolver := NewResolver(store, nil, nil)

	allowed, err := resolver.Resolve(context.Background(), activePrincipal("u1"), "doc", ActionRead, "")
	require.ErrorIs(t, err, boom)
	require.False(t, allowed)
}

func TestHasWorkspaceRole(t *testing.T) {
	store := newMemoryStore()
	owner := store.seedRole("owner", RoleKindWorkspace)
	ctx := context.Background()
	require.NoError(t, store.UpsertWorkspaceGrant(ctx, WorkspaceGrant{
		UserGUID: "u1", WorkspaceID: "W1", RoleID: owner.ID, Active: true,
	}))

	resolver := NewResolver(store, nil, nil)

	ok, err := resolver.HasWorkspaceRole(ctx, activePrincipal("u1"), "W1", "owner")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = resolver.HasWorkspaceRole(ctx, activePrincipal("u1"), "W1", "admin")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = resolver.HasWorkspaceRole(ctx, activePrincipal("u1"), "W2", "owner")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasWorkspaceRoleFiltersByKind(t *testing.T) {
	store := newMemoryStore()
	// A custom-kind role granted through a workspace does not count for the
	// by-name membership check.
	editor := store.seedRole("editor", RoleKindCustom)
	ctx := context.Background()
	require.NoError(t, store.UpsertWorkspaceGrant(ctx, WorkspaceGrant{
		UserGUID: "u1", WorkspaceID: "W1", RoleID: editor.ID, Active: true,
	}))

	resolver := NewResolver(store, nil, nil)
	ok, err := resolver.HasWorkspaceRole(ctx, activePrincipal("u1"), "W1", "editor")
	require.NoError(t, err)
	require.False(t, ok)
}
