package rbac

import "context"

// ResolutionStore is the read surface the Resolver needs. Implementations
// must propagate storage errors untouched; the resolver never converts an
// error into a boolean decision.
type ResolutionStore interface {
	// GlobalRoleIDs returns role ids granted to the user outside any
	// workspace scope.
	GlobalRoleIDs(ctx context.Context, userGUID string) ([]int64, error)
	// WorkspaceRoleIDs returns role ids granted to the user within the given
	// workspace, restricted to active grants.
	WorkspaceRoleIDs(ctx context.Context, userGUID, workspaceID string) ([]int64, error)
	// WorkspaceRoleNames returns the names of active workspace grants whose
	// role kind is workspace. Unlike WorkspaceRoleIDs this filters by kind;
	// the by-name membership check is the only path that does.
	WorkspaceRoleNames(ctx context.Context, userGUID, workspaceID string) ([]string, error)
	// PermissionIDsForRoles returns the union of permission ids reachable
	// from the role set: direct role grants plus grants via attached
	// permission groups.
	PermissionIDsForRoles(ctx context.Context, roleIDs []int64) ([]int64, error)
	// ActivePermissionMatch reports whether any permission in the id set has
	// the given code and active status.
	ActivePermissionMatch(ctx context.Context, permissionIDs []int64, code string) (bool, error)
}

// AdminStore is the surface the Assignment Manager needs. Every Replace and
// DeleteCascade operation must be atomic: a concurrent reader sees either
// the full prior association set or the full new one, never an intermediate
// state.
type AdminStore interface {
	GetRole(ctx context.Context, id int64) (Role, error)
	FindRoleByName(ctx context.Context, name string) (*Role, error)
	CreateRole(ctx context.Context, role Role) (Role, error)
	UpdateRole(ctx context.Context, role Role) error
	// DeleteRoleCascade removes user_roles, role_permissions,
	// role_permission_groups and user_workspaces rows referencing the role,
	// then the role row, in one transaction.
	DeleteRoleCascade(ctx context.Context, id int64) error
	ListRoles(ctx context.Context, filter RoleFilter) ([]Role, int, error)
	RolesExist(ctx context.Context, ids []int64) (bool, error)

	GetPermission(ctx context.Context, id int64) (Permission, error)
	FindPermissionByCode(ctx context.Context, code string) (*Permission, error)
	CreatePermission(ctx context.Context, perm Permission) (Permission, error)
	UpdatePermission(ctx context.Context, perm Permission) error
	// DeletePermissionsCascade removes role_permissions and group_permissions
	// rows referencing the permissions, then the permission rows, in one
	// transaction. Unknown ids are ignored.
	DeletePermissionsCascade(ctx context.Context, ids []int64) error
	ListPermissions(ctx context.Context, filter PermissionFilter) ([]Permission, int, error)
	PermissionsExist(ctx context.Context, ids []int64) (bool, error)

	GetGroupByCode(ctx context.Context, code string) (PermissionGroup, error)
	FindGroupByName(ctx context.Context, name string) (*PermissionGroup, error)
	CreateGroup(ctx context.Context, group PermissionGroup) (PermissionGroup, error)
	UpdateGroup(ctx context.Context, group PermissionGroup) error
	// DeleteGroupCascade removes group_permissions and role_permission_groups
	// rows referencing the group, then the group row, in one transaction.
	DeleteGroupCascade(ctx context.Context, code string) error
	ListGroups(ctx context.Context, filter GroupFilter) ([]PermissionGroup, int, error)
	GroupsExist(ctx context.Context, codes []string) (bool, error)

	ReplaceUserRoles(ctx context.Context, userGUID string, roleIDs []int64) error
	ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	ReplaceRolePermissionGroups(ctx context.Context, roleID int64, groupCodes []string) error
	ReplaceGroupPermissions(ctx context.Context, groupCode string, permissionIDs []int64) error
	UpsertWorkspaceGrant(ctx context.Context, grant WorkspaceGrant) error

	// GrantRoleToUser adds a single user_roles row; granting an already held
	// role is a no-op.
	GrantRoleToUser(ctx context.Context, userGUID string, roleID int64) error
	// GrantPermissionToRole adds a single role_permissions row; granting an
	// already granted permission is a no-op.
	GrantPermissionToRole(ctx context.Context, roleID, permissionID int64) error
}

// Store is the full grant store contract.
type Store interface {
	ResolutionStore
	AdminStore
}
