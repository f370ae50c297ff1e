package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/internal/shared"
)

// AuditRecorder receives grant-change notifications. Recording is
// best-effort: the manager logs and discards recorder errors.
type AuditRecorder interface {
	RecordGrantChange(ctx context.Context, actor, action, entity, entityKey string, detail map[string]string) error
}

// Manager mutates the grant store. It is the single writer of association
// rows and the sole authority for cascading cleanup, so no association row
// can outlive the role, permission or group it references.
type Manager struct {
	store       AdminStore
	audit       AuditRecorder
	logger      *slog.Logger
	adminRoleID int64
}

// NewManager constructs a Manager. audit may be nil. adminRoleID identifies
// the distinguished administrator role that newly created permissions are
// provisioned to; zero disables the hook.
func NewManager(store AdminStore, audit AuditRecorder, logger *slog.Logger, adminRoleID int64) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, audit: audit, logger: logger, adminRoleID: adminRoleID}
}

// --- roles ---

// RoleInput carries fields for role creation.
type RoleInput struct {
	Name        string
	Description string
	Status      RoleStatus
	Kind        RoleKind
}

// RoleUpdate carries partial fields for role updates; nil means unchanged.
type RoleUpdate struct {
	Name        *string
	Description *string
	Status      *RoleStatus
	Kind        *RoleKind
}

// CreateRole inserts a new role. Names are unique.
func (m *Manager) CreateRole(ctx context.Context, input RoleInput) (Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	status := input.Status
	if status == "" {
		status = RoleStatusActive
	}
	kind := input.Kind
	if kind == "" {
		kind = RoleKindCustom
	}
	if !status.Valid() || !kind.Valid() {
		return Role{}, fmt.Errorf("%w: invalid role status or kind", shared.ErrValidation)
	}

	existing, err := m.store.FindRoleByName(ctx, name)
	if err != nil {
		return Role{}, err
	}
	if existing != nil {
		return Role{}, fmt.Errorf("%w: role name %q", shared.ErrConflict, name)
	}

	role, err := m.store.CreateRole(ctx, Role{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		Kind:        kind,
	})
	if err != nil {
		return Role{}, err
	}
	m.recordChange(ctx, "role.create", "role", strconv.FormatInt(role.ID, 10), map[string]string{"name": role.Name})
	return role, nil
}

// UpdateRole applies a partial update to an existing role.
func (m *Manager) UpdateRole(ctx context.Context, id int64, update RoleUpdate) (Role, error) {
	role, err := m.store.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
		}
		if name != role.Name {
			existing, err := m.store.FindRoleByName(ctx, name)
			if err != nil {
				return Role{}, err
			}
			if existing != nil && existing.ID != id {
				return Role{}, fmt.Errorf("%w: role name %q", shared.ErrConflict, name)
			}
		}
		role.Name = name
	}
	if update.Description != nil {
		role.Description = strings.TrimSpace(*update.Description)
	}
	if update.Status != nil {
		if !update.Status.Valid() {
			return Role{}, fmt.Errorf("%w: invalid role status %q", shared.ErrValidation, *update.Status)
		}
		role.Status = *update.Status
	}
	if update.Kind != nil {
		if !update.Kind.Valid() {
			return Role{}, fmt.Errorf("%w: invalid role kind %q", shared.ErrValidation, *update.Kind)
		}
		role.Kind = *update.Kind
	}
	if err := m.store.UpdateRole(ctx, role); err != nil {
		return Role{}, err
	}
	m.recordChange(ctx, "role.update", "role", strconv.FormatInt(id, 10), map[string]string{"name": role.Name})
	return role, nil
}

// DeleteRole removes a role and, atomically, every association row that
// references it: user grants, direct permission grants, group attachments
// and workspace grants.
func (m *Manager) DeleteRole(ctx context.Context, id int64) error {
	if err := m.store.DeleteRoleCascade(ctx, id); err != nil {
		return err
	}
	m.recordChange(ctx, "role.delete", "role", strconv.FormatInt(id, 10), nil)
	return nil
}

// GetRole fetches a role by id.
func (m *Manager) GetRole(ctx context.Context, id int64) (Role, error) {
	return m.store.GetRole(ctx, id)
}

// ListRoles returns roles matching the filter with pagination metadata.
func (m *Manager) ListRoles(ctx context.Context, filter RoleFilter) ([]Role, shared.Pagination, error) {
	roles, total, err := m.store.ListRoles(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return roles, shared.NewPagination(filter.Page, filter.Size, total), nil
}

// --- permissions ---

// PermissionInput carries fields for permission creation.
type PermissionInput struct {
	Resource    Resource
	Action      Action
	Name        string
	Description string
	Level       int
	Status      PermissionStatus
}

// PermissionUpdate carries partial fields for permission updates; nil means
// unchanged.
type PermissionUpdate struct {
	Resource    *Resource
	Action      *Action
	Name        *string
	Description *string
	Level       *int
	Status      *PermissionStatus
}

// CreatePermission inserts a new permission. The code is derived from
// (resource, action) and must be unique. After the row commits the permission
// is provisioned to the administrator role; that step is best-effort and its
// failure never fails the creation.
func (m *Manager) CreatePermission(ctx context.Context, input PermissionInput) (Permission, error) {
	if !input.Action.Valid() {
		return Permission{}, fmt.Errorf("%w: invalid action %q", shared.ErrValidation, input.Action)
	}
	if input.Resource == "" {
		return Permission{}, fmt.Errorf("%w: resource required", shared.ErrValidation)
	}
	status := input.Status
	if status == "" {
		status = PermissionStatusActive
	}
	if !status.Valid() {
		return Permission{}, fmt.Errorf("%w: invalid permission status %q", shared.ErrValidation, status)
	}

	code := PermissionCode(input.Resource, input.Action)
	existing, err := m.store.FindPermissionByCode(ctx, code)
	if err != nil {
		return Permission{}, err
	}
	if existing != nil {
		return Permission{}, fmt.Errorf("%w: permission code %q", shared.ErrConflict, code)
	}

	perm, err := m.store.CreatePermission(ctx, Permission{
		Code:        code,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Resource:    input.Resource,
		Action:      input.Action,
		Level:       input.Level,
		Status:      status,
	})
	if err != nil {
		return Permission{}, err
	}

	m.provisionToAdminRole(ctx, perm)
	m.recordChange(ctx, "permission.create", "permission", perm.Code, map[string]string{"id": strconv.FormatInt(perm.ID, 10)})
	return perm, nil
}

// provisionToAdminRole grants a freshly created permission to the
// administrator role so non-superuser administrators are not silently
// excluded from new capabilities. Errors are logged, never propagated.
func (m *Manager) provisionToAdminRole(ctx context.Context, perm Permission) {
	if m.adminRoleID == 0 {
		return
	}
	if err := m.store.GrantPermissionToRole(ctx, m.adminRoleID, perm.ID); err != nil {
		m.logger.Error("provision permission to admin role",
			slog.String("code", perm.Code),
			slog.Int64("role_id", m.adminRoleID),
			slog.Any("error", err))
	}
}

// UpdatePermission applies a partial update. When resource or action change
// the code is recomputed and re-checked for uniqueness against all other
// permissions.
func (m *Manager) UpdatePermission(ctx context.Context, id int64, update PermissionUpdate) (Permission, error) {
	perm, err := m.store.GetPermission(ctx, id)
	if err != nil {
		return Permission{}, err
	}
	if update.Resource != nil {
		if *update.Resource == "" {
			return Permission{}, fmt.Errorf("%w: resource required", shared.ErrValidation)
		}
		perm.Resource = *update.Resource
	}
	if update.Action != nil {
		if !update.Action.Valid() {
			return Permission{}, fmt.Errorf("%w: invalid action %q", shared.ErrValidation, *update.Action)
		}
		perm.Action = *update.Action
	}
	if update.Resource != nil || update.Action != nil {
		code := PermissionCode(perm.Resource, perm.Action)
		existing, err := m.store.FindPermissionByCode(ctx, code)
		if err != nil {
			return Permission{}, err
		}
		if existing != nil && existing.ID != id {
			return Permission{}, fmt.Errorf("%w: permission code %q", shared.ErrConflict, code)
		}
		perm.Code = code
	}
	if update.Name != nil {
		perm.Name = strings.TrimSpace(*update.Name)
	}
	if update.Description != nil {
		perm.Description = strings.TrimSpace(*update.Description)
	}
	if update.Level != nil {
		perm.Level = *update.Level
	}
	if update.Status != nil {
		if !update.Status.Valid() {
			return Permission{}, fmt.Errorf("%w: invalid permission status %q", shared.ErrValidation, *update.Status)
		}
		perm.Status = *update.Status
	}
	if err := m.store.UpdatePermission(ctx, perm); err != nil {
		return Permission{}, err
	}
	m.recordChange(ctx, "permission.update", "permission", perm.Code, map[string]string{"id": strconv.FormatInt(id, 10)})
	return perm, nil
}

// DeletePermissions removes permissions and their association rows
// atomically. Ids that match nothing are ignored; the operation is
// idempotent.
func (m *Manager) DeletePermissions(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := m.store.DeletePermissionsCascade(ctx, ids); err != nil {
		return err
	}
	m.recordChange(ctx, "permission.delete", "permission", joinInt64(ids), nil)
	return nil
}

// GetPermission fetches a permission by id.
func (m *Manager) GetPermission(ctx context.Context, id int64) (Permission, error) {
	return m.store.GetPermission(ctx, id)
}

// ListPermissions returns permissions matching the filter.
func (m *Manager) ListPermissions(ctx context.Context, filter PermissionFilter) ([]Permission, shared.Pagination, error) {
	perms, total, err := m.store.ListPermissions(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return perms, shared.NewPagination(filter.Page, filter.Size, total), nil
}

// --- permission groups ---

// GroupInput carries fields for group creation.
type GroupInput struct {
	Name        string
	Description string
	Status      PermissionStatus
}

// GroupUpdate carries partial fields for group updates; nil means unchanged.
type GroupUpdate struct {
	Name        *string
	Description *string
	Status      *PermissionStatus
}

// CreateGroup inserts a new permission group with a generated code.
func (m *Manager) CreateGroup(ctx context.Context, input GroupInput) (PermissionGroup, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return PermissionGroup{}, fmt.Errorf("%w: group name required", shared.ErrValidation)
	}
	status := input.Status
	if status == "" {
		status = PermissionStatusActive
	}
	if !status.Valid() {
		return PermissionGroup{}, fmt.Errorf("%w: invalid group status %q", shared.ErrValidation, status)
	}

	existing, err := m.store.FindGroupByName(ctx, name)
	if err != nil {
		return PermissionGroup{}, err
	}
	if existing != nil {
		return PermissionGroup{}, fmt.Errorf("%w: permission group %q", shared.ErrConflict, name)
	}

	group, err := m.store.CreateGroup(ctx, PermissionGroup{
		Code:        uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Status:      status,
	})
	if err != nil {
		return PermissionGroup{}, err
	}
	m.recordChange(ctx, "group.create", "permission_group", group.Code, map[string]string{"name": group.Name})
	return group, nil
}

// UpdateGroup applies a partial update to the group identified by code.
func (m *Manager) UpdateGroup(ctx context.Context, code string, update GroupUpdate) (PermissionGroup, error) {
	group, err := m.store.GetGroupByCode(ctx, code)
	if err != nil {
		return PermissionGroup{}, err
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return PermissionGroup{}, fmt.Errorf("%w: group name required", shared.ErrValidation)
		}
		if name != group.Name {
			existing, err := m.store.FindGroupByName(ctx, name)
			if err != nil {
				return PermissionGroup{}, err
			}
			if existing != nil && existing.Code != code {
				return PermissionGroup{}, fmt.Errorf("%w: permission group %q", shared.ErrConflict, name)
			}
		}
		group.Name = name
	}
	if update.Description != nil {
		group.Description = strings.TrimSpace(*update.Description)
	}
	if update.Status != nil {
		if !update.Status.Valid() {
			return PermissionGroup{}, fmt.Errorf("%w: invalid group status %q", shared.ErrValidation, *update.Status)
		}
		group.Status = *update.Status
	}
	if err := m.store.UpdateGroup(ctx, group); err != nil {
		return PermissionGroup{}, err
	}
	m.recordChange(ctx, "group.update", "permission_group", code, map[string]string{"name": group.Name})
	return group, nil
}

// DeleteGroup removes a group and its membership and role-attachment rows
// atomically.
func (m *Manager) DeleteGroup(ctx context.Context, code string) error {
	if err := m.store.DeleteGroupCascade(ctx, code); err != nil {
		return err
	}
	m.recordChange(ctx, "group.delete", "permission_group", code, nil)
	return nil
}

// ListGroups returns permission groups matching the filter.
func (m *Manager) ListGroups(ctx context.Context, filter GroupFilter) ([]PermissionGroup, shared.Pagination, error) {
	groups, total, err := m.store.ListGroups(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return groups, shared.NewPagination(filter.Page, filter.Size, total), nil
}

// --- replace-all assignment ---

// AssignUserRoles replaces the user's global role set. The prior rows are
// deleted and the new rows inserted as one atomic unit.
func (m *Manager) AssignUserRoles(ctx context.Context, userGUID string, roleIDs []int64) error {
	if userGUID == "" {
		return fmt.Errorf("%w: user guid required", shared.ErrValidation)
	}
	ok, err := m.store.RolesExist(ctx, roleIDs)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: one or more roles do not exist", shared.ErrNotFound)
	}
	if err := m.store.ReplaceUserRoles(ctx, userGUID, roleIDs); err != nil {
		return err
	}
	m.recordChange(ctx, "user.assign_roles", "user", userGUID, map[string]string{"role_ids": joinInt64(roleIDs)})
	return nil
}

// AssignRolePermissions replaces the role's direct permission set atomically.
func (m *Manager) AssignRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if _, err := m.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	ok, err := m.store.PermissionsExist(ctx, permissionIDs)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: one or more permissions do not exist", shared.ErrNotFound)
	}
	if err := m.store.ReplaceRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	m.recordChange(ctx, "role.assign_permissions", "role", strconv.FormatInt(roleID, 10),
		map[string]string{"permission_ids": joinInt64(permissionIDs)})
	return nil
}

// AssignRolePermissionGroups replaces the role's attached group set
// atomically.
func (m *Manager) AssignRolePermissionGroups(ctx context.Context, roleID int64, groupCodes []string) error {
	if _, err := m.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	ok, err := m.store.GroupsExist(ctx, groupCodes)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: one or more permission groups do not exist", shared.ErrNotFound)
	}
	if err := m.store.ReplaceRolePermissionGroups(ctx, roleID, groupCodes); err != nil {
		return err
	}
	m.recordChange(ctx, "role.assign_groups", "role", strconv.FormatInt(roleID, 10),
		map[string]string{"group_codes": strings.Join(groupCodes, ",")})
	return nil
}

// AssignGroupPermissions replaces the group's membership set atomically.
func (m *Manager) AssignGroupPermissions(ctx context.Context, groupCode string, permissionIDs []int64) error {
	if _, err := m.store.GetGroupByCode(ctx, groupCode); err != nil {
		return err
	}
	ok, err := m.store.PermissionsExist(ctx, permissionIDs)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: one or more permissions do not exist", shared.ErrNotFound)
	}
	if err := m.store.ReplaceGroupPermissions(ctx, groupCode, permissionIDs); err != nil {
		return err
	}
	m.recordChange(ctx, "group.assign_permissions", "permission_group", groupCode,
		map[string]string{"permission_ids": joinInt64(permissionIDs)})
	return nil
}

// AssignWorkspaceRole grants the user a role within a workspace, replacing
// any existing grant for that (user, workspace) pair. The grant can be
// deactivated without deletion via active=false.
func (m *Manager) AssignWorkspaceRole(ctx context.Context, grant WorkspaceGrant) error {
	if grant.UserGUID == "" || grant.WorkspaceID == "" {
		return fmt.Errorf("%w: user guid and workspace id required", shared.ErrValidation)
	}
	if _, err := m.store.GetRole(ctx, grant.RoleID); err != nil {
		return err
	}
	if err := m.store.UpsertWorkspaceGrant(ctx, grant); err != nil {
		return err
	}
	m.recordChange(ctx, "user.assign_workspace_role", "user", grant.UserGUID, map[string]string{
		"workspace_id": grant.WorkspaceID,
		"role_id":      strconv.FormatInt(grant.RoleID, 10),
		"active":       strconv.FormatBool(grant.Active),
	})
	return nil
}

// GrantRoleToUser adds a single global role grant without touching the rest
// of the user's role set. Used for default enrollment on account creation.
func (m *Manager) GrantRoleToUser(ctx context.Context, userGUID string, roleID int64) error {
	if _, err := m.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	return m.store.GrantRoleToUser(ctx, userGUID, roleID)
}

// --- audit ---

func (m *Manager) recordChange(ctx context.Context, action, entity, entityKey string, detail map[string]string) {
	if m.audit == nil {
		return
	}
	actor := ""
	if p := shared.PrincipalFromContext(ctx); p != nil {
		actor = p.GUID
	}
	if err := m.audit.RecordGrantChange(ctx, actor, action, entity, entityKey, detail); err != nil {
		m.logger.Warn("record grant change",
			slog.String("action", action),
			slog.String("entity", entity),
			slog.Any("error", err))
	}
}

func joinInt64(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
