package rbac

import (
	"context"
	"fmt"

	"github.com/wardenhq/warden/internal/shared"
)

// memoryStore implements Store over maps for service tests.
type memoryStore struct {
	roles      map[int64]Role
	perms      map[int64]Permission
	groups     map[string]PermissionGroup
	userRoles  map[string][]int64
	wsGrants   map[string]map[string]WorkspaceGrant
	rolePerms  map[int64][]int64
	roleGroups map[int64][]string
	groupPerms map[string][]int64
	nextRoleID int64
	nextPermID int64
	nextGrpID  int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		roles:      make(map[int64]Role),
		perms:      make(map[int64]Permission),
		groups:     make(map[string]PermissionGroup),
		userRoles:  make(map[string][]int64),
		wsGrants:   make(map[string]map[string]WorkspaceGrant),
		rolePerms:  make(map[int64][]int64),
		roleGroups: make(map[int64][]string),
		groupPerms: make(map[string][]int64),
	}
}

// --- seeding helpers ---

func (s *memoryStore) seedRole(name string, kind RoleKind) Role {
	role, _ := s.CreateRole(context.Background(), Role{Name: name, Status: RoleStatusActive, Kind: kind})
	return role
}

func (s *memoryStore) seedPermission(resource Resource, action Action, status PermissionStatus) Permission {
	perm, _ := s.CreatePermission(context.Background(), Permission{
		Code:     PermissionCode(resource, action),
		Resource: resource,
		Action:   action,
		Status:   status,
	})
	return perm
}

func (s *memoryStore) seedGroup(code, name string) PermissionGroup {
	group, _ := s.CreateGroup(context.Background(), PermissionGroup{Code: code, Name: name, Status: PermissionStatusActive})
	return group
}

// --- ResolutionStore ---

func (s *memoryStore) GlobalRoleIDs(ctx context.Context, userGUID string) ([]int64, error) {
	return append([]int64(nil), s.userRoles[userGUID]...), nil
}

func (s *memoryStore) WorkspaceRoleIDs(ctx context.Context, userGUID, workspaceID string) ([]int64, error) {
	grant, ok := s.wsGrants[userGUID][workspaceID]
	if !ok || !grant.Active {
		return nil, nil
	}
	return []int64{grant.RoleID}, nil
}

func (s *memoryStore) WorkspaceRoleNames(ctx context.Context, userGUID, workspaceID string) ([]string, error) {
	grant, ok := s.wsGrants[userGUID][workspaceID]
	if !ok || !grant.Active {
		return nil, nil
	}
	role, ok := s.roles[grant.RoleID]
	if !ok || role.Kind != RoleKindWorkspace {
		return nil, nil
	}
	return []string{role.Name}, nil
}

func (s *memoryStore) PermissionIDsForRoles(ctx context.Context, roleIDs []int64) ([]int64, error) {
	seen := make(map[int64]struct{})
	var out []int64
	add := func(id int64) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, roleID := range roleIDs {
		for _, permID := range s.rolePerms[roleID] {
			add(permID)
		}
		for _, code := range s.roleGroups[roleID] {
			for _, permID := range s.groupPerms[code] {
				add(permID)
			}
		}
	}
	return out, nil
}

func (s *memoryStore) ActivePermissionMatch(ctx context.Context, permissionIDs []int64, code string) (bool, error) {
	for _, id := range permissionIDs {
		perm, ok := s.perms[id]
		if ok && perm.Code == code && perm.Status == PermissionStatusActive {
			return true, nil
		}
	}
	return false, nil
}

// --- AdminStore: roles ---

func (s *memoryStore) GetRole(ctx context.Context, id int64) (Role, error) {
	role, ok := s.roles[id]
	if !ok {
		return Role{}, fmt.Errorf("%w: role %d", shared.ErrNotFound, id)
	}
	return role, nil
}

func (s *memoryStore) FindRoleByName(ctx context.Context, name string) (*Role, error) {
	for _, role := range s.roles {
		if role.Name == name {
			r := role
			return &r, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) CreateRole(ctx context.Context, role Role) (Role, error) {
	s.nextRoleID++
	role.ID = s.nextRoleID
	s.roles[role.ID] = role
	return role, nil
}

func (s *memoryStore) UpdateRole(ctx context.Context, role Role) error {
	if _, ok := s.roles[role.ID]; !ok {
		return fmt.Errorf("%w: role %d", shared.ErrNotFound, role.ID)
	}
	s.roles[role.ID] = role
	return nil
}

func (s *memoryStore) DeleteRoleCascade(ctx context.Context, id int64) error {
	if _, ok := s.roles[id]; !ok {
		return fmt.Errorf("%w: role %d", shared.ErrNotFound, id)
	}
	for user, ids := range s.userRoles {
		s.userRoles[user] = removeInt64(ids, id)
	}
	for user, grants := range s.wsGrants {
		for ws, grant := range grants {
			if grant.RoleID == id {
				delete(s.wsGrants[user], ws)
			}
		}
	}
	delete(s.rolePerms, id)
	delete(s.roleGroups, id)
	delete(s.roles, id)
	return nil
}

func (s *memoryStore) ListRoles(ctx context.Context, filter RoleFilter) ([]Role, int, error) {
	var out []Role
	for _, role := range s.roles {
		if filter.Status != "" && role.Status != filter.Status {
			continue
		}
		if filter.Kind != "" && role.Kind != filter.Kind {
			continue
		}
		out = append(out, role)
	}
	return out, len(out), nil
}

func (s *memoryStore) RolesExist(ctx context.Context, ids []int64) (bool, error) {
	for _, id := range ids {
		if _, ok := s.roles[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// --- AdminStore: permissions ---

func (s *memoryStore) GetPermission(ctx context.Context, id int64) (Permission, error) {
	perm, ok := s.perms[id]
	if !ok {
		return Permission{}, fmt.Errorf("%w: permission %d", shared.ErrNotFound, id)
	}
	return perm, nil
}

func (s *memoryStore) FindPermissionByCode(ctx context.Context, code string) (*Permission, error) {
	for _, perm := range s.perms {
		if perm.Code == code {
			p := perm
			return &p, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) CreatePermission(ctx context.Context, perm Permission) (Permission, error) {
	s.nextPermID++
	perm.ID = s.nextPermID
	s.perms[perm.ID] = perm
	return perm, nil
}

func (s *memoryStore) UpdatePermission(ctx context.Context, perm Permission) error {
	if _, ok := s.perms[perm.ID]; !ok {
		return fmt.Errorf("%w: permission %d", shared.ErrNotFound, perm.ID)
	}
	s.perms[perm.ID] = perm
	return nil
}

func (s *memoryStore) DeletePermissionsCascade(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		for roleID, permIDs := range s.rolePerms {
			s.rolePerms[roleID] = removeInt64(permIDs, id)
		}
		for code, permIDs := range s.groupPerms {
			s.groupPerms[code] = removeInt64(permIDs, id)
		}
		delete(s.perms, id)
	}
	return nil
}

func (s *memoryStore) ListPermissions(ctx context.Context, filter PermissionFilter) ([]Permission, int, error) {
	var out []Permission
	for _, perm := range s.perms {
		if filter.Status != "" && perm.Status != filter.Status {
			continue
		}
		if filter.Action != "" && perm.Action != filter.Action {
			continue
		}
		out = append(out, perm)
	}
	return out, len(out), nil
}

func (s *memoryStore) PermissionsExist(ctx context.Context, ids []int64) (bool, error) {
	for _, id := range ids {
		if _, ok := s.perms[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// --- AdminStore: groups ---

func (s *memoryStore) GetGroupByCode(ctx context.Context, code string) (PermissionGroup, error) {
	group, ok := s.groups[code]
	if !ok {
		return PermissionGroup{}, fmt.Errorf("%w: group %s", shared.ErrNotFound, code)
	}
	return group, nil
}

func (s *memoryStore) FindGroupByName(ctx context.Context, name string) (*PermissionGroup, error) {
	for _, group := range s.groups {
		if group.Name == name {
			g := group
			return &g, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) CreateGroup(ctx context.Context, group PermissionGroup) (PermissionGroup, error) {
	s.nextGrpID++
	group.ID = s.nextGrpID
	s.groups[group.Code] = group
	return group, nil
}

func (s *memoryStore) UpdateGroup(ctx context.Context, group PermissionGroup) error {
	if _, ok := s.groups[group.Code]; !ok {
		return fmt.Errorf("%w: group %s", shared.ErrNotFound, group.Code)
	}
	s.groups[group.Code] = group
	return nil
}

func (s *memoryStore) DeleteGroupCascade(ctx context.Context, code string) error {
	if _, ok := s.groups[code]; !ok {
		return fmt.Errorf("%w: group %s", shared.ErrNotFound, code)
	}
	delete(s.groupPerms, code)
	for roleID, codes := range s.roleGroups {
		s.roleGroups[roleID] = removeString(codes, code)
	}
	delete(s.groups, code)
	return nil
}

func (s *memoryStore) ListGroups(ctx context.Context, filter GroupFilter) ([]PermissionGroup, int, error) {
	var out []PermissionGroup
	for _, group := range s.groups {
		if filter.Status != "" && group.Status != filter.Status {
			continue
		}
		out = append(out, group)
	}
	return out, len(out), nil
}

func (s *memoryStore) GroupsExist(ctx context.Context, codes []string) (bool, error) {
	for _, code := range codes {
		if _, ok := s.groups[code]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// --- AdminStore: assignment ---

func (s *memoryStore) ReplaceUserRoles(ctx context.Context, userGUID string, roleIDs []int64) error {
	s.userRoles[userGUID] = append([]int64(nil), roleIDs...)
	return nil
}

func (s *memoryStore) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	s.rolePerms[roleID] = append([]int64(nil), permissionIDs...)
	return nil
}

func (s *memoryStore) ReplaceRolePermissionGroups(ctx context.Context, roleID int64, groupCodes []string) error {
	s.roleGroups[roleID] = append([]string(nil), groupCodes...)
	return nil
}

func (s *memoryStore) ReplaceGroupPermissions(ctx context.Context, groupCode string, permissionIDs []int64) error {
	s.groupPerms[groupCode] = append([]int64(nil), permissionIDs...)
	return nil
}

func (s *memoryStore) UpsertWorkspaceGrant(ctx context.Context, grant WorkspaceGrant) error {
	if s.wsGrants[grant.UserGUID] == nil {
		s.wsGrants[grant.UserGUID] = make(map[string]WorkspaceGrant)
	}
	s.wsGrants[grant.UserGUID][grant.WorkspaceID] = grant
	return nil
}

func (s *memoryStore) GrantRoleToUser(ctx context.Context, userGUID string, roleID int64) error {
	for _, id := range s.userRoles[userGUID] {
		if id == roleID {
			return nil
		}
	}
	s.userRoles[userGUID] = append(s.userRoles[userGUID], roleID)
	return nil
}

func (s *memoryStore) GrantPermissionToRole(ctx context.Context, roleID, permissionID int64) error {
	for _, id := range s.rolePerms[roleID] {
		if id == permissionID {
			return nil
		}
	}
	s.rolePerms[roleID] = append(s.rolePerms[roleID], permissionID)
	return nil
}

func removeInt64(ids []int64, drop int64) []int64 {
	out := ids[:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

func removeString(values []string, drop string) []string {
	out := values[:0]
	for _, v := range values {
		if v != drop {
			out = append(out, v)
		}
	}
	return out
}
