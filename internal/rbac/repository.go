package rbac

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardenhq/warden/internal/platform/db"
	"github.com/wardenhq/warden/internal/shared"
)

// Repository implements Store against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- resolution reads ---

// GlobalRoleIDs returns role ids granted to the user outside any workspace.
func (r *Repository) GlobalRoleIDs(ctx context.Context, userGUID string) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT role_id FROM user_roles WHERE user_guid = $1`, userGUID)
	if err != nil {
		return nil, err
	}
	return scanInt64s(rows)
}

// WorkspaceRoleIDs returns active workspace-scoped role ids for the user.
func (r *Repository) WorkspaceRoleIDs(ctx context.Context, userGUID, workspaceID string) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role_id FROM user_workspaces WHERE user_guid = $1 AND workspace_id = $2 AND is_active`,
		userGUID, workspaceID)
	if err != nil {
		return nil, err
	}
	return scanInt64s(rows)
}

// WorkspaceRoleNames returns names of active workspace grants whose role kind
// is workspace.
func (r *Repository) WorkspaceRoleNames(ctx context.Context, userGUID, workspaceID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.name
		FROM user_workspaces uw
		JOIN roles r ON r.id = uw.role_id
		WHERE uw.user_guid = $1 AND uw.workspace_id = $2 AND uw.is_active AND r.kind = $3`,
		userGUID, workspaceID, string(RoleKindWorkspace))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// PermissionIDsForRoles unions direct and group-indirect permission ids for
// the role set in a single query.
func (r *Repository) PermissionIDsForRoles(ctx context.Context, roleIDs []int64) ([]int64, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT permission_id FROM role_permissions WHERE role_id = ANY($1)
		UNION
		SELECT gp.permission_id
		FROM role_permission_groups rpg
		JOIN group_permissions gp ON gp.group_code = rpg.group_code
		WHERE rpg.role_id = ANY($1)`,
		roleIDs)
	if err != nil {
		return nil, err
	}
	return scanInt64s(rows)
}

// ActivePermissionMatch reports whether the id set contains an active
// permission with the given code.
func (r *Repository) ActivePermissionMatch(ctx context.Context, permissionIDs []int64, code string) (bool, error) {
	if len(permissionIDs) == 0 {
		return false, nil
	}
	var found bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM permissions WHERE id = ANY($1) AND code = $2 AND status = $3)`,
		permissionIDs, code, string(PermissionStatusActive)).Scan(&found)
	return found, err
}

// --- roles ---

const roleColumns = `id, name, description, status, kind, created_at, updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.Status, &role.Kind, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

// GetRole fetches a role by id.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, fmt.Errorf("%w: role %d", shared.ErrNotFound, id)
	}
	return role, err
}

// FindRoleByName fetches a role by name, returning nil when absent.
func (r *Repository) FindRoleByName(ctx context.Context, name string) (*Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// CreateRole inserts a role.
func (r *Repository) CreateRole(ctx context.Context, role Role) (Role, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description, status, kind)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		role.Name, role.Description, string(role.Status), string(role.Kind)).
		Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	if isUniqueViolation(err) {
		return Role{}, fmt.Errorf("%w: role name %q", shared.ErrConflict, role.Name)
	}
	return role, err
}

// UpdateRole persists mutable role fields.
func (r *Repository) UpdateRole(ctx context.Context, role Role) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE roles SET name = $2, description = $3, status = $4, kind = $5, updated_at = now()
		WHERE id = $1`,
		role.ID, role.Name, role.Description, string(role.Status), string(role.Kind))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: role name %q", shared.ErrConflict, role.Name)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: role %d", shared.ErrNotFound, role.ID)
	}
	return nil
}

// DeleteRoleCascade removes every association row referencing the role, then
// the role row, atomically.
func (r *Repository) DeleteRoleCascade(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE role_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permission_groups WHERE role_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_workspaces WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: role %d", shared.ErrNotFound, id)
		}
		return nil
	})
}

// ListRoles returns roles matching the filter plus the unfiltered-page total.
func (r *Repository) ListRoles(ctx context.Context, filter RoleFilter) ([]Role, int, error) {
	where, args := buildWhere(map[string]any{
		"status": emptyToNil(string(filter.Status)),
		"kind":   emptyToNil(string(filter.Kind)),
	})

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM roles`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.Size, total)
	query := `SELECT ` + roleColumns + ` FROM roles` + where +
		` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(page.PerPage) +
		` OFFSET ` + strconv.Itoa(page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, 0, err
		}
		roles = append(roles, role)
	}
	return roles, total, rows.Err()
}

// RolesExist reports whether every id references an existing role.
func (r *Repository) RolesExist(ctx context.Context, ids []int64) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(DISTINCT id) FROM roles WHERE id = ANY($1)`, ids).Scan(&count)
	return count == len(dedupeInt64(ids)), err
}

// --- permissions ---

const permissionColumns = `id, code, name, description, resource, action, level, status, created_at, updated_at`

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Resource, &p.Action, &p.Level, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetPermission fetches a permission by id.
func (r *Repository) GetPermission(ctx context.Context, id int64) (Permission, error) {
	perm, err := scanPermission(r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Permission{}, fmt.Errorf("%w: permission %d", shared.ErrNotFound, id)
	}
	return perm, err
}

// FindPermissionByCode fetches a permission by code, returning nil when absent.
func (r *Repository) FindPermissionByCode(ctx context.Context, code string) (*Permission, error) {
	perm, err := scanPermission(r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

// CreatePermission inserts a permission.
func (r *Repository) CreatePermission(ctx context.Context, perm Permission) (Permission, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (code, name, description, resource, action, level, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		perm.Code, perm.Name, perm.Description, string(perm.Resource), string(perm.Action), perm.Level, string(perm.Status)).
		Scan(&perm.ID, &perm.CreatedAt, &perm.UpdatedAt)
	if isUniqueViolation(err) {
		return Permission{}, fmt.Errorf("%w: permission code %q", shared.ErrConflict, perm.Code)
	}
	return perm, err
}

// UpdatePermission persists mutable permission fields.
func (r *Repository) UpdatePermission(ctx context.Context, perm Permission) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE permissions SET code = $2, name = $3, description = $4, resource = $5,
			action = $6, level = $7, status = $8, updated_at = now()
		WHERE id = $1`,
		perm.ID, perm.Code, perm.Name, perm.Description, string(perm.Resource), string(perm.Action), perm.Level, string(perm.Status))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: permission code %q", shared.ErrConflict, perm.Code)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: permission %d", shared.ErrNotFound, perm.ID)
	}
	return nil
}

// DeletePermissionsCascade removes association rows referencing the
// permissions, then the permission rows, atomically. Unknown ids are ignored.
func (r *Repository) DeletePermissionsCascade(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE permission_id = ANY($1)`, ids); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM group_permissions WHERE permission_id = ANY($1)`, ids); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM permissions WHERE id = ANY($1)`, ids)
		return err
	})
}

// ListPermissions returns permissions matching the filter.
func (r *Repository) ListPermissions(ctx context.Context, filter PermissionFilter) ([]Permission, int, error) {
	criteria := map[string]any{
		"status": emptyToNil(string(filter.Status)),
		"action": emptyToNil(string(filter.Action)),
	}
	if filter.Level > 0 {
		criteria["level"] = filter.Level
	}
	where, args := buildWhere(criteria)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM permissions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.Size, total)
	query := `SELECT ` + permissionColumns + ` FROM permissions` + where +
		` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(page.PerPage) +
		` OFFSET ` + strconv.Itoa(page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		perm, err := scanPermission(rows)
		if err != nil {
			return nil, 0, err
		}
		perms = append(perms, perm)
	}
	return perms, total, rows.Err()
}

// PermissionsExist reports whether every id references an existing permission.
func (r *Repository) PermissionsExist(ctx context.Context, ids []int64) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(DISTINCT id) FROM permissions WHERE id = ANY($1)`, ids).Scan(&count)
	return count == len(dedupeInt64(ids)), err
}

// --- permission groups ---

const groupColumns = `id, code, name, description, status, created_at, updated_at`

func scanGroup(row pgx.Row) (PermissionGroup, error) {
	var g PermissionGroup
	err := row.Scan(&g.ID, &g.Code, &g.Name, &g.Description, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// GetGroupByCode fetches a permission group by code.
func (r *Repository) GetGroupByCode(ctx context.Context, code string) (PermissionGroup, error) {
	group, err := scanGroup(r.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM permission_groups WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return PermissionGroup{}, fmt.Errorf("%w: permission group %q", shared.ErrNotFound, code)
	}
	return group, err
}

// FindGroupByName fetches a permission group by name, returning nil when absent.
func (r *Repository) FindGroupByName(ctx context.Context, name string) (*PermissionGroup, error) {
	group, err := scanGroup(r.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM permission_groups WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// CreateGroup inserts a permission group.
func (r *Repository) CreateGroup(ctx context.Context, group PermissionGroup) (PermissionGroup, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permission_groups (code, name, description, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		group.Code, group.Name, group.Description, string(group.Status)).
		Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)
	if isUniqueViolation(err) {
		return PermissionGroup{}, fmt.Errorf("%w: permission group %q", shared.ErrConflict, group.Name)
	}
	return group, err
}

// UpdateGroup persists mutable group fields, keyed by code.
func (r *Repository) UpdateGroup(ctx context.Context, group PermissionGroup) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE permission_groups SET name = $2, description = $3, status = $4, updated_at = now()
		WHERE code = $1`,
		group.Code, group.Name, group.Description, string(group.Status))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: permission group name %q", shared.ErrConflict, group.Name)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: permission group %q", shared.ErrNotFound, group.Code)
	}
	return nil
}

// DeleteGroupCascade removes membership rows and role attachments referencing
// the group, then the group row, atomically.
func (r *Repository) DeleteGroupCascade(ctx context.Context, code string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM group_permissions WHERE group_code = $1`, code); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permission_groups WHERE group_code = $1`, code); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM permission_groups WHERE code = $1`, code)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: permission group %q", shared.ErrNotFound, code)
		}
		return nil
	})
}

// ListGroups returns permission groups matching the filter.
func (r *Repository) ListGroups(ctx context.Context, filter GroupFilter) ([]PermissionGroup, int, error) {
	where, args := buildWhere(map[string]any{
		"status": emptyToNil(string(filter.Status)),
	})

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM permission_groups`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.Size, total)
	query := `SELECT ` + groupColumns + ` FROM permission_groups` + where +
		` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(page.PerPage) +
		` OFFSET ` + strconv.Itoa(page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var groups []PermissionGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, 0, err
		}
		groups = append(groups, group)
	}
	return groups, total, rows.Err()
}

// GroupsExist reports whether every code references an existing group.
func (r *Repository) GroupsExist(ctx context.Context, codes []string) (bool, error) {
	if len(codes) == 0 {
		return true, nil
	}
	unique := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		unique[c] = struct{}{}
	}
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(DISTINCT code) FROM permission_groups WHERE code = ANY($1)`, codes).Scan(&count)
	return count == len(unique), err
}

// --- replace-all assignment ---

// ReplaceUserRoles swaps the user's global role set in one transaction.
func (r *Repository) ReplaceUserRoles(ctx context.Context, userGUID string, roleIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_guid = $1`, userGUID); err != nil {
			return err
		}
		for _, roleID := range dedupeInt64(roleIDs) {
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_roles (user_guid, role_id) VALUES ($1, $2)`, userGUID, roleID); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceRolePermissions swaps the role's direct permission set in one
// transaction.
func (r *Repository) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		for _, permID := range dedupeInt64(permissionIDs) {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`, roleID, permID); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceRolePermissionGroups swaps the role's attached groups in one
// transaction.
func (r *Repository) ReplaceRolePermissionGroups(ctx context.Context, roleID int64, groupCodes []string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permission_groups WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(groupCodes))
		for _, code := range groupCodes {
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permission_groups (role_id, group_code) VALUES ($1, $2)`, roleID, code); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceGroupPermissions swaps the group's membership set in one transaction.
func (r *Repository) ReplaceGroupPermissions(ctx context.Context, groupCode string, permissionIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM group_permissions WHERE group_code = $1`, groupCode); err != nil {
			return err
		}
		for _, permID := range dedupeInt64(permissionIDs) {
			if _, err := tx.Exec(ctx,
				`INSERT INTO group_permissions (group_code, permission_id) VALUES ($1, $2)`, groupCode, permID); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertWorkspaceGrant creates or updates the user's role grant within a
// workspace.
func (r *Repository) UpsertWorkspaceGrant(ctx context.Context, grant WorkspaceGrant) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_workspaces (user_guid, workspace_id, role_id, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_guid, workspace_id)
		DO UPDATE SET role_id = EXCLUDED.role_id, is_active = EXCLUDED.is_active`,
		grant.UserGUID, grant.WorkspaceID, grant.RoleID, grant.Active)
	return err
}

// GrantRoleToUser adds one user_roles row; duplicates are ignored.
func (r *Repository) GrantRoleToUser(ctx context.Context, userGUID string, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_guid, role_id) VALUES ($1, $2)
		ON CONFLICT (user_guid, role_id) DO NOTHING`,
		userGUID, roleID)
	return err
}

// GrantPermissionToRole adds one role_permissions row; duplicates are ignored.
func (r *Repository) GrantPermissionToRole(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
		ON CONFLICT (role_id, permission_id) DO NOTHING`,
		roleID, permissionID)
	return err
}

// --- helpers ---

func scanInt64s(rows pgx.Rows) ([]int64, error) {
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func dedupeInt64(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// buildWhere assembles a WHERE clause from non-nil equality criteria in a
// deterministic order.
func buildWhere(criteria map[string]any) (string, []any) {
	columns := make([]string, 0, len(criteria))
	for column, value := range criteria {
		if value == nil {
			continue
		}
		columns = append(columns, column)
	}
	if len(columns) == 0 {
		return "", nil
	}
	sort.Strings(columns)
	clauses := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for i, column := range columns {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, i+1))
		args = append(args, criteria[column])
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
