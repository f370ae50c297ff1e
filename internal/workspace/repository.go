package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardenhq/warden/internal/shared"
)

// Store is the persistence surface the workspace service needs.
type Store interface {
	Get(ctx context.Context, id string) (Workspace, error)
	FindByName(ctx context.Context, name string) (*Workspace, error)
	Create(ctx context.Context, ws Workspace) error
	Update(ctx context.Context, ws Workspace) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter Filter) ([]Workspace, int, error)
	CountMembers(ctx context.Context, id string) (int, error)
	ListMembers(ctx context.Context, id string) ([]Member, error)
}

// Repository is the Postgres-backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const workspaceColumns = `id, name, code, description, status, owner_guid, created_at, updated_at`

func scanWorkspace(row pgx.Row) (Workspace, error) {
	var ws Workspace
	err := row.Scan(&ws.ID, &ws.Name, &ws.Code, &ws.Description, &ws.Status, &ws.OwnerGUID, &ws.CreatedAt, &ws.UpdatedAt)
	return ws, err
}

// Get fetches a workspace by id.
func (r *Repository) Get(ctx context.Context, id string) (Workspace, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = $1`, id)
	ws, err := scanWorkspace(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Workspace{}, fmt.Errorf("%w: workspace %s", shared.ErrNotFound, id)
	}
	return ws, err
}

// FindByName fetches a workspace by name, nil when absent.
func (r *Repository) FindByName(ctx context.Context, name string) (*Workspace, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE name = $1`, name)
	ws, err := scanWorkspace(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// Create inserts a workspace. Name or code collisions surface as conflicts.
func (r *Repository) Create(ctx context.Context, ws Workspace) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO workspaces (id, name, code, description, status, owner_guid)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ws.ID, ws.Name, ws.Code, ws.Description, ws.Status, ws.OwnerGUID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: workspace %q", shared.ErrConflict, ws.Name)
	}
	return err
}

// Update rewrites the mutable workspace fields.
func (r *Repository) Update(ctx context.Context, ws Workspace) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE workspaces
		SET name = $2, description = $3, status = $4, updated_at = now()
		WHERE id = $1`,
		ws.ID, ws.Name, ws.Description, ws.Status)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: workspace %q", shared.ErrConflict, ws.Name)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: workspace %s", shared.ErrNotFound, ws.ID)
	}
	return nil
}

// Delete removes the workspace row. The service guarantees no members remain.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: workspace %s", shared.ErrNotFound, id)
	}
	return nil
}

// List returns workspaces matching the filter with a total count.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Workspace, int, error) {
	where := ``
	args := []any{}
	if filter.Status != "" {
		where = ` WHERE status = $1`
		args = append(args, filter.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM workspaces`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.Size, total)
	query := `SELECT ` + workspaceColumns + ` FROM workspaces` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, page.PerPage, page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ws)
	}
	return out, total, rows.Err()
}

// CountMembers counts grant rows referencing the workspace, active or not.
func (r *Repository) CountMembers(ctx context.Context, id string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM user_workspaces WHERE workspace_id = $1`, id).Scan(&count)
	return count, err
}

// ListMembers returns the workspace's grants joined with account and role
// names.
func (r *Repository) ListMembers(ctx context.Context, id string) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT uw.user_guid, p.username, uw.role_id, ro.name, uw.is_active
		FROM user_workspaces uw
		JOIN principals p ON p.guid = uw.user_guid
		JOIN roles ro ON ro.id = uw.role_id
		WHERE uw.workspace_id = $1
		ORDER BY p.username`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserGUID, &m.Username, &m.RoleID, &m.RoleName, &m.Active); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
