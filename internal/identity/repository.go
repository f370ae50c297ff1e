package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardenhq/warden/internal/platform/db"
	"github.com/wardenhq/warden/internal/shared"
)

// AccountStore is the persistence surface the identity service needs.
type AccountStore interface {
	GetByGUID(ctx context.Context, guid string) (Account, error)
	GetByUsername(ctx context.Context, username string) (Account, error)
	Create(ctx context.Context, account Account) error
	UpdateStatus(ctx context.Context, guid string, status shared.PrincipalStatus) error
	UpdatePassword(ctx context.Context, guid, passwordHash string) error
	UpdateLastLogin(ctx context.Context, guid, ip string, at time.Time) error
	// DeleteCascade removes the accounts together with their role grants and
	// workspace grants in one transaction. Unknown guids are ignored.
	DeleteCascade(ctx context.Context, guids []string) error
	List(ctx context.Context, filter AccountFilter) ([]Account, int, error)
}

// Repository is the Postgres-backed AccountStore.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `guid, username, email, password_hash, status, is_superuser, last_login_at, last_login_ip, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var account Account
	err := row.Scan(&account.GUID, &account.Username, &account.Email, &account.PasswordHash,
		&account.Status, &account.Superuser, &account.LastLoginAt, &account.LastLoginIP,
		&account.CreatedAt, &account.UpdatedAt)
	return account, err
}

// GetByGUID fetches an account by guid.
func (r *Repository) GetByGUID(ctx context.Context, guid string) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM principals WHERE guid = $1`, guid)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fmt.Errorf("%w: account %s", shared.ErrNotFound, guid)
	}
	return account, err
}

// GetByUsername fetches an account by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM principals WHERE username = $1`, username)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fmt.Errorf("%w: account %s", shared.ErrNotFound, username)
	}
	return account, err
}

// Create inserts a new account. A username or email collision surfaces as a
// conflict.
func (r *Repository) Create(ctx context.Context, account Account) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO principals (guid, username, email, password_hash, status, is_superuser)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		account.GUID, account.Username, account.Email, account.PasswordHash, account.Status, account.Superuser)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username %q", shared.ErrConflict, account.Username)
	}
	return err
}

// UpdateStatus changes the account lifecycle state.
func (r *Repository) UpdateStatus(ctx context.Context, guid string, status shared.PrincipalStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE principals SET status = $2, updated_at = now() WHERE guid = $1`, guid, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", shared.ErrNotFound, guid)
	}
	return nil
}

// UpdatePassword replaces the password hash.
func (r *Repository) UpdatePassword(ctx context.Context, guid, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE principals SET password_hash = $2, updated_at = now() WHERE guid = $1`, guid, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", shared.ErrNotFound, guid)
	}
	return nil
}

// UpdateLastLogin records a successful login.
func (r *Repository) UpdateLastLogin(ctx context.Context, guid, ip string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE principals SET last_login_at = $2, last_login_ip = $3 WHERE guid = $1`, guid, at, ip)
	return err
}

// DeleteCascade removes accounts with their grants.
func (r *Repository) DeleteCascade(ctx context.Context, guids []string) error {
	if len(guids) == 0 {
		return nil
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_guid = ANY($1)`, guids); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_workspaces WHERE user_guid = ANY($1)`, guids); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM principals WHERE guid = ANY($1)`, guids)
		return err
	})
}

// List returns accounts matching the filter with a total count.
func (r *Repository) List(ctx context.Context, filter AccountFilter) ([]Account, int, error) {
	where := ``
	args := []any{}
	if filter.Status != "" {
		where = ` WHERE status = $1`
		args = append(args, filter.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM principals`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.Size, total)
	query := `SELECT ` + accountColumns + ` FROM principals` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, page.PerPage, page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, account)
	}
	return accounts, total, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
