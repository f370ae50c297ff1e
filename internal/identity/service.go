package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wardenhq/warden/internal/shared"
)

// RoleGranter enrolls a new account into its default role.
type RoleGranter interface {
	GrantRoleToUser(ctx context.Context, userGUID string, roleID int64) error
}

// Service wraps account business rules.
type Service struct {
	repo          AccountStore
	sessions      *SessionStore
	roles         RoleGranter
	logger        *slog.Logger
	defaultRoleID int64
}

// NewService constructs a Service. roles may be nil; defaultRoleID zero
// disables default enrollment.
func NewService(repo AccountStore, sessions *SessionStore, roles RoleGranter, logger *slog.Logger, defaultRoleID int64) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, sessions: sessions, roles: roles, logger: logger, defaultRoleID: defaultRoleID}
}

// CreateUserInput carries fields for account creation.
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	Superuser bool
}

// CreateUser registers a new account and enrolls it into the default role.
// Enrollment is best-effort: a grant failure leaves a usable account that an
// administrator can fix up.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (Account, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return Account{}, fmt.Errorf("%w: username required", shared.ErrValidation)
	}
	if len(input.Password) < 8 {
		return Account{}, fmt.Errorf("%w: password must be at least 8 characters", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}

	account := Account{
		GUID:         uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: string(hash),
		Status:       shared.StatusActive,
		Superuser:    input.Superuser,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return Account{}, err
	}

	if s.roles != nil && s.defaultRoleID != 0 {
		if err := s.roles.GrantRoleToUser(ctx, account.GUID, s.defaultRoleID); err != nil {
			s.logger.Error("grant default role",
				slog.String("guid", account.GUID),
				slog.Int64("role_id", s.defaultRoleID),
				slog.Any("error", err))
		}
	}
	return account, nil
}

// Login validates credentials and issues a session token. Every failure mode
// collapses into invalid credentials so callers cannot probe for usernames.
func (s *Service) Login(ctx context.Context, username, password, ip string) (string, Account, error) {
	account, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", Account{}, shared.ErrInvalidCredentials
	}
	if !account.Superuser && account.Status != shared.StatusActive {
		return "", Account{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", Account{}, shared.ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(ctx, account.GUID)
	if err != nil {
		return "", Account{}, err
	}
	if err := s.repo.UpdateLastLogin(ctx, account.GUID, ip, time.Now().UTC()); err != nil {
		s.logger.Warn("record last login", slog.String("guid", account.GUID), slog.Any("error", err))
	}
	return token, account, nil
}

// Logout revokes the session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// GetUser fetches an account by guid.
func (s *Service) GetUser(ctx context.Context, guid string) (Account, error) {
	return s.repo.GetByGUID(ctx, guid)
}

// ChangeStatus moves an account to a new lifecycle state. Superuser accounts
// are immune: they cannot be deactivated through the API.
func (s *Service) ChangeStatus(ctx context.Context, guid string, status shared.PrincipalStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: invalid status %q", shared.ErrValidation, status)
	}
	account, err := s.repo.GetByGUID(ctx, guid)
	if err != nil {
		return err
	}
	if account.Superuser {
		return fmt.Errorf("%w: superuser status is immutable", shared.ErrForbidden)
	}
	return s.repo.UpdateStatus(ctx, guid, status)
}

// ChangePassword replaces the account password after verifying the current
// one.
func (s *Service) ChangePassword(ctx context.Context, guid, current, next string) error {
	if len(next) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", shared.ErrValidation)
	}
	account, err := s.repo.GetByGUID(ctx, guid)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(current)); err != nil {
		return shared.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, guid, string(hash))
}

// DeleteUsers removes accounts together with their grants. Superuser accounts
// are refused.
func (s *Service) DeleteUsers(ctx context.Context, guids []string) error {
	if len(guids) == 0 {
		return nil
	}
	for _, guid := range guids {
		account, err := s.repo.GetByGUID(ctx, guid)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if account.Superuser {
			return fmt.Errorf("%w: cannot delete superuser %s", shared.ErrForbidden, guid)
		}
	}
	return s.repo.DeleteCascade(ctx, guids)
}

// ListUsers returns accounts matching the filter.
func (s *Service) ListUsers(ctx context.Context, filter AccountFilter) ([]Account, shared.Pagination, error) {
	accounts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return accounts, shared.NewPagination(filter.Page, filter.Size, total), nil
}
