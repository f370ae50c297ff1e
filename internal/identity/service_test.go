package identity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wardenhq/warden/internal/shared"
)

type memoryAccountStore struct {
	accounts map[string]Account
}

func newMemoryAccountStore() *memoryAccountStore {
	return &memoryAccountStore{accounts: make(map[string]Account)}
}

func (s *memoryAccountStore) GetByGUID(ctx context.Context, guid string) (Account, error) {
	account, ok := s.accounts[guid]
	if !ok {
		return Account{}, fmt.Errorf("%w: account %s", shared.ErrNotFound, guid)
	}
	return account, nil
}

func (s *memoryAccountStore) GetByUsername(ctx context.Context, username string) (Account, error) {
	for _, account := range s.accounts {
		if account.Username == username {
			return account, nil
		}
	}
	return Account{}, fmt.Errorf("%w: account %s", shared.ErrNotFound, username)
}

func (s *memoryAccountStore) Create(ctx context.Context, account Account) error {
	for _, existing := range s.accounts {
		if existing.Username == account.Username {
			return fmt.Errorf("%w: username %q", shared.ErrConflict, account.Username)
		}
	}
	s.accounts[account.GUID] = account
	return nil
}

func (s *memoryAccountStore) UpdateStatus(ctx context.Context, guid string, status shared.PrincipalStatus) error {
	account, ok := s.accounts[guid]
	if !ok {
		return fmt.Errorf("%w: account %s", shared.ErrNotFound, guid)
	}
	account.Status = status
	s.accounts[guid] = account
	return nil
}

func (s *memoryAccountStore) UpdatePassword(ctx context.Context, guid, passwordHash string) error {
	account, ok := s.accounts[guid]
	if !ok {
		return fmt.Errorf("%w: account %s", shared.ErrNotFound, guid)
	}
	account.PasswordHash = passwordHash
	s.accounts[guid] = account
	return nil
}

func (s *memoryAccountStore) UpdateLastLogin(ctx context.Context, guid, ip string, at time.Time) error {
	account, ok := s.accounts[guid]
	if !ok {
		return fmt.Errorf("%w: account %s", shared.ErrNotFound, guid)
	}
	account.LastLoginAt = &at
	account.LastLoginIP = ip
	s.accounts[guid] = account
	return nil
}

func (s *memoryAccountStore) DeleteCascade(ctx context.Context, guids []string) error {
	for _, guid := range guids {
		delete(s.accounts, guid)
	}
	return nil
}

func (s *memoryAccountStore) List(ctx context.Context, filter AccountFilter) ([]Account, int, error) {
	var out []Account
	for _, account := range s.accounts {
		if filter.Status != "" && account.Status != filter.Status {
			continue
		}
		out = append(out, account)
	}
	return out, len(out), nil
}

type memoryGranter struct {
	grants map[string][]int64
	err    error
}

func (g *memoryGranter) GrantRoleToUser(ctx context.Context, userGUID string, roleID int64) error {
	if g.err != nil {
		return g.err
	}
	if g.grants == nil {
		g.grants = make(map[string][]int64)
	}
	g.grants[userGUID] = append(g.grants[userGUID], roleID)
	return nil
}

func newTestSessions(t *testing.T) *SessionStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client, time.Hour)
}

func newTestService(t *testing.T, repo AccountStore, granter RoleGranter, defaultRoleID int64) *Service {
	t.Helper()
	return NewService(repo, newTestSessions(t), granter, nil, defaultRoleID)
}

func TestCreateUserEnrollsDefaultRole(t *testing.T) {
	repo := newMemoryAccountStore()
	granter := &memoryGranter{}
	svc := newTestService(t, repo, granter, 5)

	account, err := svc.CreateUser(context.Background(), CreateUserInput{Username: "alice", Password: "correcthorse"})
	require.NoError(t, err)
	require.NotEmpty(t, account.GUID)
	require.Equal(t, shared.StatusActive, account.Status)
	require.Equal(t, []int64{5}, granter.grants[account.GUID])

	// The stored hash is never the raw password.
	require.NotEqual(t, "correcthorse", repo.accounts[account.GUID].PasswordHash)
}

func TestCreateUserGrantFailureDoesNotFailCreation(t *testing.T) {
	repo := newMemoryAccountStore()
	granter := &memoryGranter{err: fmt.Errorf("role missing")}
	svc := newTestService(t, repo, granter, 5)

	account, err := svc.CreateUser(context.Background(), CreateUserInput{Username: "alice", Password: "correcthorse"})
	require.NoError(t, err)
	require.Contains(t, repo.accounts, account.GUID)
}

func TestCreateUserValidation(t *testing.T) {
	svc := newTestService(t, newMemoryAccountStore(), nil, 0)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{Username: " ", Password: "correcthorse"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateUser(ctx, CreateUserInput{Username: "alice", Password: "short"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestLoginIssuesResolvableToken(t *testing.T) {
	repo := newMemoryAccountStore()
	sessions := newTestSessions(t)
	svc := NewService(repo, sessions, nil, nil, 0)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserInput{Username: "alice", Password: "correcthorse"})
	require.NoError(t, err)

	token, account, err := svc.Login(ctx, "alice", "correcthorse", "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, created.GUID, account.GUID)

	guid, err := sessions.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, created.GUID, guid)

	stored := repo.accounts[created.GUID]
	require.NotNil(t, stored.LastLoginAt)
	require.Equal(t, "10.0.0.1", stored.LastLoginIP)
}

func TestLoginFailureModesCollapse(t *testing.T) {
	repo := newMemoryAccountStore()
	svc := newTestService(t, repo, nil, 0)
	ctx := context.Background()

	account, err := svc.CreateUser(ctx, CreateUserInput{Username: "alice", Password: "correcthorse"})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "nobody", "correcthorse", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "alice", "wrongpassword", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	require.NoError(t, svc.ChangeStatus(ctx, account.GUID, shared.StatusLocked))
	_, _, err = svc.Login(ctx, "alice", "correcthorse", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	repo := newMemoryAccountStore()
	sessions := newTestSessions(t)
	svc := NewService(repo, sessions, nil, nil, 0)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{Username: "alice", Password: "correcthorse"})
	require.NoError(t, err)
	token, _, err := svc.Login(ctx, "alice", "correcthorse", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = sessions.Resolve(ctx, token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestChangeStatusRefusedForSuperuser(t *testing.T) {
	repo := newMemoryAccountStore()
	svc := newTestService(t, repo, nil, 0)
	ctx := context.Background()

	account, err := svc.CreateUser(ctx, CreateUserInput{Username: "root", Password: "correcthorse", Superuser: true})
	require.NoError(t, err)

	err = svc.ChangeStatus(ctx, account.GUID, shared.StatusDisabled)
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.Equal(t, shared.StatusActive, repo.accounts[account.GUID].Status)
}

func TestChangePassword(t *testing.T) {
	repo := newMemoryAccountStore()
	svc := newTestService(t, repo, nil, 0)
	ctx := context.Background()

	account, err := svc.CreateUser(ctx, CreateUserInput{Username: "alice", Password: "correcthorse"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.ChangePassword(ctx, account.GUID, "wrongpassword", "batterystaple"),
		shared.ErrInvalidCredentials)
	require.NoError(t, svc.ChangePassword(ctx, account.GUID, "correcthorse", "batterystaple"))

	hash := repo.accounts[account.GUID].PasswordHash
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("batterystaple")))
}

func TestDeleteUsers(t *testing.T) {
	repo := newMemoryAccountStore()
	svc := newTestService(t, repo, nil, 0)
	ctx := context.Background()

	alice, err := svc.CreateUser(ctx, CreateUserInput{Username: "alice", Password: "correcthorse"})
	require.NoError(t, err)
	root, err := svc.CreateUser(ctx, CreateUserInput{Username: "root", Password: "correcthorse", Superuser: true})
	require.NoError(t, err)

	// Superusers cannot be deleted; nothing is removed.
	err = svc.DeleteUsers(ctx, []string{alice.GUID, root.GUID})
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.Contains(t, repo.accounts, alice.GUID)

	// Unknown guids are skipped.
	require.NoError(t, svc.DeleteUsers(ctx, []string{alice.GUID, "missing"}))
	require.NotContains(t, repo.accounts, alice.GUID)
	require.Contains(t, repo.accounts, root.GUID)
}
