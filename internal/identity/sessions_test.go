package identity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/shared"
)

func TestSessionIssueResolveRevoke(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	token, err := sessions.Issue(ctx, "guid-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	guid, err := sessions.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "guid-1", guid)

	require.NoError(t, sessions.Revoke(ctx, token))
	_, err = sessions.Resolve(ctx, token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	// Revoking again is a no-op.
	require.NoError(t, sessions.Revoke(ctx, token))
}

func TestSessionExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := NewSessionStore(client, time.Minute)
	ctx := context.Background()

	token, err := sessions.Issue(ctx, "guid-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = sessions.Resolve(ctx, token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestSessionResolveEmptyToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := NewSessionStore(client, time.Minute)

	_, err := sessions.Resolve(context.Background(), "")
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}
