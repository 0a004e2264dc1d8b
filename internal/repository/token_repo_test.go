package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestDenylist(t *testing.T) (*TokenDenylist, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewTokenDenylist(client), mr
}

func TestTokenDenylist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("revoked id is reported until it would have expired", func(t *testing.T) {
		denylist, mr := newTestDenylist(t)

		require.NoError(t, denylist.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))

		revoked, err := denylist.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		require.True(t, revoked)

		ttl := mr.TTL(revokedKeyPrefix + "jti-1")
		require.Greater(t, ttl, 59*time.Minute)

		mr.FastForward(time.Hour + time.Second)
		revoked, err = denylist.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		require.False(t, revoked)
	})

	t.Run("already expired token is not stored", func(t *testing.T) {
		denylist, mr := newTestDenylist(t)

		require.NoError(t, denylist.Revoke(ctx, "jti-2", time.Now().Add(-time.Minute)))
		require.False(t, mr.Exists(revokedKeyPrefix+"jti-2"))
	})

	t.Run("unknown id is not revoked", func(t *testing.T) {
		denylist, _ := newTestDenylist(t)

		revoked, err := denylist.IsRevoked(ctx, "nope")
		require.NoError(t, err)
		require.False(t, revoked)
	})

	t.Run("empty id is rejected", func(t *testing.T) {
		denylist, _ := newTestDenylist(t)
		require.Error(t, denylist.Revoke(ctx, "", time.Now().Add(time.Hour)))
	})

	t.Run("backend failure surfaces", func(t *testing.T) {
		denylist, mr := newTestDenylist(t)
		mr.Close()

		_, err := denylist.IsRevoked(ctx, "jti-3")
		require.Error(t, err)
	})
}
