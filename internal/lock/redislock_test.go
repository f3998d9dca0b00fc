package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/treeline-dev/backend-treeline/internal/lock"
)

func newLocker(t *testing.T) (lock.Locker, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}, srv
}

func TestWithLockRunsCallbackAndReleases(t *testing.T) {
	locker, srv := newLocker(t)

	ran := false
	err := locker.WithLock(context.Background(), "checkout:cart:a", time.Second, func(context.Context) error {
		ran = true
		require.True(t, srv.Exists("checkout:cart:a"))
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
	require.False(t, srv.Exists("checkout:cart:a"))
}

func TestWithLockBlocksConcurrentHolder(t *testing.T) {
	locker, _ := newLocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := locker.WithLock(context.Background(), "checkout:cart:b", time.Minute, func(inner context.Context) error {
		// Second acquisition of the same key must wait until ctx expires.
		return locker.WithLock(ctx, "checkout:cart:b", time.Minute, func(context.Context) error {
			t.Fatal("lock acquired twice")
			return nil
		})
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithLockRequiresCallback(t *testing.T) {
	locker, _ := newLocker(t)
	require.Error(t, locker.WithLock(context.Background(), "k", time.Second, nil))
}
