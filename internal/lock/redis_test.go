package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocker(t *testing.T) (*CartLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCartLocker(client, 10*time.Second), mr
}

func TestCartLocker_AcquireAndRelease(t *testing.T) {
	locker, mr := setupLocker(t)
	ctx := context.Background()

	held, err := locker.Acquire(ctx, "cart-001")
	require.NoError(t, err)
	assert.True(t, mr.Exists("promo:cart-lock:cart-001"))

	require.NoError(t, held.Release(ctx))
	assert.False(t, mr.Exists("promo:cart-lock:cart-001"))
}

func TestCartLocker_SecondAcquireFails(t *testing.T) {
	locker, _ := setupLocker(t)
	ctx := context.Background()

	held, err := locker.Acquire(ctx, "cart-001")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "cart-001")
	assert.ErrorIs(t, err, ErrNotAcquired)

	// A different cart is an independent lock.
	other, err := locker.Acquire(ctx, "cart-002")
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, held.Release(ctx))

	_, err = locker.Acquire(ctx, "cart-001")
	assert.NoError(t, err)
}

func TestCartLocker_ReleaseIgnoresTakenOverLock(t *testing.T) {
	locker, mr := setupLocker(t)
	ctx := context.Background()

	held, err := locker.Acquire(ctx, "cart-001")
	require.NoError(t, err)

	// Simulate TTL expiry followed by another holder acquiring the lock.
	mr.FastForward(11 * time.Second)
	_, err = locker.Acquire(ctx, "cart-001")
	require.NoError(t, err)

	// The stale holder's release must not delete the new holder's lock.
	require.NoError(t, held.Release(ctx))
	assert.True(t, mr.Exists("promo:cart-lock:cart-001"))
}

func TestCartLocker_LockExpires(t *testing.T) {
	locker, mr := setupLocker(t)
	ctx := context.Background()

	_, err := locker.Acquire(ctx, "cart-001")
	require.NoError(t, err)

	mr.FastForward(11 * time.Second)

	_, err = locker.Acquire(ctx, "cart-001")
	assert.NoError(t, err)
}
