package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*DocumentLocker, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewDocumentLocker(client, time.Minute), srv
}

func TestDocumentLockerSerializesHolders(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()
	key := DocumentLockKey("sales", uuid.New())

	release, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, key)
	require.ErrorIs(t, err, ErrLockHeld)

	release()

	release2, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	release2()
}

func TestDocumentLockerLeaseExpires(t *testing.T) {
	locker, srv := newTestLocker(t)
	ctx := context.Background()
	key := DocumentLockKey("purchases", uuid.New())

	_, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	srv.FastForward(2 * time.Minute)

	release, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	release()
}

func TestDocumentLockerReleaseIgnoresStolenLease(t *testing.T) {
	locker, srv := newTestLocker(t)
	ctx := context.Background()
	key := DocumentLockKey("sales", uuid.New())

	release, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	// Lease expires and another holder takes over.
	srv.FastForward(2 * time.Minute)
	_, err = locker.Acquire(ctx, key)
	require.NoError(t, err)

	// The stale release must not delete the new holder's lease.
	release()
	_, err = locker.Acquire(ctx, key)
	require.ErrorIs(t, err, ErrLockHeld)
}

func TestNilLockerIsNoop(t *testing.T) {
	var locker *DocumentLocker
	release, err := locker.Acquire(context.Background(), "any")
	require.NoError(t, err)
	release()
}
