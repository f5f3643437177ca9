package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/internal/store"
)

func TestMessageLockSerializesHolders(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)
	lock := store.NewMessageLock(infra.RedisClient, 30*time.Second)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "msg-lock-1")
	require.NoError(t, err)

	// A second worker cannot take the lease while it is held.
	blockedCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = lock.Acquire(blockedCtx, "msg-lock-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()

	release2, err := lock.Acquire(ctx, "msg-lock-1")
	require.NoError(t, err)
	release2()
}

func TestMessageLockIsPerMessage(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)
	lock := store.NewMessageLock(infra.RedisClient, 30*time.Second)
	ctx := context.Background()

	release1, err := lock.Acquire(ctx, "msg-lock-a")
	require.NoError(t, err)
	defer release1()

	release2, err := lock.Acquire(ctx, "msg-lock-b")
	require.NoError(t, err)
	defer release2()
}

func TestMessageLockLeaseExpires(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)
	lock := store.NewMessageLock(infra.RedisClient, 500*time.Millisecond)
	ctx := context.Background()

	// Never released; the TTL frees the lease for the next worker.
	_, err := lock.Acquire(ctx, "msg-lock-ttl")
	require.NoError(t, err)

	acquireCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	release, err := lock.Acquire(acquireCtx, "msg-lock-ttl")
	require.NoError(t, err)
	release()
}
