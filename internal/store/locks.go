package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"bifrost/internal/domain"
)

const (
	lockKeyPrefix       = "msglock:"
	lockAcquireInterval = 50 * time.Millisecond
)

// releaseScript deletes the lock only when it still holds our token, so an
// expired lease grabbed by another worker is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// MessageLock serializes evidence processing per business message across
// workers. It is a lease, not a mutex: the TTL bounds how long a crashed
// worker can block a message.
type MessageLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewMessageLock(client *redis.Client, ttl time.Duration) *MessageLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &MessageLock{client: client, ttl: ttl}
}

// Acquire blocks until the per-message lease is held or the context ends.
// The returned release func is safe to call once processing is done.
func (l *MessageLock) Acquire(ctx context.Context, id domain.MessageID) (func(), error) {
	key := lockKeyPrefix + string(id)
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire message lock for %s: %w", id, err)
		}
		if ok {
			break
		}

		select {
		case <-time.After(lockAcquireInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}

	return release, nil
}
