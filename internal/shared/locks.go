package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld indicates the document is being processed by another request.
var ErrLockHeld = errors.New("document lock held")

// DocumentLocker serializes approval and cancellation of a single document
// across concurrent requests using a redis SETNX lease.
type DocumentLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDocumentLocker constructs the locker. TTL bounds how long a crashed
// holder can block other workers.
func NewDocumentLocker(client *redis.Client, ttl time.Duration) *DocumentLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &DocumentLocker{client: client, ttl: ttl}
}

// DocumentLockKey builds the redis key for a document critical section.
func DocumentLockKey(module string, id uuid.UUID) string {
	return fmt.Sprintf("ledger:%s:%s:lock", module, id)
}

// Acquire takes the lease or fails fast with ErrLockHeld. A nil locker is a
// no-op so unit tests can run without redis.
func (l *DocumentLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	release := func() {
		// Release only if we still hold the lease.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		_ = l.client.Eval(context.Background(), script, []string{key}, token).Err()
	}
	return release, nil
}
