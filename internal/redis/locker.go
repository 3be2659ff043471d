package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eaglebank/bank-account-service/internal/lock"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "lock:account:"

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a lock.Locker backed by Redis SET NX PX leases, so that every
// service instance sharing the Redis serialises mutations of the same account.
// The TTL bounds how long a crashed holder can block the key.
type Locker struct {
	client     goredis.Cmdable
	ttl        time.Duration
	retryDelay time.Duration
}

var _ lock.Locker = (*Locker)(nil)

func NewLocker(client goredis.Cmdable, ttl time.Duration) *Locker {
	return &Locker{client: client, ttl: ttl, retryDelay: 25 * time.Millisecond}
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockKeyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", redisKey, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(lock.ErrNotAcquired, ctx.Err())
		case <-time.After(l.retryDelay):
		}
	}

	return func() {
		// Release on a fresh context so a cancelled request still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
			slog.Warn("failed to release account lock", "key", redisKey, "error", err)
		}
	}, nil
}
