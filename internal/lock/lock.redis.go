// FilePath: internal/lock/lock.redis.go
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker holds the lock as a key with a TTL, so a crashed holder
// cannot block later runs forever.
type RedisLocker struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewRedisLocker(rdb *redis.Client, key string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisLocker{rdb: rdb, key: key, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context) (Lock, error) {
	token := nuts.NID("lk", 16)
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &redisLock{rdb: l.rdb, key: l.key, token: token}, nil
}

type redisLock struct {
	rdb   *redis.Client
	key   string
	token string
}

func (l *redisLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release redis lock %s: %w", l.key, err)
	}
	return nil
}
