// FilePath: internal/republisher/republisher.cache.go
package republisher

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const watermarkTTL = 7 * 24 * time.Hour

// WatermarkCache remembers the last known BEEP watermark per hive so a
// failing lastvalues call does not force the default lookback.
type WatermarkCache interface {
	Get(ctx context.Context, hiveID string) (*time.Time, error)
	Set(ctx context.Context, hiveID string, t time.Time) error
}

// RedisWatermarkCache stores watermarks as RFC3339 strings.
type RedisWatermarkCache struct{ rdb *redis.Client }

func NewRedisWatermarkCache(rdb *redis.Client) *RedisWatermarkCache {
	return &RedisWatermarkCache{rdb: rdb}
}

func watermarkKey(hiveID string) string { return "bees:beep:watermark:" + hiveID }

func (c *RedisWatermarkCache) Set(ctx context.Context, hiveID string, t time.Time) error {
	return c.rdb.Set(ctx, watermarkKey(hiveID), t.UTC().Format(time.RFC3339Nano), watermarkTTL).Err()
}

// Get returns nil, nil when nothing is cached.
func (c *RedisWatermarkCache) Get(ctx context.Context, hiveID string) (*time.Time, error) {
	s, err := c.rdb.Get(ctx, watermarkKey(hiveID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
