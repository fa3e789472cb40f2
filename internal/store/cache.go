package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"gigbook-workers/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// jsonCache is a read-through helper over Redis. Cache errors are logged and treated as misses;
// a nil client disables caching.
type jsonCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func (c jsonCache) get(ctx context.Context, key string, dst interface{}) bool {
	if c.client == nil {
		return false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err})
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), dst); err != nil {
		c.logger.Warn("cache entry unreadable", map[string]interface{}{"key": key, "error": err})
		return false
	}
	return true
}

func (c jsonCache) set(ctx context.Context, key string, v interface{}) {
	if c.client == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err})
	}
}
