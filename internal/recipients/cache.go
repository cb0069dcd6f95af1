// internal/recipients/cache.go
package recipients

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/models"
)

const cacheKeyPrefix = "profile:"

// CachedStore reads through Redis in front of another Store. Redis errors
// degrade to a direct lookup; misses are not cached.
type CachedStore struct {
	next   Store
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(next Store, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		logger: logger.ForComponent(log, "profile-cache"),
	}
}

func cacheKey(userID string) string {
	return cacheKeyPrefix + userID
}

func (c *CachedStore) GetProfile(ctx context.Context, userID string) (*models.RecipientProfile, error) {
	key := cacheKey(userID)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var p models.RecipientProfile
		if jsonErr := json.Unmarshal([]byte(val), &p); jsonErr == nil {
			return &p, nil
		}
		c.logger.Warn("discarding corrupt cached profile", map[string]interface{}{"userId": userID})
	case err != redis.Nil:
		c.logger.Warn("profile cache read failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}

	p, err := c.next.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(p)
	if err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("profile cache write failed", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
		}
	}
	return p, nil
}
