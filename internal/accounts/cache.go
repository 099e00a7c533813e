package accounts

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"clinic-booking-server/internal/models"
)

// userCache holds recently looked-up users by id. A nil cache is disabled.
// Entries expire after ttl, which bounds how long a status change made by
// another instance goes unseen here.
type userCache struct {
	cache  *expirable.LRU[string, models.User]
	logger zerolog.Logger
}

func newUserCache(size int, ttl time.Duration, logger zerolog.Logger) *userCache {
	if size <= 0 || ttl <= 0 {
		return nil
	}
	return &userCache{cache: expirable.NewLRU[string, models.User](size, nil, ttl), logger: logger}
}

func (c *userCache) get(id string) (models.User, bool) {
	if c == nil {
		return models.User{}, false
	}
	u, ok := c.cache.Get(id)
	if !ok {
		c.logger.Debug().Str("user_id", id).Msg("user cache miss")
	}
	return u, ok
}

func (c *userCache) store(u models.User) {
	if c == nil {
		return
	}
	c.cache.Add(u.ID, u)
}

func (c *userCache) invalidate(ids ...string) {
	if c == nil {
		return
	}
	for _, id := range ids {
		c.cache.Remove(id)
	}
}
