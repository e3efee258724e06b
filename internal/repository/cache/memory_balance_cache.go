package cache

import (
	"context"
	"time"

	"ai-agenthub-be/internal/entity"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

type MemoryBalanceCache struct {
	cache *gocache.Cache
}

func NewMemoryBalanceCache(ttl time.Duration) *MemoryBalanceCache {
	// Purge interval does not need tuning; expired entries are also rejected
	// on read.
	return &MemoryBalanceCache{
		cache: gocache.New(ttl, 10*time.Minute),
	}
}

func (c *MemoryBalanceCache) Get(ctx context.Context, userId uuid.UUID) (*entity.UserCredits, bool, error) {
	if x, found := c.cache.Get(userId.String()); found {
		snapshot := x.(entity.UserCredits)
		return &snapshot, true, nil
	}
	return nil, false, nil
}

func (c *MemoryBalanceCache) Set(ctx context.Context, userId uuid.UUID, credits *entity.UserCredits) error {
	// Stored by value so later mutations of the caller's struct cannot leak
	// into the cache.
	c.cache.Set(userId.String(), *credits, gocache.DefaultExpiration)
	return nil
}

func (c *MemoryBalanceCache) Invalidate(ctx context.Context, userId uuid.UUID) error {
	c.cache.Delete(userId.String())
	return nil
}
