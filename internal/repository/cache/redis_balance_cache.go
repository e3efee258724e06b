package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-agenthub-be/internal/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type RedisBalanceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisBalanceCache(rdb *redis.Client, ttl time.Duration) *RedisBalanceCache {
	return &RedisBalanceCache{
		rdb: rdb,
		ttl: ttl,
	}
}

// cachedCredits is the wire form. Decimals travel as strings to avoid any
// float rounding on the way through Redis.
type cachedCredits struct {
	CreditBalance   string `json:"credit_balance"`
	LifetimeCredits string `json:"lifetime_credits"`
}

func balanceKey(userId uuid.UUID) string {
	return fmt.Sprintf("credits:balance:%s", userId)
}

func (c *RedisBalanceCache) Get(ctx context.Context, userId uuid.UUID) (*entity.UserCredits, bool, error) {
	val, err := c.rdb.Get(ctx, balanceKey(userId)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var cached cachedCredits
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Corrupted entry: drop it and treat as a miss.
		c.rdb.Del(ctx, balanceKey(userId))
		return nil, false, nil
	}

	balance, err1 := decimal.NewFromString(cached.CreditBalance)
	lifetime, err2 := decimal.NewFromString(cached.LifetimeCredits)
	if err1 != nil || err2 != nil {
		c.rdb.Del(ctx, balanceKey(userId))
		return nil, false, nil
	}

	return &entity.UserCredits{
		UserId:          userId,
		CreditBalance:   balance,
		LifetimeCredits: lifetime,
	}, true, nil
}

func (c *RedisBalanceCache) Set(ctx context.Context, userId uuid.UUID, credits *entity.UserCredits) error {
	data, err := json.Marshal(cachedCredits{
		CreditBalance:   credits.CreditBalance.String(),
		LifetimeCredits: credits.LifetimeCredits.String(),
	})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, balanceKey(userId), data, c.ttl).Err()
}

func (c *RedisBalanceCache) Invalidate(ctx context.Context, userId uuid.UUID) error {
	return c.rdb.Del(ctx, balanceKey(userId)).Err()
}
