// Package cache keeps a short-lived copy of order status in Redis so the UI
// can poll without hitting Postgres. The cache is write-through and purely an
// optimisation: the store remains the source of truth.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gearmart/internal/model"
)

const keyOrderStatus = "order_status:%s"

// TTLOrderStatus bounds how stale a cached status can get if an update is missed.
var TTLOrderStatus = 5 * time.Minute

// StatusCache caches order status by order ID.
type StatusCache interface {
	SetStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus)
	GetStatus(ctx context.Context, orderID uuid.UUID) (model.OrderStatus, bool)
}

// redisCache implements StatusCache on a Redis client. All operations are
// best-effort; errors are logged and swallowed.
type redisCache struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// NewRedisCache creates a Redis-backed status cache.
func NewRedisCache(addr string, logger zerolog.Logger) StatusCache {
	return &redisCache{
		rdb:    redis.NewClient(&redis.Options{Addr: addr}),
		logger: logger.With().Str("component", "status-cache").Logger(),
	}
}

func (c *redisCache) SetStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) {
	key := fmt.Sprintf(keyOrderStatus, orderID)
	if err := c.rdb.Set(ctx, key, string(status), TTLOrderStatus).Err(); err != nil {
		c.logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("failed to cache order status")
	}
}

func (c *redisCache) GetStatus(ctx context.Context, orderID uuid.UUID) (model.OrderStatus, bool) {
	key := fmt.Sprintf(keyOrderStatus, orderID)
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("failed to read cached order status")
		}
		return "", false
	}
	return model.OrderStatus(val), true
}

// NopCache does nothing. Used when Redis is disabled.
type NopCache struct{}

func (NopCache) SetStatus(context.Context, uuid.UUID, model.OrderStatus) {}

func (NopCache) GetStatus(context.Context, uuid.UUID) (model.OrderStatus, bool) {
	return "", false
}
