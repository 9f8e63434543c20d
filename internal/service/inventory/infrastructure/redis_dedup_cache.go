// internal/service/inventory/infrastructure/redis_dedup_cache.go
package infrastructure

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"stockflow/internal/pkg/logger"
)

const dedupKeyPrefix = "stockflow:debit:"

// RedisDedupCache is the best-effort fast path in front of the
// applied-debit ledger. Every operation swallows its error: a broken
// cache degrades to extra ledger transactions, never to wrong answers.
type RedisDedupCache struct {
	client *redis.Client
}

func NewRedisDedupCache(client *redis.Client) *RedisDedupCache {
	return &RedisDedupCache{client: client}
}

func (c *RedisDedupCache) Seen(ctx context.Context, dedupKey string) bool {
	n, err := c.client.Exists(ctx, dedupKeyPrefix+dedupKey).Result()
	if err != nil {
		logger.Ctx(ctx).Debug().Err(err).Msg("Dedup cache lookup failed")
		return false
	}
	return n > 0
}

func (c *RedisDedupCache) Record(ctx context.Context, dedupKey string, ttl time.Duration) {
	if err := c.client.Set(ctx, dedupKeyPrefix+dedupKey, 1, ttl).Err(); err != nil {
		logger.Ctx(ctx).Debug().Err(err).Msg("Dedup cache record failed")
	}
}
