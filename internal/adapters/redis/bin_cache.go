package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "bin:"

// Cache is the subset of the redis client used by the bin cache
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// BinSource is the authoritative bin store behind the cache
type BinSource interface {
	ports.BinInfoProvider
	ports.BinCardTypeStore
}

// BinCache serves bin metadata from redis and falls back to the source.
// Redis failures degrade to the source and are never returned.
type BinCache struct {
	cache  Cache
	source BinSource
	ttl    time.Duration
	logger *zap.Logger
}

// NewBinCache creates a read-through bin cache
func NewBinCache(cache Cache, source BinSource, ttl time.Duration, logger *zap.Logger) *BinCache {
	return &BinCache{
		cache:  cache,
		source: source,
		ttl:    ttl,
		logger: logger,
	}
}

// GetBinInfo implements ports.BinInfoProvider
func (c *BinCache) GetBinInfo(ctx context.Context, bin string) (*domain.BinInfo, error) {
	key := keyPrefix + bin
	raw, err := c.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var info domain.BinInfo
		if jsonErr := json.Unmarshal(raw, &info); jsonErr == nil {
			return &info, nil
		}
		c.logger.Warn("Discarding malformed cached bin", zap.String("bin", bin))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Bin cache read failed", zap.String("bin", bin), zap.Error(err))
	}

	info, err := c.source.GetBinInfo(ctx, bin)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(info); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Bin cache write failed", zap.String("bin", bin), zap.Error(err))
		}
	}
	return info, nil
}

// GetCardType implements ports.BinCardTypeStore
func (c *BinCache) GetCardType(ctx context.Context, bin string) (string, error) {
	return c.source.GetCardType(ctx, bin)
}

// UpdateCardType implements ports.BinCardTypeStore and evicts the cached bin
func (c *BinCache) UpdateCardType(ctx context.Context, bin, cardType string) error {
	if err := c.source.UpdateCardType(ctx, bin, cardType); err != nil {
		return err
	}
	if err := c.cache.Del(ctx, keyPrefix+bin).Err(); err != nil {
		c.logger.Warn("Bin cache eviction failed", zap.String("bin", bin), zap.Error(err))
	}
	return nil
}
