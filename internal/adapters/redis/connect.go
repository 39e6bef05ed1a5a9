// Package redis caches bin metadata in front of the bin table.
package redis

import (
	"context"
	"fmt"

	"github.com/kevin07696/card-gateway/internal/config"
	"github.com/redis/go-redis/v9"
)

// Connect creates a client and checks the server answers
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}
