package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/qmail/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient backs the serial counter and the rate limiter.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	return rdb, nil
}
