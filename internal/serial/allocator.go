package serial

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Allocator hands out unique serial numbers.
type Allocator interface {
	Next(ctx context.Context, registrationID string) (uint64, error)
}

// RedisAllocator draws serials from a single INCR counter. The seed command
// sets the counter floor once with SETNX.
type RedisAllocator struct {
	rdb *redis.Client
	key string
}

func NewRedisAllocator(rdb *redis.Client, key string) *RedisAllocator {
	if key == "" {
		key = "qmail:serial"
	}
	return &RedisAllocator{rdb: rdb, key: key}
}

func (a *RedisAllocator) Next(ctx context.Context, _ string) (uint64, error) {
	v, err := a.rdb.Incr(ctx, a.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", a.key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("redis counter %s is negative: %d", a.key, v)
	}
	return uint64(v), nil
}

// Seed sets the counter floor when it has never been used.
// Returns false if the counter already existed.
func (a *RedisAllocator) Seed(ctx context.Context, floor uint64) (bool, error) {
	return a.rdb.SetNX(ctx, a.key, floor, 0).Result()
}

// SerialStore is the persistence side of MySQLAllocator.
type SerialStore interface {
	Allocate(ctx context.Context, registrationID string) (uint64, error)
}

// MySQLAllocator uses an AUTO_INCREMENT table as the sequence.
type MySQLAllocator struct {
	store SerialStore
}

func NewMySQLAllocator(store SerialStore) *MySQLAllocator {
	return &MySQLAllocator{store: store}
}

func (a *MySQLAllocator) Next(ctx context.Context, registrationID string) (uint64, error) {
	n, err := a.store.Allocate(ctx, registrationID)
	if err != nil {
		return 0, fmt.Errorf("mysql serial allocate: %w", err)
	}
	return n, nil
}

// StaticAllocator always returns the same serial. Local development only.
type StaticAllocator uint64

func (a StaticAllocator) Next(context.Context, string) (uint64, error) {
	return uint64(a), nil
}
