// Package cache keeps short-lived aggregates in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/neuroscan-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const publicStatsKey = "neuroscan:stats:public"

// StatsCache stores the public dashboard aggregate for a fixed TTL.
type StatsCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewClient parses a redis:// URL.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{redis: client, ttl: ttl}
}

// GetPublic returns the cached aggregate. ok is false on a miss.
func (c *StatsCache) GetPublic(ctx context.Context) (stats *domain.PublicStatistics, ok bool, err error) {
	raw, err := c.redis.Get(ctx, publicStatsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var s domain.PublicStatistics
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("decode cached stats: %w", err)
	}
	return &s, true, nil
}

func (c *StatsCache) SetPublic(ctx context.Context, s *domain.PublicStatistics) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := c.redis.Set(ctx, publicStatsKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops the cached aggregate so the next read recomputes it.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	return c.redis.Del(ctx, publicStatsKey).Err()
}

func (c *StatsCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}
