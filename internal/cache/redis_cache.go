package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"ministore/internal/domain"
)

// payloadVersion tags stored snapshots. Entries written with another version
// are treated as misses, so a changed DashboardStats shape never decodes into
// the wrong fields.
const payloadVersion = 2

// generationKey holds the counter Invalidate advances. It never expires.
const generationKey = DashboardKey + ":generation"

type redisPayload struct {
	Version int                   `json:"v"`
	Stats   domain.DashboardStats `json:"stats"`
}

// RedisDashboardCache shares dashboard snapshots between processes.
type RedisDashboardCache struct {
	client *redis.Client
}

func NewRedisDashboardCache(addr string, password string, db int) *RedisDashboardCache {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	return &RedisDashboardCache{client: client}
}

func (c *RedisDashboardCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisDashboardCache) Close() error {
	return c.client.Close()
}

// Get reports a miss for absent, undecodable or foreign-version entries.
// Only transport failures are returned as errors.
func (c *RedisDashboardCache) Get(ctx context.Context, key string) (*domain.DashboardStats, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var payload redisPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Version != payloadVersion {
		return nil, false, nil
	}
	return &payload.Stats, true, nil
}

func (c *RedisDashboardCache) Generation(ctx context.Context) (uint64, error) {
	gen, err := c.client.Get(ctx, generationKey).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get %s: %w", generationKey, err)
	}
	return gen, nil
}

// SetIfGeneration watches the generation key, so an Invalidate from any
// process between the check and the write aborts the transaction.
func (c *RedisDashboardCache) SetIfGeneration(ctx context.Context, key string, gen uint64, value *domain.DashboardStats, ttl time.Duration) (bool, error) {
	if value == nil {
		return false, nil
	}
	raw, err := json.Marshal(redisPayload{Version: payloadVersion, Stats: *value})
	if err != nil {
		return false, fmt.Errorf("encode dashboard stats: %w", err)
	}

	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, ttl)
			return nil
		}); err != nil {
			return err
		}
		stored = true
		return nil
	}, generationKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis set %s: %w", key, err)
	}
	return stored, nil
}

func (c *RedisDashboardCache) Invalidate(ctx context.Context, keys ...string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate: %w", err)
	}
	return nil
}
