// FilePath: internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spoilsense/spoilsense/internal/config"
	"github.com/spoilsense/spoilsense/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// ReadingCache keeps the most recent reading per device in Redis so the
// dashboard-facing endpoints can answer without touching the hypertable.
// Entries expire after the configured TTL; a miss falls back to the store.
type ReadingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(cfg config.RedisConfig) (*ReadingCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	nuts.L.Infof("[ReadingCache] Connected to %s:%d/%d", cfg.Host, cfg.Port, cfg.DB)
	return &ReadingCache{client: client, ttl: ttl}, nil
}

func cacheKey(deviceID string) string {
	return "latest_reading:" + deviceID
}

// SetLatest stores the reading as the device's latest. Cache failures are
// logged and swallowed; the store remains the source of truth.
func (c *ReadingCache) SetLatest(ctx context.Context, reading *models.Reading) {
	data, err := json.Marshal(reading)
	if err != nil {
		nuts.L.Warnf("[ReadingCache] Failed to marshal reading for %s: %v", reading.DeviceID, err)
		return
	}

	if err := c.client.Set(ctx, cacheKey(reading.DeviceID), data, c.ttl).Err(); err != nil {
		nuts.L.Warnf("[ReadingCache] Failed to cache reading for %s: %v", reading.DeviceID, err)
	}
}

// GetLatest returns the cached latest reading or nil on a miss.
func (c *ReadingCache) GetLatest(ctx context.Context, deviceID string) *models.Reading {
	data, err := c.client.Get(ctx, cacheKey(deviceID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			nuts.L.Warnf("[ReadingCache] Failed to read cache for %s: %v", deviceID, err)
		}
		return nil
	}

	reading := &models.Reading{}
	if err := json.Unmarshal(data, reading); err != nil {
		nuts.L.Warnf("[ReadingCache] Corrupt cache entry for %s: %v", deviceID, err)
		return nil
	}
	return reading
}

// Invalidate drops the cached entry for a device.
func (c *ReadingCache) Invalidate(ctx context.Context, deviceID string) {
	if err := c.client.Del(ctx, cacheKey(deviceID)).Err(); err != nil {
		nuts.L.Warnf("[ReadingCache] Failed to invalidate cache for %s: %v", deviceID, err)
	}
}

// Close releases the underlying client.
func (c *ReadingCache) Close() error {
	return c.client.Close()
}
