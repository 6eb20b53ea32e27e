package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"trendyol-sync-api/internal/model"

	"github.com/redis/go-redis/v9"
)

const (
	// SettingsKey is the Redis key holding the cached settings singleton.
	SettingsKey = "trendyol:settings"

	// DefaultSettingsTTL bounds staleness if an invalidation is ever lost.
	DefaultSettingsTTL = 5 * time.Minute
)

// SettingsCache is a Redis read-through cache for the settings singleton.
// Every settings update must call Invalidate before readers can observe
// stale credentials.
type SettingsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSettingsCache creates a settings cache on an existing Redis client.
func NewSettingsCache(client *redis.Client, ttl time.Duration) *SettingsCache {
	if ttl <= 0 {
		ttl = DefaultSettingsTTL
	}
	return &SettingsCache{client: client, ttl: ttl}
}

// Get returns the cached settings, or nil on a cache miss.
func (c *SettingsCache) Get(ctx context.Context) (*model.Settings, error) {
	data, err := c.client.Get(ctx, SettingsKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s model.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		// Corrupt cache entry: drop it and force a store read.
		c.client.Del(ctx, SettingsKey)
		return nil, nil
	}
	return &s, nil
}

// Set stores the settings with the configured TTL.
func (c *SettingsCache) Set(ctx context.Context, s model.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, SettingsKey, data, c.ttl).Err()
}

// Invalidate removes the cached settings.
func (c *SettingsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, SettingsKey).Err(); err != nil {
		log.Printf("[SettingsCache] Invalidate failed: %v", err)
		return err
	}
	return nil
}
