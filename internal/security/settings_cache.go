package security

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SettingsCache keeps per-outlet policy in redis so the gatekeeper does not
// hit postgres on every verification. Stale reads are bounded by the TTL and
// by invalidation on update.
type SettingsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSettingsCache constructs the cache. A nil client disables caching.
func NewSettingsCache(client *redis.Client, ttl time.Duration) *SettingsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SettingsCache{client: client, ttl: ttl}
}

func settingsKey(outletID int64) string {
	return fmt.Sprintf("security:settings:%d", outletID)
}

// Get returns the cached settings, or false on miss or any redis error.
func (c *SettingsCache) Get(ctx context.Context, outletID int64) (Settings, bool) {
	if c == nil || c.client == nil {
		return Settings{}, false
	}
	raw, err := c.client.Get(ctx, settingsKey(outletID)).Bytes()
	if err != nil {
		return Settings{}, false
	}
	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return Settings{}, false
	}
	return s, true
}

// Put stores settings with the configured TTL. Errors are ignored; the
// source of truth is postgres.
func (c *SettingsCache) Put(ctx context.Context, s Settings) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, settingsKey(s.OutletID), raw, c.ttl).Err()
}

// Invalidate drops the cached entry after an update.
func (c *SettingsCache) Invalidate(ctx context.Context, outletID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, settingsKey(outletID)).Err()
}
