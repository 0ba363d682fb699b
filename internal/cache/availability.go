// Package cache provides a short-TTL Redis cache for the public
// availability calendar, the hottest read path.  Every write to a
// location's availability invalidates that location's cached ranges,
// so visitors never see a stale sold-out date for longer than the TTL.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marineworld/booking/internal/model"
)

// AvailabilityCache caches calendar range responses per location.  A
// nil Redis client degrades every operation to a no-op miss so the
// service keeps working when Redis is down or not configured.
type AvailabilityCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewAvailabilityCache wraps the given client.  rdb may be nil.
func NewAvailabilityCache(rdb *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{rdb: rdb, ttl: ttl}
}

func rangeKey(locationID uint64, from, to string) string {
	return fmt.Sprintf("availability:%d:%s:%s", locationID, from, to)
}

func locationSetKey(locationID uint64) string {
	return fmt.Sprintf("availability:keys:%d", locationID)
}

// GetRange returns the cached calendar for a location and window, or
// (nil, false) on a miss.  Cache errors are logged and reported as
// misses.
func (c *AvailabilityCache) GetRange(ctx context.Context, locationID uint64, from, to string) ([]model.AvailabilityRecord, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, rangeKey(locationID, from, to)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("availability cache get: %v", err)
		return nil, false
	}
	var out []model.AvailabilityRecord
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Printf("availability cache decode: %v", err)
		return nil, false
	}
	return out, true
}

// SetRange stores a calendar response and registers its key in the
// location's key set so InvalidateLocation can find it later.  The key
// set carries the same TTL as the entries it tracks.
func (c *AvailabilityCache) SetRange(ctx context.Context, locationID uint64, from, to string, records []model.AvailabilityRecord) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(records)
	if err != nil {
		log.Printf("availability cache encode: %v", err)
		return
	}
	key := rangeKey(locationID, from, to)
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, raw, c.ttl)
	pipe.SAdd(ctx, locationSetKey(locationID), key)
	pipe.Expire(ctx, locationSetKey(locationID), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("availability cache set: %v", err)
	}
}

// InvalidateLocation drops every cached range for the location.  Called
// after any booking, cancellation, capacity change or blackout toggle.
func (c *AvailabilityCache) InvalidateLocation(ctx context.Context, locationID uint64) {
	if c.rdb == nil {
		return
	}
	setKey := locationSetKey(locationID)
	keys, err := c.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		log.Printf("availability cache invalidate: %v", err)
		return
	}
	keys = append(keys, setKey)
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("availability cache invalidate: %v", err)
	}
}
