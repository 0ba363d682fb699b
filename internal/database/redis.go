package database

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// OpenRedis connects to Redis.  An empty addr or an unreachable server
// returns nil: the cache and rate limiter treat a nil client as a
// no-op, so Redis being down degrades performance, not correctness.
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis unreachable at %s, continuing without cache: %v", addr, err)
		rdb.Close()
		return nil
	}
	return rdb
}
