package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// tokenBucket refills Capacity tokens every Window and spends one per
// request.  The whole read-refill-spend runs as one Lua script so
// concurrent requests against the same bucket cannot race.
var tokenBucket = redis.NewScript(`
local key      = KEYS[1]
local capacity = tonumber(ARGV[1])
local window   = tonumber(ARGV[2])
local now      = tonumber(ARGV[3])

local data   = redis.call('HMGET', key, 'tokens', 'refilled')
local tokens = tonumber(data[1])
local last   = tonumber(data[2])
if tokens == nil then
  tokens = capacity
  last = now
end

local elapsed = now - last
if elapsed > 0 then
  tokens = math.min(capacity, tokens + elapsed * capacity / window)
  last = now
end

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call('HSET', key, 'tokens', tokens, 'refilled', last)
redis.call('EXPIRE', key, math.ceil(window * 2))
return allowed
`)

// RateLimit throttles by client IP: capacity requests per window.  A
// nil client or a Redis error lets the request through; losing rate
// limiting is better than losing bookings.
func RateLimit(rdb *redis.Client, capacity int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rdb == nil {
				return next(c)
			}
			key := "ratelimit:" + c.RealIP()
			res, err := tokenBucket.Run(c.Request().Context(), rdb,
				[]string{key}, capacity, window.Seconds(), time.Now().Unix()).Int()
			if err != nil {
				c.Logger().Warnf("rate limit: %v", err)
				return next(c)
			}
			if res == 0 {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests"})
			}
			return next(c)
		}
	}
}
