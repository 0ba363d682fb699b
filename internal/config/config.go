// Package config loads all runtime configuration from the environment.
// Required values fail fast at startup; optional ones default sensibly.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	HTTPAddr string

	MySQLDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	AMQPURL          string
	ActivityFilePath string

	JWTSecret string
	JWTTTL    time.Duration

	PaymentBaseURL string
	PaymentAPIKey  string
	PaymentSecret  string
	PaymentSandbox bool

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	ExpireSweepSchedule string
	SeedSchedule        string

	RefundReleasesSlots bool
}

// Load reads the configuration from the environment.
func Load() Config {
	return Config{
		HTTPAddr: envStr("HTTP_ADDR", ":8080"),

		MySQLDSN: must("MYSQL_DSN"),

		RedisAddr:     envStr("REDIS_ADDR", ""),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),
		CacheTTL:      envDur("CACHE_TTL", 60*time.Second),

		AMQPURL:          envStr("AMQP_URL", ""),
		ActivityFilePath: envStr("ACTIVITY_FILE", ""),

		JWTSecret: must("JWT_SECRET"),
		JWTTTL:    envDur("JWT_TTL", 12*time.Hour),

		PaymentBaseURL: envStr("PAYMENT_BASE_URL", ""),
		PaymentAPIKey:  envStr("PAYMENT_API_KEY", ""),
		PaymentSecret:  must("PAYMENT_SECRET"),
		PaymentSandbox: envBool("PAYMENT_SANDBOX", true),

		SMTPHost: envStr("SMTP_HOST", ""),
		SMTPPort: envInt("SMTP_PORT", 587),
		SMTPUser: envStr("SMTP_USER", ""),
		SMTPPass: envStr("SMTP_PASS", ""),
		SMTPFrom: envStr("SMTP_FROM", "tickets@marineworld.example"),

		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   envDur("RATE_LIMIT_WINDOW", time.Minute),

		ExpireSweepSchedule: envStr("EXPIRE_SWEEP_SCHEDULE", "@every 5m"),
		SeedSchedule:        envStr("SEED_SCHEDULE", "@daily"),

		RefundReleasesSlots: envBool("REFUND_RELEASES_SLOTS", false),
	}
}

func must(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("config: %s is required", key)
	}
	return v
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("config: %s must be an integer: %v", key, err)
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Fatalf("config: %s must be a boolean: %v", key, err)
	}
	return b
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("config: %s must be a duration: %v", key, err)
	}
	return d
}
