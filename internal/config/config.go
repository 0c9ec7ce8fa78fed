package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Rate limit store backends
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr string
	BaseURL    string

	// Session settings (session cookies are issued by the interactive
	// surface; this core only reads the signed principal out of them)
	SessionSecret string
	SessionMaxAge int // seconds

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// OTP bootstrap gate. The secret and interval must match whatever
	// provisions the codes out-of-band.
	OTPSecret   string
	OTPInterval time.Duration

	// Token lifecycle
	RequestTokenTTL time.Duration

	// Metrics
	MetricsEnabled bool

	// Rate limiting
	EnableRateLimit bool
	RateLimitStore  string // "memory" or "redis"
	SeedRateLimit   int    // requests per minute on /v1/seeds
	TokenRateLimit  int    // requests per minute on the token endpoints
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	// Seed an admin account and default client on an empty database
	SeedOnEmpty bool
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", "mgserver.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:    getEnv("SERVER_ADDR", ":8080"),
		BaseURL:       getEnv("BASE_URL", "http://localhost:8080"),
		SessionSecret: getEnv("SESSION_SECRET", "session-secret-change-in-production"),
		SessionMaxAge: getEnvInt("SESSION_MAX_AGE", 86400),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		OTPSecret:   getEnv("OTP_SECRET", ""),
		OTPInterval: getEnvDuration("OTP_INTERVAL", 30*time.Second),

		RequestTokenTTL: getEnvDuration("REQUEST_TOKEN_TTL", 15*time.Minute),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		EnableRateLimit: getEnvBool("ENABLE_RATE_LIMIT", false),
		RateLimitStore:  getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		SeedRateLimit:   getEnvInt("SEED_RATE_LIMIT", 10),
		TokenRateLimit:  getEnvInt("TOKEN_RATE_LIMIT", 60),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),

		SeedOnEmpty: getEnvBool("SEED_ON_EMPTY", true),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s: %q, using default %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Invalid boolean for %s: %q, using default %v", key, value, fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	// Accept either a Go duration string or a bare number of seconds.
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	log.Printf("Invalid duration for %s: %q, using default %v", key, value, fallback)
	return fallback
}
