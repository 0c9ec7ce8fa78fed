package bootstrap

import (
	"log"
	"time"

	"github.com/Avamagic/mgserver-web-api/internal/config"
	"github.com/Avamagic/mgserver-web-api/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// rateLimitMiddlewares holds rate limiting middlewares for different endpoints
type rateLimitMiddlewares struct {
	seed  gin.HandlerFunc
	token gin.HandlerFunc
}

// setupRateLimiting configures rate limiting middlewares based on configuration
func setupRateLimiting(cfg *config.Config, redisClient *redis.Client) rateLimitMiddlewares {
	noOpMiddleware := func(c *gin.Context) { c.Next() }

	if !cfg.EnableRateLimit {
		return rateLimitMiddlewares{
			seed:  noOpMiddleware,
			token: noOpMiddleware,
		}
	}

	log.Printf("Rate limiting enabled (store: %s)", cfg.RateLimitStore)
	storeType := middleware.RateLimitStoreType(cfg.RateLimitStore)

	createLimiter := func(requestsPerMinute int, endpoint string) gin.HandlerFunc {
		limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: requestsPerMinute,
			StoreType:         storeType,
			RedisClient:       redisClient,
			CleanupInterval:   10 * time.Minute,
		})
		if err != nil {
			log.Fatalf("Failed to create rate limiter for %s: %v", endpoint, err)
		}
		return limiter
	}

	return rateLimitMiddlewares{
		seed:  createLimiter(cfg.SeedRateLimit, "/v1/seeds"),
		token: createLimiter(cfg.TokenRateLimit, "/v1/request_token and /v1/access_token"),
	}
}
