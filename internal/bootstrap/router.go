package bootstrap

import (
	"log"
	"net/http"

	"github.com/Avamagic/mgserver-web-api/internal/config"
	"github.com/Avamagic/mgserver-web-api/internal/metrics"
	"github.com/Avamagic/mgserver-web-api/internal/middleware"
	"github.com/Avamagic/mgserver-web-api/internal/models"
	"github.com/Avamagic/mgserver-web-api/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(app *Application) *gin.Engine {
	cfg := app.Config
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(app.MetricsRecorder))
	r.Use(gin.Logger(), gin.Recovery())

	setupSessionMiddleware(r, cfg)

	r.GET("/health", createHealthCheckHandler(app.DB))
	setupMetricsEndpoint(r, cfg)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	rateLimiters := setupRateLimiting(cfg, app.RateLimitRedisClient)
	setupAllRoutes(r, app, rateLimiters)

	log.Printf("Server listening on %s", cfg.ServerAddr)
	return r
}

// setupSessionMiddleware configures session handling middleware
func setupSessionMiddleware(r *gin.Engine, cfg *config.Config) {
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("mgserver_session", sessionStore))
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	if !cfg.MetricsEnabled {
		log.Printf("Prometheus metrics disabled")
		return
	}
	log.Printf("Prometheus metrics enabled at /metrics")
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// setupAllRoutes configures all application routes
func setupAllRoutes(r *gin.Engine, app *Application, rateLimiters rateLimitMiddlewares) {
	h := app.HandlerSet
	validator := middleware.PresenceValidator{}

	signed := middleware.RequireSignedRequest(app.ReplayService, validator)
	usersRealm := middleware.RequireOAuth(
		app.ReplayService, app.RealmService, app.UserService, validator,
		models.RealmUsers,
	)
	usersOrAdmins := middleware.RequireOAuth(
		app.ReplayService, app.RealmService, app.UserService, validator,
		models.RealmUsers, models.RealmAdmins,
	)

	v1 := r.Group("/v1")
	{
		// Bootstrap provisioning
		v1.POST("/seeds", rateLimiters.seed, h.seed.Create)

		// Three-legged token flow
		v1.POST("/request_token", rateLimiters.token, signed, h.oauth.RequestToken)
		v1.GET("/authorize", h.oauth.ShowAuthorization)
		v1.POST("/authorize", h.oauth.Authorize)
		v1.POST("/access_token", rateLimiters.token, signed, h.oauth.AccessToken)

		// Protected resources
		v1.GET("/me", usersRealm, h.me.Show)
		v1.PUT("/me", usersRealm, h.me.Update)

		v1.GET("/devices", usersRealm, h.device.List)
		v1.POST("/devices", usersRealm, h.device.Create)
		v1.GET("/devices/:id", usersOrAdmins, h.device.Show)
		v1.PUT("/devices/:id", usersRealm, h.device.Update)
		v1.GET("/device", usersRealm, h.device.ShowCurrent)
		v1.PUT("/device", usersRealm, h.device.UpdateCurrent)

		// Account surface
		v1.POST("/users", h.user.Signup)
		v1.POST("/login", h.user.Login)
		v1.POST("/logout", h.user.Logout)

		clients := v1.Group("/clients")
		clients.Use(middleware.RequireSession(app.UserService))
		{
			clients.GET("", h.client.List)
			clients.POST("", h.client.Create)
		}
	}
}
