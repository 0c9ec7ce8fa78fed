package bootstrap

import (
	"net/http"

	"github.com/Avamagic/mgserver-web-api/internal/config"
	"github.com/Avamagic/mgserver-web-api/internal/metrics"
	"github.com/Avamagic/mgserver-web-api/internal/services"
	"github.com/Avamagic/mgserver-web-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB                   *store.Store
	MetricsRecorder      metrics.Recorder
	RateLimitRedisClient *redis.Client

	// Services
	SeedService   *services.SeedService
	UserService   *services.UserService
	ClientService *services.ClientService
	DeviceService *services.DeviceService
	TokenService  *services.TokenService
	ReplayService *services.ReplayService
	RealmService  *services.RealmService

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes and starts the application
func Run(cfg *config.Config) error {
	app := &Application{Config: cfg}

	// Phase 1: Initialize infrastructure
	if err := app.initializeInfrastructure(); err != nil {
		return err
	}

	// Phase 2: Initialize business layer
	app.initializeBusinessLayer()

	// Phase 3: Initialize HTTP layer
	app.initializeHTTPLayer()

	// Phase 4: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

func (app *Application) initializeInfrastructure() error {
	var err error

	app.DB, err = initializeDatabase(app.Config)
	if err != nil {
		return err
	}

	app.MetricsRecorder = metrics.Init(app.Config.MetricsEnabled)

	app.RateLimitRedisClient, err = initializeRateLimitRedisClient(app.Config)
	if err != nil {
		return err
	}

	return nil
}

func (app *Application) initializeBusinessLayer() {
	initializeServices(app)
}

func (app *Application) initializeHTTPLayer() {
	app.HandlerSet = initializeHandlers(app)
	app.Router = setupRouter(app)
	app.Server = createHTTPServer(app.Config, app.Router)
}
