package bootstrap

import (
	"github.com/Avamagic/mgserver-web-api/internal/handlers"
)

// handlerSet groups all HTTP handlers
type handlerSet struct {
	seed   *handlers.SeedHandler
	oauth  *handlers.OAuthHandler
	me     *handlers.MeHandler
	device *handlers.DeviceHandler
	user   *handlers.UserHandler
	client *handlers.ClientHandler
}

func initializeHandlers(app *Application) handlerSet {
	return handlerSet{
		seed:   handlers.NewSeedHandler(app.SeedService),
		oauth:  handlers.NewOAuthHandler(app.TokenService, app.UserService),
		me:     handlers.NewMeHandler(app.UserService),
		device: handlers.NewDeviceHandler(app.DeviceService, app.UserService),
		user:   handlers.NewUserHandler(app.UserService),
		client: handlers.NewClientHandler(app.ClientService),
	}
}
