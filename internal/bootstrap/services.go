package bootstrap

import (
	"github.com/Avamagic/mgserver-web-api/internal/otp"
	"github.com/Avamagic/mgserver-web-api/internal/services"
)

// initializeServices wires the business layer. Order matters only for the
// device service, which the token service calls during exchange.
func initializeServices(app *Application) {
	verifier := otp.NewTOTPVerifier(app.Config.OTPSecret, app.Config.OTPInterval)

	app.UserService = services.NewUserService(app.DB)
	app.ClientService = services.NewClientService(app.DB)
	app.DeviceService = services.NewDeviceService(app.DB, app.MetricsRecorder)
	app.TokenService = services.NewTokenService(
		app.DB,
		app.Config,
		app.DeviceService,
		app.MetricsRecorder,
	)
	app.ReplayService = services.NewReplayService(app.DB, app.MetricsRecorder)
	app.RealmService = services.NewRealmService(app.DB)
	app.SeedService = services.NewSeedService(app.DB, verifier, app.MetricsRecorder)
}
