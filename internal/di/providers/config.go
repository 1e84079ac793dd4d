// Package providers contains dependency injection providers for the BookClub server.
package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/listenupapp/bookclub-server/internal/config"
	"github.com/listenupapp/bookclub-server/internal/logger"
)

// ProvideConfig provides the application configuration from the process
// arguments and environment.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.Load(os.Args[1:])
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting BookClub Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"database", cfg.Database.Path,
		"idp_sync", cfg.IdentityProvider.Enabled(),
	)

	return log, nil
}
