// Package di provides dependency injection configuration for the BookClub server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/bookclub-server/internal/auth"
	"github.com/listenupapp/bookclub-server/internal/config"
	"github.com/listenupapp/bookclub-server/internal/di/providers"
	"github.com/listenupapp/bookclub-server/internal/logger"
	"github.com/listenupapp/bookclub-server/internal/notify"
	"github.com/listenupapp/bookclub-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Notifications
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvidePublisher)
	do.Provide(injector, providers.ProvideTopics)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Outbound clients
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideIdentityProvider)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideServiceDeps)
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideReviewService)
	do.Provide(injector, providers.ProvideBookmarkService)
	do.Provide(injector, providers.ProvideUserService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services, which starts the HTTP server.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[notify.Publisher](injector)
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.CatalogHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.IdentityProviderHandle](injector)
	if _, err := do.Invoke[*auth.TokenService](injector); err != nil {
		return err
	}

	// Business services
	_ = do.MustInvoke[*service.BookService](injector)
	_ = do.MustInvoke[*service.ReviewService](injector)
	_ = do.MustInvoke[*service.BookmarkService](injector)
	_ = do.MustInvoke[*service.UserService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
