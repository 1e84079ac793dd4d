package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/bookclub-server/internal/clock"
	"github.com/listenupapp/bookclub-server/internal/logger"
	"github.com/listenupapp/bookclub-server/internal/notify"
	"github.com/listenupapp/bookclub-server/internal/pipeline"
	"github.com/listenupapp/bookclub-server/internal/service"
	"github.com/listenupapp/bookclub-server/internal/validation"
)

// ProvideServiceDeps provides the collaborators shared by the write services.
func ProvideServiceDeps(i do.Injector) (service.Deps, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.Deps{
		Store:     storeHandle.Store,
		Publisher: do.MustInvoke[notify.Publisher](i),
		Topics:    do.MustInvoke[*notify.Topics](i),
		Validator: validation.New(),
		Clock:     clock.System{},
		Logger:    log.Component("service"),
	}, nil
}

// ProvideBookService provides the book service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	deps := do.MustInvoke[service.Deps](i)
	catalogHandle := do.MustInvoke[*CatalogHandle](i)
	return service.NewBookService(deps, catalogHandle.Client), nil
}

// ProvideReviewService provides the review service, mirroring new reviews
// when the identity provider is configured.
func ProvideReviewService(i do.Injector) (*service.ReviewService, error) {
	deps := do.MustInvoke[service.Deps](i)
	idpHandle := do.MustInvoke[*IdentityProviderHandle](i)

	var syncer pipeline.ResourceHandler
	if idpHandle.Client != nil {
		syncer = idpHandle.Client
	}
	return service.NewReviewService(deps, syncer), nil
}

// ProvideBookmarkService provides the bookmark service.
func ProvideBookmarkService(i do.Injector) (*service.BookmarkService, error) {
	return service.NewBookmarkService(do.MustInvoke[service.Deps](i)), nil
}

// ProvideUserService provides the user provisioning service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewUserService(storeHandle.Store, clock.System{}, log.Component("users")), nil
}
