package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/bookclub-server/internal/catalog"
	"github.com/listenupapp/bookclub-server/internal/config"
	"github.com/listenupapp/bookclub-server/internal/idp"
	"github.com/listenupapp/bookclub-server/internal/logger"
)

// CatalogHandle wraps the catalog client with shutdown capability.
type CatalogHandle struct {
	*catalog.Client
}

// Shutdown implements do.Shutdownable.
func (h *CatalogHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideCatalog provides the book catalog client.
func ProvideCatalog(i do.Injector) (*CatalogHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client, err := catalog.New(catalog.Config{
		BaseURL: cfg.Catalog.BaseURL,
		Timeout: cfg.Catalog.Timeout,
	}, log.Component("catalog"))
	if err != nil {
		return nil, err
	}
	return &CatalogHandle{Client: client}, nil
}

// IdentityProviderHandle wraps the identity provider client. Client is nil
// when mirroring is disabled.
type IdentityProviderHandle struct {
	Client *idp.Client
}

// Shutdown implements do.Shutdownable.
func (h *IdentityProviderHandle) Shutdown() error {
	if h.Client != nil {
		h.Client.Close()
	}
	return nil
}

// ProvideIdentityProvider provides the resource mirror client.
func ProvideIdentityProvider(i do.Injector) (*IdentityProviderHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.IdentityProvider.Enabled() {
		log.Info("Identity provider mirroring disabled")
		return &IdentityProviderHandle{}, nil
	}

	client := idp.New(idp.Config{
		BaseURL:      cfg.IdentityProvider.BaseURL,
		Realm:        cfg.IdentityProvider.Realm,
		ClientID:     cfg.IdentityProvider.ClientID,
		ClientSecret: cfg.IdentityProvider.ClientSecret,
		Timeout:      cfg.IdentityProvider.Timeout,
	}, log.Component("idp"))

	log.Info("Identity provider mirroring enabled",
		"base_url", cfg.IdentityProvider.BaseURL,
		"realm", cfg.IdentityProvider.Realm,
	)
	return &IdentityProviderHandle{Client: client}, nil
}
