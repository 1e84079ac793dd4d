package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/bookclub-server/internal/auth"
	"github.com/listenupapp/bookclub-server/internal/config"
	"github.com/listenupapp/bookclub-server/internal/logger"
)

// developmentSecret signs and verifies tokens when no secret is configured.
// config.Validate rejects an empty secret outside development.
const developmentSecret = "bookclub-development-secret"

// ProvideTokenService provides the bearer token verifier.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		log.Warn("JWT_SECRET not set, using the development secret")
		secret = developmentSecret
	}

	return auth.NewTokenService(secret, cfg.Auth.Issuer, cfg.Auth.Audience)
}
