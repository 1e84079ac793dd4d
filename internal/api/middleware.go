package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/listenupapp/bookclub-server/internal/auth"
	"github.com/listenupapp/bookclub-server/internal/domain"
	"github.com/listenupapp/bookclub-server/internal/http/response"
	"github.com/listenupapp/bookclub-server/internal/ratelimit"
)

// TokenVerifier checks a bearer token and returns its identity claims.
type TokenVerifier interface {
	Verify(raw string) (*auth.IdentityClaims, error)
}

// Provisioner maps a verified identity to a local user.
type Provisioner interface {
	Provision(ctx context.Context, email string, claims map[string]string) (*domain.User, error)
}

// authenticate resolves the acting user from the Authorization header.
// Requests without the header continue anonymously and handlers decide
// whether that is acceptable. A header that fails verification or
// provisioning ends the request with a 401.
func authenticate(tokens TokenVerifier, users Provisioner, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Verify(header)
			if err != nil {
				logger.Debug("bearer token rejected", "path", r.URL.Path, "error", err)
				response.HandleError(w, err, logger)
				return
			}

			user, err := users.Provision(r.Context(), claims.Email, claims.Map())
			if err != nil {
				response.HandleError(w, err, logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// rateLimit throttles authenticated users. Anonymous requests pass through.
func rateLimit(limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFrom(r.Context())
			if user != nil && !limiter.Allow(user.ID) {
				logger.Warn("Rate limit exceeded",
					"user_id", user.ID,
					"path", r.URL.Path,
				)
				response.TooManyRequests(w, "Too many requests. Please try again later.", logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
