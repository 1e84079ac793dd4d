package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainerrors "github.com/listenupapp/bookclub-server/internal/errors"
)

const defaultLeeway = 30 * time.Second

// TokenService verifies HS256 identity tokens issued by the identity provider.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
}

// NewTokenService creates a token service. Issuer and audience are checked
// only when set.
func NewTokenService(secret, issuer, audience string) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	return &TokenService{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		leeway:   defaultLeeway,
	}, nil
}

// Verify parses a raw bearer token and returns its identity claims.
// Expired tokens yield TOKEN_EXPIRED; every other failure yields UNAUTHORIZED.
func (s *TokenService) Verify(raw string) (*IdentityClaims, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return nil, domainerrors.Unauthorized("Full authentication is required to access this resource.")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.leeway),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	var claims IdentityClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainerrors.TokenExpired("token expired").WithCause(err)
		}
		return nil, domainerrors.Unauthorized("invalid token").WithCause(err)
	}

	if claims.Email == "" {
		return nil, domainerrors.IdentityUnresolved("cannot establish identity")
	}
	return &claims, nil
}
