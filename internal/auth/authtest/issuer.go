// Package authtest issues identity tokens for tests, standing in for the
// identity provider.
package authtest

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/listenupapp/bookclub-server/internal/auth"
	"github.com/listenupapp/bookclub-server/internal/id"
)

// Issuer signs HS256 tokens that an auth.TokenService built with the same
// secret, issuer and audience accepts.
type Issuer struct {
	Secret   string
	Issuer   string
	Audience string
}

// Sign issues a token for claims valid for ttl. A negative ttl yields an
// already expired token.
func (i Issuer) Sign(claims auth.IdentityClaims, ttl time.Duration) (string, error) {
	now := time.Now()

	tokenID, err := id.Generate("tok")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}

	claims.ID = tokenID
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if i.Issuer != "" {
		claims.Issuer = i.Issuer
	}
	if i.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.Audience}
	}
	if claims.Subject == "" {
		claims.Subject = claims.Email
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.Secret))
}
