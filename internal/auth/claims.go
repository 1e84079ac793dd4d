// Package auth verifies bearer tokens issued by the identity provider.
package auth

import "github.com/golang-jwt/jwt/v5"

// Claim names read from identity tokens.
const (
	ClaimEmail      = "email"
	ClaimGivenName  = "given_name"
	ClaimFamilyName = "family_name"
)

// IdentityClaims are the OIDC claims carried by an access token.
type IdentityClaims struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	jwt.RegisteredClaims
}

// Map returns the identity claims by name. Absent claims are omitted so
// callers can tell "missing" from "empty".
func (c *IdentityClaims) Map() map[string]string {
	m := make(map[string]string, 3)
	if c.Email != "" {
		m[ClaimEmail] = c.Email
	}
	if c.GivenName != "" {
		m[ClaimGivenName] = c.GivenName
	}
	if c.FamilyName != "" {
		m[ClaimFamilyName] = c.FamilyName
	}
	return m
}
