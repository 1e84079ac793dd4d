package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bookclub-server/internal/auth"
	"github.com/listenupapp/bookclub-server/internal/auth/authtest"
	domainerrors "github.com/listenupapp/bookclub-server/internal/errors"
)

const (
	testSecret   = "!ChangeThisSecret!"
	testIssuer   = "http://localhost:8080/realms/demo"
	testAudience = "api-platform"
)

var provider = authtest.Issuer{Secret: testSecret, Issuer: testIssuer, Audience: testAudience}

func newTestService(t *testing.T) *auth.TokenService {
	t.Helper()
	s, err := auth.NewTokenService(testSecret, testIssuer, testAudience)
	require.NoError(t, err)
	return s
}

func TestNewTokenService_RequiresSecret(t *testing.T) {
	_, err := auth.NewTokenService("", "", "")
	assert.Error(t, err)
}

func TestTokenService_VerifiesProviderToken(t *testing.T) {
	s := newTestService(t)

	raw, err := provider.Sign(auth.IdentityClaims{Email: "john.doe@example.com", GivenName: "John", FamilyName: "Doe"}, time.Hour)
	require.NoError(t, err)

	claims, err := s.Verify("Bearer " + raw)
	require.NoError(t, err)
	assert.Equal(t, "john.doe@example.com", claims.Email)
	assert.Equal(t, map[string]string{
		auth.ClaimEmail:      "john.doe@example.com",
		auth.ClaimGivenName:  "John",
		auth.ClaimFamilyName: "Doe",
	}, claims.Map())
}

func TestTokenService_VerifyFailures(t *testing.T) {
	s := newTestService(t)

	expired, err := provider.Sign(auth.IdentityClaims{Email: "john.doe@example.com"}, -time.Hour)
	require.NoError(t, err)

	forger := authtest.Issuer{Secret: "another-secret", Issuer: testIssuer, Audience: testAudience}
	forged, err := forger.Sign(auth.IdentityClaims{Email: "john.doe@example.com"}, time.Hour)
	require.NoError(t, err)

	wrongAudience := authtest.Issuer{Secret: testSecret, Issuer: testIssuer, Audience: "someone-else"}
	misaddressed, err := wrongAudience.Sign(auth.IdentityClaims{Email: "john.doe@example.com"}, time.Hour)
	require.NoError(t, err)

	noEmail, err := provider.Sign(auth.IdentityClaims{GivenName: "John"}, time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"email": "john.doe@example.com"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		want *domainerrors.Error
	}{
		{"empty", "", domainerrors.ErrUnauthorized},
		{"garbage", "Bearer not-a-token", domainerrors.ErrUnauthorized},
		{"expired", expired, domainerrors.ErrTokenExpired},
		{"wrong signature", forged, domainerrors.ErrUnauthorized},
		{"wrong audience", misaddressed, domainerrors.ErrUnauthorized},
		{"alg none", unsigned, domainerrors.ErrUnauthorized},
		{"no email", noEmail, domainerrors.ErrIdentityUnresolved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Verify(tt.raw)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIdentityClaims_MapOmitsMissing(t *testing.T) {
	c := &auth.IdentityClaims{Email: "john.doe@example.com", GivenName: "John"}
	m := c.Map()

	_, ok := m[auth.ClaimFamilyName]
	assert.False(t, ok)
	assert.Equal(t, "John", m[auth.ClaimGivenName])
}
