package auth

import (
	"testing"
	"time"

	"payeveryone/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_IssueAndParse(t *testing.T) {
	tokens := NewTokens("secret", time.Hour, "payeveryone")

	signed, issued, err := tokens.Issue("user-1", domain.RoleAdmin)
	require.NoError(t, err)

	claims, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestTokens_Expired(t *testing.T) {
	tokens := NewTokens("secret", time.Minute, "payeveryone")
	signed, _, err := tokens.Issue("user-1", domain.RoleUser)
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, err = tokens.Parse(signed)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTokens_WrongSecret(t *testing.T) {
	signed, _, err := NewTokens("secret", time.Hour, "payeveryone").Issue("user-1", domain.RoleUser)
	require.NoError(t, err)

	_, err = NewTokens("other", time.Hour, "payeveryone").Parse(signed)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTokens_RejectsNoneAlg(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ID:        "jti",
		Issuer:    "payeveryone",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokens("secret", time.Hour, "payeveryone").Parse(unsigned)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
