package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidCallback(t *testing.T) {
	for _, name := range []string{"cb", "_cb1", "$", "jQuery123.handle", "window.app_cb"} {
		assert.True(t, ValidCallback(name), name)
	}
	for _, name := range []string{"", "1cb", "alert(1)", "cb;x", "a b", "cb<script>"} {
		assert.False(t, ValidCallback(name), name)
	}
}

func TestParseDateParam(t *testing.T) {
	got, err := ParseDateParam("", false)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseDateParam("2026-03-01", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *got)

	got, err = ParseDateParam("2026-03-01", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 23, 59, 59, 999999999, time.UTC), *got)

	got, err = ParseDateParam("2026-03-01T10:00:00+02:00", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), *got)

	_, err = ParseDateParam("03/01/2026", false)
	assert.Error(t, err)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := GenerateSessionToken("a.myshopify.com", "key", "secret", time.Minute)
	require.NoError(t, err)

	shop, err := ValidateSessionToken(token, "key", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a.myshopify.com", shop)
}

func TestSessionTokenRejects(t *testing.T) {
	token, err := GenerateSessionToken("a.myshopify.com", "key", "secret", time.Minute)
	require.NoError(t, err)

	_, err = ValidateSessionToken(token, "key", "other-secret")
	assert.Error(t, err)

	_, err = ValidateSessionToken(token, "other-key", "secret")
	assert.Error(t, err)

	expired, err := GenerateSessionToken("a.myshopify.com", "key", "secret", -time.Hour)
	require.NoError(t, err)
	_, err = ValidateSessionToken(expired, "key", "secret")
	assert.Error(t, err)

	_, err = ValidateSessionToken("not-a-jwt", "key", "secret")
	assert.Error(t, err)
}

func TestSessionTokenRequiresDestination(t *testing.T) {
	claims := &SessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{"key"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ValidateSessionToken(token, "key", "secret")
	assert.ErrorIs(t, err, ErrInvalidDestination)
}

func TestSessionTokenIssuerMismatch(t *testing.T) {
	claims := &SessionClaims{
		Dest: "https://a.myshopify.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://b.myshopify.com/admin",
			Audience:  jwt.ClaimStrings{"key"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ValidateSessionToken(token, "key", "secret")
	assert.Error(t, err)
}
