package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signClaims(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestTokenValidator_RoundTrip(t *testing.T) {
	validator := NewTokenValidator(testSecret, "")

	token, err := validator.SignAccessToken("user-42", time.Hour)
	require.NoError(t, err)

	userID, err := validator.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestTokenValidator_Rejects(t *testing.T) {
	validator := NewTokenValidator(testSecret, "")
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "empty", token: ""},
		{
			name:  "wrong secret",
			token: signClaims(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{Subject: "u", ExpiresAt: future}),
		},
		{
			name:  "expired",
			token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "u", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}),
		},
		{
			name:  "no expiry",
			token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "u"}),
		},
		{
			name:  "other algorithm",
			token: signClaims(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.RegisteredClaims{Subject: "u", ExpiresAt: future}),
		},
		{
			name:  "no subject",
			token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{ExpiresAt: future}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, err := validator.ValidateAccessToken(tt.token)
			assert.Error(t, err)
			assert.Empty(t, userID)
		})
	}
}

func TestTokenValidator_Audience(t *testing.T) {
	validator := NewTokenValidator(testSecret, "skillcart")
	other := NewTokenValidator(testSecret, "billing")

	token, err := validator.SignAccessToken("user-1", time.Hour)
	require.NoError(t, err)
	userID, err := validator.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	foreign, err := other.SignAccessToken("user-1", time.Hour)
	require.NoError(t, err)
	_, err = validator.ValidateAccessToken(foreign)
	assert.Error(t, err)
}
