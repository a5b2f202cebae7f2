// Package auth validates access tokens issued by the external identity provider
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingSubject is returned for tokens without a user
var ErrMissingSubject = errors.New("token has no subject")

// TokenValidator validates HS256 access tokens and extracts the user they were issued for
type TokenValidator struct {
	secret   []byte
	audience string
}

// NewTokenValidator creates a validator. An empty audience disables the audience check.
func NewTokenValidator(secret, audience string) *TokenValidator {
	return &TokenValidator{
		secret:   []byte(secret),
		audience: audience,
	}
}

// ValidateAccessToken validates a token and returns its subject as the user ID
func (v *TokenValidator) ValidateAccessToken(tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("token is invalid")
	}

	if claims.Subject == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}

// SignAccessToken issues a token for userID that this validator accepts.
// The API never issues tokens itself; this is used by tests and local tooling.
func (v *TokenValidator) SignAccessToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}
