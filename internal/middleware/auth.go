package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/skillcart/backend/internal/apperrors"
)

// TokenValidator validates an access token and returns the user it was issued for
type TokenValidator interface {
	ValidateAccessToken(token string) (string, error)
}

// userSlot lets the request logger see the user authenticated further down the chain
type userSlot struct {
	id string
}

const userSlotKey contextKey = "userSlot"

func withUserSlot(ctx context.Context, slot *userSlot) context.Context {
	return context.WithValue(ctx, userSlotKey, slot)
}

// AuthMiddleware requires a valid access token and stores its user ID in the context.
// Missing and invalid tokens are both answered with 401 AUTH_004.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				_ = apperrors.WriteError(w, apperrors.AuthRequired("authentication required"))
				return
			}

			userID, err := validator.ValidateAccessToken(token)
			if err != nil {
				_ = apperrors.WriteError(w, apperrors.AuthRequired("invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuthMiddleware stores the user ID of a valid access token in the context and
// lets requests without a valid token through anonymously
func OptionalAuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := extractToken(r); token != "" {
				if userID, err := validator.ValidateAccessToken(token); err == nil {
					r = r.WithContext(withUserID(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken reads the token from the Authorization header, falling back to the
// access_token cookie
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

func withUserID(ctx context.Context, userID string) context.Context {
	if slot, ok := ctx.Value(userSlotKey).(*userSlot); ok {
		slot.id = userID
	}
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID retrieves the authenticated user ID from context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}
