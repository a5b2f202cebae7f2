package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/skillcart/backend/internal/apperrors"
)

// RateLimitMiddleware limits each client IP to requestsPerMinute requests.
// Rejected requests get the RATE_LIMIT_001 envelope.
func RateLimitMiddleware(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			_ = apperrors.WriteError(w, apperrors.New(apperrors.CodeRateLimited, "too many requests"))
		}),
	)
}
