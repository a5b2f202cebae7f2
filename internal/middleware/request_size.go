package middleware

import (
	"net/http"

	"github.com/skillcart/backend/internal/apperrors"
)

// DefaultMaxRequestSize bounds request bodies; every API body is a small JSON document
const DefaultMaxRequestSize = 1 << 20 // 1MB

// RequestSizeLimitMiddleware limits the size of request bodies.
// Oversized bodies announced by Content-Length are rejected up front; bodies without a
// length fail while the handler decodes them.
func RequestSizeLimitMiddleware(maxRequestSize int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxRequestSize {
				_ = apperrors.WriteError(w, apperrors.Validation("request body too large").
					WithDetails(map[string]int64{"maxBytes": maxRequestSize}))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
			next.ServeHTTP(w, r)
		})
	}
}
