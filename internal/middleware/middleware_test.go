package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// mockValidator is a mock implementation of TokenValidator
type mockValidator struct {
	users map[string]string
}

func (m mockValidator) ValidateAccessToken(token string) (string, error) {
	if userID, ok := m.users[token]; ok {
		return userID, nil
	}
	return "", errors.New("invalid token")
}

var testValidator = mockValidator{users: map[string]string{"good-token": "user-1"}}

// echoUser answers with the user ID found in the context
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		userID = "anonymous"
	}
	_, _ = w.Write([]byte(userID))
})

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.False(t, resp.Success)
	return resp.Error.Code
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		setupRequest   func(r *http.Request)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "bearer header",
			setupRequest:   func(r *http.Request) { r.Header.Set("Authorization", "Bearer good-token") },
			expectedStatus: http.StatusOK,
			expectedBody:   "user-1",
		},
		{
			name:           "lowercase scheme",
			setupRequest:   func(r *http.Request) { r.Header.Set("Authorization", "bearer good-token") },
			expectedStatus: http.StatusOK,
			expectedBody:   "user-1",
		},
		{
			name: "cookie",
			setupRequest: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "access_token", Value: "good-token"})
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "user-1",
		},
		{
			name:           "missing token",
			setupRequest:   func(r *http.Request) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid token",
			setupRequest:   func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad-token") },
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong scheme",
			setupRequest:   func(r *http.Request) { r.Header.Set("Authorization", "Basic good-token") },
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/cart", nil)
			tt.setupRequest(req)
			w := httptest.NewRecorder()

			AuthMiddleware(testValidator)(echoUser).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.expectedBody, w.Body.String())
				return
			}
			assert.Equal(t, "AUTH_004", errorCode(t, w.Body.Bytes()))
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	handler := OptionalAuthMiddleware(testValidator)(echoUser)

	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{name: "valid token", header: "Bearer good-token", expected: "user-1"},
		{name: "invalid token", header: "Bearer bad-token", expected: "anonymous"},
		{name: "no token", header: "", expected: "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/courses/1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.expected, w.Body.String())
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "req-123", seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	handler := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_001", errorCode(t, w.Body.Bytes()))
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := RequestIDMiddleware(LoggerMiddleware(zap.New(core))(AuthMiddleware(testValidator)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}),
	)))

	req := httptest.NewRequest(http.MethodPost, "/cart/add?x=1", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusCreated), fields["status"])
	assert.Equal(t, "/cart/add", fields["path"])
	assert.Equal(t, "x=1", fields["query"])
	assert.Equal(t, "user-1", fields["user_id"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name              string
		allowed           []string
		origin            string
		method            string
		expectedOrigin    string
		expectedStatus    int
		expectCredentials bool
	}{
		{name: "wildcard", allowed: []string{"*"}, origin: "http://a.com", method: http.MethodGet, expectedOrigin: "*", expectedStatus: http.StatusOK},
		{name: "listed origin", allowed: []string{"http://a.com"}, origin: "http://A.com", method: http.MethodGet, expectedOrigin: "http://A.com", expectedStatus: http.StatusOK, expectCredentials: true},
		{name: "unlisted origin", allowed: []string{"http://a.com"}, origin: "http://b.com", method: http.MethodGet, expectedOrigin: "", expectedStatus: http.StatusOK},
		{name: "preflight", allowed: []string{"*"}, origin: "http://a.com", method: http.MethodOptions, expectedOrigin: "*", expectedStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := CORSMiddleware(tt.allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.expectCredentials, w.Header().Get("Access-Control-Allow-Credentials") == "true")
		})
	}
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	handler := RequestSizeLimitMiddleware(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_001", errorCode(t, w.Body.Bytes()))
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimitMiddleware(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	statuses := []int{}
	for n := 0; n < 3; n++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "RATE_LIMIT_001", errorCode(t, w.Body.Bytes()))
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}
