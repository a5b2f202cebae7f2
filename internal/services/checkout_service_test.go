package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/skillcart/backend/internal/apperrors"
	"github.com/skillcart/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockPaymentGateway is a mock implementation of PaymentGateway
type mockPaymentGateway struct {
	mu       sync.Mutex
	result   *models.PaymentResult
	err      error
	delay    time.Duration
	requests []models.PaymentRequest
}

func (m *mockPaymentGateway) Charge(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error) {
	time.Sleep(m.delay)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return m.result, m.err
}

func approved() *mockPaymentGateway {
	return &mockPaymentGateway{result: &models.PaymentResult{TransactionID: "tx-1", Approved: true}}
}

func newTestCheckout(env *testEnv, gateway PaymentGateway) *checkoutService {
	return NewCheckoutService(env.cart, env.enrollment, gateway, "USD", env.locks, zap.NewNop())
}

func TestCheckoutService_Checkout(t *testing.T) {
	first := testCourse("Go Basics", 1000, 1)
	second := testCourse("SQL", 2500, 1)
	env := newTestEnv(first, second)
	gateway := approved()
	ctx := context.Background()

	_, err := env.cart.AddToCart(ctx, testUser, first.ID, 1)
	require.NoError(t, err)
	_, err = env.cart.AddToCart(ctx, testUser, second.ID, 2)
	require.NoError(t, err)

	result, err := newTestCheckout(env, gateway).Checkout(ctx, testUser)
	require.NoError(t, err)

	assert.Equal(t, int64(6000), result.Amount)
	assert.Equal(t, "USD", result.Currency)
	assert.Equal(t, "tx-1", result.TransactionID)
	assert.Len(t, result.Enrollments, 2)
	assert.Empty(t, result.Skipped)

	require.Len(t, gateway.requests, 1)
	req := gateway.requests[0]
	assert.Equal(t, result.OrderID, req.OrderID)
	assert.Equal(t, req.OrderID, req.IdempotencyKey)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, req.CourseIDs)

	assert.True(t, env.store.enrolled(testUser, first.ID))
	assert.True(t, env.store.enrolled(testUser, second.ID))
	cart, err := env.cart.GetCart(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCheckoutService_Checkout_EmptyCart(t *testing.T) {
	env := newTestEnv()
	gateway := approved()

	_, err := newTestCheckout(env, gateway).Checkout(context.Background(), testUser)

	assert.Equal(t, apperrors.CodeCartEmpty, apperrors.CodeOf(err))
	assert.Empty(t, gateway.requests)
}

func TestCheckoutService_Checkout_PaymentFailures(t *testing.T) {
	tests := []struct {
		name         string
		gateway      *mockPaymentGateway
		expectedCode string
	}{
		{
			name:         "declined",
			gateway:      &mockPaymentGateway{result: &models.PaymentResult{Approved: false, Reason: "insufficient funds"}},
			expectedCode: apperrors.CodePaymentDeclined,
		},
		{
			name:         "unreachable",
			gateway:      &mockPaymentGateway{err: errors.New("dial tcp: connection refused")},
			expectedCode: apperrors.CodePaymentFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			course := testCourse("Go Basics", 1000, 1)
			env := newTestEnv(course)
			_, err := env.cart.AddToCart(context.Background(), testUser, course.ID, 1)
			require.NoError(t, err)

			result, err := newTestCheckout(env, tt.gateway).Checkout(context.Background(), testUser)

			assert.Nil(t, result)
			assert.Equal(t, tt.expectedCode, apperrors.CodeOf(err))
			assert.False(t, env.store.enrolled(testUser, course.ID))
			assert.True(t, env.store.inCart(testUser, course.ID))
		})
	}
}

func TestCheckoutService_Checkout_ReportsSkippedCourses(t *testing.T) {
	open := testCourse("Go Basics", 1000, 1)
	full := testCourse("Sold Out", 500, 1)
	zero := 0
	full.MaxStudents = &zero
	env := newTestEnv(open, full)
	ctx := context.Background()

	_, err := env.cart.AddToCart(ctx, testUser, open.ID, 1)
	require.NoError(t, err)
	_, err = env.cart.AddToCart(ctx, testUser, full.ID, 1)
	require.NoError(t, err)

	result, err := newTestCheckout(env, approved()).Checkout(ctx, testUser)
	require.NoError(t, err)

	require.Len(t, result.Enrollments, 1)
	assert.Equal(t, open.ID, result.Enrollments[0].CourseID)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, full.ID, result.Skipped[0].CourseID)
	assert.Equal(t, apperrors.CodeCourseFull, result.Skipped[0].Code)
}

func TestCheckoutService_Checkout_UncodedEnrollFailure(t *testing.T) {
	course := testCourse("Go Basics", 1000, 1)
	env := newTestEnv(course)
	ctx := context.Background()
	_, err := env.cart.AddToCart(ctx, testUser, course.ID, 1)
	require.NoError(t, err)
	env.store.failWith["enrollment.Create"] = errors.New("deadlock found")

	result, err := newTestCheckout(env, approved()).Checkout(ctx, testUser)
	require.NoError(t, err)

	assert.Empty(t, result.Enrollments)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, apperrors.CodeInternal, result.Skipped[0].Code)
}

func TestCheckoutService_Checkout_ConcurrentCheckoutsChargeOnce(t *testing.T) {
	course := testCourse("Go Basics", 299000, 1)
	env := newTestEnv(course)
	gateway := approved()
	gateway.delay = 20 * time.Millisecond
	checkout := newTestCheckout(env, gateway)
	ctx := context.Background()

	_, err := env.cart.AddToCart(ctx, testUser, course.ID, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*models.CheckoutResult, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = checkout.Checkout(ctx, testUser)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i := range results {
		if errs[i] == nil {
			succeeded++
			assert.Len(t, results[i].Enrollments, 1)
			assert.Empty(t, results[i].Skipped)
			continue
		}
		assert.Equal(t, apperrors.CodeCartEmpty, apperrors.CodeOf(errs[i]))
	}
	assert.Equal(t, 1, succeeded)
	require.Len(t, gateway.requests, 1)
	assert.Equal(t, int64(299000), gateway.requests[0].Amount)
	assert.Equal(t, 1, env.store.enrollmentCount())
	assert.Zero(t, env.locks.Len())
}

func TestHTTPPaymentGateway_Charge(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		expected      *models.PaymentResult
		errorContains string
	}{
		{
			name:     "approved",
			status:   http.StatusOK,
			body:     `{"transactionId":"tx-9","approved":true}`,
			expected: &models.PaymentResult{TransactionID: "tx-9", Approved: true},
		},
		{
			name:     "declined with reason",
			status:   http.StatusPaymentRequired,
			body:     `{"reason":"card expired"}`,
			expected: &models.PaymentResult{Approved: false, Reason: "card expired"},
		},
		{
			name:     "declined without body",
			status:   http.StatusPaymentRequired,
			body:     ``,
			expected: &models.PaymentResult{Approved: false, Reason: "payment declined"},
		},
		{
			name:          "server error",
			status:        http.StatusServiceUnavailable,
			errorContains: "status 503",
		},
		{
			name:          "malformed answer",
			status:        http.StatusOK,
			body:          `{"approved":`,
			errorContains: "failed to decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received models.PaymentRequest
			var idempotencyKey string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				idempotencyKey = r.Header.Get("Idempotency-Key")
				_ = json.NewDecoder(r.Body).Decode(&received)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			gateway := NewHTTPPaymentGateway(server.URL, time.Second, zap.NewNop())
			result, err := gateway.Charge(context.Background(), models.PaymentRequest{
				OrderID:        "order-1",
				UserID:         testUser,
				Amount:         4200,
				Currency:       "USD",
				CourseIDs:      []string{"c1"},
				IdempotencyKey: "order-1",
			})

			assert.Equal(t, "order-1", idempotencyKey)
			assert.Equal(t, int64(4200), received.Amount)
			if tt.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAutoApproveGateway(t *testing.T) {
	result, err := AutoApproveGateway{}.Charge(context.Background(), models.PaymentRequest{OrderID: "o"})

	require.NoError(t, err)
	assert.True(t, result.Approved)
	assert.NotEmpty(t, result.TransactionID)
}
