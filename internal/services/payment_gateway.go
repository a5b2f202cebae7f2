package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/skillcart/backend/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// PaymentGateway charges a customer for a cart
type PaymentGateway interface {
	// Charge requests payment of an order
	//
	// "ctx" is the context for the request.
	// "req" describes the order and its amount in minor units.
	//
	// Returns the gateway decision, or an error if the gateway could not be reached.
	Charge(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error)
}

type httpPaymentGateway struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPPaymentGateway creates a gateway that posts charges as JSON to url.
// A 2xx answer carries the decision; 402 is a decline; anything else is a failure.
func NewHTTPPaymentGateway(url string, timeout time.Duration, logger *zap.Logger) *httpPaymentGateway {
	return &httpPaymentGateway{
		url: url,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// Charge implements PaymentGateway
func (g *httpPaymentGateway) Charge(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read payment response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		result := &models.PaymentResult{}
		if err := json.Unmarshal(payload, result); err != nil || result.Reason == "" {
			result.Reason = "payment declined"
		}
		result.Approved = false
		return result, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var result models.PaymentResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("failed to decode payment response: %w", err)
		}
		return &result, nil
	default:
		g.logger.Warn("payment gateway error",
			zap.Int("status", resp.StatusCode),
			zap.String("order_id", req.OrderID))
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}
}

// AutoApproveGateway approves every charge; used when no gateway is configured
type AutoApproveGateway struct{}

// Charge implements PaymentGateway
func (AutoApproveGateway) Charge(_ context.Context, req models.PaymentRequest) (*models.PaymentResult, error) {
	return &models.PaymentResult{
		TransactionID: "auto-" + uuid.NewString(),
		Approved:      true,
	}, nil
}
