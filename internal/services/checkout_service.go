package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/skillcart/backend/internal/apperrors"
	"github.com/skillcart/backend/internal/keylock"
	"github.com/skillcart/backend/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CartReader reads a user's cart with its summary
type CartReader interface {
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
}

// Enroller creates enrollments
type Enroller interface {
	Enroll(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
}

type checkoutService struct {
	carts    CartReader
	enroller Enroller
	gateway  PaymentGateway
	currency string
	locks    *keylock.Locker
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	carts CartReader,
	enroller Enroller,
	gateway PaymentGateway,
	currency string,
	locks *keylock.Locker,
	logger *zap.Logger,
) *checkoutService {
	return &checkoutService{
		carts:    carts,
		enroller: enroller,
		gateway:  gateway,
		currency: currency,
		locks:    locks,
		tracer:   otel.Tracer("github.com/skillcart/backend/internal/services"),
		logger:   logger,
	}
}

// Checkout charges the user's cart and enrolls the user in every purchased course.
// Courses that cannot be enrolled after payment are reported as skipped.
// Checkouts of the same user run one at a time, so a cart is charged at most once.
func (s *checkoutService) Checkout(ctx context.Context, userID string) (*models.CheckoutResult, error) {
	ctx, span := s.tracer.Start(ctx, "checkout")
	defer span.End()

	unlock := s.locks.Lock(keylock.CheckoutKey(userID))
	defer unlock()

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cart read failed")
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.CartEmpty()
	}

	orderID := uuid.NewString()
	courseIDs := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		courseIDs = append(courseIDs, item.CourseID)
	}
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.Int64("order.amount", cart.Summary.Total),
		attribute.Int("order.items", len(courseIDs)),
	)

	payment, err := s.charge(ctx, models.PaymentRequest{
		OrderID:        orderID,
		UserID:         userID,
		Amount:         cart.Summary.Total,
		Currency:       s.currency,
		CourseIDs:      courseIDs,
		IdempotencyKey: orderID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.CodeOf(err))
		return nil, err
	}

	result := &models.CheckoutResult{
		OrderID:       orderID,
		TransactionID: payment.TransactionID,
		Amount:        cart.Summary.Total,
		Currency:      s.currency,
		Enrollments:   []models.Enrollment{},
		Skipped:       []models.SkippedItem{},
	}
	for _, courseID := range courseIDs {
		enrollment, err := s.enroller.Enroll(ctx, userID, courseID)
		if err != nil {
			appErr, ok := apperrors.As(err)
			if !ok {
				s.logger.Error("enrollment after payment failed",
					zap.String("order_id", orderID),
					zap.String("course_id", courseID),
					zap.Error(err))
				appErr = apperrors.Internal(err)
			}
			result.Skipped = append(result.Skipped, models.SkippedItem{
				CourseID: courseID,
				Code:     appErr.Code,
				Message:  appErr.Message,
			})
			continue
		}
		result.Enrollments = append(result.Enrollments, *enrollment)
	}

	s.logger.Info("checkout completed",
		zap.String("user_id", userID),
		zap.String("order_id", orderID),
		zap.Int64("amount", result.Amount),
		zap.Int("enrolled", len(result.Enrollments)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func (s *checkoutService) charge(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error) {
	ctx, span := s.tracer.Start(ctx, "payment.charge")
	defer span.End()

	payment, err := s.gateway.Charge(ctx, req)
	if err != nil {
		return nil, apperrors.PaymentFailed(err)
	}
	if !payment.Approved {
		return nil, apperrors.PaymentDeclined(payment.Reason)
	}
	return payment, nil
}
