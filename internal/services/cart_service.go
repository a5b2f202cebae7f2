package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/skillcart/backend/internal/apperrors"
	"github.com/skillcart/backend/internal/database"
	"github.com/skillcart/backend/internal/keylock"
	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
)

// CartRepository defines methods for cart data access
type CartRepository interface {
	// ListByUser retrieves the user's cart items with their course snapshot
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	//
	// Returns the items in insertion order and an error if any.
	ListByUser(ctx context.Context, userID string) ([]models.CartItem, error)
	// GetByID retrieves a cart item owned by the user
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	// "itemID" is the ID of the cart item.
	//
	// Returns the item, or database.ErrNotFound for unknown or foreign items.
	GetByID(ctx context.Context, userID, itemID string) (*models.CartItem, error)
	// Insert adds an item unless the user owns the course
	//
	// "ctx" is the context for the request.
	// "item" is the item to insert.
	//
	// Returns database.ErrDuplicate if the course is already in the cart,
	// database.ErrConflict if the user is enrolled in the course and an error if any.
	Insert(ctx context.Context, item *models.CartItem) error
	// UpdateQuantity sets the quantity of a cart item
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	// "itemID" is the ID of the cart item.
	// "quantity" is the new quantity.
	//
	// Returns an error if any.
	UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error
	// Delete removes a cart item
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	// "itemID" is the ID of the cart item.
	//
	// Returns database.ErrNotFound if nothing was removed.
	Delete(ctx context.Context, userID, itemID string) error
	// Clear removes every item of the user's cart
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	//
	// Returns the number of removed items and an error if any.
	Clear(ctx context.Context, userID string) (int64, error)
}

type cartService struct {
	cartRepo       CartRepository
	courseRepo     CourseRepository
	enrollmentRepo EnrollmentRepository
	locks          *keylock.Locker
	discount       DiscountPolicy
	logger         *zap.Logger
	now            func() time.Time
}

// NewCartService creates a new cart service.
// locks must be shared with the enrollment service so that adding and enrolling
// the same course are serialized.
func NewCartService(
	cartRepo CartRepository,
	courseRepo CourseRepository,
	enrollmentRepo EnrollmentRepository,
	locks *keylock.Locker,
	discount DiscountPolicy,
	logger *zap.Logger,
) *cartService {
	return &cartService{
		cartRepo:       cartRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		locks:          locks,
		discount:       discount,
		logger:         logger,
		now:            time.Now,
	}
}

// GetCart retrieves the user's cart with a summary computed from its items
func (s *cartService) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if items == nil {
		items = []models.CartItem{}
	}

	return &models.Cart{
		Items:   items,
		Summary: summarize(items, s.discount),
	}, nil
}

// AddToCart adds a course to the user's cart
func (s *cartService) AddToCart(ctx context.Context, userID, courseID string, quantity int) (*models.CartItem, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return nil, apperrors.Validation("courseId must be a valid UUID").
			WithDetails(map[string]string{"field": "courseId"})
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(keylock.UserCourseKey(userID, courseID))
	defer unlock()

	exists, err := s.courseRepo.Exists(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check course: %w", err)
	}
	if !exists {
		return nil, apperrors.CourseNotFound()
	}

	enrolled, err := s.enrollmentRepo.Exists(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		return nil, apperrors.AlreadyEnrolled()
	}

	item := &models.CartItem{
		ID:       uuid.NewString(),
		UserID:   userID,
		CourseID: courseID,
		Quantity: quantity,
		AddedAt:  s.now().UTC(),
	}
	if err := s.cartRepo.Insert(ctx, item); err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicate):
			return nil, apperrors.AlreadyInCart()
		case errors.Is(err, database.ErrConflict):
			return nil, apperrors.AlreadyEnrolled()
		}
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}

	created, err := s.cartRepo.GetByID(ctx, userID, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart item: %w", err)
	}

	s.logger.Info("course added to cart",
		zap.String("user_id", userID),
		zap.String("course_id", courseID),
		zap.String("item_id", item.ID))
	return created, nil
}

// UpdateQuantity sets the quantity of a cart item owned by the user.
// The write holds the item's (user, course) key and the item is read back afterwards,
// so an item removed concurrently is reported as missing.
func (s *cartService) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*models.CartItem, error) {
	if err := validateID("cart item id", itemID); err != nil {
		return nil, err
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	item, err := s.cartRepo.GetByID(ctx, userID, itemID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.CartItemNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}

	unlock := s.locks.Lock(keylock.UserCourseKey(userID, item.CourseID))
	defer unlock()

	if err := s.cartRepo.UpdateQuantity(ctx, userID, itemID, quantity); err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	updated, err := s.cartRepo.GetByID(ctx, userID, itemID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.CartItemNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart item: %w", err)
	}
	return updated, nil
}

// RemoveItem removes a cart item owned by the user
func (s *cartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	if err := validateID("cart item id", itemID); err != nil {
		return err
	}

	item, err := s.cartRepo.GetByID(ctx, userID, itemID)
	if errors.Is(err, database.ErrNotFound) {
		return apperrors.CartItemNotFound()
	}
	if err != nil {
		return fmt.Errorf("failed to get cart item: %w", err)
	}

	unlock := s.locks.Lock(keylock.UserCourseKey(userID, item.CourseID))
	defer unlock()

	if err := s.cartRepo.Delete(ctx, userID, itemID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return apperrors.CartItemNotFound()
		}
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// ClearCart removes every item of the user's cart; an empty cart is not an error
func (s *cartService) ClearCart(ctx context.Context, userID string) error {
	removed, err := s.cartRepo.Clear(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	s.logger.Debug("cart cleared", zap.String("user_id", userID), zap.Int64("removed", removed))
	return nil
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return apperrors.Validation("quantity must be a positive integer").
			WithDetails(map[string]string{"field": "quantity"})
	}
	if quantity > models.MaxCartQuantity {
		return apperrors.Validation(fmt.Sprintf("quantity must not exceed %d", models.MaxCartQuantity)).
			WithDetails(map[string]string{"field": "quantity"})
	}
	return nil
}
