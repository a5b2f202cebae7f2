package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
)

// CartService is the interface that wraps methods for cart operations
type CartService interface {
	// GetCart retrieves the user's cart with its summary
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	//
	// Returns the cart and an error if any.
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
	// AddToCart adds a course to the user's cart
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	// "courseID" is the ID of the course.
	// "quantity" is the number of seats, at least 1.
	//
	// Returns the created item and a coded error if any.
	AddToCart(ctx context.Context, userID, courseID string, quantity int) (*models.CartItem, error)
	// UpdateQuantity sets the quantity of a cart item
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	// "itemID" is the ID of the cart item.
	// "quantity" is the new quantity, at least 1.
	//
	// Returns the updated item and a coded error if any.
	UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*models.CartItem, error)
	// RemoveItem removes a cart item
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	// "itemID" is the ID of the cart item.
	//
	// Returns a coded error if any.
	RemoveItem(ctx context.Context, userID, itemID string) error
	// ClearCart removes every item of the user's cart
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	//
	// Returns an error if any.
	ClearCart(ctx context.Context, userID string) error
}

// CheckoutService is the interface that wraps the checkout operation
type CheckoutService interface {
	// Checkout charges the user's cart and enrolls the user in its courses
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	//
	// Returns the order with its enrollments and a coded error if any.
	Checkout(ctx context.Context, userID string) (*models.CheckoutResult, error)
}

// CartHandler handles HTTP requests for the shopping cart
type CartHandler struct {
	BaseHandler
	cart     CartService
	checkout CheckoutService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cart CartService, checkout CheckoutService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		BaseHandler: newBaseHandler(logger),
		cart:        cart,
		checkout:    checkout,
	}
}

// RegisterRoutes registers all cart handler routes; every route requires authentication
func (h *CartHandler) RegisterRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/cart", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", h.GetCart)
		r.Post("/add", h.AddToCart)
		r.Put("/items/{id}", h.UpdateItem)
		r.Delete("/items/{id}", h.RemoveItem)
		r.Delete("/clear", h.ClearCart)
		r.Post("/checkout", h.Checkout)
	})
}

// GetCart handles GET /api/v1/cart
// @Summary Get cart
// @Description Get the caller's cart with its summary
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Cart
// @Failure 401 {object} apperrors.Response
// @Router /api/v1/cart [get]
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	cart, err := h.cart.GetCart(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, cart)
}

// AddToCart handles POST /api/v1/cart/add
// @Summary Add to cart
// @Description Add a course to the caller's cart; quantity defaults to 1
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.AddToCartRequest true "Course to add"
// @Success 201 {object} models.CartItem
// @Failure 400 {object} apperrors.Response
// @Failure 401 {object} apperrors.Response
// @Failure 404 {object} apperrors.Response
// @Failure 409 {object} apperrors.Response
// @Router /api/v1/cart/add [post]
func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req models.AddToCartRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	quantity, err := parseQuantity(req.Quantity, 1, false)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	item, err := h.cart.AddToCart(r.Context(), userID, req.CourseID, quantity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, item)
}

// UpdateItem handles PUT /api/v1/cart/items/{id}
// @Summary Update cart item
// @Description Set the quantity of a cart item
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Cart item ID"
// @Param request body models.UpdateCartItemRequest true "New quantity"
// @Success 200 {object} models.CartItem
// @Failure 400 {object} apperrors.Response
// @Failure 401 {object} apperrors.Response
// @Failure 404 {object} apperrors.Response
// @Router /api/v1/cart/items/{id} [put]
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req models.UpdateCartItemRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	quantity, err := parseQuantity(req.Quantity, 0, true)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	item, err := h.cart.UpdateQuantity(r.Context(), userID, chi.URLParam(r, "id"), quantity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, item)
}

// RemoveItem handles DELETE /api/v1/cart/items/{id}
// @Summary Remove cart item
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param id path string true "Cart item ID"
// @Success 200 {object} messageResponse
// @Failure 400 {object} apperrors.Response
// @Failure 401 {object} apperrors.Response
// @Failure 404 {object} apperrors.Response
// @Router /api/v1/cart/items/{id} [delete]
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.cart.RemoveItem(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, messageResponse{Message: "item removed from cart"})
}

// ClearCart handles DELETE /api/v1/cart/clear
// @Summary Clear cart
// @Description Remove every item of the caller's cart; succeeds on an empty cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} messageResponse
// @Failure 401 {object} apperrors.Response
// @Router /api/v1/cart/clear [delete]
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.cart.ClearCart(r.Context(), userID); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, messageResponse{Message: "cart cleared"})
}

// Checkout handles POST /api/v1/cart/checkout
// @Summary Checkout
// @Description Charge the caller's cart and enroll the caller in its courses
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.CheckoutResult
// @Failure 401 {object} apperrors.Response
// @Failure 402 {object} apperrors.Response
// @Failure 409 {object} apperrors.Response
// @Failure 502 {object} apperrors.Response
// @Router /api/v1/cart/checkout [post]
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	result, err := h.checkout.Checkout(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}
