package models

import (
	"encoding/json"
	"time"
)

// MaxCartQuantity bounds the quantity of a single cart item
const MaxCartQuantity = 1000

// CartCourse is the course snapshot embedded in a cart item
type CartCourse struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Price      int64      `json:"price"`
	Instructor Instructor `json:"instructor"`
	Thumbnail  *string    `json:"thumbnail"`
}

// CartItem is a pending purchase of one course by one user
type CartItem struct {
	ID       string     `json:"id"`
	UserID   string     `json:"-"`
	CourseID string     `json:"courseId"`
	Quantity int        `json:"quantity"`
	AddedAt  time.Time  `json:"addedAt"`
	Course   CartCourse `json:"course"`
}

// CartSummary is derived from the items on every read
type CartSummary struct {
	TotalItems int   `json:"totalItems"`
	ItemCount  int   `json:"itemCount"`
	Subtotal   int64 `json:"subtotal"`
	Discount   int64 `json:"discount"`
	Total      int64 `json:"total"`
}

// Cart is a user's cart with its computed summary
type Cart struct {
	Items   []CartItem  `json:"items"`
	Summary CartSummary `json:"summary"`
}

// AddToCartRequest is the body of POST /cart/add.
// Quantity stays raw so that non-integer values can be rejected rather than coerced.
type AddToCartRequest struct {
	CourseID string          `json:"courseId" validate:"required,uuid"`
	Quantity json.RawMessage `json:"quantity,omitempty" swaggertype:"integer" minimum:"1" maximum:"1000"`
}

// UpdateCartItemRequest is the body of PUT /cart/items/{id}
type UpdateCartItemRequest struct {
	Quantity json.RawMessage `json:"quantity" swaggertype:"integer" minimum:"1" maximum:"1000"`
}
