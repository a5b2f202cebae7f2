package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/skillcart/backend/internal/models"
)

// DiscountPolicy decides the discount applied to a cart
type DiscountPolicy interface {
	// Discount returns the discount in minor units for the items.
	//
	// "items" are the cart items with their course snapshot.
	// "subtotal" is the sum of price times quantity over items.
	//
	// The result must lie in [0, subtotal].
	Discount(items []models.CartItem, subtotal int64) int64
}

// NoDiscount leaves every cart at its subtotal
type NoDiscount struct{}

// Discount implements DiscountPolicy
func (NoDiscount) Discount([]models.CartItem, int64) int64 { return 0 }

// PercentDiscount takes a fixed percentage off the subtotal, rounded down to a whole minor unit
type PercentDiscount struct {
	rate decimal.Decimal
}

// NewPercentDiscount creates a percentage discount policy. percent must lie in [0, 100].
func NewPercentDiscount(percent int) (*PercentDiscount, error) {
	if percent < 0 || percent > 100 {
		return nil, fmt.Errorf("discount percent must be between 0 and 100, got %d", percent)
	}
	return &PercentDiscount{rate: decimal.NewFromInt(int64(percent)).Div(decimal.NewFromInt(100))}, nil
}

// Discount implements DiscountPolicy
func (p *PercentDiscount) Discount(_ []models.CartItem, subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(p.rate).Floor().IntPart()
}

// NewDiscountPolicy selects the policy for a configured percentage
func NewDiscountPolicy(percent int) (DiscountPolicy, error) {
	if percent == 0 {
		return NoDiscount{}, nil
	}
	return NewPercentDiscount(percent)
}

// summarize derives the cart summary from its items
func summarize(items []models.CartItem, policy DiscountPolicy) models.CartSummary {
	subtotal := decimal.Zero
	totalItems := 0
	for _, item := range items {
		line := decimal.NewFromInt(item.Course.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
		totalItems += item.Quantity
	}

	sub := subtotal.IntPart()
	discount := policy.Discount(items, sub)
	discount = max(0, min(discount, sub))

	return models.CartSummary{
		TotalItems: totalItems,
		ItemCount:  len(items),
		Subtotal:   sub,
		Discount:   discount,
		Total:      sub - discount,
	}
}
