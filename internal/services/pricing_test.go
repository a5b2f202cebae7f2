package services

import (
	"testing"

	"github.com/skillcart/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartItem(price int64, quantity int) models.CartItem {
	return models.CartItem{Quantity: quantity, Course: models.CartCourse{Price: price}}
}

// overDiscount returns more than the subtotal
type overDiscount struct{}

func (overDiscount) Discount(_ []models.CartItem, subtotal int64) int64 { return subtotal + 100 }

func TestSummarize(t *testing.T) {
	tenPercent, err := NewPercentDiscount(10)
	require.NoError(t, err)

	tests := []struct {
		name     string
		items    []models.CartItem
		policy   DiscountPolicy
		expected models.CartSummary
	}{
		{
			name:     "empty cart",
			items:    nil,
			policy:   NoDiscount{},
			expected: models.CartSummary{},
		},
		{
			name:     "quantities multiply prices",
			items:    []models.CartItem{cartItem(299000, 1), cartItem(1999, 3)},
			policy:   NoDiscount{},
			expected: models.CartSummary{TotalItems: 4, ItemCount: 2, Subtotal: 304997, Total: 304997},
		},
		{
			name:     "percent discount rounds down",
			items:    []models.CartItem{cartItem(999, 1)},
			policy:   tenPercent,
			expected: models.CartSummary{TotalItems: 1, ItemCount: 1, Subtotal: 999, Discount: 99, Total: 900},
		},
		{
			name:     "discount clamped to subtotal",
			items:    []models.CartItem{cartItem(500, 2)},
			policy:   overDiscount{},
			expected: models.CartSummary{TotalItems: 2, ItemCount: 1, Subtotal: 1000, Discount: 1000, Total: 0},
		},
		{
			name:     "free course",
			items:    []models.CartItem{cartItem(0, 1)},
			policy:   tenPercent,
			expected: models.CartSummary{TotalItems: 1, ItemCount: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, summarize(tt.items, tt.policy))
		})
	}
}

func TestNewDiscountPolicy(t *testing.T) {
	policy, err := NewDiscountPolicy(0)
	require.NoError(t, err)
	assert.IsType(t, NoDiscount{}, policy)

	policy, err = NewDiscountPolicy(100)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), policy.Discount(nil, 1234))

	_, err = NewDiscountPolicy(101)
	assert.Error(t, err)

	_, err = NewPercentDiscount(-1)
	assert.Error(t, err)
}
