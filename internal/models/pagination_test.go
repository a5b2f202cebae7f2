package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name     string
		page     PageRequest
		total    int
		expected Pagination
	}{
		{
			name:     "empty listing",
			page:     PageRequest{Page: 1, Limit: 10},
			total:    0,
			expected: Pagination{CurrentPage: 1, TotalPages: 0, TotalItems: 0, ItemsPerPage: 10},
		},
		{
			name:     "first of many",
			page:     PageRequest{Page: 1, Limit: 10},
			total:    25,
			expected: Pagination{CurrentPage: 1, TotalPages: 3, TotalItems: 25, ItemsPerPage: 10, HasNext: true},
		},
		{
			name:     "middle page",
			page:     PageRequest{Page: 2, Limit: 10},
			total:    25,
			expected: Pagination{CurrentPage: 2, TotalPages: 3, TotalItems: 25, ItemsPerPage: 10, HasNext: true, HasPrev: true},
		},
		{
			name:     "exact multiple",
			page:     PageRequest{Page: 2, Limit: 5},
			total:    10,
			expected: Pagination{CurrentPage: 2, TotalPages: 2, TotalItems: 10, ItemsPerPage: 5, HasPrev: true},
		},
		{
			name:     "past the end",
			page:     PageRequest{Page: 9, Limit: 10},
			total:    15,
			expected: Pagination{CurrentPage: 9, TotalPages: 2, TotalItems: 15, ItemsPerPage: 10, HasPrev: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewPagination(tt.page, tt.total))
		})
	}
}

func TestNewPagination_Consistency(t *testing.T) {
	for total := 0; total <= 30; total++ {
		for limit := 1; limit <= 7; limit++ {
			for page := 1; page <= 8; page++ {
				p := NewPagination(PageRequest{Page: page, Limit: limit}, total)
				assert.Equal(t, p.CurrentPage < p.TotalPages, p.HasNext)
				assert.Equal(t, p.CurrentPage > 1, p.HasPrev)
				assert.GreaterOrEqual(t, p.TotalPages*limit, total)
				assert.Less(t, (p.TotalPages-1)*limit, max(total, 1))
			}
		}
	}
}

func TestPageRequest_Offset(t *testing.T) {
	assert.Equal(t, 0, PageRequest{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 20, PageRequest{Page: 3, Limit: 10}.Offset())
}
