package services

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/skillcart/backend/internal/apperrors"
	"github.com/skillcart/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateID(t *testing.T) {
	assert.NoError(t, validateID("course id", uuid.NewString()))

	err := validateID("course id", "123")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidID, appErr.Code)
	assert.Equal(t, map[string]string{"field": "course id"}, appErr.Details)
}

func TestPageRequest(t *testing.T) {
	page, err := pageRequest(3, 20, models.MaxPageSize)
	require.NoError(t, err)
	assert.Equal(t, models.PageRequest{Page: 3, Limit: 20}, page)
	assert.Equal(t, 40, page.Offset())

	page, err = pageRequest(1, 1000, models.MaxPageSize)
	require.NoError(t, err)
	assert.Equal(t, models.MaxPageSize, page.Limit)

	_, err = pageRequest(0, 10, models.MaxPageSize)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	_, err = pageRequest(1, 0, models.MaxPageSize)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	_, err = pageRequest(math.MaxInt64, 10, models.MaxPageSize)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	page, err = pageRequest(math.MaxInt/models.MaxPageSize+1, models.MaxPageSize, models.MaxPageSize)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, page.Offset(), 0)
}

func TestResolveSort(t *testing.T) {
	tests := []struct {
		name      string
		sortBy    string
		sortOrder string
		expected  models.CourseSort
		wantErr   bool
	}{
		{name: "default key", expected: models.CourseSort{By: models.SortNewest, Order: models.SortDesc}},
		{name: "price defaults ascending", sortBy: "price", expected: models.CourseSort{By: models.SortPrice, Order: models.SortAsc}},
		{name: "explicit order", sortBy: "RATING", sortOrder: "ASC", expected: models.CourseSort{By: models.SortRating, Order: models.SortAsc}},
		{name: "disallowed key", sortBy: "relevance", wantErr: true},
		{name: "bad order", sortBy: "price", sortOrder: "sideways", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sort, err := resolveSort(tt.sortBy, tt.sortOrder, models.SortNewest,
				models.SortNewest, models.SortRating, models.SortPrice)
			if tt.wantErr {
				assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sort)
		})
	}
}

func TestValidatePriceRange(t *testing.T) {
	assert.NoError(t, validatePriceRange(nil, nil))
	assert.NoError(t, validatePriceRange(int64Ptr(0), int64Ptr(0)))
	assert.Error(t, validatePriceRange(int64Ptr(-5), nil))
	assert.Error(t, validatePriceRange(nil, int64Ptr(-5)))
	assert.Error(t, validatePriceRange(int64Ptr(10), int64Ptr(9)))
}
