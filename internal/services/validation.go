package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/skillcart/backend/internal/apperrors"
	"github.com/skillcart/backend/internal/models"
)

// validateID checks that a path identifier is a UUID
func validateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.InvalidID(field)
	}
	return nil
}

// pageRequest validates page and limit, capping limit at maxLimit.
// Pages whose offset does not fit an int are rejected.
func pageRequest(page, limit, maxLimit int) (models.PageRequest, error) {
	if page < 1 {
		return models.PageRequest{}, apperrors.Validation("page must be a positive integer").
			WithDetails(map[string]string{"field": "page"})
	}
	if limit < 1 {
		return models.PageRequest{}, apperrors.Validation("limit must be a positive integer").
			WithDetails(map[string]string{"field": "limit"})
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page-1 > math.MaxInt/limit {
		return models.PageRequest{}, apperrors.Validation("page is out of range").
			WithDetails(map[string]string{"field": "page"})
	}
	return models.PageRequest{Page: page, Limit: limit}, nil
}

// resolveSort validates a sort key against the allowed keys and applies the
// key's default direction when no order is given
func resolveSort(sortBy, sortOrder string, def models.SortKey, allowed ...models.SortKey) (models.CourseSort, error) {
	key := def
	if sortBy != "" {
		key = models.SortKey(strings.ToLower(sortBy))
		found := false
		for _, k := range allowed {
			if k == key {
				found = true
				break
			}
		}
		if !found {
			return models.CourseSort{}, apperrors.Validation(fmt.Sprintf("invalid sortBy: %s", sortBy)).
				WithDetails(map[string]any{"field": "sortBy", "allowed": allowed})
		}
	}

	order := key.DefaultOrder()
	switch strings.ToLower(sortOrder) {
	case "":
	case string(models.SortAsc):
		order = models.SortAsc
	case string(models.SortDesc):
		order = models.SortDesc
	default:
		return models.CourseSort{}, apperrors.Validation(fmt.Sprintf("invalid sortOrder: %s", sortOrder)).
			WithDetails(map[string]string{"field": "sortOrder"})
	}

	return models.CourseSort{By: key, Order: order}, nil
}

// parseLevel validates an optional level filter
func parseLevel(raw string) (models.Level, error) {
	if raw == "" {
		return "", nil
	}
	level, ok := models.ParseLevel(raw)
	if !ok {
		return "", apperrors.Validation(fmt.Sprintf("invalid level: %s", raw)).
			WithDetails(map[string]any{"field": "level", "allowed": models.Levels})
	}
	return level, nil
}

// validatePriceRange checks that price bounds are non-negative and ordered
func validatePriceRange(minPrice, maxPrice *int64) error {
	if minPrice != nil && *minPrice < 0 {
		return apperrors.Validation("minimum price must not be negative")
	}
	if maxPrice != nil && *maxPrice < 0 {
		return apperrors.Validation("maximum price must not be negative")
	}
	if minPrice != nil && maxPrice != nil && *minPrice > *maxPrice {
		return apperrors.Validation("minimum price must not exceed maximum price")
	}
	return nil
}
