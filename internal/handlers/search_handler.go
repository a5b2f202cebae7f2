package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
)

// SearchService is the interface that wraps methods for catalog search
type SearchService interface {
	// Search ranks the catalog against a free-text query
	//
	// "ctx" is the context for the request.
	// "query" carries the text, filters, sort and pagination parameters.
	//
	// Returns the ranked page with facets and a coded error if any.
	Search(ctx context.Context, query models.SearchQuery) (*models.SearchResponse, error)
	// Suggest returns completion candidates for a prefix
	//
	// "ctx" is the context for the request.
	// "prefix" is the text typed so far.
	// "limit" is the maximum number of suggestions; larger values are capped.
	//
	// Returns the suggestions and a coded error if any.
	Suggest(ctx context.Context, prefix string, limit int) (*models.SuggestionsResponse, error)
}

// SearchHandler handles HTTP requests for catalog search
type SearchHandler struct {
	BaseHandler
	service         SearchService
	suggestionLimit int
}

// NewSearchHandler creates a new search handler. suggestionLimit is used when a
// suggestions request carries no limit.
func NewSearchHandler(svc SearchService, suggestionLimit int, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		BaseHandler:     newBaseHandler(logger),
		service:         svc,
		suggestionLimit: suggestionLimit,
	}
}

// RegisterRoutes registers all search handler routes
func (h *SearchHandler) RegisterRoutes(r chi.Router) {
	r.Route("/search", func(r chi.Router) {
		r.Get("/courses", h.SearchCourses)
		r.Get("/suggestions", h.Suggestions)
	})
}

// SearchCourses handles GET /api/v1/search/courses
// @Summary Search courses
// @Description Rank courses against a free-text query
// @Tags search
// @Produce json
// @Param q query string true "Search text"
// @Param level query string false "Level: beginner, intermediate or advanced"
// @Param category query string false "Category (case-insensitive substring)"
// @Param priceMin query int false "Minimum price in minor units"
// @Param priceMax query int false "Maximum price in minor units"
// @Param rating query number false "Minimum rating"
// @Param sortBy query string false "Sort key: relevance, rating or price, default: relevance"
// @Param sortOrder query string false "Sort order: asc or desc"
// @Param page query int false "Page number, default: 1"
// @Param limit query int false "Items per page, default: 10, max: 50"
// @Success 200 {object} models.SearchResponse
// @Failure 400 {object} apperrors.Response
// @Router /api/v1/search/courses [get]
func (h *SearchHandler) SearchCourses(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r, models.DefaultPageSize)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	priceMin, err := queryInt64(r, "priceMin")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	priceMax, err := queryInt64(r, "priceMax")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rating, err := queryFloat(r, "rating")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	q := r.URL.Query()
	resp, err := h.service.Search(r.Context(), models.SearchQuery{
		Query:     q.Get("q"),
		Level:     q.Get("level"),
		Category:  q.Get("category"),
		PriceMin:  priceMin,
		PriceMax:  priceMax,
		MinRating: rating,
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Suggestions handles GET /api/v1/search/suggestions
// @Summary Search suggestions
// @Description Completion candidates from course titles, instructors, categories and skills
// @Tags search
// @Produce json
// @Param q query string true "Prefix"
// @Param limit query int false "Maximum suggestions, default: 5, capped at 10"
// @Success 200 {object} models.SuggestionsResponse
// @Failure 400 {object} apperrors.Response
// @Router /api/v1/search/suggestions [get]
func (h *SearchHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", h.suggestionLimit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp, err := h.service.Suggest(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}
