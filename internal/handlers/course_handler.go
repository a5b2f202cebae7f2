package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skillcart/backend/internal/middleware"
	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
)

// CatalogService is the interface that wraps methods for catalog reads
type CatalogService interface {
	// ListCourses retrieves a filtered, sorted page of the catalog
	//
	// "ctx" is the context for the request.
	// "query" carries the raw filter, sort and pagination parameters.
	//
	// Returns the page with its pagination and a coded error if any.
	ListCourses(ctx context.Context, query models.CourseListQuery) (*models.CourseListResponse, error)
	// GetCourse retrieves a course with its curriculum
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	// "userID" is the caller, empty for anonymous requests.
	//
	// Returns the course and a coded error if any.
	GetCourse(ctx context.Context, id, userID string) (*models.CourseDetailResponse, error)
	// ListEnrolled retrieves a page of the user's enrolled courses
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	// "status" is "", "in-progress" or "completed".
	// "page" and "limit" select the page.
	//
	// Returns the page with its pagination and a coded error if any.
	ListEnrolled(ctx context.Context, userID, status string, page, limit int) (*models.EnrolledCourseListResponse, error)
}

// EnrollmentService is the interface that wraps the enrollment operation
type EnrollmentService interface {
	// Enroll enrolls the user in the course and removes it from the user's cart
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	// "courseID" is the ID of the course.
	//
	// Returns the new enrollment and a coded error if any.
	Enroll(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
}

// CourseHandler handles HTTP requests for the course catalog and enrollment
type CourseHandler struct {
	BaseHandler
	catalog     CatalogService
	enrollments EnrollmentService
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(catalog CatalogService, enrollments EnrollmentService, logger *zap.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler: newBaseHandler(logger),
		catalog:     catalog,
		enrollments: enrollments,
	}
}

// RegisterRoutes registers all course handler routes.
// requireAuth guards user routes; optionalAuth resolves the caller where it is only informative.
func (h *CourseHandler) RegisterRoutes(r chi.Router, requireAuth, optionalAuth func(http.Handler) http.Handler) {
	r.Route("/courses", func(r chi.Router) {
		r.Get("/", h.ListCourses)
		// Registered before /{id} so that "enrolled" is not taken for an id
		r.With(requireAuth).Get("/enrolled", h.ListEnrolled)
		r.With(optionalAuth).Get("/{id}", h.GetCourse)
		r.With(requireAuth).Post("/{id}/enroll", h.Enroll)
	})
}

// ListCourses handles GET /api/v1/courses
// @Summary List courses
// @Description Get a page of the course catalog
// @Tags courses
// @Produce json
// @Param page query int false "Page number, default: 1"
// @Param limit query int false "Items per page, default: 10, max: 50"
// @Param category query string false "Category (case-insensitive substring)"
// @Param level query string false "Level: beginner, intermediate or advanced"
// @Param minPrice query int false "Minimum price in minor units"
// @Param maxPrice query int false "Maximum price in minor units"
// @Param sortBy query string false "Sort key: newest, rating or price, default: newest"
// @Param sortOrder query string false "Sort order: asc or desc"
// @Success 200 {object} models.CourseListResponse
// @Failure 400 {object} apperrors.Response
// @Failure 500 {object} apperrors.Response
// @Router /api/v1/courses [get]
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r, models.DefaultPageSize)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	minPrice, err := queryInt64(r, "minPrice")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	maxPrice, err := queryInt64(r, "maxPrice")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	q := r.URL.Query()
	resp, err := h.catalog.ListCourses(r.Context(), models.CourseListQuery{
		Category:  q.Get("category"),
		Level:     q.Get("level"),
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
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

// GetCourse handles GET /api/v1/courses/{id}
// @Summary Get course
// @Description Get a course with its curriculum; isEnrolled reflects the caller when a token is sent
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} models.CourseDetailResponse
// @Failure 400 {object} apperrors.Response
// @Failure 404 {object} apperrors.Response
// @Router /api/v1/courses/{id} [get]
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	course, err := h.catalog.GetCourse(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, course)
}

// ListEnrolled handles GET /api/v1/courses/enrolled
// @Summary List enrolled courses
// @Description Get a page of the caller's enrolled courses
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status: in-progress or completed"
// @Param page query int false "Page number, default: 1"
// @Param limit query int false "Items per page, default: 10, max: 50"
// @Success 200 {object} models.EnrolledCourseListResponse
// @Failure 400 {object} apperrors.Response
// @Failure 401 {object} apperrors.Response
// @Router /api/v1/courses/enrolled [get]
func (h *CourseHandler) ListEnrolled(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	page, limit, err := pageParams(r, models.DefaultPageSize)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp, err := h.catalog.ListEnrolled(r.Context(), userID, r.URL.Query().Get("status"), page, limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Enroll handles POST /api/v1/courses/{id}/enroll
// @Summary Enroll in course
// @Description Enroll the caller in a course; the course is removed from the caller's cart
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} models.EnrollResponse
// @Failure 400 {object} apperrors.Response
// @Failure 401 {object} apperrors.Response
// @Failure 404 {object} apperrors.Response
// @Failure 409 {object} apperrors.Response
// @Router /api/v1/courses/{id}/enroll [post]
func (h *CourseHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	enrollment, err := h.enrollments.Enroll(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, models.EnrollResponse{
		Enrollment: *enrollment,
		Message:    "successfully enrolled",
	})
}
