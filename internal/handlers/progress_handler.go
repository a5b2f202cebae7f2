package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
)

// ProgressService is the interface that wraps methods for lesson progress
type ProgressService interface {
	// GetProgress retrieves the user's progress in a course
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	// "courseID" is the ID of the course.
	//
	// Returns the progress and a coded error if any.
	GetProgress(ctx context.Context, userID, courseID string) (*models.CourseProgress, error)
	// UpdateLessonProgress records progress on a lesson
	//
	// "ctx" is the context for the request.
	// "update" identifies the lesson and carries the new state.
	//
	// Returns the stored lesson progress with the course totals and a coded error if any.
	UpdateLessonProgress(ctx context.Context, update models.LessonProgressUpdate) (*models.LessonProgressResult, error)
}

// ProgressHandler handles HTTP requests for lesson progress
type ProgressHandler struct {
	BaseHandler
	service ProgressService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(svc ProgressService, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler: newBaseHandler(logger),
		service:     svc,
	}
}

// RegisterRoutes registers all progress handler routes; every route requires authentication
func (h *ProgressHandler) RegisterRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/courses/{id}/progress", h.GetProgress)
		r.Put("/courses/{id}/lessons/{lessonId}/progress", h.UpdateLessonProgress)
	})
}

// GetProgress handles GET /api/v1/courses/{id}/progress
// @Summary Get course progress
// @Description Get the caller's progress in an enrolled course
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} models.CourseProgress
// @Failure 400 {object} apperrors.Response
// @Failure 401 {object} apperrors.Response
// @Failure 403 {object} apperrors.Response
// @Failure 404 {object} apperrors.Response
// @Router /api/v1/courses/{id}/progress [get]
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	progress, err := h.service.GetProgress(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, progress)
}

// UpdateLessonProgress handles PUT /api/v1/courses/{id}/lessons/{lessonId}/progress
// @Summary Update lesson progress
// @Description Record time spent, watched duration and completion of a lesson
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Param request body models.UpdateLessonProgressRequest true "Progress update"
// @Success 200 {object} models.LessonProgressResult
// @Failure 400 {object} apperrors.Response
// @Failure 401 {object} apperrors.Response
// @Failure 403 {object} apperrors.Response
// @Failure 404 {object} apperrors.Response
// @Router /api/v1/courses/{id}/lessons/{lessonId}/progress [put]
func (h *ProgressHandler) UpdateLessonProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req models.UpdateLessonProgressRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.service.UpdateLessonProgress(r.Context(), models.LessonProgressUpdate{
		UserID:          userID,
		CourseID:        chi.URLParam(r, "id"),
		LessonID:        chi.URLParam(r, "lessonId"),
		Completed:       req.Completed,
		TimeSpent:       req.TimeSpent,
		WatchedDuration: req.WatchedDuration,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}
