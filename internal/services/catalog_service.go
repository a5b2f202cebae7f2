package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skillcart/backend/internal/apperrors"
	"github.com/skillcart/backend/internal/database"
	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CourseRepository defines methods for course data access
type CourseRepository interface {
	// List retrieves a page of courses
	//
	// "ctx" is the context for the request.
	// "filter" narrows the courses by category, level and price.
	// "sort" is the resolved sort key and direction.
	// "page" is the page to retrieve.
	//
	// Returns the courses of the page, the total number of matching courses and an error if any.
	List(ctx context.Context, filter models.CourseFilter, sort models.CourseSort, page models.PageRequest) ([]models.Course, int, error)
	// GetByID retrieves a course with its curriculum
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	//
	// Returns the course, or database.ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*models.Course, error)
	// Exists checks if a course exists
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	//
	// Returns a boolean and an error if any.
	Exists(ctx context.Context, id string) (bool, error)
}

// EnrollmentRepository defines methods for enrollment data access
type EnrollmentRepository interface {
	// Exists checks if the user is enrolled in the course
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	// "courseID" is the ID of the course.
	//
	// Returns a boolean and an error if any.
	Exists(ctx context.Context, userID, courseID string) (bool, error)
	// Get retrieves the enrollment of the user in the course
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	// "courseID" is the ID of the course.
	//
	// Returns the enrollment, or database.ErrNotFound if the user is not enrolled.
	Get(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	// Create inserts an enrollment and removes the matching cart item atomically
	//
	// "ctx" is the context for the request.
	// "enrollment" is the enrollment to create.
	// "capacity" is the maximum number of enrollments of the course, nil for unlimited.
	//
	// Returns database.ErrDuplicate if the user is already enrolled,
	// database.ErrCapacityReached if the course is full and an error if any.
	Create(ctx context.Context, enrollment *models.Enrollment, capacity *int) error
	// AdvanceProgress raises the stored progress of the enrollment
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	// "courseID" is the ID of the course.
	// "progress" is the newly computed progress; lower values than the stored one are ignored.
	// "now" is stamped as completion time the first time progress reaches 100.
	//
	// Returns the updated enrollment and an error if any.
	AdvanceProgress(ctx context.Context, userID, courseID string, progress int, now time.Time) (*models.Enrollment, error)
	// ListByUser retrieves a page of the user's enrolled courses
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	// "status" filters by completion state.
	// "page" is the page to retrieve.
	//
	// Returns the courses of the page, the total number of matching enrollments and an error if any.
	ListByUser(ctx context.Context, userID string, status models.EnrollmentStatus, page models.PageRequest) ([]models.EnrolledCourse, int, error)
}

type catalogService struct {
	courseRepo     CourseRepository
	enrollmentRepo EnrollmentRepository
	logger         *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(courseRepo CourseRepository, enrollmentRepo EnrollmentRepository, logger *zap.Logger) *catalogService {
	return &catalogService{
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		logger:         logger,
	}
}

// ListCourses retrieves a filtered, sorted page of the catalog
func (s *catalogService) ListCourses(ctx context.Context, query models.CourseListQuery) (*models.CourseListResponse, error) {
	page, err := pageRequest(query.Page, query.Limit, models.MaxPageSize)
	if err != nil {
		return nil, err
	}
	sort, err := resolveSort(query.SortBy, query.SortOrder, models.SortNewest,
		models.SortNewest, models.SortRating, models.SortPrice)
	if err != nil {
		return nil, err
	}
	level, err := parseLevel(query.Level)
	if err != nil {
		return nil, err
	}
	if err := validatePriceRange(query.MinPrice, query.MaxPrice); err != nil {
		return nil, err
	}

	filter := models.CourseFilter{
		Category: query.Category,
		Level:    level,
		MinPrice: query.MinPrice,
		MaxPrice: query.MaxPrice,
	}

	courses, total, err := s.courseRepo.List(ctx, filter, sort, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	return &models.CourseListResponse{
		Courses:    courses,
		Pagination: models.NewPagination(page, total),
	}, nil
}

// GetCourse retrieves a course with its curriculum.
// isEnrolled is only looked up when userID is not empty.
func (s *catalogService) GetCourse(ctx context.Context, id, userID string) (*models.CourseDetailResponse, error) {
	if err := validateID("course id", id); err != nil {
		return nil, err
	}

	var (
		course   *models.Course
		enrolled bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		course, err = s.courseRepo.GetByID(gctx, id)
		return err
	})
	if userID != "" {
		g.Go(func() error {
			var err error
			enrolled, err = s.enrollmentRepo.Exists(gctx, userID, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.CourseNotFound()
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	return &models.CourseDetailResponse{
		Course:        *course,
		TotalDuration: course.TotalDuration(),
		IsEnrolled:    enrolled,
	}, nil
}

// ListEnrolled retrieves a page of the user's enrolled courses
func (s *catalogService) ListEnrolled(ctx context.Context, userID, status string, page, limit int) (*models.EnrolledCourseListResponse, error) {
	st, ok := models.ParseEnrollmentStatus(status)
	if !ok {
		return nil, apperrors.Validation(fmt.Sprintf("invalid status: %s", status)).
			WithDetails(map[string]any{"field": "status", "allowed": []models.EnrollmentStatus{
				models.EnrollmentStatusInProgress, models.EnrollmentStatusCompleted,
			}})
	}
	pr, err := pageRequest(page, limit, models.MaxPageSize)
	if err != nil {
		return nil, err
	}

	courses, total, err := s.enrollmentRepo.ListByUser(ctx, userID, st, pr)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrolled courses: %w", err)
	}

	return &models.EnrolledCourseListResponse{
		Courses:    courses,
		Pagination: models.NewPagination(pr, total),
	}, nil
}
