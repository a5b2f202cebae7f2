package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/skillcart/backend/internal/apperrors"
	"github.com/skillcart/backend/internal/database"
	"github.com/skillcart/backend/internal/keylock"
	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
)

// CapacityPolicy decides how many enrollments a course accepts
type CapacityPolicy interface {
	// Capacity returns the maximum number of enrollments of the course
	//
	// "ctx" is the context for the request.
	// "course" is the course being enrolled in.
	//
	// Returns nil for unlimited courses and an error if the policy could not be evaluated.
	Capacity(ctx context.Context, course *models.Course) (*int, error)
}

// CourseCapacityPolicy limits enrollments to the course's configured maximum
type CourseCapacityPolicy struct{}

// Capacity implements CapacityPolicy
func (CourseCapacityPolicy) Capacity(_ context.Context, course *models.Course) (*int, error) {
	return course.MaxStudents, nil
}

type enrollmentService struct {
	courseRepo     CourseRepository
	enrollmentRepo EnrollmentRepository
	capacity       CapacityPolicy
	events         EventPublisher
	locks          *keylock.Locker
	logger         *zap.Logger
	now            func() time.Time
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(
	courseRepo CourseRepository,
	enrollmentRepo EnrollmentRepository,
	capacity CapacityPolicy,
	events EventPublisher,
	locks *keylock.Locker,
	logger *zap.Logger,
) *enrollmentService {
	return &enrollmentService{
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		capacity:       capacity,
		events:         events,
		locks:          locks,
		logger:         logger,
		now:            time.Now,
	}
}

// Enroll creates the user's enrollment in the course and removes the course from the
// user's cart. It is the single entry point used by direct enrollment and checkout.
func (s *enrollmentService) Enroll(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	if err := validateID("course id", courseID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(keylock.UserCourseKey(userID, courseID))
	defer unlock()

	course, err := s.courseRepo.GetByID(ctx, courseID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.CourseNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	enrolled, err := s.enrollmentRepo.Exists(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		return nil, apperrors.AlreadyEnrolled()
	}

	capacity, err := s.capacity.Capacity(ctx, course)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate capacity: %w", err)
	}

	enrollment := &models.Enrollment{
		ID:         uuid.NewString(),
		UserID:     userID,
		CourseID:   courseID,
		Progress:   0,
		EnrolledAt: s.now().UTC(),
	}
	if err := s.enrollmentRepo.Create(ctx, enrollment, capacity); err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicate):
			return nil, apperrors.AlreadyEnrolled()
		case errors.Is(err, database.ErrCapacityReached):
			return nil, apperrors.CourseFull()
		case errors.Is(err, database.ErrNotFound):
			return nil, apperrors.CourseNotFound()
		}
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	s.logger.Info("user enrolled",
		zap.String("user_id", userID),
		zap.String("course_id", courseID),
		zap.String("enrollment_id", enrollment.ID))

	if err := s.events.EnrollmentCreated(ctx, *enrollment); err != nil {
		s.logger.Warn("failed to publish enrollment event", zap.String("enrollment_id", enrollment.ID), zap.Error(err))
	}

	return enrollment, nil
}
