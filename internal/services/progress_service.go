package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skillcart/backend/internal/apperrors"
	"github.com/skillcart/backend/internal/database"
	"github.com/skillcart/backend/internal/keylock"
	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
)

// ProgressRepository defines methods for lesson progress data access
type ProgressRepository interface {
	// ListByEnrollment retrieves the user's lesson progress for a course
	//
	// "ctx" is the context for the request.
	// "userID" is the ID of the user.
	// "courseID" is the ID of the course.
	//
	// Returns the progress rows in curriculum order and an error if any.
	ListByEnrollment(ctx context.Context, userID, courseID string) ([]models.LessonProgress, error)
	// Save records a lesson progress update
	//
	// "ctx" is the context for the request.
	// "update" is the validated update.
	// "now" is the time of the update.
	//
	// Returns the stored lesson progress, the number of completed lessons of the course
	// and an error if any.
	Save(ctx context.Context, update models.LessonProgressUpdate, now time.Time) (*models.LessonProgress, int, error)
}

type progressService struct {
	courseRepo     CourseRepository
	enrollmentRepo EnrollmentRepository
	progressRepo   ProgressRepository
	events         EventPublisher
	locks          *keylock.Locker
	logger         *zap.Logger
	now            func() time.Time
}

// NewProgressService creates a new progress service
func NewProgressService(
	courseRepo CourseRepository,
	enrollmentRepo EnrollmentRepository,
	progressRepo ProgressRepository,
	events EventPublisher,
	locks *keylock.Locker,
	logger *zap.Logger,
) *progressService {
	return &progressService{
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		progressRepo:   progressRepo,
		events:         events,
		locks:          locks,
		logger:         logger,
		now:            time.Now,
	}
}

// overallProgress is floor(100 * completed / total), bounded to [0, 100].
// A course without lessons has no progress.
func overallProgress(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	return min(completed*100/total, 100)
}

// GetProgress retrieves the user's progress in a course
func (s *progressService) GetProgress(ctx context.Context, userID, courseID string) (*models.CourseProgress, error) {
	course, enrollment, err := s.loadEnrollment(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	lessons, err := s.progressRepo.ListByEnrollment(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson progress: %w", err)
	}

	completed := []string{}
	for _, lp := range lessons {
		if lp.Completed && course.HasLesson(lp.LessonID) {
			completed = append(completed, lp.LessonID)
		}
	}
	total := len(course.LessonIDs())

	// The stored value is a high-water mark; the fresh ratio only raises it
	progress := max(enrollment.Progress, overallProgress(len(completed), total))

	return &models.CourseProgress{
		CourseID:         courseID,
		OverallProgress:  progress,
		CompletedLessons: completed,
		TotalLessons:     total,
		CompletedAt:      enrollment.CompletedAt,
		Lessons:          lessons,
	}, nil
}

// UpdateLessonProgress records progress on a lesson and recomputes the overall progress.
// Completing a lesson is idempotent and a lesson is never marked incomplete again.
func (s *progressService) UpdateLessonProgress(ctx context.Context, update models.LessonProgressUpdate) (*models.LessonProgressResult, error) {
	if err := validateID("lesson id", update.LessonID); err != nil {
		return nil, err
	}
	if update.TimeSpent < 0 {
		return nil, apperrors.Validation("timeSpent must not be negative").
			WithDetails(map[string]string{"field": "timeSpent"})
	}
	if update.WatchedDuration < 0 {
		return nil, apperrors.Validation("watchedDuration must not be negative").
			WithDetails(map[string]string{"field": "watchedDuration"})
	}

	unlock := s.locks.Lock(keylock.UserCourseKey(update.UserID, update.CourseID))
	defer unlock()

	course, before, err := s.loadEnrollment(ctx, update.UserID, update.CourseID)
	if err != nil {
		return nil, err
	}
	if !course.HasLesson(update.LessonID) {
		return nil, apperrors.LessonNotFound()
	}

	now := s.now().UTC()
	saved, completed, err := s.progressRepo.Save(ctx, update, now)
	if err != nil {
		return nil, fmt.Errorf("failed to save lesson progress: %w", err)
	}

	progress := overallProgress(completed, len(course.LessonIDs()))
	after, err := s.enrollmentRepo.AdvanceProgress(ctx, update.UserID, update.CourseID, progress, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update enrollment progress: %w", err)
	}

	if before.CompletedAt == nil && after.CompletedAt != nil {
		s.logger.Info("course completed",
			zap.String("user_id", update.UserID),
			zap.String("course_id", update.CourseID))
		if err := s.events.CourseCompleted(ctx, *after); err != nil {
			s.logger.Warn("failed to publish completion event", zap.String("enrollment_id", after.ID), zap.Error(err))
		}
	}

	return &models.LessonProgressResult{
		LessonProgress:  *saved,
		OverallProgress: after.Progress,
		CompletedAt:     after.CompletedAt,
	}, nil
}

// loadEnrollment resolves the course and the caller's enrollment in it
func (s *progressService) loadEnrollment(ctx context.Context, userID, courseID string) (*models.Course, *models.Enrollment, error) {
	if err := validateID("course id", courseID); err != nil {
		return nil, nil, err
	}

	course, err := s.courseRepo.GetByID(ctx, courseID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil, apperrors.CourseNotFound()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get course: %w", err)
	}

	enrollment, err := s.enrollmentRepo.Get(ctx, userID, courseID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil, apperrors.NotEnrolled()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	return course, enrollment, nil
}
