package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/skillcart/backend/internal/database"
	"github.com/skillcart/backend/internal/services"
	"go.uber.org/zap"
)

// CourseCounterRepository defines the interface for the course student counter
type CourseCounterRepository interface {
	// IncrementStudentsCount adds delta to the course's student counter
	//
	// "id" parameter is the ID of the course.
	// "delta" parameter is added to the counter.
	//
	// Returns database.ErrNotFound if the course does not exist.
	IncrementStudentsCount(ctx context.Context, id string, delta int) error
	// RecountStudents recomputes every course's student counter from its enrollments
	//
	// Returns the number of corrected courses.
	RecountStudents(ctx context.Context) (int64, error)
}

// Worker handles enrollment event processing
type Worker struct {
	logger  *zap.Logger
	courses CourseCounterRepository
}

// NewWorker creates a new worker instance
func NewWorker(logger *zap.Logger, courses CourseCounterRepository) *Worker {
	return &Worker{
		logger:  logger,
		courses: courses,
	}
}

// HandleEnrollmentCreated increments the enrolled course's student counter
func (w *Worker) HandleEnrollmentCreated(ctx context.Context, t *asynq.Task) error {
	event, err := decodeEvent(t)
	if err != nil {
		return err
	}

	if err := w.courses.IncrementStudentsCount(ctx, event.CourseID, 1); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// The course was removed after the enrollment; nothing to count
			w.logger.Warn("course of enrollment not found",
				zap.String("enrollment_id", event.EnrollmentID),
				zap.String("course_id", event.CourseID))
			return nil
		}
		return fmt.Errorf("failed to increment students count: %w", err)
	}

	w.logger.Info("enrollment counted",
		zap.String("enrollment_id", event.EnrollmentID),
		zap.String("course_id", event.CourseID))
	return nil
}

// HandleCourseCompleted records a course completion
func (w *Worker) HandleCourseCompleted(ctx context.Context, t *asynq.Task) error {
	event, err := decodeEvent(t)
	if err != nil {
		return err
	}

	w.logger.Info("course completed",
		zap.String("enrollment_id", event.EnrollmentID),
		zap.String("user_id", event.UserID),
		zap.String("course_id", event.CourseID),
		zap.Time("completed_at", event.OccurredAt))
	return nil
}

// RecountStudents repairs student counters that drifted from the enrollments,
// e.g. after a redelivered enrollment:created task
func (w *Worker) RecountStudents(ctx context.Context) error {
	changed, err := w.courses.RecountStudents(ctx)
	if err != nil {
		return fmt.Errorf("failed to recount students: %w", err)
	}
	if changed > 0 {
		w.logger.Warn("student counters corrected", zap.Int64("courses", changed))
	}
	return nil
}

// decodeEvent parses an enrollment event. Malformed payloads are never retried.
func decodeEvent(t *asynq.Task) (*services.EnrollmentEvent, error) {
	var event services.EnrollmentEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if event.CourseID == "" || event.EnrollmentID == "" {
		return nil, fmt.Errorf("incomplete %s payload: %w", t.Type(), asynq.SkipRetry)
	}
	return &event, nil
}
