package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
)

// Task types published after enrollment state changes
const (
	TaskEnrollmentCreated = "enrollment:created"
	TaskCourseCompleted   = "course:completed"
)

// EventsQueue is the asynq queue enrollment events are published to
const EventsQueue = "events"

// EnrollmentEvent is the payload of enrollment tasks
type EnrollmentEvent struct {
	EnrollmentID string    `json:"enrollmentId"`
	UserID       string    `json:"userId"`
	CourseID     string    `json:"courseId"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// EventPublisher announces enrollment state changes to other processes
type EventPublisher interface {
	// EnrollmentCreated publishes a new enrollment
	//
	// "ctx" is the context for the request.
	// "enrollment" is the committed enrollment.
	//
	// Returns an error if the event could not be published.
	EnrollmentCreated(ctx context.Context, enrollment models.Enrollment) error
	// CourseCompleted publishes an enrollment that reached 100% progress
	//
	// "ctx" is the context for the request.
	// "enrollment" is the completed enrollment.
	//
	// Returns an error if the event could not be published.
	CourseCompleted(ctx context.Context, enrollment models.Enrollment) error
}

// TaskEnqueuer is the subset of *asynq.Client used to publish events
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type asynqEventPublisher struct {
	client TaskEnqueuer
	logger *zap.Logger
}

// NewAsynqEventPublisher creates a publisher that enqueues events as asynq tasks
func NewAsynqEventPublisher(client TaskEnqueuer, logger *zap.Logger) *asynqEventPublisher {
	return &asynqEventPublisher{
		client: client,
		logger: logger,
	}
}

// EnrollmentCreated implements EventPublisher
func (p *asynqEventPublisher) EnrollmentCreated(ctx context.Context, enrollment models.Enrollment) error {
	return p.publish(ctx, TaskEnrollmentCreated, enrollment, enrollment.EnrolledAt)
}

// CourseCompleted implements EventPublisher
func (p *asynqEventPublisher) CourseCompleted(ctx context.Context, enrollment models.Enrollment) error {
	occurredAt := time.Now().UTC()
	if enrollment.CompletedAt != nil {
		occurredAt = *enrollment.CompletedAt
	}
	return p.publish(ctx, TaskCourseCompleted, enrollment, occurredAt)
}

func (p *asynqEventPublisher) publish(ctx context.Context, taskType string, enrollment models.Enrollment, occurredAt time.Time) error {
	payload, err := json.Marshal(EnrollmentEvent{
		EnrollmentID: enrollment.ID,
		UserID:       enrollment.UserID,
		CourseID:     enrollment.CourseID,
		OccurredAt:   occurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}

	// The task id makes redelivery of the same event a no-op on the queue
	task := asynq.NewTask(taskType, payload)
	info, err := p.client.EnqueueContext(ctx, task,
		asynq.Queue(EventsQueue),
		asynq.TaskID(taskType+":"+enrollment.ID),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", taskType, err)
	}

	p.logger.Debug("event enqueued",
		zap.String("type", taskType),
		zap.String("task_id", info.ID),
		zap.String("enrollment_id", enrollment.ID))
	return nil
}

// NoopEventPublisher drops every event; used when no queue is configured
type NoopEventPublisher struct{}

// EnrollmentCreated implements EventPublisher
func (NoopEventPublisher) EnrollmentCreated(context.Context, models.Enrollment) error { return nil }

// CourseCompleted implements EventPublisher
func (NoopEventPublisher) CourseCompleted(context.Context, models.Enrollment) error { return nil }
