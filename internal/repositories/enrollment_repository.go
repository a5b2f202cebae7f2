package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/skillcart/backend/internal/database"
	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
)

type enrollmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEnrollmentRepository creates a new enrollment repository
func NewEnrollmentRepository(db *sql.DB, logger *zap.Logger) *enrollmentRepository {
	return &enrollmentRepository{
		db:     db,
		logger: logger,
	}
}

// Exists reports whether the user is enrolled in the course
func (r *enrollmentRepository) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM enrollments WHERE user_id = ? AND course_id = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, courseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check enrollment existence: %w", err)
	}
	return exists, nil
}

// Get retrieves the enrollment of the user in the course.
// Returns database.ErrNotFound when the user is not enrolled.
func (r *enrollmentRepository) Get(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	query := `
		SELECT id, user_id, course_id, progress, enrolled_at, completed_at
		FROM enrollments
		WHERE user_id = ? AND course_id = ?
		LIMIT 1
	`

	enrollment, err := scanEnrollment(r.db.QueryRowContext(ctx, query, userID, courseID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return enrollment, nil
}

// Create inserts the enrollment and removes the matching cart item in one transaction.
// When capacity is set the course row is locked and the insert is rejected with
// database.ErrCapacityReached once capacity enrollments exist. A second enrollment of
// the same user in the same course fails with database.ErrDuplicate.
func (r *enrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment, capacity *int) error {
	err := database.WithTransaction(ctx, r.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if capacity != nil {
			if err := checkCapacity(ctx, tx, enrollment.CourseID, *capacity); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO enrollments (id, user_id, course_id, progress, enrolled_at)
			VALUES (?, ?, ?, ?, ?)
		`, enrollment.ID, enrollment.UserID, enrollment.CourseID, enrollment.Progress, enrollment.EnrolledAt)
		if err != nil {
			if database.IsDuplicate(err) {
				return database.ErrDuplicate
			}
			return fmt.Errorf("failed to insert enrollment: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE user_id = ? AND course_id = ?`,
			enrollment.UserID, enrollment.CourseID,
		); err != nil {
			return fmt.Errorf("failed to remove cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, database.ErrDuplicate) && !errors.Is(err, database.ErrCapacityReached) && !errors.Is(err, database.ErrNotFound) {
			r.logger.Error("failed to create enrollment",
				zap.String("user_id", enrollment.UserID),
				zap.String("course_id", enrollment.CourseID),
				zap.Error(err))
		}
		return err
	}
	return nil
}

// checkCapacity locks the course row and counts its enrollments
func checkCapacity(ctx context.Context, tx *sql.Tx, courseID string, capacity int) error {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM courses WHERE id = ? FOR UPDATE`, courseID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return database.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock course: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM enrollments WHERE course_id = ?`, courseID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count enrollments: %w", err)
	}
	if count >= capacity {
		return database.ErrCapacityReached
	}
	return nil
}

// AdvanceProgress raises the stored progress to at least progress and stamps
// completed_at the first time progress reaches 100. The stored value never decreases.
// Returns database.ErrNotFound when the user is not enrolled.
func (r *enrollmentRepository) AdvanceProgress(ctx context.Context, userID, courseID string, progress int, now time.Time) (*models.Enrollment, error) {
	// MySQL evaluates single-table assignments left to right, so completed_at sees the new progress
	query := `
		UPDATE enrollments
		SET progress = GREATEST(progress, ?),
			completed_at = CASE WHEN progress >= 100 THEN COALESCE(completed_at, ?) ELSE completed_at END
		WHERE user_id = ? AND course_id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, progress, now, userID, courseID); err != nil {
		r.logger.Error("failed to advance enrollment progress",
			zap.String("user_id", userID),
			zap.String("course_id", courseID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to advance enrollment progress: %w", err)
	}

	return r.Get(ctx, userID, courseID)
}

// ListByUser retrieves a page of the user's enrolled courses, newest enrollment first,
// together with the total number of enrollments matching the status
func (r *enrollmentRepository) ListByUser(ctx context.Context, userID string, status models.EnrollmentStatus, page models.PageRequest) ([]models.EnrolledCourse, int, error) {
	whereClause := "WHERE e.user_id = ?"
	args := []any{userID}

	switch status {
	case models.EnrollmentStatusInProgress:
		whereClause += " AND e.progress > 0 AND e.progress < 100"
	case models.EnrollmentStatusCompleted:
		whereClause += " AND e.progress = 100"
	case models.EnrollmentStatusAny:
	default:
		return nil, 0, fmt.Errorf("invalid enrollment status: %s", status)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM enrollments e %s", whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("failed to count enrollments", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	if total == 0 {
		return []models.EnrolledCourse{}, 0, nil
	}

	query := fmt.Sprintf(`
		SELECT
			c.id,
			c.title,
			c.category,
			c.level,
			c.instructor_name,
			c.instructor_avatar,
			c.thumbnail,
			e.progress,
			e.enrolled_at,
			e.completed_at,
			(SELECT COUNT(*) FROM lessons l WHERE l.course_id = c.id) AS total_lessons,
			(
				SELECT COUNT(*) FROM lesson_progress lp
				JOIN lessons l ON l.id = lp.lesson_id
				WHERE lp.user_id = e.user_id AND lp.course_id = e.course_id AND lp.completed = 1
			) AS completed_lessons
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		%s
		ORDER BY e.enrolled_at DESC, e.id ASC
		LIMIT ? OFFSET ?
	`, whereClause)

	args = append(args, page.Limit, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query enrolled courses", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to query enrolled courses: %w", err)
	}
	defer rows.Close()

	courses := []models.EnrolledCourse{}
	for rows.Next() {
		var (
			course      models.EnrolledCourse
			level       string
			avatar      sql.NullString
			thumbnail   sql.NullString
			completedAt sql.NullTime
		)
		err := rows.Scan(
			&course.ID,
			&course.Title,
			&course.Category,
			&level,
			&course.Instructor.Name,
			&avatar,
			&thumbnail,
			&course.Progress,
			&course.EnrolledDate,
			&completedAt,
			&course.TotalLessons,
			&course.CompletedLessons,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan enrolled course: %w", err)
		}
		course.Level = models.Level(level)
		course.Instructor.Avatar = avatar.String
		if thumbnail.Valid {
			course.Thumbnail = &thumbnail.String
		}
		if completedAt.Valid {
			course.CompletedAt = &completedAt.Time
		}
		courses = append(courses, course)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating rows: %w", err)
	}

	return courses, total, nil
}

func scanEnrollment(row rowScanner) (*models.Enrollment, error) {
	var (
		enrollment  models.Enrollment
		completedAt sql.NullTime
	)
	err := row.Scan(
		&enrollment.ID,
		&enrollment.UserID,
		&enrollment.CourseID,
		&enrollment.Progress,
		&enrollment.EnrolledAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		enrollment.CompletedAt = &completedAt.Time
	}
	return &enrollment, nil
}
