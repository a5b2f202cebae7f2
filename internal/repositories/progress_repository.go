package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/skillcart/backend/internal/database"
	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
)

type progressRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProgressRepository creates a new lesson progress repository
func NewProgressRepository(db *sql.DB, logger *zap.Logger) *progressRepository {
	return &progressRepository{
		db:     db,
		logger: logger,
	}
}

// ListByEnrollment retrieves the user's lesson progress for the course in curriculum order.
// Rows of lessons no longer in the curriculum are skipped.
func (r *progressRepository) ListByEnrollment(ctx context.Context, userID, courseID string) ([]models.LessonProgress, error) {
	query := `
		SELECT lp.lesson_id, lp.completed, lp.time_spent, lp.watched_duration, lp.completed_at, lp.updated_at
		FROM lesson_progress lp
		JOIN lessons l ON l.id = lp.lesson_id
		JOIN course_sections s ON s.id = l.section_id
		WHERE lp.user_id = ? AND lp.course_id = ?
		ORDER BY s.position, l.position, l.id
	`

	rows, err := r.db.QueryContext(ctx, query, userID, courseID)
	if err != nil {
		r.logger.Error("failed to query lesson progress",
			zap.String("user_id", userID),
			zap.String("course_id", courseID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to query lesson progress: %w", err)
	}
	defer rows.Close()

	progress := []models.LessonProgress{}
	for rows.Next() {
		lp, err := scanLessonProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lesson progress: %w", err)
		}
		progress = append(progress, *lp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return progress, nil
}

// Save records a lesson progress update and returns the stored row together with the
// number of completed lessons of the course. Completion is sticky, time spent
// accumulates and the watched duration keeps its maximum.
func (r *progressRepository) Save(ctx context.Context, update models.LessonProgressUpdate, now time.Time) (*models.LessonProgress, int, error) {
	var completedAt any
	if update.Completed {
		completedAt = now
	}

	var (
		saved     *models.LessonProgress
		completed int
	)
	err := database.WithTransaction(ctx, r.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO lesson_progress
				(user_id, course_id, lesson_id, completed, time_spent, watched_duration, completed_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				completed = completed OR VALUES(completed),
				time_spent = time_spent + VALUES(time_spent),
				watched_duration = GREATEST(watched_duration, VALUES(watched_duration)),
				completed_at = COALESCE(completed_at, VALUES(completed_at)),
				updated_at = VALUES(updated_at)
		`,
			update.UserID, update.CourseID, update.LessonID,
			update.Completed, update.TimeSpent, update.WatchedDuration,
			completedAt, now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert lesson progress: %w", err)
		}

		row := tx.QueryRowContext(ctx, `
			SELECT lesson_id, completed, time_spent, watched_duration, completed_at, updated_at
			FROM lesson_progress
			WHERE user_id = ? AND course_id = ? AND lesson_id = ?
		`, update.UserID, update.CourseID, update.LessonID)
		if saved, err = scanLessonProgress(row); err != nil {
			return fmt.Errorf("failed to read lesson progress: %w", err)
		}

		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM lesson_progress lp
			JOIN lessons l ON l.id = lp.lesson_id
			WHERE lp.user_id = ? AND lp.course_id = ? AND lp.completed = 1
		`, update.UserID, update.CourseID).Scan(&completed); err != nil {
			return fmt.Errorf("failed to count completed lessons: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to save lesson progress",
			zap.String("user_id", update.UserID),
			zap.String("lesson_id", update.LessonID),
			zap.Error(err))
		return nil, 0, err
	}

	return saved, completed, nil
}

func scanLessonProgress(row rowScanner) (*models.LessonProgress, error) {
	var (
		lp          models.LessonProgress
		completedAt sql.NullTime
	)
	if err := row.Scan(&lp.LessonID, &lp.Completed, &lp.TimeSpent, &lp.WatchedDuration, &completedAt, &lp.UpdatedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		lp.CompletedAt = &completedAt.Time
	}
	return &lp, nil
}
