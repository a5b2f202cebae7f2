package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/skillcart/backend/internal/database"
	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
)

// courseColumns is the projection shared by every course query.
// total_lessons is derived so that listings never need the curriculum.
const courseColumns = `
		c.id,
		c.title,
		c.description,
		c.price,
		c.level,
		c.category,
		c.instructor_name,
		c.instructor_avatar,
		c.rating,
		c.students_count,
		c.thumbnail,
		c.skills,
		c.requirements,
		c.max_students,
		c.last_updated,
		(SELECT COUNT(*) FROM lessons l WHERE l.course_id = c.id) AS total_lessons`

// sortColumns whitelists ORDER BY columns per sort key
var sortColumns = map[models.SortKey]string{
	models.SortNewest: "c.last_updated",
	models.SortRating: "c.rating",
	models.SortPrice:  "c.price",
}

type courseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *sql.DB, logger *zap.Logger) *courseRepository {
	return &courseRepository{
		db:     db,
		logger: logger,
	}
}

// List retrieves a page of courses matching the filter in the requested order
// together with the total number of matching courses
func (r *courseRepository) List(ctx context.Context, filter models.CourseFilter, sort models.CourseSort, page models.PageRequest) ([]models.Course, int, error) {
	var whereClauses []string
	var args []any

	if filter.Category != "" {
		whereClauses = append(whereClauses, "LOWER(c.category) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Category))+"%")
	}
	if filter.Level != "" {
		whereClauses = append(whereClauses, "c.level = ?")
		args = append(args, string(filter.Level))
	}
	if filter.MinPrice != nil {
		whereClauses = append(whereClauses, "c.price >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		whereClauses = append(whereClauses, "c.price <= ?")
		args = append(args, *filter.MaxPrice)
	}

	whereClause := ""
	if len(whereClauses) > 0 {
		whereClause = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM courses c %s", whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("failed to count courses", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}
	if total == 0 {
		return []models.Course{}, 0, nil
	}

	column, ok := sortColumns[sort.By]
	if !ok {
		return nil, 0, fmt.Errorf("invalid sort key: %s", sort.By)
	}
	direction := "DESC"
	if sort.Order == models.SortAsc {
		direction = "ASC"
	}

	// Ties are broken by id so that pages never overlap
	query := fmt.Sprintf(`
		SELECT %s
		FROM courses c
		%s
		ORDER BY %s %s, c.id ASC
		LIMIT ? OFFSET ?
	`, courseColumns, whereClause, column, direction)

	args = append(args, page.Limit, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query courses", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	courses, err := scanCourses(rows)
	if err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

// ListAll retrieves every course without curriculum, ordered by id
func (r *courseRepository) ListAll(ctx context.Context) ([]models.Course, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM courses c
		ORDER BY c.id ASC
	`, courseColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to query all courses", zap.Error(err))
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	return scanCourses(rows)
}

// GetByID retrieves a course with its curriculum.
// Returns database.ErrNotFound when the course does not exist.
func (r *courseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM courses c
		WHERE c.id = ?
		LIMIT 1
	`, courseColumns)

	course, err := scanCourse(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course by id: %w", err)
	}

	curriculum, err := r.getCurriculum(ctx, id)
	if err != nil {
		return nil, err
	}
	course.Curriculum = curriculum

	return course, nil
}

// getCurriculum loads sections and lessons ordered by position
func (r *courseRepository) getCurriculum(ctx context.Context, courseID string) ([]models.Section, error) {
	query := `
		SELECT s.id, s.title, l.id, l.title, l.duration_seconds, l.is_preview
		FROM course_sections s
		LEFT JOIN lessons l ON l.section_id = s.id
		WHERE s.course_id = ?
		ORDER BY s.position, s.id, l.position, l.id
	`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		r.logger.Error("failed to query curriculum", zap.String("course_id", courseID), zap.Error(err))
		return nil, fmt.Errorf("failed to query curriculum: %w", err)
	}
	defer rows.Close()

	sections := []models.Section{}
	for rows.Next() {
		var (
			sectionID    int
			sectionTitle string
			lessonID     sql.NullString
			lessonTitle  sql.NullString
			duration     sql.NullInt64
			isPreview    sql.NullBool
		)
		if err := rows.Scan(&sectionID, &sectionTitle, &lessonID, &lessonTitle, &duration, &isPreview); err != nil {
			return nil, fmt.Errorf("failed to scan curriculum: %w", err)
		}

		if len(sections) == 0 || sections[len(sections)-1].ID != sectionID {
			sections = append(sections, models.Section{ID: sectionID, Title: sectionTitle, Lessons: []models.Lesson{}})
		}
		// Sections without lessons produce a single row with NULL lesson columns
		if !lessonID.Valid {
			continue
		}
		current := &sections[len(sections)-1]
		current.Lessons = append(current.Lessons, models.Lesson{
			ID:        lessonID.String,
			Title:     lessonTitle.String,
			Duration:  int(duration.Int64),
			IsPreview: isPreview.Bool,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return sections, nil
}

// Exists reports whether a course with the given id exists
func (r *courseRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM courses WHERE id = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check course existence: %w", err)
	}
	return exists, nil
}

// IncrementStudentsCount adds delta to the denormalized student counter.
// Returns database.ErrNotFound when the course does not exist.
func (r *courseRepository) IncrementStudentsCount(ctx context.Context, id string, delta int) error {
	query := `UPDATE courses SET students_count = GREATEST(students_count + ?, 0) WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, delta, id)
	if err != nil {
		r.logger.Error("failed to update students count", zap.String("course_id", id), zap.Error(err))
		return fmt.Errorf("failed to update students count: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// RecountStudents recomputes every course's student counter from its enrollments.
// Returns the number of courses whose counter changed.
func (r *courseRepository) RecountStudents(ctx context.Context) (int64, error) {
	query := `
		UPDATE courses c
		SET c.students_count = (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id)
		WHERE c.students_count <> (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id)
	`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to recount students", zap.Error(err))
		return 0, fmt.Errorf("failed to recount students: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(row rowScanner) (*models.Course, error) {
	var (
		course       models.Course
		level        string
		avatar       sql.NullString
		thumbnail    sql.NullString
		skills       []byte
		requirements []byte
		maxStudents  sql.NullInt64
	)
	err := row.Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&course.Price,
		&level,
		&course.Category,
		&course.Instructor.Name,
		&avatar,
		&course.Rating,
		&course.StudentsCount,
		&thumbnail,
		&skills,
		&requirements,
		&maxStudents,
		&course.LastUpdated,
		&course.TotalLessons,
	)
	if err != nil {
		return nil, err
	}

	course.Level = models.Level(level)
	course.Instructor.Avatar = avatar.String
	if thumbnail.Valid {
		course.Thumbnail = &thumbnail.String
	}
	if maxStudents.Valid {
		limit := int(maxStudents.Int64)
		course.MaxStudents = &limit
	}
	if course.Skills, err = decodeStringList(skills); err != nil {
		return nil, fmt.Errorf("failed to decode skills of course %s: %w", course.ID, err)
	}
	if course.Requirements, err = decodeStringList(requirements); err != nil {
		return nil, fmt.Errorf("failed to decode requirements of course %s: %w", course.ID, err)
	}

	return &course, nil
}

func scanCourses(rows *sql.Rows) ([]models.Course, error) {
	courses := []models.Course{}
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, *course)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return courses, nil
}

// decodeStringList decodes a JSON array column; NULL and empty values yield an empty list
func decodeStringList(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

// escapeLike escapes LIKE wildcards in user input
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
