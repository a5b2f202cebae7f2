package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/skillcart/backend/internal/database"
	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
)

const cartItemColumns = `
		ci.id,
		ci.user_id,
		ci.course_id,
		ci.quantity,
		ci.added_at,
		c.title,
		c.price,
		c.instructor_name,
		c.instructor_avatar,
		c.thumbnail`

type cartRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCartRepository creates a new cart repository
func NewCartRepository(db *sql.DB, logger *zap.Logger) *cartRepository {
	return &cartRepository{
		db:     db,
		logger: logger,
	}
}

// ListByUser retrieves the user's cart items with their course snapshot in insertion order
func (r *cartRepository) ListByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM cart_items ci
		JOIN courses c ON c.id = ci.course_id
		WHERE ci.user_id = ?
		ORDER BY ci.added_at ASC, ci.id ASC
	`, cartItemColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to query cart items", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}

// GetByID retrieves a cart item owned by the user.
// Returns database.ErrNotFound for unknown items and items of other users.
func (r *cartRepository) GetByID(ctx context.Context, userID, itemID string) (*models.CartItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM cart_items ci
		JOIN courses c ON c.id = ci.course_id
		WHERE ci.id = ? AND ci.user_id = ?
		LIMIT 1
	`, cartItemColumns)

	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, itemID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	return item, nil
}

// Insert adds an item unless the user is already enrolled in the course.
// The enrollment check and the insert are one statement, so a committed enrollment
// always wins: database.ErrConflict is returned when the user owns the course and
// database.ErrDuplicate when the course is already in the cart.
func (r *cartRepository) Insert(ctx context.Context, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (id, user_id, course_id, quantity, added_at)
		SELECT ?, ?, ?, ?, ?
		FROM DUAL
		WHERE NOT EXISTS (
			SELECT 1 FROM enrollments e
			WHERE e.user_id = ? AND e.course_id = ?
		)
	`

	result, err := r.db.ExecContext(ctx, query,
		item.ID, item.UserID, item.CourseID, item.Quantity, item.AddedAt,
		item.UserID, item.CourseID,
	)
	if err != nil {
		if database.IsDuplicate(err) {
			return fmt.Errorf("cart item for course %s: %w", item.CourseID, database.ErrDuplicate)
		}
		r.logger.Error("failed to insert cart item", zap.String("user_id", item.UserID), zap.Error(err))
		return fmt.Errorf("failed to insert cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("course %s is owned: %w", item.CourseID, database.ErrConflict)
	}
	return nil
}

// UpdateQuantity sets the quantity of a cart item owned by the user.
// MySQL reports zero affected rows for unchanged values, so existence is the caller's check.
func (r *cartRepository) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	query := `UPDATE cart_items SET quantity = ? WHERE id = ? AND user_id = ?`

	if _, err := r.db.ExecContext(ctx, query, quantity, itemID, userID); err != nil {
		r.logger.Error("failed to update cart item quantity", zap.String("item_id", itemID), zap.Error(err))
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return nil
}

// Delete removes a cart item owned by the user.
// Returns database.ErrNotFound if nothing was removed.
func (r *cartRepository) Delete(ctx context.Context, userID, itemID string) error {
	query := `DELETE FROM cart_items WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query, itemID, userID)
	if err != nil {
		r.logger.Error("failed to delete cart item", zap.String("item_id", itemID), zap.Error(err))
		return fmt.Errorf("failed to delete cart item: %w", err)
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

// Clear removes every item of the user's cart and returns how many were removed
func (r *cartRepository) Clear(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM cart_items WHERE user_id = ?`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to clear cart", zap.String("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// ExistsForCourse reports whether the course is in the user's cart
func (r *cartRepository) ExistsForCourse(ctx context.Context, userID, courseID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM cart_items WHERE user_id = ? AND course_id = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, courseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check cart item existence: %w", err)
	}
	return exists, nil
}

func scanCartItem(row rowScanner) (*models.CartItem, error) {
	var (
		item      models.CartItem
		avatar    sql.NullString
		thumbnail sql.NullString
	)
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.CourseID,
		&item.Quantity,
		&item.AddedAt,
		&item.Course.Title,
		&item.Course.Price,
		&item.Course.Instructor.Name,
		&avatar,
		&thumbnail,
	)
	if err != nil {
		return nil, err
	}

	item.Course.ID = item.CourseID
	item.Course.Instructor.Avatar = avatar.String
	if thumbnail.Valid {
		item.Course.Thumbnail = &thumbnail.String
	}
	return &item, nil
}
