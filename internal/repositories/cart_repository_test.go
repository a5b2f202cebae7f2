package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/skillcart/backend/internal/database"
	"github.com/skillcart/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var cartRowColumns = []string{
	"id", "user_id", "course_id", "quantity", "added_at", "title", "price",
	"instructor_name", "instructor_avatar", "thumbnail",
}

// setupCartTestRepository creates a cart repository with a mock database
func setupCartTestRepository(t *testing.T) (*cartRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewCartRepository(db, zap.NewNop())

	cleanup := func() {
		db.Close()
	}

	return repo, mock, cleanup
}

func TestNewCartRepository(t *testing.T) {
	logger := zap.NewNop()
	db := &sql.DB{}

	repo := NewCartRepository(db, logger)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
	assert.Equal(t, logger, repo.logger)
}

func TestCartRepository_ListByUser(t *testing.T) {
	added := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError bool
		expectedCount int
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(cartRowColumns).
					AddRow("i-1", "user-1", "c-1", 1, added, "Go Basics", 299000, "Jane", "", "https://cdn/go.png").
					AddRow("i-2", "user-1", "c-2", 2, added, "Rust", 100, "John", "a.png", nil)
				mock.ExpectQuery(`SELECT .* FROM cart_items ci JOIN courses c ON c.id = ci.course_id WHERE ci.user_id = \? ORDER BY ci.added_at ASC, ci.id ASC`).
					WithArgs("user-1").
					WillReturnRows(rows)
			},
			expectedCount: 2,
		},
		{
			name: "empty cart",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .* FROM cart_items ci`).
					WithArgs("user-1").
					WillReturnRows(sqlmock.NewRows(cartRowColumns))
			},
			expectedCount: 0,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .* FROM cart_items ci`).
					WithArgs("user-1").
					WillReturnError(errors.New("database error"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupCartTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			items, err := repo.ListByUser(context.Background(), "user-1")

			if tt.expectedError {
				assert.Error(t, err)
				assert.Nil(t, items)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, items)
				assert.Len(t, items, tt.expectedCount)
				for _, item := range items {
					assert.Equal(t, item.CourseID, item.Course.ID)
				}
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCartRepository_GetByID(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo, mock, cleanup := setupCartTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT .* FROM cart_items ci .* WHERE ci.id = \? AND ci.user_id = \?`).
			WithArgs("i-1", "user-1").
			WillReturnRows(sqlmock.NewRows(cartRowColumns).
				AddRow("i-1", "user-1", "c-1", 3, time.Now(), "Go Basics", 299000, "Jane", nil, nil))

		item, err := repo.GetByID(context.Background(), "user-1", "i-1")

		require.NoError(t, err)
		assert.Equal(t, 3, item.Quantity)
		assert.Nil(t, item.Course.Thumbnail)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, cleanup := setupCartTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT .* FROM cart_items ci`).
			WithArgs("i-1", "user-1").
			WillReturnError(sql.ErrNoRows)

		item, err := repo.GetByID(context.Background(), "user-1", "i-1")

		assert.ErrorIs(t, err, database.ErrNotFound)
		assert.Nil(t, item)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCartRepository_Insert(t *testing.T) {
	item := &models.CartItem{
		ID:       "i-1",
		UserID:   "user-1",
		CourseID: "c-1",
		Quantity: 1,
		AddedAt:  time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name        string
		setupMock   func(sqlmock.Sqlmock)
		expectedErr error
		expectError bool
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO cart_items .* SELECT .* FROM DUAL WHERE NOT EXISTS \( SELECT 1 FROM enrollments e`).
					WithArgs("i-1", "user-1", "c-1", 1, item.AddedAt, "user-1", "c-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "already enrolled",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO cart_items`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectError: true,
			expectedErr: database.ErrConflict,
		},
		{
			name: "already in cart",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO cart_items`).
					WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
			},
			expectError: true,
			expectedErr: database.ErrDuplicate,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO cart_items`).
					WillReturnError(errors.New("database error"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupCartTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			err := repo.Insert(context.Background(), item)

			if tt.expectError {
				assert.Error(t, err)
				if tt.expectedErr != nil {
					assert.ErrorIs(t, err, tt.expectedErr)
				}
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCartRepository_UpdateQuantity(t *testing.T) {
	repo, mock, cleanup := setupCartTestRepository(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE cart_items SET quantity = \? WHERE id = \? AND user_id = \?`).
		WithArgs(4, "i-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateQuantity(context.Background(), "user-1", "i-1", 4)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Delete(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(sqlmock.Sqlmock)
		expectedErr error
		expectError bool
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM cart_items WHERE id = \? AND user_id = \?`).
					WithArgs("i-1", "user-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "already removed",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM cart_items`).
					WithArgs("i-1", "user-1").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectError: true,
			expectedErr: database.ErrNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM cart_items`).
					WithArgs("i-1", "user-1").
					WillReturnError(errors.New("database error"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupCartTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			err := repo.Delete(context.Background(), "user-1", "i-1")

			if tt.expectError {
				assert.Error(t, err)
				if tt.expectedErr != nil {
					assert.ErrorIs(t, err, tt.expectedErr)
				}
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCartRepository_Clear(t *testing.T) {
	repo, mock, cleanup := setupCartTestRepository(t)
	defer cleanup()

	mock.ExpectExec(`DELETE FROM cart_items WHERE user_id = \?`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.Clear(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_ExistsForCourse(t *testing.T) {
	repo, mock, cleanup := setupCartTestRepository(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM cart_items WHERE user_id = \? AND course_id = \?\)`).
		WithArgs("user-1", "c-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.ExistsForCourse(context.Background(), "user-1", "c-1")

	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
