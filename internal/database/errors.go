package database

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrorClass groups driver errors by how a caller should react to them
type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassDuplicate
)

// MySQL server error numbers
const (
	mysqlDuplicateEntry   = 1062
	mysqlLockWaitTimeout  = 1205
	mysqlDeadlock         = 1213
	mysqlForeignKeyFailed = 1452
)

var (
	// ErrNotFound is returned by repositories when a row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned by repositories when a unique key rejects an insert
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict is returned when a guarded write is rejected by the state of another table
	ErrConflict = errors.New("conflicting record")
	// ErrCapacityReached is returned when a capacity guarded insert finds no free slot
	ErrCapacityReached = errors.New("capacity reached")
)

// ClassifyError maps a driver error to an ErrorClass
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return ErrorClassDuplicate
		case mysqlDeadlock:
			return ErrorClassDeadlock
		case mysqlLockWaitTimeout:
			return ErrorClassTransient
		case mysqlForeignKeyFailed:
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

// IsDuplicate reports whether err is a unique-key violation
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate) || ClassifyError(err) == ErrorClassDuplicate
}

// IsRetryable reports whether the transaction that produced err may be retried
func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient || class == ErrorClassDeadlock
}
